package sync

import (
	gosync "sync"
)

// QueueEntry is one attendance event waiting for a later flush. Entries
// survive process restarts when backed by redis.
type QueueEntry struct {
	SubjectID string `json:"subjectID"`
	Timestamp string `json:"timestamp"`
}

// OfflineQueue stores failed attendance writes in arrival order. Replace
// swaps the whole queue in one shot so a flush can keep only its failures.
type OfflineQueue interface {
	Enqueue(entry QueueEntry) error
	Entries() ([]QueueEntry, error)
	Replace(entries []QueueEntry) error
}

// MemoryQueue is the in-process queue used in tests and as a degraded mode
// when redis is unreachable.
type MemoryQueue struct {
	mutex   gosync.Mutex
	entries []QueueEntry
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (queue *MemoryQueue) Enqueue(entry QueueEntry) error {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	queue.entries = append(queue.entries, entry)
	return nil
}

func (queue *MemoryQueue) Entries() ([]QueueEntry, error) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	snapshot := make([]QueueEntry, len(queue.entries))
	copy(snapshot, queue.entries)
	return snapshot, nil
}

func (queue *MemoryQueue) Replace(entries []QueueEntry) error {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	queue.entries = make([]QueueEntry, len(entries))
	copy(queue.entries, entries)
	return nil
}
