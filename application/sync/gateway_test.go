package sync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"facemark.io/infrastructure/network"
)

func signedTestToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(expiresIn).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("could not sign test token: %v", err)
	}
	return token
}

type remoteFixture struct {
	server          *httptest.Server
	loginCalls      int
	attendanceCalls int
	tokens          []string
	attendance      func(fixture *remoteFixture, w http.ResponseWriter, r *http.Request)
}

func newRemoteFixture(t *testing.T, tokens []string) *remoteFixture {
	fixture := &remoteFixture{tokens: tokens}
	fixture.attendance = func(f *remoteFixture, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		index := fixture.loginCalls
		if index >= len(fixture.tokens) {
			index = len(fixture.tokens) - 1
		}
		fixture.loginCalls++
		json.NewEncoder(w).Encode(map[string]string{"token": fixture.tokens[index]})
	})
	mux.HandleFunc(attendancePath, func(w http.ResponseWriter, r *http.Request) {
		fixture.attendanceCalls++
		fixture.attendance(fixture, w, r)
	})

	fixture.server = httptest.NewServer(mux)
	t.Cleanup(fixture.server.Close)
	return fixture
}

func newTestGateway(t *testing.T, baseURL string) *SyncGateway {
	t.Setenv("REMOTE_EMAIL", "kiosk@example.com")
	t.Setenv("REMOTE_PASSWORD", "secret")
	gateway := NewSyncGateway(&network.NetworkController{BaseUrl: baseURL}, NewMemoryQueue())
	gateway.PrimeRemoteKey("emp-1", "EMP-001")
	return gateway
}

func TestPostAttendanceSuccess(t *testing.T) {
	fixture := newRemoteFixture(t, []string{signedTestToken(t, time.Hour)})
	gateway := newTestGateway(t, fixture.server.URL)

	outcome := gateway.PostAttendance("emp-1", nil, time.Now())
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if fixture.loginCalls != 1 {
		t.Errorf("expected one login, got %d", fixture.loginCalls)
	}

	// a still-valid token must be reused, not refreshed
	outcome = gateway.PostAttendance("emp-1", nil, time.Now())
	if !outcome.Success {
		t.Fatalf("expected second success, got %+v", outcome)
	}
	if fixture.loginCalls != 1 {
		t.Errorf("valid token should skip reauthentication, logins: %d", fixture.loginCalls)
	}

	entries, _ := gateway.Queue.Entries()
	if len(entries) != 0 {
		t.Errorf("successful writes must not queue, found %d entries", len(entries))
	}
}

func TestPostAttendanceSingleReauthAndRetry(t *testing.T) {
	staleToken := signedTestToken(t, time.Hour)
	freshToken := signedTestToken(t, 2*time.Hour)
	fixture := newRemoteFixture(t, []string{staleToken, freshToken})
	fixture.attendance = func(f *remoteFixture, w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+freshToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	gateway := newTestGateway(t, fixture.server.URL)

	outcome := gateway.PostAttendance("emp-1", nil, time.Now())
	if !outcome.Success {
		t.Fatalf("expected success after one retry, got %+v", outcome)
	}
	if fixture.loginCalls != 2 {
		t.Errorf("expected exactly one reauthentication after the initial login, logins: %d", fixture.loginCalls)
	}
	if fixture.attendanceCalls != 2 {
		t.Errorf("expected exactly one retry of the write, attempts: %d", fixture.attendanceCalls)
	}
}

func TestPostAttendancePersistentAuthFailureQueues(t *testing.T) {
	fixture := newRemoteFixture(t, []string{signedTestToken(t, time.Hour)})
	fixture.attendance = func(f *remoteFixture, w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	gateway := newTestGateway(t, fixture.server.URL)

	outcome := gateway.PostAttendance("emp-1", nil, time.Now())
	if outcome.Success {
		t.Fatal("write must fail when the retry is also rejected")
	}
	if !outcome.Queued {
		t.Error("failed write must be queued")
	}
	if fixture.attendanceCalls != 2 {
		t.Errorf("only one retry is allowed, attempts: %d", fixture.attendanceCalls)
	}

	entries, _ := gateway.Queue.Entries()
	if len(entries) != 1 || entries[0].SubjectID != "emp-1" {
		t.Errorf("expected one queued entry for emp-1, got %+v", entries)
	}
}

func TestPostAttendanceNetworkErrorQueues(t *testing.T) {
	fixture := newRemoteFixture(t, []string{signedTestToken(t, time.Hour)})
	fixture.server.Close()
	gateway := newTestGateway(t, fixture.server.URL)

	timestamp := time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)
	outcome := gateway.PostAttendance("emp-1", nil, timestamp)
	if outcome.Success || !outcome.Queued {
		t.Fatalf("connection failure must queue, got %+v", outcome)
	}

	entries, _ := gateway.Queue.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one queued entry, got %d", len(entries))
	}
	if entries[0].Timestamp != "2024-03-11T09:30:00Z" {
		t.Errorf("queued timestamp should be iso8601 utc, got %s", entries[0].Timestamp)
	}
}

func TestFlushQueueKeepsFailuresInOrder(t *testing.T) {
	fixture := newRemoteFixture(t, []string{signedTestToken(t, time.Hour)})
	fixture.attendance = func(f *remoteFixture, w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["employee"] == "EMP-B" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	gateway := newTestGateway(t, fixture.server.URL)
	gateway.PrimeRemoteKey("emp-a", "EMP-A")
	gateway.PrimeRemoteKey("emp-b", "EMP-B")
	gateway.PrimeRemoteKey("emp-c", "EMP-C")

	for _, subject := range []string{"emp-a", "emp-b", "emp-c"} {
		if err := gateway.Queue.Enqueue(QueueEntry{SubjectID: subject, Timestamp: "2024-03-11T09:00:00Z"}); err != nil {
			t.Fatalf("could not seed queue: %v", err)
		}
	}

	delivered, err := gateway.FlushQueue()
	if err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if delivered != 2 {
		t.Errorf("expected 2 delivered entries, got %d", delivered)
	}

	remaining, _ := gateway.Queue.Entries()
	if len(remaining) != 1 || remaining[0].SubjectID != "emp-b" {
		t.Errorf("only the failed entry should remain, got %+v", remaining)
	}
}

func TestFlushQueueEmpty(t *testing.T) {
	fixture := newRemoteFixture(t, []string{signedTestToken(t, time.Hour)})
	gateway := newTestGateway(t, fixture.server.URL)

	delivered, err := gateway.FlushQueue()
	if err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if delivered != 0 {
		t.Errorf("empty queue should deliver nothing, got %d", delivered)
	}
	if fixture.attendanceCalls != 0 {
		t.Errorf("empty flush must not hit the remote, attempts: %d", fixture.attendanceCalls)
	}
}
