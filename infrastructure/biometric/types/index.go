package types

import (
	"errors"
	"image"
)

// Strategy identifies which extractor produced an embedding. Matching
// thresholds differ by strategy, so the tag travels with the vector.
type Strategy string

const (
	StrategyDeepModel Strategy = "deep_model"
	StrategyFallback  Strategy = "fallback"
)

// FallbackEmbeddingSize is the fixed output length of the handcrafted
// extractor. The deep model declares its own output size at load time.
const FallbackEmbeddingSize = 128

var (
	ErrExtraction     = errors.New("face image could not be processed")
	ErrModelNotLoaded = errors.New("embedding model not loaded")
	ErrStoreDecode    = errors.New("stored embedding could not be decoded")
)

// Embedding is a unit-normalized feature vector for one face.
type Embedding struct {
	Vector   []float32 `json:"vector"`
	Strategy Strategy  `json:"strategy"`
}

func (e *Embedding) Dim() int {
	return len(e.Vector)
}

// StrategyForDim infers the producing strategy from a stored vector's
// length. Anything that is not the fallback size came from a deep model.
func StrategyForDim(dim int) Strategy {
	if dim == FallbackEmbeddingSize {
		return StrategyFallback
	}
	return StrategyDeepModel
}

type EmbeddingExtractor interface {
	Extract(faceImage image.Image) (*Embedding, error)
	Strategy() Strategy
}

// LivenessAnalysis carries the five sub-scores behind a liveness decision,
// each clamped to [0,1].
type LivenessAnalysis struct {
	TextureScore    float64 `json:"texture_score"`
	BrightnessScore float64 `json:"brightness_score"`
	EdgeScore       float64 `json:"edge_score"`
	ColorScore      float64 `json:"color_score"`
	BlurScore       float64 `json:"blur_score"`
}

type LivenessResult struct {
	IsLive        bool             `json:"is_live"`
	Confidence    float64          `json:"confidence"`
	Analysis      LivenessAnalysis `json:"analysis"`
	FailureReason *string          `json:"failure_reason,omitempty"`
}

type LivenessAnalyzerType interface {
	Analyze(frame image.Image, faceBox image.Rectangle) (*LivenessResult, error)
}

// RankedCandidate is one (identifier, similarity) pair considered during a
// matching pass, kept for operator diagnostics.
type RankedCandidate struct {
	EmployeeID string  `json:"employee_id"`
	Similarity float64 `json:"similarity"`
}

type RecognitionResult struct {
	Match          bool              `json:"match"`
	BestEmployeeID *string           `json:"best_employee_id,omitempty"`
	Confidence     float64           `json:"confidence"`
	ThresholdUsed  float64           `json:"threshold_used"`
	Ranked         []RankedCandidate `json:"ranked,omitempty"`
	FailureReason  *string           `json:"failure_reason,omitempty"`
}

type IdentityMatcherType interface {
	FindBestMatch(query *Embedding, candidates map[string]Embedding) *RecognitionResult
}
