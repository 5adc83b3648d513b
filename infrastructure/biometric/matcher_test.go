package biometric

import (
	"math"
	"testing"

	"facemark.io/infrastructure/biometric/types"
)

func unitVector(dim int, hot int) []float32 {
	vector := make([]float32, dim)
	vector[hot] = 1
	return vector
}

func TestFindBestMatchSelfSimilarity(t *testing.T) {
	matcher := NewMatcher(GetDefaultMatcherConfig())
	query := &types.Embedding{Vector: unitVector(128, 3), Strategy: types.StrategyFallback}

	result := matcher.FindBestMatch(query, map[string]types.Embedding{
		"emp-1": {Vector: unitVector(128, 3), Strategy: types.StrategyFallback},
		"emp-2": {Vector: unitVector(128, 9), Strategy: types.StrategyFallback},
	})

	if !result.Match {
		t.Fatal("expected a match against an identical candidate")
	}
	if result.BestEmployeeID == nil || *result.BestEmployeeID != "emp-1" {
		t.Errorf("expected emp-1 as best match, got %v", result.BestEmployeeID)
	}
	if math.Abs(result.Confidence-1.0) > 1e-6 {
		t.Errorf("self similarity should be 1.0, got %f", result.Confidence)
	}
	if len(result.Ranked) != 2 || result.Ranked[0].EmployeeID != "emp-1" {
		t.Errorf("ranked list should lead with the best candidate: %+v", result.Ranked)
	}
}

func TestFindBestMatchOrthogonalBelowThreshold(t *testing.T) {
	matcher := NewMatcher(GetDefaultMatcherConfig())
	query := &types.Embedding{Vector: unitVector(128, 0), Strategy: types.StrategyFallback}

	result := matcher.FindBestMatch(query, map[string]types.Embedding{
		"emp-1": {Vector: unitVector(128, 64), Strategy: types.StrategyFallback},
	})

	if result.Match {
		t.Fatal("orthogonal vectors must not match")
	}
	if result.BestEmployeeID != nil {
		t.Errorf("no best id should be reported without a match, got %v", *result.BestEmployeeID)
	}
	if math.Abs(result.Confidence) > 1e-6 {
		t.Errorf("orthogonal similarity should be 0, got %f", result.Confidence)
	}
}

func TestFindBestMatchThresholdPerStrategy(t *testing.T) {
	matcher := NewMatcher(GetDefaultMatcherConfig())

	// two unit vectors with cosine similarity 0.52: between the deep (0.50)
	// and fallback (0.55) thresholds
	a := []float32{1, 0}
	b := []float32{0.52, float32(math.Sqrt(1 - 0.52*0.52))}

	tests := []struct {
		name      string
		strategy  types.Strategy
		wantMatch bool
	}{
		{name: "deep model accepts 0.52", strategy: types.StrategyDeepModel, wantMatch: true},
		{name: "fallback rejects 0.52", strategy: types.StrategyFallback, wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &types.Embedding{Vector: a, Strategy: tt.strategy}
			result := matcher.FindBestMatch(query, map[string]types.Embedding{
				"emp-1": {Vector: b, Strategy: tt.strategy},
			})
			if result.Match != tt.wantMatch {
				t.Errorf("match = %v, want %v (confidence %f, threshold %f)",
					result.Match, tt.wantMatch, result.Confidence, result.ThresholdUsed)
			}
		})
	}
}

func TestFindBestMatchNoEnrolledIdentities(t *testing.T) {
	matcher := NewMatcher(GetDefaultMatcherConfig())
	query := &types.Embedding{Vector: unitVector(128, 0), Strategy: types.StrategyFallback}

	result := matcher.FindBestMatch(query, map[string]types.Embedding{})
	if result.Match {
		t.Fatal("empty candidate set must not match")
	}
	if result.FailureReason == nil || *result.FailureReason != "no_enrolled_identities" {
		t.Errorf("expected no_enrolled_identities, got %v", result.FailureReason)
	}
}

func TestFindBestMatchSkipsMismatchedDimensions(t *testing.T) {
	matcher := NewMatcher(GetDefaultMatcherConfig())
	query := &types.Embedding{Vector: unitVector(512, 0), Strategy: types.StrategyDeepModel}

	result := matcher.FindBestMatch(query, map[string]types.Embedding{
		"old-enrollment": {Vector: unitVector(128, 0), Strategy: types.StrategyFallback},
		"current":        {Vector: unitVector(512, 0), Strategy: types.StrategyDeepModel},
	})

	if !result.Match {
		t.Fatal("the comparable candidate should still match")
	}
	if *result.BestEmployeeID != "current" {
		t.Errorf("expected current, got %s", *result.BestEmployeeID)
	}
	if len(result.Ranked) != 1 {
		t.Errorf("mismatched candidate must be skipped, ranked: %+v", result.Ranked)
	}
}

func TestFindBestMatchAllCandidatesSkipped(t *testing.T) {
	matcher := NewMatcher(GetDefaultMatcherConfig())
	query := &types.Embedding{Vector: unitVector(512, 0), Strategy: types.StrategyDeepModel}

	result := matcher.FindBestMatch(query, map[string]types.Embedding{
		"old-enrollment": {Vector: unitVector(128, 0), Strategy: types.StrategyFallback},
	})

	if result.Match {
		t.Fatal("must not match when every candidate was skipped")
	}
	if result.FailureReason == nil || *result.FailureReason != "no_comparable_identities" {
		t.Errorf("expected no_comparable_identities, got %v", result.FailureReason)
	}
}
