package biometric

import (
	"sort"

	"facemark.io/application/utils"
	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
)

// Matcher ranks enrolled identities by cosine similarity against a query
// embedding. Vectors are unit-normalized at extraction and decode time, so
// similarity is a plain dot product.
type Matcher struct {
	config MatcherConfig
}

// MatcherConfig holds the per-strategy decision thresholds. The deep model
// separates people well enough to accept a lower bar; the handcrafted
// fallback descriptor needs a stricter one to keep false accepts down.
type MatcherConfig struct {
	DeepModelThreshold float64
	FallbackThreshold  float64
}

func GetDefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		DeepModelThreshold: 0.50,
		FallbackThreshold:  0.55,
	}
}

func NewMatcher(config MatcherConfig) *Matcher {
	return &Matcher{config: config}
}

func (m *Matcher) thresholdFor(strategy types.Strategy) float64 {
	if strategy == types.StrategyFallback {
		return m.config.FallbackThreshold
	}
	return m.config.DeepModelThreshold
}

// FindBestMatch compares the query against every candidate of equal
// dimensionality, tracking the maximum similarity and building a full ranked
// list for diagnostics. Candidates whose stored vector length does not match
// the query (strategy changed between enrollment and runtime) are skipped,
// never compared.
func (m *Matcher) FindBestMatch(query *types.Embedding, candidates map[string]types.Embedding) *types.RecognitionResult {
	threshold := m.thresholdFor(query.Strategy)

	if len(candidates) == 0 {
		return &types.RecognitionResult{
			Match:         false,
			ThresholdUsed: threshold,
			FailureReason: utils.GetStringPointer("no_enrolled_identities"),
		}
	}

	ranked := make([]types.RankedCandidate, 0, len(candidates))
	best := -2.0
	var bestID string
	skipped := 0

	for employeeID, candidate := range candidates {
		if candidate.Dim() != query.Dim() {
			skipped++
			continue
		}
		similarity := cosineSimilarity(query.Vector, candidate.Vector)
		ranked = append(ranked, types.RankedCandidate{
			EmployeeID: employeeID,
			Similarity: similarity,
		})
		if similarity > best {
			best = similarity
			bestID = employeeID
		}
	}

	if skipped > 0 {
		logger.Warning("skipped candidates with mismatched embedding dimension", logger.LoggerOptions{
			Key:  "skipped",
			Data: skipped,
		}, logger.LoggerOptions{
			Key:  "query_dim",
			Data: query.Dim(),
		})
	}

	if len(ranked) == 0 {
		return &types.RecognitionResult{
			Match:         false,
			ThresholdUsed: threshold,
			FailureReason: utils.GetStringPointer("no_comparable_identities"),
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	result := &types.RecognitionResult{
		Match:         best >= threshold,
		Confidence:    best,
		ThresholdUsed: threshold,
		Ranked:        ranked,
	}
	if result.Match {
		result.BestEmployeeID = utils.GetStringPointer(bestID)
	}
	return result
}

// cosineSimilarity is the dot product of two equal-length unit vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
