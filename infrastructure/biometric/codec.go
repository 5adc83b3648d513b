package biometric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"facemark.io/infrastructure/biometric/types"
)

// Embeddings are persisted as comma-joined fixed-precision decimals so the
// employee store stays a plain string column. Six digits keeps the decoded
// vector within matching tolerance of the original.
const codecPrecision = 6

func EncodeEmbedding(embedding *types.Embedding) string {
	parts := make([]string, len(embedding.Vector))
	for i, v := range embedding.Vector {
		parts[i] = strconv.FormatFloat(float64(v), 'f', codecPrecision, 32)
	}
	return strings.Join(parts, ",")
}

// DecodeEmbedding parses a stored vector and restores the unit-norm
// invariant lost to decimal rounding. The strategy tag is recovered from the
// vector length.
func DecodeEmbedding(stored string) (*types.Embedding, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return nil, fmt.Errorf("%w: empty value", types.ErrStoreDecode)
	}

	parts := strings.Split(stored, ",")
	vector := make([]float32, len(parts))
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", types.ErrStoreDecode, i, err)
		}
		vector[i] = float32(value)
	}

	vector = normalizeVector(vector)
	return &types.Embedding{
		Vector:   vector,
		Strategy: types.StrategyForDim(len(vector)),
	}, nil
}

// normalizeVector scales a vector to unit L2 norm. A zero vector is returned
// unchanged rather than divided by zero.
func normalizeVector(vector []float32) []float32 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vector
	}
	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}

func vectorNorm(vector []float32) float64 {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	return math.Sqrt(sumSquares)
}
