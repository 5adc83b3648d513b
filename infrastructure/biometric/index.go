package biometric

import (
	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
)

var (
	Extractor types.EmbeddingExtractor
	Liveness  types.LivenessAnalyzerType
	Matcher   types.IdentityMatcherType
)

// InitialiseBiometricService resolves the extraction strategy exactly once:
// the deep model when its artifact loads, the handcrafted fallback otherwise.
// Downstream threshold decisions read the strategy tag off each embedding
// instead of re-querying availability.
func InitialiseBiometricService() {
	if IsDeepModelAvailable() {
		deep := NewDeepExtractor(GetDefaultDeepModelConfig())
		if deep.Ready() {
			Extractor = deep
		}
	}
	if Extractor == nil {
		Extractor = NewFallbackExtractor(GetDefaultFallbackConfig())
	}

	Liveness = NewLivenessAnalyzer(GetDefaultLivenessConfig())
	Matcher = NewMatcher(GetDefaultMatcherConfig())

	logger.Info("biometric service initialised", logger.LoggerOptions{
		Key:  "strategy",
		Data: string(Extractor.Strategy()),
	})
}
