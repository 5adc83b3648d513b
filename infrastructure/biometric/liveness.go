package biometric

import (
	"fmt"
	"image"
	"math"

	"facemark.io/application/utils"
	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
)

// LivenessAnalyzer scores a face region against spoofing heuristics. It is
// independent of identity: the same analysis runs whether or not the face
// later matches an enrolled employee.
type LivenessAnalyzer struct {
	config LivenessConfig
}

// LivenessConfig holds the weights, normalization scales and floors behind
// the liveness decision. These are tuned policy values validated against a
// labeled capture set, not physical constants.
type LivenessConfig struct {
	CropPadding float64
	SampleSize  int

	TextureWeight    float64
	EdgeWeight       float64
	ColorWeight      float64
	BrightnessWeight float64
	BlurWeight       float64

	Threshold float64

	// Minimum acceptable floors, checked in priority order when the overall
	// score fails: texture, edge, color, blur.
	TextureFloor float64
	EdgeFloor    float64
	ColorFloor   float64
	BlurFloor    float64

	TextureScale    float64
	BrightnessScale float64
	HueScale        float64
	SaturationScale float64

	EdgeBandLow  float64
	EdgeBandHigh float64
	BlurBandLow  float64
	BlurBandHigh float64
}

func GetDefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		CropPadding: 0.1,
		SampleSize:  96,

		TextureWeight:    0.30,
		EdgeWeight:       0.25,
		ColorWeight:      0.20,
		BrightnessWeight: 0.15,
		BlurWeight:       0.10,

		Threshold: 0.55,

		TextureFloor: 0.25,
		EdgeFloor:    0.20,
		ColorFloor:   0.15,
		BlurFloor:    0.15,

		TextureScale:    1200.0,
		BrightnessScale: 70.0,
		HueScale:        2500.0,
		SaturationScale: 0.035,

		EdgeBandLow:  110.0,
		EdgeBandHigh: 700.0,
		BlurBandLow:  6.0,
		BlurBandHigh: 85.0,
	}
}

func NewLivenessAnalyzer(config LivenessConfig) *LivenessAnalyzer {
	return &LivenessAnalyzer{config: config}
}

// Analyze crops the face region with fixed padding and computes the five
// sub-scores, each clamped to [0,1]. The weighted sum against the configured
// threshold decides liveness; when rejected, the reason is the first
// sub-score under its floor in priority order, else a generic message.
func (la *LivenessAnalyzer) Analyze(frame image.Image, faceBox image.Rectangle) (*types.LivenessResult, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", types.ErrExtraction)
	}
	region := cropWithPadding(frame, faceBox, la.config.CropPadding)
	if region == nil {
		return nil, fmt.Errorf("%w: face box %v outside frame", types.ErrExtraction, faceBox)
	}

	gray := resampleGray(region, la.config.SampleSize)
	r, g, b := resampleRGB(region, la.config.SampleSize)

	analysis := types.LivenessAnalysis{
		TextureScore:    la.textureScore(gray),
		BrightnessScore: la.brightnessVarianceScore(gray),
		EdgeScore:       la.edgeSharpnessScore(gray),
		ColorScore:      la.colorDistributionScore(r, g, b),
		BlurScore:       la.blurScore(gray),
	}

	confidence := analysis.TextureScore*la.config.TextureWeight +
		analysis.EdgeScore*la.config.EdgeWeight +
		analysis.ColorScore*la.config.ColorWeight +
		analysis.BrightnessScore*la.config.BrightnessWeight +
		analysis.BlurScore*la.config.BlurWeight

	result := &types.LivenessResult{
		IsLive:     confidence >= la.config.Threshold,
		Confidence: confidence,
		Analysis:   analysis,
	}
	if !result.IsLive {
		result.FailureReason = utils.GetStringPointer(la.failureReason(analysis))
		logger.Info("liveness rejected", logger.LoggerOptions{
			Key:  "reason",
			Data: *result.FailureReason,
		}, logger.LoggerOptions{
			Key:  "confidence",
			Data: confidence,
		})
	}
	return result, nil
}

func (la *LivenessAnalyzer) failureReason(analysis types.LivenessAnalysis) string {
	switch {
	case analysis.TextureScore < la.config.TextureFloor:
		return "flat texture consistent with a printed photo reproduction"
	case analysis.EdgeScore < la.config.EdgeFloor:
		return "edge profile outside the natural band for a live face"
	case analysis.ColorScore < la.config.ColorFloor:
		return "color distribution too uniform for live skin"
	case analysis.BlurScore < la.config.BlurFloor:
		return "image too blurred or artificially sharpened"
	default:
		return "possible spoofing"
	}
}

// textureScore averages local variance over small non-overlapping blocks.
// Flat photographic reproductions show very low block variance.
func (la *LivenessAnalyzer) textureScore(gray [][]float64) float64 {
	size := len(gray)
	const blocks = 8
	cell := size / blocks

	var totalVariance float64
	var blockCount int
	for by := 0; by < blocks; by++ {
		for bx := 0; bx < blocks; bx++ {
			var sum, sumSq float64
			var n int
			for y := by * cell; y < (by+1)*cell; y++ {
				for x := bx * cell; x < (bx+1)*cell; x++ {
					v := gray[y][x]
					sum += v
					sumSq += v * v
					n++
				}
			}
			if n == 0 {
				continue
			}
			mean := sum / float64(n)
			totalVariance += sumSq/float64(n) - mean*mean
			blockCount++
		}
	}
	if blockCount == 0 {
		return 0
	}
	return clamp01(totalVariance / float64(blockCount) / la.config.TextureScale)
}

// brightnessVarianceScore measures brightness spread on a coarse grid.
// Near-zero spread implies a screen or photo under uniform lighting.
func (la *LivenessAnalyzer) brightnessVarianceScore(gray [][]float64) float64 {
	size := len(gray)
	const grid = 12
	step := size / grid

	var sum, sumSq float64
	var n int
	for y := step / 2; y < size; y += step {
		for x := step / 2; x < size; x += step {
			v := gray[y][x]
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return clamp01(math.Sqrt(variance) / la.config.BrightnessScale)
}

// edgeSharpnessScore averages gradient magnitude over significant edges and
// band-scores it: both overly smooth and overly crisp regions indicate a
// reproduction.
func (la *LivenessAnalyzer) edgeSharpnessScore(gray [][]float64) float64 {
	size := len(gray)
	const significant = 40.0

	var sum float64
	var n int
	for y := 1; y < size-1; y++ {
		for x := 1; x < size-1; x++ {
			magnitude := sobelAt(gray, x, y)
			if magnitude > significant {
				sum += magnitude
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)

	low, high := la.config.EdgeBandLow, la.config.EdgeBandHigh
	switch {
	case mean >= low && mean <= high:
		return 1.0
	case mean >= low*0.6 && mean < low:
		return 0.5
	case mean > high && mean <= high*1.4:
		return 0.5
	default:
		return 0.0
	}
}

// colorDistributionScore averages hue and saturation variance sampled on a
// coarse grid. Natural skin shows moderate variation in both.
func (la *LivenessAnalyzer) colorDistributionScore(r, g, b [][]float64) float64 {
	size := len(r)
	const grid = 12
	step := size / grid

	var hueSum, hueSumSq, satSum, satSumSq float64
	var n int
	for y := step / 2; y < size; y += step {
		for x := step / 2; x < size; x += step {
			hue, saturation, _ := rgbToHSV(r[y][x], g[y][x], b[y][x])
			hueSum += hue
			hueSumSq += hue * hue
			satSum += saturation
			satSumSq += saturation * saturation
			n++
		}
	}
	if n == 0 {
		return 0
	}
	hueMean := hueSum / float64(n)
	hueVariance := hueSumSq/float64(n) - hueMean*hueMean
	satMean := satSum / float64(n)
	satVariance := satSumSq/float64(n) - satMean*satMean

	hueScore := clamp01(hueVariance / la.config.HueScale)
	satScore := clamp01(satVariance / la.config.SaturationScale)
	return (hueScore + satScore) / 2.0
}

// blurScore band-scores the mean absolute Laplacian response. Too little
// response means heavy blur, too much means artificial sharpening; both are
// penalized.
func (la *LivenessAnalyzer) blurScore(gray [][]float64) float64 {
	size := len(gray)

	var sum float64
	var n int
	for y := 1; y < size-1; y++ {
		for x := 1; x < size-1; x++ {
			sum += math.Abs(laplacianAt(gray, x, y))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)

	if mean >= la.config.BlurBandLow && mean <= la.config.BlurBandHigh {
		return 1.0
	}
	return 0.2
}
