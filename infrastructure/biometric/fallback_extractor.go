package biometric

import (
	"fmt"
	"image"

	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
)

// FallbackExtractor produces a deterministic handcrafted feature vector when
// no deep model artifact is available. It is weaker at separating people than
// the deep model, which is why the matcher applies a stricter threshold to
// vectors tagged with this strategy.
type FallbackExtractor struct {
	config FallbackConfig
}

// FallbackConfig holds the descriptor layout. The target dimension is fixed
// so stored vectors stay comparable across releases.
type FallbackConfig struct {
	TargetDim      int
	SampleSize     int
	ColorBins      int
	TextureGrid    int
	BrightnessBins int
	GradientGrid   int
}

func GetDefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		TargetDim:      types.FallbackEmbeddingSize,
		SampleSize:     64,
		ColorBins:      8,
		TextureGrid:    8,
		BrightnessBins: 16,
		GradientGrid:   8,
	}
}

func NewFallbackExtractor(config FallbackConfig) *FallbackExtractor {
	logger.Info("fallback embedding extractor initialised", logger.LoggerOptions{
		Key: "config",
		Data: map[string]interface{}{
			"target_dim":  config.TargetDim,
			"sample_size": config.SampleSize,
		},
	})
	return &FallbackExtractor{config: config}
}

func (fe *FallbackExtractor) Strategy() types.Strategy {
	return types.StrategyFallback
}

// Extract computes color histograms, an LBP-like texture descriptor, a
// brightness histogram and a gradient-magnitude descriptor over a small
// resampled copy of the face, then fits the concatenation to the fixed
// target length and L2-normalizes it.
func (fe *FallbackExtractor) Extract(faceImage image.Image) (*types.Embedding, error) {
	if faceImage == nil {
		return nil, fmt.Errorf("%w: nil image", types.ErrExtraction)
	}
	bounds := faceImage.Bounds()
	if bounds.Dx() < 2 || bounds.Dy() < 2 {
		return nil, fmt.Errorf("%w: image %dx%d too small", types.ErrExtraction, bounds.Dx(), bounds.Dy())
	}

	size := fe.config.SampleSize
	r, g, b := resampleRGB(faceImage, size)
	gray := resampleGray(faceImage, size)

	features := make([]float64, 0, fe.config.TargetDim)
	features = append(features, fe.colorHistogram(r, g, b)...)
	features = append(features, fe.textureDescriptor(gray)...)
	features = append(features, fe.brightnessHistogram(gray)...)
	features = append(features, fe.gradientDescriptor(gray)...)

	vector := fitToTarget(features, fe.config.TargetDim)
	return &types.Embedding{
		Vector:   normalizeVector(vector),
		Strategy: types.StrategyFallback,
	}, nil
}

// colorHistogram builds a fixed-bin histogram per RGB channel, normalized by
// pixel count.
func (fe *FallbackExtractor) colorHistogram(r, g, b [][]float64) []float64 {
	bins := fe.config.ColorBins
	hist := make([]float64, bins*3)
	size := len(r)
	total := float64(size * size)

	binFor := func(value float64) int {
		bin := int(value) * bins / 256
		if bin >= bins {
			bin = bins - 1
		}
		return bin
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			hist[binFor(r[y][x])]++
			hist[bins+binFor(g[y][x])]++
			hist[2*bins+binFor(b[y][x])]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// textureDescriptor computes an 8-neighbor local binary pattern code per
// pixel and averages the codes over a coarse grid.
func (fe *FallbackExtractor) textureDescriptor(gray [][]float64) []float64 {
	grid := fe.config.TextureGrid
	size := len(gray)
	cell := size / grid

	descriptor := make([]float64, 0, grid*grid)
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			var sum float64
			var count int
			for y := gy * cell; y < (gy+1)*cell; y++ {
				for x := gx * cell; x < (gx+1)*cell; x++ {
					if x < 1 || y < 1 || x >= size-1 || y >= size-1 {
						continue
					}
					sum += lbpCode(gray, x, y)
					count++
				}
			}
			if count > 0 {
				descriptor = append(descriptor, sum/float64(count)/255.0)
			} else {
				descriptor = append(descriptor, 0)
			}
		}
	}
	return descriptor
}

func lbpCode(gray [][]float64, x, y int) float64 {
	center := gray[y][x]
	var code int
	neighbors := [8][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{1, 0}, {1, 1}, {0, 1},
		{-1, 1}, {-1, 0},
	}
	for i, offset := range neighbors {
		if gray[y+offset[1]][x+offset[0]] >= center {
			code |= 1 << i
		}
	}
	return float64(code)
}

func (fe *FallbackExtractor) brightnessHistogram(gray [][]float64) []float64 {
	bins := fe.config.BrightnessBins
	hist := make([]float64, bins)
	size := len(gray)
	total := float64(size * size)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			bin := int(gray[y][x]) * bins / 256
			if bin >= bins {
				bin = bins - 1
			}
			hist[bin]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// gradientDescriptor averages Sobel magnitudes per grid cell. The divisor is
// the theoretical maximum response of the 3x3 kernel on 8-bit input.
func (fe *FallbackExtractor) gradientDescriptor(gray [][]float64) []float64 {
	const maxSobel = 1443.0
	grid := fe.config.GradientGrid
	size := len(gray)
	cell := size / grid

	descriptor := make([]float64, 0, grid*grid)
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			var sum float64
			var count int
			for y := gy * cell; y < (gy+1)*cell; y++ {
				for x := gx * cell; x < (gx+1)*cell; x++ {
					if x < 1 || y < 1 || x >= size-1 || y >= size-1 {
						continue
					}
					sum += sobelAt(gray, x, y)
					count++
				}
			}
			if count > 0 {
				descriptor = append(descriptor, clamp01(sum/float64(count)/maxSobel))
			} else {
				descriptor = append(descriptor, 0)
			}
		}
	}
	return descriptor
}

// fitToTarget truncates or zero-pads a feature slice to the fixed embedding
// length.
func fitToTarget(features []float64, target int) []float32 {
	vector := make([]float32, target)
	for i := 0; i < target && i < len(features); i++ {
		vector[i] = float32(features[i])
	}
	return vector
}
