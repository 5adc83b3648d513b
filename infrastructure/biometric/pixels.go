package biometric

import (
	"image"
	"image/draw"
	"math"
)

// Shared pixel-level helpers for the handcrafted extractor and the liveness
// analyzer. Everything works on stdlib image.Image so the numeric paths stay
// testable without native vision libraries.

func rgbAt(img image.Image, x, y int) (float64, float64, float64) {
	r, g, b, _ := img.At(x, y).RGBA()
	return float64(r) / 257.0, float64(g) / 257.0, float64(b) / 257.0
}

func grayAt(img image.Image, x, y int) float64 {
	r, g, b := rgbAt(img, x, y)
	return 0.299*r + 0.587*g + 0.114*b
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// rgbToHSV maps 0..255 channels to hue in degrees, saturation and value in
// [0,1].
func rgbToHSV(r, g, b float64) (float64, float64, float64) {
	r, g, b = r/255.0, g/255.0, b/255.0
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	var hue float64
	switch {
	case delta == 0:
		hue = 0
	case max == r:
		hue = 60 * math.Mod((g-b)/delta, 6)
	case max == g:
		hue = 60 * ((b-r)/delta + 2)
	default:
		hue = 60 * ((r-g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}

	var saturation float64
	if max > 0 {
		saturation = delta / max
	}
	return hue, saturation, max
}

// CropFaceRegion extracts the face box plus a padding fraction from a full
// frame. Returns nil when the padded box falls outside the frame.
func CropFaceRegion(frame image.Image, box image.Rectangle, padding float64) image.Image {
	return cropWithPadding(frame, box, padding)
}

// cropWithPadding copies the face box plus a padding fraction of its own
// size into a fresh RGBA image, clamped to the frame bounds.
func cropWithPadding(frame image.Image, box image.Rectangle, padding float64) image.Image {
	padX := int(float64(box.Dx()) * padding)
	padY := int(float64(box.Dy()) * padding)

	padded := image.Rect(box.Min.X-padX, box.Min.Y-padY, box.Max.X+padX, box.Max.Y+padY)
	padded = padded.Intersect(frame.Bounds())
	if padded.Empty() {
		return nil
	}

	out := image.NewRGBA(image.Rect(0, 0, padded.Dx(), padded.Dy()))
	draw.Draw(out, out.Bounds(), frame, padded.Min, draw.Src)
	return out
}

// resampleGray shrinks an image to size×size grayscale values using nearest
// neighbor sampling. Deterministic by construction.
func resampleGray(img image.Image, size int) [][]float64 {
	bounds := img.Bounds()
	out := make([][]float64, size)
	for y := 0; y < size; y++ {
		out[y] = make([]float64, size)
		srcY := bounds.Min.Y + y*bounds.Dy()/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/size
			out[y][x] = grayAt(img, srcX, srcY)
		}
	}
	return out
}

func resampleRGB(img image.Image, size int) ([][]float64, [][]float64, [][]float64) {
	bounds := img.Bounds()
	r := make([][]float64, size)
	g := make([][]float64, size)
	b := make([][]float64, size)
	for y := 0; y < size; y++ {
		r[y] = make([]float64, size)
		g[y] = make([]float64, size)
		b[y] = make([]float64, size)
		srcY := bounds.Min.Y + y*bounds.Dy()/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/size
			r[y][x], g[y][x], b[y][x] = rgbAt(img, srcX, srcY)
		}
	}
	return r, g, b
}

// sobelAt returns the gradient magnitude at an interior pixel of a grayscale
// grid.
func sobelAt(gray [][]float64, x, y int) float64 {
	gx := gray[y-1][x+1] + 2*gray[y][x+1] + gray[y+1][x+1] -
		gray[y-1][x-1] - 2*gray[y][x-1] - gray[y+1][x-1]
	gy := gray[y+1][x-1] + 2*gray[y+1][x] + gray[y+1][x+1] -
		gray[y-1][x-1] - 2*gray[y-1][x] - gray[y-1][x+1]
	return math.Sqrt(gx*gx + gy*gy)
}

// laplacianAt returns the 4-neighbor Laplacian response at an interior pixel.
func laplacianAt(gray [][]float64, x, y int) float64 {
	return gray[y-1][x] + gray[y+1][x] + gray[y][x-1] + gray[y][x+1] - 4*gray[y][x]
}
