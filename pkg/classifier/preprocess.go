package classifier

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
)

// Pixels is a single-channel frame as stored in the source file.
type Pixels struct {
	Width, Height int

	// Samples holds the stored values in row-major order
	Samples []float64

	// Uint8 marks frames whose samples are already 8-bit and must not be
	// rescaled
	Uint8 bool
}

// Normalize8 maps the frame to 0..255: negative values clamp to 0, the rest
// are divided by the frame maximum, scaled by 255 and truncated. A frame
// whose maximum is not positive becomes all zeros. 8-bit frames pass
// through unchanged.
func Normalize8(p Pixels) []uint8 {
	out := make([]uint8, len(p.Samples))
	if p.Uint8 {
		for i, v := range p.Samples {
			out[i] = uint8(v)
		}
		return out
	}
	if len(p.Samples) == 0 {
		return out
	}
	peak := floats.Max(p.Samples)
	if peak <= 0 {
		return out
	}
	for i, v := range p.Samples {
		if v <= 0 {
			continue
		}
		out[i] = uint8(v / peak * 255)
	}
	return out
}

// ToRGB replicates a grayscale plane into the three channels of an RGBA image.
func ToRGB(gray []uint8, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(gray) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidImage, len(gray), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := gray[y*width+x]
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img, nil
}

// Resize scales img to width x height with bilinear interpolation.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Rect, img, img.Bounds(), draw.Src, nil)
	return dst
}

// Flatten returns the RGB samples of img row by row, channels interleaved.
func Flatten(img *image.RGBA) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			out = append(out, float64(c.R), float64(c.G), float64(c.B))
		}
	}
	return out
}

// Softmax converts logits to probabilities. The maximum is subtracted first
// so large logits do not overflow.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	peak := floats.Max(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
