// Package visualization renders slices of a volume as 8-bit images: the
// per-plane PNG export and the annotated middle-slice preview.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mriorient/internal/models"
	"mriorient/pkg/orientation"
)

// Viewer cuts 2D slices out of a volume.
//
// The volume is read as Data[z][y][x] with x the first, fastest varying
// file axis (the NIfTI convention). Exported slices are rotated by 90 degrees
// counter-clockwise so that the first in-plane axis runs left to right and
// the second runs bottom to top.
type Viewer struct {
	volume *models.Volume
}

// NewViewer creates a viewer over vol
func NewViewer(vol *models.Volume) *Viewer {
	return &Viewer{volume: vol}
}

// SliceCount returns how many slices the volume has along plane.
func (v *Viewer) SliceCount(plane orientation.Label) (int, error) {
	switch plane {
	case orientation.Axial:
		return v.volume.Depth, nil
	case orientation.Coronal:
		return v.volume.Height, nil
	case orientation.Sagittal:
		return v.volume.Width, nil
	}
	return 0, fmt.Errorf("invalid plane: %q (must be axial, coronal, or sagittal)", plane)
}

// ExtractSlice extracts slice position of plane, normalized to 0..255.
//
//	axial    z=position, width X, height Y
//	coronal  y=position, width X, height Z
//	sagittal x=position, width Y, height Z
func (v *Viewer) ExtractSlice(plane orientation.Label, position int) (*image.Gray, error) {
	n, err := v.SliceCount(plane)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= n {
		return nil, fmt.Errorf("position %d out of range [0, %d) for %s", position, n, plane)
	}

	vol := v.volume
	var w, h int
	var at func(col, row int) float64

	switch plane {
	case orientation.Axial:
		w, h = vol.Width, vol.Height
		at = func(c, r int) float64 { return vol.At(position, h-1-r, c) }
	case orientation.Coronal:
		w, h = vol.Width, vol.Depth
		at = func(c, r int) float64 { return vol.At(h-1-r, position, c) }
	case orientation.Sagittal:
		w, h = vol.Height, vol.Depth
		at = func(c, r int) float64 { return vol.At(h-1-r, c, position) }
	}

	samples := make([]float64, w*h)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			samples[r*w+c] = at(c, r)
		}
	}
	return GrayImage(NormalizeSlice(samples), w, h), nil
}

// MiddleSlice returns stored slice Depth/2 without rotation, normalized.
func (v *Viewer) MiddleSlice() (*image.Gray, error) {
	if v.volume.Empty() {
		return nil, fmt.Errorf("volume is empty")
	}
	mid := v.volume.Depth / 2
	return GrayImage(NormalizeSlice(v.volume.SliceAt(mid)), v.volume.Width, v.volume.Height), nil
}

// NormalizeSlice maps samples linearly onto 0..255 with the minimum at 0 and
// the maximum at 255, truncating. NaN and infinite samples count as 0. A
// constant slice becomes all zeros.
func NormalizeSlice(samples []float64) []uint8 {
	out := make([]uint8, len(samples))
	if len(samples) == 0 {
		return out
	}
	clean := make([]float64, len(samples))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		clean[i] = s
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, s := range clean {
		out[i] = uint8((s - lo) / span * 255)
	}
	return out
}

// GrayImage wraps row-major 8-bit samples as an image.
func GrayImage(pix []uint8, width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return img
}

// SaveSlice saves an image as PNG
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SliceFilename is the export name of slice i of plane.
func SliceFilename(baseName string, plane orientation.Label, i int) string {
	return fmt.Sprintf("%s_%s_%03d.png", baseName, plane, i)
}

// SaveSliceSequence extracts and saves every slice of plane into outputDir
// and returns the number written.
func (v *Viewer) SaveSliceSequence(plane orientation.Label, outputDir, baseName string) (int, error) {
	n, err := v.SliceCount(plane)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(plane, pos)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, SliceFilename(baseName, plane, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return n, nil
}

// ExportPlanes writes all three planes under outputDir/<plane>/.
func (v *Viewer) ExportPlanes(outputDir, baseName string) (map[orientation.Label]int, error) {
	counts := make(map[orientation.Label]int, len(orientation.Labels))
	for _, plane := range orientation.Labels {
		n, err := v.SaveSliceSequence(plane, filepath.Join(outputDir, string(plane)), baseName)
		counts[plane] = n
		if err != nil {
			return counts, fmt.Errorf("export %s slices: %w", plane, err)
		}
	}
	return counts, nil
}

// Annotate returns a copy of img with title drawn in white on a black
// outline, centered near the top edge.
func Annotate(img *image.Gray, title string) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	copy(out.Pix, img.Pix)

	face := basicfont.Face7x13
	x := (b.Dx() - font.MeasureString(face, title).Ceil()) / 2
	y := int(float64(b.Dy())*0.05) + 13
	dot := fixed.P(b.Min.X+x, b.Min.Y+y)

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d := &font.Drawer{
				Dst:  out,
				Src:  image.NewUniform(color.Black),
				Face: face,
				Dot:  fixed.Point26_6{X: dot.X + fixed.I(dx), Y: dot.Y + fixed.I(dy)},
			}
			d.DrawString(title)
		}
	}
	d := &font.Drawer{Dst: out, Src: image.NewUniform(color.White), Face: face, Dot: dot}
	d.DrawString(title)
	return out
}
