package models

import (
	"fmt"
	"image"
	"math"
)

// Slice represents a single 2D image taken from a series, with its metadata
type Slice struct {
	// Image is the decoded frame for compressed pixel data, nil for native frames
	Image image.Image

	// Pixels holds the rescaled sample values in row-major order
	Pixels []float64

	// Width and Height are the slice dimensions in pixels
	Width, Height int

	// Index is the position of this slice in the sorted sequence
	Index int

	// Filename is the original filename of the slice
	Filename string

	// InstanceNumber is the DICOM InstanceNumber, 0 when absent
	InstanceNumber int
}

// Volume is a 3D intensity array indexed (slice, row, column).
// Data is stored as a 1D array in row-major order: the column index varies
// fastest, the slice index slowest.
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	Data []float64

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Depth is the number of slices
	Depth int

	// VoxelSize is the physical size of each voxel in mm, zero when unknown
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NewVolume wraps data as a volume of the given shape. The length of data
// must equal depth*height*width.
func NewVolume(data []float64, depth, height, width int) (*Volume, error) {
	if depth < 0 || height < 0 || width < 0 {
		return nil, fmt.Errorf("invalid volume shape (%d, %d, %d)", depth, height, width)
	}
	if len(data) != depth*height*width {
		return nil, fmt.Errorf("volume data length %d does not match shape (%d, %d, %d)",
			len(data), depth, height, width)
	}
	return &Volume{Data: data, Width: width, Height: height, Depth: depth}, nil
}

// NewVolumeFromSlices stacks equally sized slices along the slice axis.
func NewVolumeFromSlices(slices []Slice) (*Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices to stack")
	}
	w, h := slices[0].Width, slices[0].Height
	data := make([]float64, 0, len(slices)*w*h)
	for i, s := range slices {
		if s.Width != w || s.Height != h {
			return nil, fmt.Errorf("slice %d (%s) is %dx%d, expected %dx%d",
				i, s.Filename, s.Width, s.Height, w, h)
		}
		if len(s.Pixels) != w*h {
			return nil, fmt.Errorf("slice %d (%s) has %d samples, expected %d",
				i, s.Filename, len(s.Pixels), w*h)
		}
		data = append(data, s.Pixels...)
	}
	return NewVolume(data, len(slices), h, w)
}

// Shape returns the (slice, row, column) dimensions.
func (v *Volume) Shape() (depth, height, width int) {
	return v.Depth, v.Height, v.Width
}

// Empty reports whether the volume holds no samples.
func (v *Volume) Empty() bool {
	return v == nil || v.Depth == 0 || v.Height == 0 || v.Width == 0 || len(v.Data) == 0
}

// Index returns the offset of (z, y, x) in Data.
func (v *Volume) Index(z, y, x int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the sample at (z, y, x).
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[v.Index(z, y, x)]
}

// SliceAt returns a copy of slice z as a row-major plane.
func (v *Volume) SliceAt(z int) []float64 {
	plane := v.Width * v.Height
	out := make([]float64, plane)
	copy(out, v.Data[z*plane:(z+1)*plane])
	return out
}

// MinMax returns the smallest and largest finite samples. NaN samples are ignored.
func (v *Volume) MinMax() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, val := range v.Data {
		if math.IsNaN(val) {
			continue
		}
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	if math.IsInf(min, 1) {
		return 0, 0
	}
	return min, max
}
