package orientation

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mriorient/internal/models"
)

// volumeLabels maps the storage axis with the most structured intensity
// profile to a plane. Axis 0 is the stacking axis of the array, so this
// mapping differs from geometryLabels on purpose.
var volumeLabels = [3]Label{Axial, Coronal, Sagittal}

// Profiles projects the volume onto each of its three axes by summing over
// the other two. The returned slices have lengths Depth, Height and Width.
func Profiles(v *models.Volume) (sz, sy, sx []float64) {
	sz = make([]float64, v.Depth)
	sy = make([]float64, v.Height)
	sx = make([]float64, v.Width)
	i := 0
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				val := v.Data[i]
				sz[z] += val
				sy[y] += val
				sx[x] += val
				i++
			}
		}
	}
	return sz, sy, sx
}

// FromVolume infers the slice axis from intensity statistics. The axis whose
// projection profile has the largest population variance is taken as the
// slice axis; ties resolve to the first axis. Confidence is that variance's
// share of the total.
//
// Any non-empty volume yields a label, including a single slice or an
// all-zero volume (axial, confidence 0). Empty volumes return
// ErrDegenerateInput.
func FromVolume(v *models.Volume) (Detection, error) {
	if v.Empty() {
		return Detection{}, fmt.Errorf("volume statistics: %w: empty volume", ErrDegenerateInput)
	}
	if len(v.Data) != v.Depth*v.Height*v.Width {
		return Detection{}, fmt.Errorf("volume statistics: %w: %d samples for shape (%d, %d, %d)",
			ErrDegenerateInput, len(v.Data), v.Depth, v.Height, v.Width)
	}

	sz, sy, sx := Profiles(v)
	vars := []float64{
		stat.PopVariance(sz, nil),
		stat.PopVariance(sy, nil),
		stat.PopVariance(sx, nil),
	}
	for i, val := range vars {
		if val != val {
			vars[i] = 0
		}
	}
	idx := floats.MaxIdx(vars)
	return Detection{
		Label:      volumeLabels[idx],
		Confidence: clampUnit(vars[idx] / (floats.Sum(vars) + Epsilon)),
	}, nil
}
