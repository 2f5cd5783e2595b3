package orientation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// geometryLabels maps the dominant component of the plane normal, in patient
// coordinates (X left-right, Y anterior-posterior, Z superior-inferior), to
// the plane perpendicular to it.
var geometryLabels = [3]Label{Sagittal, Coronal, Axial}

// FromDirectionCosines classifies the imaging plane spanned by the row and
// column direction cosines. The plane normal is row x col; its largest
// absolute component names the slice axis and the confidence is that
// component's share of the normal's L1 norm.
//
// Collinear or zero vectors give a zero normal; the result is still defined
// (sagittal, confidence 0) but carries no information.
func FromDirectionCosines(row, col r3.Vec) Detection {
	n := r3.Cross(row, col)
	absn := []float64{math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)}
	idx := floats.MaxIdx(absn)
	return Detection{
		Label:      geometryLabels[idx],
		Confidence: clampUnit(absn[idx] / (floats.Sum(absn) + Epsilon)),
	}
}

// FromOrientationPatient classifies a DICOM ImageOrientationPatient value
// (six numbers, row cosines then column cosines). ok is false when the
// attribute is missing or malformed; callers must treat that as "no result"
// and move on to the next method.
func FromOrientationPatient(iop []float64) (det Detection, ok bool) {
	if len(iop) < 6 {
		return Detection{}, false
	}
	for _, v := range iop[:6] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Detection{}, false
		}
	}
	row := r3.Vec{X: iop[0], Y: iop[1], Z: iop[2]}
	col := r3.Vec{X: iop[3], Y: iop[4], Z: iop[5]}
	return FromDirectionCosines(row, col), true
}
