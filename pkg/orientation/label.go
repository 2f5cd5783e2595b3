// Package orientation decides which anatomical plane a DICOM or NIfTI
// acquisition was sliced in. Two independent classifiers are provided, one
// reading the scanner's direction cosines and one reading the intensity
// statistics of the volume, plus an arbiter that picks between them.
package orientation

import (
	"errors"
	"fmt"
	"strings"
)

// Epsilon guards the confidence ratios against zero denominators.
const Epsilon = 1e-12

// ErrDegenerateInput is returned for empty, zero-size or otherwise unusable
// volumes. It is never converted into a fabricated label.
var ErrDegenerateInput = errors.New("degenerate input")

// Label is one of the three canonical anatomical planes.
type Label string

const (
	Axial    Label = "axial"
	Coronal  Label = "coronal"
	Sagittal Label = "sagittal"

	// Unknown marks a Detection that carries no label.
	Unknown Label = ""
)

// Labels lists the valid planes in a stable order.
var Labels = []Label{Axial, Coronal, Sagittal}

// Valid reports whether l is one of the three planes.
func (l Label) Valid() bool {
	return l == Axial || l == Coronal || l == Sagittal
}

func (l Label) String() string {
	if l == Unknown {
		return "unknown"
	}
	return string(l)
}

// ParseLabel maps a free-form class name (e.g. a line of a classifier's label
// file) onto a Label. Case and surrounding blanks are ignored; "frontal" is
// accepted as a synonym for coronal.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "axial", "transverse":
		return Axial, nil
	case "coronal", "frontal":
		return Coronal, nil
	case "sagittal":
		return Sagittal, nil
	}
	return Unknown, fmt.Errorf("unknown orientation label %q", s)
}

// Detection is the output of a single classifier. Confidence is a relative
// strength in [0,1] and is only meaningful within one method.
type Detection struct {
	Label      Label
	Confidence float64
}

// Method names the classifier that produced a resolved orientation.
type Method string

const (
	MethodMetadata        Method = "metadata"
	MethodVolumeHeuristic Method = "volume-heuristic"
)

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
