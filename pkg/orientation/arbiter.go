package orientation

import (
	"fmt"

	"mriorient/internal/models"
)

// Resolution is the arbitrated orientation together with the method that
// produced it. Method is part of the observable result and is always set.
type Resolution struct {
	Label      Label
	Confidence float64
	Method     Method
}

// Resolve picks the final orientation. A geometry detection, when present,
// wins unconditionally and its confidence is reported even when the volume
// heuristic is more confident. Without one, the volume detection is used.
func Resolve(geometry *Detection, volume Detection) Resolution {
	if geometry != nil {
		return Resolution{
			Label:      geometry.Label,
			Confidence: geometry.Confidence,
			Method:     MethodMetadata,
		}
	}
	return Resolution{
		Label:      volume.Label,
		Confidence: volume.Confidence,
		Method:     MethodVolumeHeuristic,
	}
}

// ResolveVolume runs the volume classifier and arbitrates against geometry.
// The volume must be usable even when geometry is present; an empty or
// unreadable volume is a fatal input error.
func ResolveVolume(geometry *Detection, v *models.Volume) (Resolution, error) {
	vol, err := FromVolume(v)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve orientation: %w", err)
	}
	return Resolve(geometry, vol), nil
}

// Agrees reports whether two detections name the same plane. It never
// compares confidences, which live on different scales per method.
func Agrees(a, b Detection) bool {
	return a.Label.Valid() && a.Label == b.Label
}
