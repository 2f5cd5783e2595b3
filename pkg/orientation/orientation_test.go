package orientation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"mriorient/internal/models"
)

// fillVolume builds a volume whose samples are given by f(z, y, x).
func fillVolume(t *testing.T, depth, height, width int, f func(z, y, x int) float64) *models.Volume {
	t.Helper()
	data := make([]float64, depth*height*width)
	i := 0
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[i] = f(z, y, x)
				i++
			}
		}
	}
	v, err := models.NewVolume(data, depth, height, width)
	require.NoError(t, err)
	return v
}

func TestFromDirectionCosinesOrthonormalAxes(t *testing.T) {
	basis := []r3.Vec{
		{X: 1}, {X: -1},
		{Y: 1}, {Y: -1},
		{Z: 1}, {Z: -1},
	}
	for _, row := range basis {
		for _, col := range basis {
			if r3.Dot(row, col) != 0 {
				continue
			}
			n := r3.Cross(row, col)
			var want Label
			switch {
			case n.X != 0:
				want = Sagittal
			case n.Y != 0:
				want = Coronal
			default:
				want = Axial
			}

			got := FromDirectionCosines(row, col)
			assert.Equal(t, want, got.Label, "row=%v col=%v", row, col)
			assert.InDelta(t, 1.0, got.Confidence, 1e-9, "row=%v col=%v", row, col)
		}
	}
}

func TestFromDirectionCosinesOblique(t *testing.T) {
	// Tilted axial: normal is mostly along Z with some Y.
	row := r3.Vec{X: 1}
	col := r3.Vec{Y: 0.9, Z: -0.2}
	got := FromDirectionCosines(row, col)
	assert.Equal(t, Axial, got.Label)
	assert.InDelta(t, 0.9/1.1, got.Confidence, 1e-9)
}

func TestFromDirectionCosinesDegenerate(t *testing.T) {
	got := FromDirectionCosines(r3.Vec{X: 1}, r3.Vec{X: 1})
	assert.Equal(t, Sagittal, got.Label)
	assert.Equal(t, 0.0, got.Confidence)
}

func TestFromOrientationPatient(t *testing.T) {
	det, ok := FromOrientationPatient([]float64{1, 0, 0, 0, 0, -1})
	require.True(t, ok)
	assert.Equal(t, Coronal, det.Label)

	det, ok = FromOrientationPatient([]float64{0, 1, 0, 0, 0, -1})
	require.True(t, ok)
	assert.Equal(t, Sagittal, det.Label)

	_, ok = FromOrientationPatient(nil)
	assert.False(t, ok)
	_, ok = FromOrientationPatient([]float64{1, 0, 0})
	assert.False(t, ok)
}

func TestFromVolumeSliceAxis(t *testing.T) {
	tests := []struct {
		name   string
		volume *models.Volume
		want   Label
	}{
		{
			name:   "varies along slices",
			volume: fillVolume(t, 4, 3, 3, func(z, y, x int) float64 { return float64(z) }),
			want:   Axial,
		},
		{
			name:   "varies along rows",
			volume: fillVolume(t, 3, 4, 3, func(z, y, x int) float64 { return float64(y * y) }),
			want:   Coronal,
		},
		{
			name:   "varies along columns",
			volume: fillVolume(t, 3, 3, 4, func(z, y, x int) float64 { return float64(x) }),
			want:   Sagittal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromVolume(tt.volume)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Label)
			assert.InDelta(t, 1.0, got.Confidence, 1e-9)
		})
	}
}

func TestFromVolumeAllZeros(t *testing.T) {
	v := fillVolume(t, 5, 6, 7, func(z, y, x int) float64 { return 0 })
	got, err := FromVolume(v)
	require.NoError(t, err)
	// Every variance is zero: the first axis wins the tie.
	assert.Equal(t, Axial, got.Label)
	assert.Equal(t, 0.0, got.Confidence)
}

func TestFromVolumeSingleSlice(t *testing.T) {
	v := fillVolume(t, 1, 4, 4, func(z, y, x int) float64 { return float64(y) })
	got, err := FromVolume(v)
	require.NoError(t, err)
	assert.Equal(t, Coronal, got.Label)
	assert.GreaterOrEqual(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 1.0)
}

func TestFromVolumeEmpty(t *testing.T) {
	_, err := FromVolume(nil)
	assert.True(t, errors.Is(err, ErrDegenerateInput))

	v, err := models.NewVolume(nil, 0, 3, 3)
	require.NoError(t, err)
	_, err = FromVolume(v)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestClassifiersAreIdempotent(t *testing.T) {
	v := fillVolume(t, 3, 5, 7, func(z, y, x int) float64 { return float64((z*31 + y*7 + x) % 11) })
	a, err := FromVolume(v)
	require.NoError(t, err)
	b, err := FromVolume(v)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	row, col := r3.Vec{X: 0.8, Y: 0.6}, r3.Vec{Z: -1}
	assert.Equal(t, FromDirectionCosines(row, col), FromDirectionCosines(row, col))
}

func TestResolveMetadataWinsUnconditionally(t *testing.T) {
	geometry := &Detection{Label: Sagittal, Confidence: 0.1}
	volume := Detection{Label: Axial, Confidence: 0.99}

	got := Resolve(geometry, volume)
	assert.Equal(t, Resolution{Label: Sagittal, Confidence: 0.1, Method: MethodMetadata}, got)
}

func TestResolveFallsBackToVolume(t *testing.T) {
	got := Resolve(nil, Detection{Label: Coronal, Confidence: 0.4})
	assert.Equal(t, Resolution{Label: Coronal, Confidence: 0.4, Method: MethodVolumeHeuristic}, got)
}

func TestResolveVolumeRejectsEmptyVolume(t *testing.T) {
	_, err := ResolveVolume(&Detection{Label: Axial, Confidence: 1}, &models.Volume{})
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestResolveAxialAcquisitionEndToEnd(t *testing.T) {
	v := fillVolume(t, 50, 256, 256, func(z, y, x int) float64 { return float64((x + y) % 7) })
	geometry, ok := FromOrientationPatient([]float64{1, 0, 0, 0, 1, 0})
	require.True(t, ok)

	got, err := ResolveVolume(&geometry, v)
	require.NoError(t, err)
	assert.Equal(t, Axial, got.Label)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	assert.Equal(t, MethodMetadata, got.Method)
}

func TestParseLabel(t *testing.T) {
	for in, want := range map[string]Label{
		"axial":      Axial,
		" Coronal\n": Coronal,
		"frontal":    Coronal,
		"SAGITTAL":   Sagittal,
	} {
		got, err := ParseLabel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLabel("oblique")
	assert.Error(t, err)
}

func TestAgrees(t *testing.T) {
	assert.True(t, Agrees(Detection{Label: Axial, Confidence: 0.2}, Detection{Label: Axial, Confidence: 0.9}))
	assert.False(t, Agrees(Detection{Label: Axial}, Detection{Label: Coronal}))
	assert.False(t, Agrees(Detection{}, Detection{}))
}
