package classifier

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mriorient/pkg/orientation"
)

// brightnessNetwork scores class 0 by total brightness, class 2 by its
// negation and gives class 1 a constant bias.
func brightnessNetwork() *Network {
	const w, h = 2, 2
	in := w * h * 3
	weights := mat.NewDense(in, 3, nil)
	for i := 0; i < in; i++ {
		weights.Set(i, 0, 0.01)
		weights.Set(i, 2, -0.01)
	}
	return &Network{
		InputWidth:  w,
		InputHeight: h,
		Layers: []Layer{{
			Weights: weights,
			Biases:  mat.NewDense(1, 3, []float64{0, 1, 0}),
			Act:     ActLinear,
		}},
	}
}

func writeModel(t *testing.T, net *Network, labels string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.gob")
	labelsPath := filepath.Join(dir, "class_names.txt")
	require.NoError(t, net.SaveToFile(modelPath))
	require.NoError(t, os.WriteFile(labelsPath, []byte(labels), 0644))
	return modelPath, labelsPath
}

func TestLoadAndPredict(t *testing.T) {
	modelPath, labelsPath := writeModel(t, brightnessNetwork(), "axial\ncoronal\nsagittal\n")
	c, err := Load(modelPath, labelsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"axial", "coronal", "sagittal"}, c.Labels())

	bright := Pixels{Width: 4, Height: 4, Samples: make([]float64, 16)}
	for i := range bright.Samples {
		bright.Samples[i] = 1200
	}
	pred, err := c.Predict(bright)
	require.NoError(t, err)
	assert.Equal(t, "axial", pred.Label)
	assert.Equal(t, orientation.Axial, pred.Orientation)
	assert.Greater(t, pred.Confidence, 0.99)
	assert.False(t, pred.LowConfidence(70))

	dark := Pixels{Width: 4, Height: 4, Samples: make([]float64, 16)}
	pred, err = c.Predict(dark)
	require.NoError(t, err)
	assert.Equal(t, "coronal", pred.Label)
	assert.InDelta(t, math.E/(2+math.E), pred.Confidence, 1e-9)
	assert.True(t, pred.LowConfidence(70))
}

func TestPredictionIsStateless(t *testing.T) {
	c, err := New(brightnessNetwork(), []string{"axial", "coronal", "sagittal"})
	require.NoError(t, err)

	img := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = 90
	}
	first, err := c.PredictImage(img)
	require.NoError(t, err)
	second, err := c.PredictImage(img)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadFailures(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gob"), "labels.txt")
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))

	modelPath, labelsPath := writeModel(t, brightnessNetwork(), "axial\ncoronal\n")
	_, err = Load(modelPath, labelsPath)
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))

	garbage := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, os.WriteFile(garbage, []byte("not a model"), 0644))
	_, err = Load(garbage, labelsPath)
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))
}

func TestPredictRejectsMismatchedFrame(t *testing.T) {
	c, err := New(brightnessNetwork(), []string{"axial", "coronal", "sagittal"})
	require.NoError(t, err)
	_, err = c.Predict(Pixels{Width: 3, Height: 3, Samples: make([]float64, 4)})
	assert.True(t, errors.Is(err, ErrInvalidImage))
}

func TestNormalize8(t *testing.T) {
	tests := []struct {
		name     string
		in       Pixels
		expected []uint8
	}{
		{"scales to max", Pixels{Samples: []float64{0, 50, 100}}, []uint8{0, 127, 255}},
		{"clamps negatives", Pixels{Samples: []float64{-20, 10, 40}}, []uint8{0, 63, 255}},
		{"non-positive max", Pixels{Samples: []float64{-5, -1, 0}}, []uint8{0, 0, 0}},
		{"8-bit passes through", Pixels{Samples: []float64{3, 7, 9}, Uint8: true}, []uint8{3, 7, 9}},
		{"empty", Pixels{}, []uint8{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize8(tt.in))
		})
	}
}

func TestSoftmax(t *testing.T) {
	p := Softmax([]float64{1000, 1000, 1000})
	for _, v := range p {
		assert.InDelta(t, 1.0/3, v, 1e-12)
	}
	p = Softmax([]float64{0, math.Log(3)})
	assert.InDelta(t, 0.25, p[0], 1e-12)
	assert.InDelta(t, 0.75, p[1], 1e-12)
}

func TestToRGBAndResize(t *testing.T) {
	img, err := ToRGB([]uint8{10, 20, 30, 40}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 30, G: 30, B: 30, A: 255}, img.RGBAAt(0, 1))

	flat := Flatten(Resize(img, 2, 2))
	assert.Len(t, flat, 12)
	assert.InDelta(t, 10, flat[0], 1)
	assert.Equal(t, flat[0], flat[1])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "سهمي (Sagittal)", Prediction{Label: "sagittal", Orientation: orientation.Sagittal}.DisplayName())
	assert.Equal(t, "oblique", Prediction{Label: "oblique"}.DisplayName())
	assert.InDelta(t, 87.5, Prediction{Confidence: 0.875}.Percent(), 1e-12)
}

func TestNetworkValidate(t *testing.T) {
	net := brightnessNetwork()
	net.Layers = append(net.Layers, Layer{Weights: mat.NewDense(5, 2, nil), Biases: mat.NewDense(1, 2, nil)})
	assert.Error(t, net.Validate())

	_, err := net.Forward(make([]float64, 3))
	assert.Error(t, err)
}
