// Package classifier wraps a pre-trained image classifier that predicts the
// anatomical plane of a single 2D slice. The model and its label file are
// loaded once; predictions hold no state between calls.
package classifier

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"

	"mriorient/pkg/orientation"
)

var (
	// ErrClassifierUnavailable is returned when the model artifact or its
	// labels cannot be loaded.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrInvalidImage is returned for frames that cannot be fed to the model.
	ErrInvalidImage = errors.New("invalid classifier input")
)

// Prediction is the top class for one image. Confidence is the softmax
// probability in [0,1].
type Prediction struct {
	// Label is the class name exactly as listed in the label file
	Label string

	// Orientation is Label parsed as a plane, Unknown if it is not one
	Orientation orientation.Label

	Confidence float64
}

// Percent returns the confidence on the 0-100 scale.
func (p Prediction) Percent() float64 {
	return p.Confidence * 100
}

// LowConfidence reports whether the prediction falls below thresholdPercent.
func (p Prediction) LowConfidence(thresholdPercent float64) bool {
	return p.Percent() < thresholdPercent
}

// DisplayName returns the localized name of the predicted plane, or the raw
// label when it is not one of the three planes.
func (p Prediction) DisplayName() string {
	if name, ok := displayNames[p.Orientation]; ok {
		return name
	}
	return p.Label
}

var displayNames = map[orientation.Label]string{
	orientation.Axial:    "محوري (Axial / عرضي)",
	orientation.Coronal:  "جبهّي / كورونال (Coronal)",
	orientation.Sagittal: "سهمي (Sagittal)",
}

// Classifier is a loaded model with its class names.
type Classifier struct {
	net    *Network
	labels []string
}

// New pairs a network with its labels.
func New(net *Network, labels []string) (*Classifier, error) {
	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	if len(labels) != net.OutputSize() {
		return nil, fmt.Errorf("%w: %d labels for %d model outputs",
			ErrClassifierUnavailable, len(labels), net.OutputSize())
	}
	return &Classifier{net: net, labels: labels}, nil
}

// Load reads the gob model and the label file. Any failure is reported as
// ErrClassifierUnavailable.
func Load(modelPath, labelsPath string) (*Classifier, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer f.Close()

	net, err := LoadNetwork(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrClassifierUnavailable, modelPath, err)
	}
	labels, err := ReadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	return New(net, labels)
}

// ReadLabels reads one class name per line. Blank lines are skipped.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			labels = append(labels, l)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}
	return labels, nil
}

// Labels returns the class names in output order.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Predict normalizes a stored frame, replicates it to RGB, resizes it to the
// model input and returns the top class.
func (c *Classifier) Predict(p Pixels) (Prediction, error) {
	rgb, err := ToRGB(Normalize8(p), p.Width, p.Height)
	if err != nil {
		return Prediction{}, err
	}
	return c.PredictImage(rgb)
}

// PredictImage classifies an already decoded 8-bit image.
func (c *Classifier) PredictImage(img image.Image) (Prediction, error) {
	if img.Bounds().Empty() {
		return Prediction{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	input := Flatten(Resize(img, c.net.InputWidth, c.net.InputHeight))
	logits, err := c.net.Forward(input)
	if err != nil {
		return Prediction{}, err
	}
	probs := Softmax(logits)
	idx := floats.MaxIdx(probs)

	pred := Prediction{Label: c.labels[idx], Confidence: probs[idx]}
	if l, err := orientation.ParseLabel(pred.Label); err == nil {
		pred.Orientation = l
	}
	return pred, nil
}

// PredictFile classifies a JPEG or PNG image file.
func (c *Classifier) PredictFile(path string) (Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return Prediction{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidImage, path, err)
	}
	return c.PredictImage(img)
}
