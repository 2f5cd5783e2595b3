package classifier

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Activation is the element-wise function applied after a dense layer.
type Activation int

const (
	ActLinear Activation = iota
	ActReLU
)

// Layer is a fully connected layer: out = act(in * Weights + Biases).
// Weights is (inputs x outputs), Biases is (1 x outputs).
type Layer struct {
	Weights *mat.Dense
	Biases  *mat.Dense
	Act     Activation
}

// Network is the persisted model artifact. The input is an RGB image of
// InputWidth x InputHeight flattened row by row, channels interleaved, with
// sample values in 0..255. The last layer produces one logit per class.
type Network struct {
	InputWidth  int
	InputHeight int
	Layers      []Layer
}

// InputSize is the length of the flattened input vector.
func (n *Network) InputSize() int {
	return n.InputWidth * n.InputHeight * 3
}

// OutputSize is the number of classes the network scores.
func (n *Network) OutputSize() int {
	if len(n.Layers) == 0 {
		return 0
	}
	_, c := n.Layers[len(n.Layers)-1].Weights.Dims()
	return c
}

// Validate checks that the layer shapes chain together.
func (n *Network) Validate() error {
	if n.InputWidth <= 0 || n.InputHeight <= 0 {
		return fmt.Errorf("invalid input size %dx%d", n.InputWidth, n.InputHeight)
	}
	if len(n.Layers) == 0 {
		return fmt.Errorf("network has no layers")
	}
	in := n.InputSize()
	for i, l := range n.Layers {
		if l.Weights == nil || l.Biases == nil {
			return fmt.Errorf("layer %d: missing weights or biases", i)
		}
		r, c := l.Weights.Dims()
		if r != in {
			return fmt.Errorf("layer %d: expects %d inputs, previous layer gives %d", i, r, in)
		}
		if br, bc := l.Biases.Dims(); br != 1 || bc != c {
			return fmt.Errorf("layer %d: biases are %dx%d, want 1x%d", i, br, bc, c)
		}
		in = c
	}
	return nil
}

// Forward runs one input vector through the network and returns the raw
// outputs of the last layer.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("input size mismatch: expected %d, got %d", n.InputSize(), len(input))
	}
	x := mat.NewDense(1, len(input), input)
	for _, l := range n.Layers {
		_, c := l.Weights.Dims()
		z := mat.NewDense(1, c, nil)
		z.Mul(x, l.Weights)
		z.Add(z, l.Biases)
		if l.Act == ActReLU {
			z.Apply(func(_, _ int, v float64) float64 {
				if v < 0 {
					return 0
				}
				return v
			}, z)
		}
		x = z
	}
	return mat.Row(nil, 0, x), nil
}

// Save gob-encodes the network to w.
func (n *Network) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(n)
}

// SaveToFile writes the network to filename.
func (n *Network) SaveToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := n.Save(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return file.Close()
}

// LoadNetwork decodes and validates a gob-encoded network.
func LoadNetwork(r io.Reader) (*Network, error) {
	var n Network
	if err := gob.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to decode gob model: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}
