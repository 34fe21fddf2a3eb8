// Package neural provides the fixed-topology feed-forward networks driven by genotypes.
package neural

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrConfigMismatch reports a parameter vector whose length differs from the network weight count.
	ErrConfigMismatch = errors.New("genotype parameter count does not match network weight count")

	// ErrInputSize reports an input vector whose length differs from the first layer size.
	ErrInputSize = errors.New("input size does not match network topology")
)

// Network is a feed-forward neural network with a fixed topology.
type Network struct {
	topology    []int
	layers      []*Layer
	weightCount int
}

// NewNetwork allocates layers for topology (first entry = inputs, last = outputs).
// All layers share act.
func NewNetwork(topology []int, act Activation) (*Network, error) {
	if len(topology) < 2 {
		return nil, fmt.Errorf("topology needs at least an input and an output layer, got %v", topology)
	}
	for i, n := range topology {
		if n < 1 {
			return nil, fmt.Errorf("topology[%d] = %d, layer sizes must be positive", i, n)
		}
	}

	nn := &Network{
		topology: append([]int(nil), topology...),
		layers:   make([]*Layer, len(topology)-1),
	}
	for i := range nn.layers {
		nn.layers[i] = NewLayer(topology[i], topology[i+1], act)
		nn.weightCount += nn.layers[i].WeightCount()
	}
	return nn, nil
}

// WeightCountFor returns the weight count of a network with the given topology.
func WeightCountFor(topology []int) int {
	count := 0
	for i := 0; i+1 < len(topology); i++ {
		count += topology[i] * topology[i+1]
	}
	return count
}

// Topology returns a copy of the layer sizes.
func (nn *Network) Topology() []int {
	return append([]int(nil), nn.topology...)
}

// Layers returns the network layers in feed order.
func (nn *Network) Layers() []*Layer {
	return nn.layers
}

// WeightCount is the sum of inputs*outputs over all layers.
func (nn *Network) WeightCount() int {
	return nn.weightCount
}

// InputCount returns the size of the input layer.
func (nn *Network) InputCount() int {
	return nn.topology[0]
}

// OutputCount returns the size of the output layer.
func (nn *Network) OutputCount() int {
	return nn.topology[len(nn.topology)-1]
}

// LoadWeights fills every layer from params, layer by layer, row-major.
func (nn *Network) LoadWeights(params []float32) error {
	if len(params) != nn.weightCount {
		return fmt.Errorf("%w: got %d parameters, network has %d weights", ErrConfigMismatch, len(params), nn.weightCount)
	}

	p := 0
	for _, l := range nn.layers {
		for i := 0; i < l.inputs; i++ {
			for j := 0; j < l.outputs; j++ {
				l.Weights.Set(i, j, float64(params[p]))
				p++
			}
		}
	}
	return nil
}

// Weights flattens the network weights in LoadWeights order.
func (nn *Network) Weights() []float32 {
	out := make([]float32, 0, nn.weightCount)
	for _, l := range nn.layers {
		for i := 0; i < l.inputs; i++ {
			for j := 0; j < l.outputs; j++ {
				out = append(out, float32(l.Weights.At(i, j)))
			}
		}
	}
	return out
}

// Process feeds inputs through every layer and returns the output activations.
func (nn *Network) Process(inputs []float64) ([]float64, error) {
	if len(inputs) != nn.InputCount() {
		return nil, fmt.Errorf("%w: got %d inputs, want %d", ErrInputSize, len(inputs), nn.InputCount())
	}

	v := mat.NewVecDense(len(inputs), append([]float64(nil), inputs...))
	for _, l := range nn.layers {
		v = l.Process(v)
	}

	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out, nil
}
