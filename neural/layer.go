package neural

import (
	"gonum.org/v1/gonum/mat"
)

// Layer is one fully connected feed-forward layer.
// Weights are stored as an [inputs x outputs] matrix.
type Layer struct {
	Weights    *mat.Dense
	Activation Activation

	inputs  int
	outputs int
}

// NewLayer creates a zero-weighted layer.
func NewLayer(inputs, outputs int, act Activation) *Layer {
	if act == nil {
		act = SoftSign
	}
	return &Layer{
		Weights:    mat.NewDense(inputs, outputs, nil),
		Activation: act,
		inputs:     inputs,
		outputs:    outputs,
	}
}

// Inputs returns the number of neurons feeding this layer.
func (l *Layer) Inputs() int { return l.inputs }

// Outputs returns the number of neurons this layer produces.
func (l *Layer) Outputs() int { return l.outputs }

// WeightCount returns inputs*outputs.
func (l *Layer) WeightCount() int { return l.inputs * l.outputs }

// Process computes activation(inputs · W).
func (l *Layer) Process(in *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(l.outputs, nil)
	out.MulVec(l.Weights.T(), in)
	for j := 0; j < l.outputs; j++ {
		out.SetVec(j, l.Activation(out.AtVec(j)))
	}
	return out
}
