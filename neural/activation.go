package neural

import (
	"fmt"
	"math"
	"sort"
)

// Activation is an elementwise neuron activation function.
type Activation func(x float64) float64

// SoftSign maps x to (-1, 1) as x / (1 + |x|).
func SoftSign(x float64) float64 {
	return x / (1 + math.Abs(x))
}

// Sigmoid maps x to (0, 1).
func Sigmoid(x float64) float64 {
	if x > 10 {
		return 1
	}
	if x < -10 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// Tanh maps x to (-1, 1).
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Identity returns x unchanged.
func Identity(x float64) float64 {
	return x
}

var activations = map[string]Activation{
	"softsign": SoftSign,
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"identity": Identity,
}

// ActivationByName looks up a registered activation function.
func ActivationByName(name string) (Activation, error) {
	if name == "" {
		return SoftSign, nil
	}
	fn, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("unknown activation %q (have %v)", name, ActivationNames())
	}
	return fn, nil
}

// ActivationNames returns the registered activation names in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
