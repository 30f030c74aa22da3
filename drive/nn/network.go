// Package nn implements the fixed-topology feed-forward networks that drive the cars.
//
// A network has exactly three layers (input, hidden, output). Weights and biases are
// initialised uniformly in [-1, 1]; the only variation operator is Mutate.
package nn

import (
	"errors"
	"fmt"
	"math/rand"
)

// MutationStep bounds how far a single mutation can move a parameter.
const MutationStep = 0.1

// ErrDimensionMismatch is returned when an input vector does not match the network shape.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Topology describes the layer sizes of a network.
type Topology struct {
	Inputs     int
	Hidden     int
	Outputs    int
	Activation string // Name from ActivationFunctions; empty means DefaultActivation.
}

// Validate checks that every layer has at least one node and the activation is known.
func (t Topology) Validate() error {
	if t.Inputs <= 0 {
		return fmt.Errorf("topology error: inputs must be positive, got %d", t.Inputs)
	}
	if t.Hidden <= 0 {
		return fmt.Errorf("topology error: hidden must be positive, got %d", t.Hidden)
	}
	if t.Outputs <= 0 {
		return fmt.Errorf("topology error: outputs must be positive, got %d", t.Outputs)
	}
	if _, err := GetActivation(t.activationName()); err != nil {
		return fmt.Errorf("topology error: %w", err)
	}
	return nil
}

func (t Topology) activationName() string {
	if t.Activation == "" {
		return DefaultActivation
	}
	return t.Activation
}

// Network is a three-layer perceptron.
//
// WeightsInputHidden is HiddenNodes x InputNodes and WeightsHiddenOutput is
// OutputNodes x HiddenNodes. The shapes never change after construction.
type Network struct {
	InputNodes  int
	HiddenNodes int
	OutputNodes int

	WeightsInputHidden  *Matrix
	WeightsHiddenOutput *Matrix
	BiasHidden          []float64
	BiasOutput          []float64

	Activation string
	activate   ActivationType
}

// Activation holds the layer values produced by one forward pass.
type Activation struct {
	Inputs  []float64 `json:"inputs"`
	Hidden  []float64 `json:"hidden"`
	Outputs []float64 `json:"outputs"`
}

// Copy returns an independent copy of the activation vectors.
func (a Activation) Copy() Activation {
	return Activation{
		Inputs:  cloneVec(a.Inputs),
		Hidden:  cloneVec(a.Hidden),
		Outputs: cloneVec(a.Outputs),
	}
}

// New creates a network with every weight and bias drawn uniformly from [-1, 1].
// Parameters are drawn in the order W_ih, W_ho, b_h, b_o, each row-major.
func New(t Topology, rng *rand.Rand) (*Network, error) {
	n, err := newEmpty(t)
	if err != nil {
		return nil, err
	}
	n.Map(func(float64) float64 {
		return rng.Float64()*2 - 1
	})
	return n, nil
}

func newEmpty(t Topology) (*Network, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	fn, _ := GetActivation(t.activationName())
	return &Network{
		InputNodes:          t.Inputs,
		HiddenNodes:         t.Hidden,
		OutputNodes:         t.Outputs,
		WeightsInputHidden:  NewMatrix(t.Hidden, t.Inputs),
		WeightsHiddenOutput: NewMatrix(t.Outputs, t.Hidden),
		BiasHidden:          make([]float64, t.Hidden),
		BiasOutput:          make([]float64, t.Outputs),
		Activation:          t.activationName(),
		activate:            fn,
	}, nil
}

// Topology returns the layer sizes of the network.
func (n *Network) Topology() Topology {
	return Topology{Inputs: n.InputNodes, Hidden: n.HiddenNodes, Outputs: n.OutputNodes, Activation: n.Activation}
}

// Forward runs the network on inputs and returns every layer's values.
// The input length must equal InputNodes.
func (n *Network) Forward(inputs []float64) (Activation, error) {
	if len(inputs) != n.InputNodes {
		return Activation{}, fmt.Errorf("%w: got %d inputs, network expects %d", ErrDimensionMismatch, len(inputs), n.InputNodes)
	}

	hidden, err := n.WeightsInputHidden.Affine(inputs, n.BiasHidden)
	if err != nil {
		return Activation{}, fmt.Errorf("hidden layer: %w", err)
	}
	n.apply(hidden)

	outputs, err := n.WeightsHiddenOutput.Affine(hidden, n.BiasOutput)
	if err != nil {
		return Activation{}, fmt.Errorf("output layer: %w", err)
	}
	n.apply(outputs)

	return Activation{Inputs: cloneVec(inputs), Hidden: hidden, Outputs: outputs}, nil
}

// Predict returns only the output layer of a forward pass.
func (n *Network) Predict(inputs []float64) ([]float64, error) {
	act, err := n.Forward(inputs)
	if err != nil {
		return nil, err
	}
	return act.Outputs, nil
}

func (n *Network) apply(v []float64) {
	fn := n.activate
	if fn == nil {
		fn = Sigmoid
	}
	for i, x := range v {
		v[i] = fn(x)
	}
}

// Copy creates a deep copy of the network. The copy shares no storage with n.
func (n *Network) Copy() *Network {
	return &Network{
		InputNodes:          n.InputNodes,
		HiddenNodes:         n.HiddenNodes,
		OutputNodes:         n.OutputNodes,
		WeightsInputHidden:  n.WeightsInputHidden.Copy(),
		WeightsHiddenOutput: n.WeightsHiddenOutput.Copy(),
		BiasHidden:          cloneVec(n.BiasHidden),
		BiasOutput:          cloneVec(n.BiasOutput),
		Activation:          n.Activation,
		activate:            n.activate,
	}
}

// Map replaces every parameter with fn(parameter), visiting W_ih, W_ho, b_h, b_o in order.
func (n *Network) Map(fn func(float64) float64) {
	n.WeightsInputHidden.Map(fn)
	n.WeightsHiddenOutput.Map(fn)
	for i, v := range n.BiasHidden {
		n.BiasHidden[i] = fn(v)
	}
	for i, v := range n.BiasOutput {
		n.BiasOutput[i] = fn(v)
	}
}

// Parameters returns a flat copy of all parameters in Map order.
func (n *Network) Parameters() []float64 {
	out := make([]float64, 0, len(n.WeightsInputHidden.Data)+len(n.WeightsHiddenOutput.Data)+len(n.BiasHidden)+len(n.BiasOutput))
	out = append(out, n.WeightsInputHidden.Data...)
	out = append(out, n.WeightsHiddenOutput.Data...)
	out = append(out, n.BiasHidden...)
	out = append(out, n.BiasOutput...)
	return out
}

// Mutate perturbs each parameter independently with probability rate.
func (n *Network) Mutate(rate float64, rng *rand.Rand) {
	n.Map(func(v float64) float64 {
		return MutateValue(v, rate, rng)
	})
}

// MutateValue returns value + uniform(-1, 1) * MutationStep with probability rate,
// and value unchanged otherwise.
func MutateValue(value, rate float64, rng *rand.Rand) float64 {
	if rng.Float64() < rate {
		return value + (rng.Float64()*2-1)*MutationStep
	}
	return value
}

func cloneVec(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
