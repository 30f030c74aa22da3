package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var carTopology = Topology{Inputs: 5, Hidden: 8, Outputs: 4}

func newTestNetwork(t *testing.T, seed int64) *Network {
	t.Helper()
	n, err := New(carTopology, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return n
}

func TestNewShapesAndRange(t *testing.T) {
	n := newTestNetwork(t, 1)

	assert.Equal(t, 8, n.WeightsInputHidden.Rows)
	assert.Equal(t, 5, n.WeightsInputHidden.Cols)
	assert.Equal(t, 4, n.WeightsHiddenOutput.Rows)
	assert.Equal(t, 8, n.WeightsHiddenOutput.Cols)
	assert.Len(t, n.BiasHidden, 8)
	assert.Len(t, n.BiasOutput, 4)
	assert.Equal(t, DefaultActivation, n.Activation)

	params := n.Parameters()
	assert.Len(t, params, 8*5+4*8+8+4)
	for _, p := range params {
		assert.GreaterOrEqual(t, p, -1.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestNewRejectsInvalidTopology(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, topo := range []Topology{
		{Inputs: 0, Hidden: 8, Outputs: 4},
		{Inputs: 5, Hidden: 0, Outputs: 4},
		{Inputs: 5, Hidden: 8, Outputs: 0},
		{Inputs: 5, Hidden: 8, Outputs: 4, Activation: "softmax"},
	} {
		_, err := New(topo, rng)
		assert.Error(t, err, "%+v", topo)
	}
}

func TestZeroNetworkPredictsHalf(t *testing.T) {
	n := newTestNetwork(t, 7)
	n.Map(func(float64) float64 { return 0 })

	out, err := n.Predict([]float64{0, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Len(t, out, 4)
	for _, v := range out {
		assert.Equal(t, 0.5, v)
	}
}

func TestForwardMatchesHandComputation(t *testing.T) {
	n, err := New(Topology{Inputs: 2, Hidden: 1, Outputs: 1}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	n.WeightsInputHidden.Set(0, 0, 0.5)
	n.WeightsInputHidden.Set(0, 1, -0.25)
	n.BiasHidden[0] = 0.1
	n.WeightsHiddenOutput.Set(0, 0, 2)
	n.BiasOutput[0] = -1

	act, err := n.Forward([]float64{1, 2})
	require.NoError(t, err)

	h := Sigmoid(0.5*1 + -0.25*2 + 0.1)
	o := Sigmoid(2*h - 1)
	assert.Equal(t, []float64{1, 2}, act.Inputs)
	assert.InDelta(t, h, act.Hidden[0], 1e-15)
	assert.InDelta(t, o, act.Outputs[0], 1e-15)
}

func TestPredictRejectsDimensionMismatch(t *testing.T) {
	n := newTestNetwork(t, 1)

	_, err := n.Predict([]float64{0, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = n.Predict(make([]float64, 6))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCopyIsIndependent(t *testing.T) {
	a := newTestNetwork(t, 11)
	before := a.Parameters()

	b := a.Copy()
	assert.Equal(t, before, b.Parameters())

	b.Mutate(1.0, rand.New(rand.NewSource(99)))
	b.BiasOutput[0] = 42

	assert.Equal(t, before, a.Parameters(), "mutating the copy must not touch the source")
	assert.NotEqual(t, a.Parameters(), b.Parameters())
}

func TestMutateBound(t *testing.T) {
	for _, rate := range []float64{0.1, 0.5, 1.0} {
		n := newTestNetwork(t, 5)
		before := n.Parameters()
		n.Mutate(rate, rand.New(rand.NewSource(17)))
		after := n.Parameters()

		changed := 0
		for i := range before {
			delta := math.Abs(after[i] - before[i])
			assert.LessOrEqual(t, delta, MutationStep, "param %d at rate %v", i, rate)
			if delta != 0 {
				changed++
			}
		}
		if rate == 1.0 {
			assert.Equal(t, len(before), changed, "rate 1 mutates every parameter")
		}
	}
}

func TestMutateRateZeroLeavesNetworkUntouched(t *testing.T) {
	n := newTestNetwork(t, 5)
	before := n.Parameters()
	n.Mutate(0, rand.New(rand.NewSource(1)))
	assert.Equal(t, before, n.Parameters())
}

func TestMutateValue(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		v := MutateValue(0.3, 0.5, rng)
		assert.LessOrEqual(t, math.Abs(v-0.3), MutationStep)
	}
	assert.Equal(t, 0.3, MutateValue(0.3, 0, rng))
}

func TestMutationIsDeterministicForASeed(t *testing.T) {
	a := newTestNetwork(t, 8)
	b := a.Copy()
	a.Mutate(0.3, rand.New(rand.NewSource(21)))
	b.Mutate(0.3, rand.New(rand.NewSource(21)))
	assert.Equal(t, a.Parameters(), b.Parameters())
}

func TestActivations(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1.0, Sigmoid(50), 1e-12)
	assert.Equal(t, 0.0, ReLU(-3))
	assert.Equal(t, 2.5, ReLU(2.5))
	assert.Equal(t, -1.5, Identity(-1.5))
	assert.InDelta(t, math.Tanh(0.3), Tanh(0.3), 0)

	_, err := GetActivation("nope")
	assert.Error(t, err)

	n, err := New(Topology{Inputs: 1, Hidden: 1, Outputs: 1, Activation: "identity"}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	n.Map(func(float64) float64 { return 1 })
	out, err := n.Predict([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, out, "identity: h = 2+1, o = 3+1")
}

func TestMatrixAffineValidatesShapes(t *testing.T) {
	m := NewMatrix(2, 3)
	_, err := m.Affine([]float64{1, 2}, []float64{0, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = m.Affine([]float64{1, 2, 3}, []float64{0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	m.Set(1, 2, 4)
	assert.Equal(t, [][]float64{{0, 0, 0}, {0, 0, 4}}, m.Rows2D())
}
