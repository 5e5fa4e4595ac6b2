package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/tensor"
)

func TestNewDenseValidatesIdentifiers(t *testing.T) {
	_, err := NewDense(4, DenseConfig{Activation: "swish"})
	assert.ErrorIs(t, err, ErrUnknownIdentifier)

	_, err = NewDense(4, DenseConfig{Initializer: "orthogonal"})
	assert.ErrorIs(t, err, ErrUnknownIdentifier)

	_, err = NewDense(0, DenseConfig{})
	assert.Error(t, err)
}

func TestSequentialBuildErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		err := NewSequential().Build(BuildOptions{})
		assert.ErrorIs(t, err, ErrInvalidTopology)
	})

	t.Run("no input dim", func(t *testing.T) {
		err := NewSequential(MustDense(4, DenseConfig{})).Build(BuildOptions{})
		assert.ErrorIs(t, err, ErrInvalidTopology)
	})

	t.Run("declared width conflict", func(t *testing.T) {
		err := NewSequential(
			MustDense(4, DenseConfig{InputDim: 3}),
			MustDense(2, DenseConfig{InputDim: 7}),
		).Build(BuildOptions{})
		assert.ErrorIs(t, err, ErrInvalidTopology)
	})

	t.Run("duplicate names", func(t *testing.T) {
		err := NewSequential(
			MustDense(4, DenseConfig{InputDim: 3, Name: "x"}),
			MustDense(2, DenseConfig{Name: "x"}),
		).Build(BuildOptions{})
		assert.ErrorIs(t, err, ErrInvalidTopology)
	})
}

func TestSequentialAutoNames(t *testing.T) {
	net := NewSequential(
		MustDense(8, DenseConfig{InputDim: 4}),
		MustDense(8, DenseConfig{}),
		MustDense(2, DenseConfig{Name: "head"}),
	)
	require.NoError(t, net.Build(BuildOptions{}))

	layers := net.Layers()
	assert.Equal(t, "dense", layers[0].Name())
	assert.Equal(t, "dense_1", layers[1].Name())
	assert.Equal(t, "head", layers[2].Name())
}

func TestSequentialForwardShape(t *testing.T) {
	net := NewSequential(
		MustDense(512, DenseConfig{InputDim: 784, Activation: "relu"}),
		MustDense(512, DenseConfig{Activation: "relu"}),
		MustDense(10, DenseConfig{Activation: "softmax"}),
	)
	require.NoError(t, net.Build(BuildOptions{Seed: 1}))

	assert.Equal(t, 784, net.InputDim())
	assert.Equal(t, 10, net.OutputDim())

	out := net.Forward(tensor.Zeros(3, 784))
	assert.Equal(t, tensor.Shape{3, 10}, out.Shape())
}

func TestSequentialDeterministicInit(t *testing.T) {
	build := func() *Sequential {
		net := NewSequential(
			MustDense(8, DenseConfig{InputDim: 4, Activation: "relu"}),
			MustDense(2, DenseConfig{}),
		)
		require.NoError(t, net.Build(BuildOptions{Seed: 42}))
		return net
	}

	a := build().StateDict()
	b := build().StateDict()
	require.Equal(t, len(a), len(b))
	for name, m := range a {
		assert.True(t, m.EqualApprox(b[name], 0), "parameter %s differs", name)
	}
}

func TestSequentialStateDictKeys(t *testing.T) {
	net := NewSequential(
		MustDense(8, DenseConfig{InputDim: 4}),
		MustDense(2, DenseConfig{}),
	)
	require.NoError(t, net.Build(BuildOptions{}))

	state := net.StateDict()
	assert.Contains(t, state, "dense.weight")
	assert.Contains(t, state, "dense.bias")
	assert.Contains(t, state, "dense_1.weight")
	assert.Contains(t, state, "dense_1.bias")
	assert.Equal(t, tensor.Shape{8, 4}, state["dense.weight"].Shape())
	assert.Equal(t, tensor.Shape{1, 8}, state["dense.bias"].Shape())
}

func TestSequentialLoadStateDictShapeMismatch(t *testing.T) {
	net := NewSequential(MustDense(8, DenseConfig{InputDim: 4}))
	require.NoError(t, net.Build(BuildOptions{}))

	err := net.LoadStateDict(map[string]*tensor.Matrix{
		"dense.weight": tensor.Zeros(8, 5),
		"dense.bias":   tensor.Zeros(1, 8),
	})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestSequentialTrainingReducesLoss(t *testing.T) {
	// One dense layer on a linearly separable toy problem: repeated
	// gradient steps must drive the loss down.
	net := NewSequential(MustDense(2, DenseConfig{InputDim: 2, Activation: "softmax"}))
	require.NoError(t, net.Build(BuildOptions{Seed: 3}))

	x := tensor.New(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := tensor.New(4, 2, []float64{
		1, 0,
		1, 0,
		0, 1,
		0, 1,
	})

	loss := CategoricalCrossEntropy{}
	lossAt := func() float64 { return loss.Loss(net.Forward(x), y) }

	before := lossAt()
	for i := 0; i < 200; i++ {
		pred := net.Forward(x)
		for _, p := range net.Parameters() {
			p.ZeroGrad()
		}
		net.Backward(loss.Gradient(pred, y))
		for _, p := range net.Parameters() {
			value := p.Value().Data()
			grad := p.Grad().Data()
			for j := range value {
				value[j] -= 0.5 * grad[j]
			}
		}
	}
	assert.Less(t, lossAt(), before)
}
