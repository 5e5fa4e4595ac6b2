package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

func newParam(t *testing.T, name string, rows, cols int, data []float64) *nn.Parameter {
	t.Helper()
	return nn.NewParameter(name, tensor.New(rows, cols, data))
}

func TestSGDStep(t *testing.T) {
	p := newParam(t, "weight", 1, 2, []float64{1.0, 2.0})
	p.AddGrad(tensor.New(1, 2, []float64{0.5, -0.5}))

	opt := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 0.1})
	opt.Step()

	assert.InDelta(t, 0.95, p.Value().At(0, 0), 1e-12)
	assert.InDelta(t, 2.05, p.Value().At(0, 1), 1e-12)
}

func TestSGDMomentumAccumulates(t *testing.T) {
	p := newParam(t, "weight", 1, 1, []float64{0.0})
	opt := NewSGD([]*nn.Parameter{p}, SGDConfig{LR: 1.0, Momentum: 0.5})

	// Constant gradient 1.0: velocity goes 1.0, then 1.5.
	p.AddGrad(tensor.New(1, 1, []float64{1.0}))
	opt.Step()
	assert.InDelta(t, -1.0, p.Value().At(0, 0), 1e-12)

	opt.Step()
	assert.InDelta(t, -2.5, p.Value().At(0, 0), 1e-12)
}

func TestSGDDefaults(t *testing.T) {
	opt := NewSGD(nil, SGDConfig{})
	assert.Equal(t, 0.01, opt.LR())
	assert.Equal(t, "sgd", opt.Name())
}

func TestAdamFirstStep(t *testing.T) {
	// On the first step the bias correction cancels exactly and the
	// update is lr * g / (|g| + eps) regardless of gradient magnitude.
	p := newParam(t, "weight", 1, 2, []float64{1.0, 1.0})
	p.AddGrad(tensor.New(1, 2, []float64{10.0, -0.001}))

	opt := NewAdam([]*nn.Parameter{p}, AdamConfig{LR: 0.1})
	opt.Step()

	assert.InDelta(t, 0.9, p.Value().At(0, 0), 1e-4)
	assert.InDelta(t, 1.1, p.Value().At(0, 1), 1e-4)
	assert.Equal(t, 1, opt.Timestep())
}

func TestAdamDefaults(t *testing.T) {
	opt := NewAdam(nil, AdamConfig{})
	assert.Equal(t, 0.001, opt.LR())
	assert.Equal(t, "adam", opt.Name())
}

func TestRMSPropStep(t *testing.T) {
	p := newParam(t, "weight", 1, 1, []float64{1.0})
	p.AddGrad(tensor.New(1, 1, []float64{2.0}))

	opt := NewRMSProp([]*nn.Parameter{p}, RMSPropConfig{LR: 0.01, Rho: 0.9})
	opt.Step()

	// cache = 0.1 * 4 = 0.4; update = 0.01 * 2 / sqrt(0.4)
	assert.InDelta(t, 1.0-0.01*2.0/0.6324555320336759, p.Value().At(0, 0), 1e-9)
}

func TestZeroGrad(t *testing.T) {
	p := newParam(t, "weight", 1, 2, []float64{1.0, 2.0})
	p.AddGrad(tensor.New(1, 2, []float64{3.0, 4.0}))

	opt := NewSGD([]*nn.Parameter{p}, SGDConfig{})
	opt.ZeroGrad()

	assert.Equal(t, []float64{0, 0}, p.Grad().Data())
}

func TestByName(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantLR   float64
	}{
		{"sgd", "sgd", 0.01},
		{"adam", "adam", 0.001},
		{"rmsprop", "rmsprop", 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := ByName(tt.name, nil, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, opt.Name())
			assert.Equal(t, tt.wantLR, opt.LR())
		})
	}

	_, err := ByName("adagrad", nil, 0)
	assert.ErrorIs(t, err, nn.ErrUnknownIdentifier)
}

func TestAdamStateDictRoundTrip(t *testing.T) {
	p := newParam(t, "weight", 2, 2, []float64{1, 2, 3, 4})
	p.AddGrad(tensor.New(2, 2, []float64{0.1, 0.2, 0.3, 0.4}))

	opt := NewAdam([]*nn.Parameter{p}, AdamConfig{})
	opt.Step()
	opt.Step()

	state := opt.StateDict()
	require.Contains(t, state, "m.0")
	require.Contains(t, state, "v.0")
	require.Contains(t, state, "t")

	restored := NewAdam([]*nn.Parameter{p}, AdamConfig{})
	require.NoError(t, restored.LoadStateDict(state))
	assert.Equal(t, 2, restored.Timestep())
	assert.True(t, restored.m[0].EqualApprox(opt.m[0], 1e-12))
	assert.True(t, restored.v[0].EqualApprox(opt.v[0], 1e-12))
}

func TestSGDStateDictRoundTrip(t *testing.T) {
	p := newParam(t, "weight", 1, 3, []float64{1, 2, 3})
	p.AddGrad(tensor.New(1, 3, []float64{0.1, 0.2, 0.3}))

	opt := NewSGD([]*nn.Parameter{p}, SGDConfig{Momentum: 0.9})
	opt.Step()

	state := opt.StateDict()
	require.Contains(t, state, "velocity.0")

	restored := NewSGD([]*nn.Parameter{p}, SGDConfig{Momentum: 0.9})
	require.NoError(t, restored.LoadStateDict(state))
	assert.True(t, restored.velocities[0].EqualApprox(opt.velocities[0], 1e-12))
}

func TestLoadStateDictShapeMismatch(t *testing.T) {
	p := newParam(t, "weight", 2, 2, []float64{1, 2, 3, 4})
	opt := NewSGD([]*nn.Parameter{p}, SGDConfig{Momentum: 0.9})

	err := opt.LoadStateDict(map[string]*tensor.Matrix{
		"velocity.0": tensor.Zeros(3, 3),
	})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestLoadStateDictMissingSlotIsLazy(t *testing.T) {
	p := newParam(t, "weight", 2, 2, []float64{1, 2, 3, 4})
	opt := NewRMSProp([]*nn.Parameter{p}, RMSPropConfig{})

	require.NoError(t, opt.LoadStateDict(map[string]*tensor.Matrix{}))
	assert.Nil(t, opt.cache[0])
}
