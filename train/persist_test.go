package train

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

func TestWeightsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.strata")
	ds := toyDataset(t, 12)

	trained := NewModel(buildNet(t, 42))
	require.NoError(t, trained.Compile(classifierConfig()))
	_, err := trained.Fit(ds, FitOptions{Epochs: 2, BatchSize: 4})
	require.NoError(t, err)
	require.NoError(t, trained.SaveWeights(path))

	// Fresh shell with different initial weights.
	restored := NewModel(buildNet(t, 99))
	require.NoError(t, restored.LoadWeights(path))

	x := tensor.Zeros(3, 4)
	x.Set(0, 1, 0.5)
	x.Set(1, 2, 0.25)
	assert.True(t, trained.Predict(x).EqualApprox(restored.Predict(x), 1e-12))
}

func TestLoadWeightsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.strata")

	source := NewModel(buildNet(t, 1))
	require.NoError(t, source.SaveWeights(path))

	// Shell with a mutated unit count in the hidden layer.
	mutated := nn.NewSequential(
		nn.MustDense(16, nn.DenseConfig{InputDim: 4, Activation: "relu"}),
		nn.MustDense(3, nn.DenseConfig{Activation: "softmax"}),
	)
	require.NoError(t, mutated.Build(nn.BuildOptions{Seed: 1}))

	err := NewModel(mutated).LoadWeights(path)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.strata")
	ds := toyDataset(t, 12)

	cfg := Config{Optimizer: "adam", Loss: "categorical_crossentropy"}
	trained := NewModel(buildNet(t, 42))
	require.NoError(t, trained.Compile(cfg))
	_, err := trained.Fit(ds, FitOptions{Epochs: 3, BatchSize: 4})
	require.NoError(t, err)
	require.NoError(t, trained.SaveCheckpoint(path, 3))

	restored := NewModel(buildNet(t, 7))
	require.NoError(t, restored.Compile(cfg))
	epoch, err := restored.LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, 3, epoch)

	// Weights restored.
	x := tensor.Zeros(2, 4)
	x.Set(0, 0, 1.0)
	assert.True(t, trained.Predict(x).EqualApprox(restored.Predict(x), 1e-12))

	// Optimizer moments restored: one more identical step on identical
	// gradients must produce identical parameters.
	_, err = trained.Fit(ds, FitOptions{Epochs: 1, BatchSize: 4})
	require.NoError(t, err)
	_, err = restored.Fit(ds, FitOptions{Epochs: 1, BatchSize: 4})
	require.NoError(t, err)

	a := trained.Network().StateDict()
	b := restored.Network().StateDict()
	for name, m := range a {
		assert.True(t, m.EqualApprox(b[name], 1e-9), "parameter %s diverged after resume", name)
	}
}

func TestCheckpointOptimizerMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.strata")

	saved := NewModel(buildNet(t, 1))
	require.NoError(t, saved.Compile(Config{Optimizer: "adam", Loss: "mse"}))
	require.NoError(t, saved.SaveCheckpoint(path, 1))

	other := NewModel(buildNet(t, 1))
	require.NoError(t, other.Compile(Config{Optimizer: "sgd", Loss: "mse"}))
	_, err := other.LoadCheckpoint(path)
	assert.Error(t, err)
}

func TestCheckpointRequiresCompile(t *testing.T) {
	model := NewModel(buildNet(t, 1))
	assert.ErrorIs(t, model.SaveCheckpoint(filepath.Join(t.TempDir(), "c"), 1), ErrNotCompiled)
	_, err := model.LoadCheckpoint(filepath.Join(t.TempDir(), "c"))
	assert.ErrorIs(t, err, ErrNotCompiled)
}
