package train

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/strata-ml/strata/internal/artifact"
	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

const optimizerPrefix = "optimizer."

// SaveWeights writes all layer parameters to a binary container at
// path, keyed "<layer>.weight" / "<layer>.bias".
func (m *Model) SaveWeights(path string) error {
	return artifact.Save(path, modelType(m.net), nil, toEntries(m.net.StateDict()))
}

// LoadWeights restores layer parameters from path into the model's
// network. A stored shape that disagrees with the network's declared
// shape fails with an error wrapping tensor.ErrShapeMismatch.
func (m *Model) LoadWeights(path string) error {
	_, entries, err := artifact.Load(path)
	if err != nil {
		return err
	}
	return m.net.LoadStateDict(toState(entries))
}

// SaveCheckpoint writes weights, optimizer state and the epoch counter
// in one container, so training can resume where it stopped.
func (m *Model) SaveCheckpoint(path string, epoch int) error {
	if !m.compiled {
		return ErrNotCompiled
	}
	entries := toEntries(m.net.StateDict())
	for key, mat := range m.opt.StateDict() {
		entries[optimizerPrefix+key] = artifact.Entry{
			Shape: mat.Shape(),
			Data:  mat.Data(),
		}
	}
	meta := map[string]string{
		"epoch":     strconv.Itoa(epoch),
		"optimizer": m.opt.Name(),
	}
	return artifact.Save(path, modelType(m.net), meta, entries)
}

// LoadCheckpoint restores weights and optimizer state and returns the
// saved epoch counter. The model must be compiled with the same
// optimizer identifier the checkpoint was written with.
func (m *Model) LoadCheckpoint(path string) (int, error) {
	if !m.compiled {
		return 0, ErrNotCompiled
	}
	header, entries, err := artifact.Load(path)
	if err != nil {
		return 0, err
	}
	if saved := header.Metadata["optimizer"]; saved != m.opt.Name() {
		return 0, fmt.Errorf("train: checkpoint optimizer %q, model compiled with %q", saved, m.opt.Name())
	}

	weights := make(map[string]artifact.Entry)
	optState := make(map[string]*tensor.Matrix)
	for name, entry := range entries {
		if key, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optState[key] = entryMatrix(entry)
		} else {
			weights[name] = entry
		}
	}
	if err := m.net.LoadStateDict(toState(weights)); err != nil {
		return 0, err
	}
	if err := m.opt.LoadStateDict(optState); err != nil {
		return 0, err
	}
	epoch, err := strconv.Atoi(header.Metadata["epoch"])
	if err != nil {
		return 0, fmt.Errorf("train: checkpoint epoch metadata: %w", err)
	}
	return epoch, nil
}

func modelType(net nn.Network) string {
	switch net.(type) {
	case *nn.Sequential:
		return "sequential"
	case *nn.GraphNet:
		return "graph"
	default:
		return "model"
	}
}

func toEntries(state map[string]*tensor.Matrix) map[string]artifact.Entry {
	entries := make(map[string]artifact.Entry, len(state))
	for name, mat := range state {
		entries[name] = artifact.Entry{Shape: mat.Shape(), Data: mat.Data()}
	}
	return entries
}

func toState(entries map[string]artifact.Entry) map[string]*tensor.Matrix {
	state := make(map[string]*tensor.Matrix, len(entries))
	for name, entry := range entries {
		state[name] = entryMatrix(entry)
	}
	return state
}

// entryMatrix reshapes a stored entry to a matrix; one-dimensional
// shapes load as a single row.
func entryMatrix(entry artifact.Entry) *tensor.Matrix {
	rows, cols := 1, entry.NumElements()
	if len(entry.Shape) == 2 {
		rows, cols = entry.Shape[0], entry.Shape[1]
	}
	return tensor.New(rows, cols, entry.Data)
}
