// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train drives model training: it wraps a built network with a
// compiled configuration and runs the epoch/batch loop.
//
//	model := train.NewModel(net)
//	err := model.Compile(train.Config{
//	    Optimizer: "adam",
//	    Loss:      "categorical_crossentropy",
//	    Metrics:   []string{"accuracy"},
//	})
//	history, err := model.Fit(ds, train.FitOptions{Epochs: 5, BatchSize: 128, Shuffle: true})
package train

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"

	"github.com/strata-ml/strata/data"
	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/optim"
	"github.com/strata-ml/strata/tensor"
)

// Common errors.
var (
	ErrNotCompiled   = errors.New("train: model is not compiled")
	ErrConcurrentFit = errors.New("train: fit already in progress")
)

// Config is the training configuration attached by Compile.
//
// Optimizer, Loss and Metrics are registry identifiers; an unknown
// identifier fails Compile with nn.ErrUnknownIdentifier.
type Config struct {
	Optimizer    string   // "sgd", "adam", "rmsprop"
	LearningRate float64  // 0 selects the optimizer's default
	Loss         string   // "categorical_crossentropy", "mean_squared_error"
	Metrics      []string // "accuracy", "mse"
}

// FitOptions configures one Fit call.
type FitOptions struct {
	BatchSize int   // default 32
	Epochs    int   // default 1
	Shuffle   bool  // reshuffle sample order every epoch
	Seed      int64 // drives the shuffle order

	// Validation is evaluated forward-only after every epoch. When set
	// it takes precedence over ValidationSplit.
	Validation *data.Dataset

	// ValidationSplit holds out the trailing fraction of the training
	// set once, before the first epoch, and reuses it every epoch. A
	// fraction outside (0, 1) or one that leaves either side of the
	// split empty fails Fit with an error.
	ValidationSplit float64
}

// EpochStats is one epoch's record in the training history.
type EpochStats struct {
	Epoch      int
	Loss       float64
	Metrics    map[string]float64
	Validated  bool
	ValLoss    float64
	ValMetrics map[string]float64
}

// History is the append-only per-epoch training record, ordered by
// epoch.
type History []EpochStats

// Model wraps a built network with its training state.
//
// A model must be compiled before Fit or Evaluate. Recompiling
// replaces the configuration and optimizer state but never resets
// learned parameters: repeated Fit calls continue from the current
// weights.
type Model struct {
	net      nn.Network
	cfg      Config
	opt      optim.Optimizer
	loss     nn.Loss
	compiled bool
	fitting  atomic.Bool
}

// NewModel wraps a built Sequential or GraphNet.
func NewModel(net nn.Network) *Model {
	return &Model{net: net}
}

// Network returns the wrapped network.
func (m *Model) Network() nn.Network { return m.net }

// Compile validates the configuration identifiers and attaches them.
func (m *Model) Compile(cfg Config) error {
	loss, err := nn.LossByName(cfg.Loss)
	if err != nil {
		return err
	}
	for _, name := range cfg.Metrics {
		if _, err := metricByName(name); err != nil {
			return err
		}
	}
	opt, err := optim.ByName(cfg.Optimizer, m.net.Parameters(), cfg.LearningRate)
	if err != nil {
		return err
	}

	m.cfg = cfg
	m.loss = loss
	m.opt = opt
	m.compiled = true
	return nil
}

// Fit trains for opts.Epochs passes over ds and returns one history
// entry per epoch.
//
// Each epoch partitions the training set into batches of
// opts.BatchSize (the final batch may be smaller), computes the loss
// gradient per batch and applies one optimizer update per batch.
// Epochs and batches run strictly sequentially; a second Fit on the
// same model while one is running fails with ErrConcurrentFit.
func (m *Model) Fit(ds data.Dataset, opts FitOptions) (History, error) {
	if !m.compiled {
		return nil, ErrNotCompiled
	}
	if !m.fitting.CompareAndSwap(false, true) {
		return nil, ErrConcurrentFit
	}
	defer m.fitting.Store(false)

	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 1
	}

	val := opts.Validation
	if val == nil && opts.ValidationSplit != 0 {
		rest, holdout, err := ds.Split(opts.ValidationSplit)
		if err != nil {
			return nil, fmt.Errorf("train: validation split: %w", err)
		}
		ds = rest
		val = &holdout
	}

	n := ds.Len()
	if n == 0 {
		return nil, fmt.Errorf("train: empty dataset: %w", tensor.ErrShapeMismatch)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	history := make(History, 0, opts.Epochs)
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		if opts.Shuffle {
			rng.Shuffle(n, func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}

		var lossSum float64
		metricSums := make(map[string]float64)

		for start := 0; start < n; start += opts.BatchSize {
			end := min(start+opts.BatchSize, n)
			batch := indices[start:end]
			x := ds.X.TakeRows(batch)
			y := ds.Y.TakeRows(batch)

			pred := m.net.Forward(x)
			batchLoss := m.loss.Loss(pred, y) + m.net.Penalty()
			lossSum += batchLoss * float64(end-start)
			for _, name := range m.cfg.Metrics {
				metric, _ := metricByName(name)
				metricSums[name] += metric(pred, y) * float64(end-start)
			}

			m.opt.ZeroGrad()
			m.net.Backward(m.loss.Gradient(pred, y))
			m.opt.Step()
		}

		stats := EpochStats{
			Epoch:   epoch,
			Loss:    lossSum / float64(n),
			Metrics: make(map[string]float64, len(m.cfg.Metrics)),
		}
		for name, sum := range metricSums {
			stats.Metrics[name] = sum / float64(n)
		}

		if val != nil {
			valLoss, valMetrics, err := m.Evaluate(*val)
			if err != nil {
				return history, err
			}
			stats.Validated = true
			stats.ValLoss = valLoss
			stats.ValMetrics = valMetrics
			log.Printf("epoch=%d loss=%.4f val_loss=%.4f", epoch, stats.Loss, valLoss)
		} else {
			log.Printf("epoch=%d loss=%.4f", epoch, stats.Loss)
		}

		history = append(history, stats)
	}
	return history, nil
}

// Evaluate runs a forward-only pass over ds and returns the loss and
// metric values. Parameters are not updated.
func (m *Model) Evaluate(ds data.Dataset) (float64, map[string]float64, error) {
	if !m.compiled {
		return 0, nil, ErrNotCompiled
	}
	pred := m.net.Forward(ds.X)
	loss := m.loss.Loss(pred, ds.Y) + m.net.Penalty()
	metrics := make(map[string]float64, len(m.cfg.Metrics))
	for _, name := range m.cfg.Metrics {
		metric, _ := metricByName(name)
		metrics[name] = metric(pred, ds.Y)
	}
	return loss, metrics, nil
}

// Predict runs a forward pass on raw features.
func (m *Model) Predict(x *tensor.Matrix) *tensor.Matrix {
	return m.net.Forward(x)
}
