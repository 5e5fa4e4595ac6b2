// Copyright 2026 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim implements the optimization algorithms that update
// model parameters from accumulated gradients.
//
// The training loop drives an optimizer one batch at a time:
//
//	optimizer.ZeroGrad()
//	pred := net.Forward(batchX)
//	net.Backward(loss.Gradient(pred, batchY))
//	optimizer.Step()
//
// Optimizers are selected by string identifier through ByName, or
// constructed directly with their Config structs (zero values select
// the documented defaults).
package optim

import (
	"fmt"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

// Optimizer updates parameters in place from their accumulated
// gradients.
type Optimizer interface {
	// Step applies one update to every parameter from its current
	// gradient.
	Step()

	// ZeroGrad clears all parameter gradients. Call before each
	// backward pass to prevent accumulation across batches.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64

	// Name returns the optimizer identifier ("sgd", "adam", ...).
	Name() string

	// StateDict exports internal state (velocities, moments) for
	// checkpointing; LoadStateDict restores it. Optimizers without
	// state return an empty map.
	StateDict() map[string]*tensor.Matrix
	LoadStateDict(state map[string]*tensor.Matrix) error
}

// ByName constructs an optimizer by identifier with the given learning
// rate (0 selects the optimizer's default). All other hyperparameters
// take their defaults; use the concrete constructors to tune them.
//
// Returns nn.ErrUnknownIdentifier for an unregistered name.
func ByName(name string, params []*nn.Parameter, lr float64) (Optimizer, error) {
	switch name {
	case "sgd":
		return NewSGD(params, SGDConfig{LR: lr}), nil
	case "adam":
		return NewAdam(params, AdamConfig{LR: lr}), nil
	case "rmsprop":
		return NewRMSProp(params, RMSPropConfig{LR: lr}), nil
	default:
		return nil, fmt.Errorf("%w: optimizer %q", nn.ErrUnknownIdentifier, name)
	}
}

// loadSlot restores one state matrix into dst, validating its shape
// against the owning parameter.
func loadSlot(dst **tensor.Matrix, param *nn.Parameter, key string, state map[string]*tensor.Matrix) error {
	src, ok := state[key]
	if !ok {
		// Not yet materialized when the checkpoint was written; the
		// slot initializes lazily on the next Step.
		return nil
	}
	if !src.Shape().Equal(param.Value().Shape()) {
		return fmt.Errorf("%s: %w", key,
			&tensor.ShapeError{Op: "LoadStateDict", Want: param.Value().Shape(), Got: src.Shape()})
	}
	*dst = src.Clone()
	return nil
}
