package optim

import (
	"fmt"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// With momentum:
//
//	velocity = momentum * velocity + gradient
//	param    = param - lr * velocity
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities []*tensor.Matrix // lazily allocated per parameter
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range [0, 1))
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make([]*tensor.Matrix, len(params)),
	}
}

// Step applies one gradient-descent update to every parameter.
func (s *SGD) Step() {
	for i, param := range s.params {
		grad := param.Grad().Data()
		value := param.Value().Data()

		if s.momentum == 0 {
			for j := range value {
				value[j] -= s.lr * grad[j]
			}
			continue
		}

		if s.velocities[i] == nil {
			s.velocities[i] = tensor.Zeros(param.Value().Rows(), param.Value().Cols())
		}
		vel := s.velocities[i].Data()
		for j := range value {
			vel[j] = s.momentum*vel[j] + grad[j]
			value[j] -= s.lr * vel[j]
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 { return s.lr }

// SetLR updates the learning rate, for scheduling.
func (s *SGD) SetLR(lr float64) { s.lr = lr }

// Name returns "sgd".
func (s *SGD) Name() string { return "sgd" }

// StateDict exports velocity buffers keyed "velocity.<param index>".
// Without momentum there is no state and the map is empty.
func (s *SGD) StateDict() map[string]*tensor.Matrix {
	state := make(map[string]*tensor.Matrix)
	if s.momentum == 0 {
		return state
	}
	for i, vel := range s.velocities {
		if vel != nil {
			state[fmt.Sprintf("velocity.%d", i)] = vel
		}
	}
	return state
}

// LoadStateDict restores velocity buffers, validating shapes against
// the owning parameters.
func (s *SGD) LoadStateDict(state map[string]*tensor.Matrix) error {
	if s.momentum == 0 {
		return nil
	}
	for i, param := range s.params {
		if err := loadSlot(&s.velocities[i], param, fmt.Sprintf("velocity.%d", i), state); err != nil {
			return err
		}
	}
	return nil
}
