package optim

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

// RMSProp implements the RMSProp optimizer.
//
// Update rule:
//
//	cache = rho * cache + (1-rho) * g²
//	param = param - lr * g / (sqrt(cache) + eps)
type RMSProp struct {
	params []*nn.Parameter
	lr     float64
	rho    float64
	eps    float64
	cache  []*tensor.Matrix
}

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	LR  float64 // Learning rate (default: 0.001)
	Rho float64 // Decay rate of the squared-gradient average (default: 0.9)
	Eps float64 // Numerical stability term (default: 1e-8)
}

// NewRMSProp creates an RMSProp optimizer over the given parameters.
func NewRMSProp(params []*nn.Parameter, config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Rho == 0 {
		config.Rho = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSProp{
		params: params,
		lr:     config.LR,
		rho:    config.Rho,
		eps:    config.Eps,
		cache:  make([]*tensor.Matrix, len(params)),
	}
}

// Step applies one RMSProp update to every parameter.
func (r *RMSProp) Step() {
	for i, param := range r.params {
		if r.cache[i] == nil {
			r.cache[i] = tensor.Zeros(param.Value().Rows(), param.Value().Cols())
		}
		grad := param.Grad().Data()
		value := param.Value().Data()
		cache := r.cache[i].Data()
		for j := range value {
			g := grad[j]
			cache[j] = r.rho*cache[j] + (1.0-r.rho)*g*g
			value[j] -= r.lr * g / (math.Sqrt(cache[j]) + r.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (r *RMSProp) ZeroGrad() {
	for _, param := range r.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (r *RMSProp) LR() float64 { return r.lr }

// Name returns "rmsprop".
func (r *RMSProp) Name() string { return "rmsprop" }

// StateDict exports squared-gradient caches keyed "cache.<i>".
func (r *RMSProp) StateDict() map[string]*tensor.Matrix {
	state := make(map[string]*tensor.Matrix)
	for i, c := range r.cache {
		if c != nil {
			state[fmt.Sprintf("cache.%d", i)] = c
		}
	}
	return state
}

// LoadStateDict restores squared-gradient caches.
func (r *RMSProp) LoadStateDict(state map[string]*tensor.Matrix) error {
	for i, param := range r.params {
		if err := loadSlot(&r.cache[i], param, fmt.Sprintf("cache.%d", i), state); err != nil {
			return err
		}
	}
	return nil
}
