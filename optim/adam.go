package optim

import (
	"fmt"
	"math"

	"github.com/strata-ml/strata/nn"
	"github.com/strata-ml/strata/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014).
//
// Update rule:
//
//	m_t  = beta1 * m_{t-1} + (1-beta1) * g
//	v_t  = beta2 * v_{t-1} + (1-beta2) * g²
//	mHat = m_t / (1 - beta1^t)
//	vHat = v_t / (1 - beta2^t)
//	param = param - lr * mHat / (sqrt(vHat) + eps)
type Adam struct {
	params []*nn.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int              // timestep for bias correction
	m      []*tensor.Matrix // first moment estimates
	v      []*tensor.Matrix // second moment estimates
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moment decay coefficients (default: [0.9, 0.999])
	Eps   float64    // Numerical stability term (default: 1e-8)
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make([]*tensor.Matrix, len(params)),
		v:      make([]*tensor.Matrix, len(params)),
	}
}

// Step applies one Adam update to every parameter.
func (a *Adam) Step() {
	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for i, param := range a.params {
		if a.m[i] == nil {
			a.m[i] = tensor.Zeros(param.Value().Rows(), param.Value().Cols())
			a.v[i] = tensor.Zeros(param.Value().Rows(), param.Value().Cols())
		}

		grad := param.Grad().Data()
		value := param.Value().Data()
		m := a.m[i].Data()
		v := a.v[i].Data()

		for j := range value {
			g := grad[j]
			m[j] = a.beta1*m[j] + (1.0-a.beta1)*g
			v[j] = a.beta2*v[j] + (1.0-a.beta2)*g*g
			mHat := m[j] / biasCorrection1
			vHat := v[j] / biasCorrection2
			value[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 { return a.lr }

// SetLR updates the learning rate, for scheduling.
func (a *Adam) SetLR(lr float64) { a.lr = lr }

// Name returns "adam".
func (a *Adam) Name() string { return "adam" }

// Timestep returns the bias-correction timestep.
func (a *Adam) Timestep() int { return a.t }

// StateDict exports moment buffers ("m.<i>", "v.<i>") and the
// timestep ("t", a 1x1 matrix) for checkpointing.
func (a *Adam) StateDict() map[string]*tensor.Matrix {
	state := make(map[string]*tensor.Matrix)
	for i := range a.params {
		if a.m[i] != nil {
			state[fmt.Sprintf("m.%d", i)] = a.m[i]
			state[fmt.Sprintf("v.%d", i)] = a.v[i]
		}
	}
	state["t"] = tensor.New(1, 1, []float64{float64(a.t)})
	return state
}

// LoadStateDict restores moment buffers and the timestep.
func (a *Adam) LoadStateDict(state map[string]*tensor.Matrix) error {
	for i, param := range a.params {
		if err := loadSlot(&a.m[i], param, fmt.Sprintf("m.%d", i), state); err != nil {
			return err
		}
		if err := loadSlot(&a.v[i], param, fmt.Sprintf("v.%d", i), state); err != nil {
			return err
		}
	}
	if t, ok := state["t"]; ok {
		a.t = int(t.At(0, 0))
	}
	return nil
}
