package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AdamConfig holds optimizer hyperparameters.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	// ClipNorm rescales the gradients when their global L2 norm exceeds it.
	// Zero disables clipping.
	ClipNorm float64
}

// DefaultAdamConfig returns the usual Adam constants with the given rate.
func DefaultAdamConfig(lr float64) AdamConfig {
	return AdamConfig{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Adam updates a fixed set of parameters from their accumulated gradients.
//
//	m = β1·m + (1-β1)·g
//	v = β2·v + (1-β2)·g²
//	p -= lr · (m / (1-β1^t)) / (sqrt(v / (1-β2^t)) + ε)
type Adam struct {
	cfg    AdamConfig
	params []*Param
	m      []*mat.Dense
	v      []*mat.Dense
	t      int
}

// NewAdam creates an optimizer over params.
func NewAdam(params []*Param, cfg AdamConfig) *Adam {
	a := &Adam{
		cfg:    cfg,
		params: params,
		m:      make([]*mat.Dense, len(params)),
		v:      make([]*mat.Dense, len(params)),
	}
	for i, p := range params {
		r, c := p.Value.Dims()
		a.m[i] = mat.NewDense(r, c, nil)
		a.v[i] = mat.NewDense(r, c, nil)
	}
	return a
}

// ZeroGrad clears the gradients of every parameter.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// Step clips the gradients if configured and applies one update. It returns
// the global gradient norm measured before clipping.
func (a *Adam) Step() float64 {
	norm := GradNorm(a.params)
	if a.cfg.ClipNorm > 0 && norm > a.cfg.ClipNorm {
		scale := a.cfg.ClipNorm / norm
		for _, p := range a.params {
			p.Grad.Scale(scale, p.Grad)
		}
	}

	a.t++
	bias1 := 1 - math.Pow(a.cfg.Beta1, float64(a.t))
	bias2 := 1 - math.Pow(a.cfg.Beta2, float64(a.t))

	for i, p := range a.params {
		value := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		m := a.m[i].RawMatrix().Data
		v := a.v[i].RawMatrix().Data
		for j, g := range grad {
			m[j] = a.cfg.Beta1*m[j] + (1-a.cfg.Beta1)*g
			v[j] = a.cfg.Beta2*v[j] + (1-a.cfg.Beta2)*g*g
			mHat := m[j] / bias1
			vHat := v[j] / bias2
			value[j] -= a.cfg.LearningRate * mHat / (math.Sqrt(vHat) + a.cfg.Epsilon)
		}
	}
	return norm
}

// GradNorm returns the global L2 norm of the gradients of params.
func GradNorm(params []*Param) float64 {
	var sum float64
	for _, p := range params {
		n := mat.Norm(p.Grad, 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}
