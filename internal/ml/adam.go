package ml

import (
	"errors"
	"math"
)

var ErrNonFiniteGradient = errors.New("ml: non-finite gradient")

type AdamConfig struct {
	Alpha float64
	Beta1 float64
	Beta2 float64
	Eps   float64
}

func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		Alpha: 0.001,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-8,
	}
}

type moment struct {
	M1 float64
	M2 float64
}

// Adam owns the moment estimates of one model's parameters.
// It is attached once with Setup and reused across steps.
type Adam struct {
	config  AdamConfig
	t       int
	params  []*Param
	moments [][]moment
}

func NewAdam(config AdamConfig) *Adam {
	return &Adam{config: config}
}

func (o *Adam) Setup(params []*Param) {
	o.params = params
	o.moments = make([][]moment, len(params))
	for i, p := range params {
		o.moments[i] = make([]moment, len(p.Data()))
	}
	o.t = 0
}

// Update clears gradients, runs backward to accumulate fresh ones and applies one step.
// Non-finite gradients leave parameters and moments untouched.
func (o *Adam) Update(backward func()) error {
	for _, p := range o.params {
		p.ClearGrad()
	}
	backward()
	for _, p := range o.params {
		if !isFinite(p.GradData()) {
			return ErrNonFiniteGradient
		}
	}
	o.t++
	var c = &o.config
	var fix1 = 1 - math.Pow(c.Beta1, float64(o.t))
	var fix2 = 1 - math.Pow(c.Beta2, float64(o.t))
	var lr = c.Alpha * math.Sqrt(fix2) / fix1
	for i, p := range o.params {
		var data = p.Data()
		var grad = p.GradData()
		var moments = o.moments[i]
		for j, g := range grad {
			var m = &moments[j]
			m.M1 += (1 - c.Beta1) * (g - m.M1)
			m.M2 += (1 - c.Beta2) * (g*g - m.M2)
			data[j] -= lr * m.M1 / (math.Sqrt(m.M2) + c.Eps)
		}
	}
	return nil
}
