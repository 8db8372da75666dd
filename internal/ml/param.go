package ml

import "gonum.org/v1/gonum/mat"

// Param is a trainable matrix with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func NewParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

func (p *Param) Data() []float64 {
	return p.Value.RawMatrix().Data
}

func (p *Param) GradData() []float64 {
	return p.Grad.RawMatrix().Data
}

func (p *Param) ClearGrad() {
	p.Grad.Zero()
}

func CloneParams(params []*Param) [][]float64 {
	var result = make([][]float64, len(params))
	for i, p := range params {
		result[i] = append([]float64(nil), p.Data()...)
	}
	return result
}
