package ml

type IActivationFn interface {
	Sigma(x float64) float64
	SigmaPrime(x float64) float64
}

type IdentityActivation struct{}

func (*IdentityActivation) Sigma(x float64) float64      { return x }
func (*IdentityActivation) SigmaPrime(x float64) float64 { return 1 }

type LeakyReLuActivation struct {
	Slope float64
}

func (a *LeakyReLuActivation) Sigma(x float64) float64 {
	if x > 0 {
		return x
	}
	return a.Slope * x
}

func (a *LeakyReLuActivation) SigmaPrime(x float64) float64 {
	if x > 0 {
		return 1
	}
	return a.Slope
}
