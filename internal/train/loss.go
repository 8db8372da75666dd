package train

import (
	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/model"
)

// Loss holds both scalar losses of one forward pass together with the recorded
// computation needed to differentiate them without running the models again.
type Loss struct {
	Predictor     float64
	Discriminator float64

	PredictorMetrics     ml.PredictorMetrics
	DiscriminatorMetrics ml.DiscriminatorMetrics

	weights      ml.LossWeights
	mask         *ml.Tensor
	maskedOutput *ml.Tensor
	maskedTarget *ml.Tensor
	dFake        *ml.Tensor
	dReal        *ml.Tensor

	predictorBackward model.Backward
	fakeBackward      model.Backward
	realBackward      model.Backward
}

// Backward returns the gradient computation of role's loss restricted to role's parameters.
func (l *Loss) Backward(role model.Role) func() {
	switch role {
	case model.Predictor:
		return l.backwardPredictor
	case model.Discriminator:
		return l.backwardDiscriminator
	}
	return func() {}
}

func (l *Loss) backwardPredictor() {
	var gFake = ml.SoftplusGrad(l.dFake, -1, l.weights.Adversarial, ml.ScoreNorm(l.dFake))
	// through the discriminator, leaving its gradients alone
	var gMasked = l.fakeBackward(gFake, false)
	var gMSE = ml.MeanAbsoluteErrorGrad(l.maskedOutput, l.maskedTarget, l.weights.MSE)
	for i := range gMasked.Data {
		gMasked.Data[i] += gMSE.Data[i]
	}
	// output*mask
	var gOutput, err = ml.ApplyMask(gMasked, l.mask)
	if err != nil {
		// shapes were checked by the forward pass
		panic(err)
	}
	l.predictorBackward(gOutput, true)
}

func (l *Loss) backwardDiscriminator() {
	var norm = ml.ScoreNorm(l.dReal)
	l.realBackward(ml.SoftplusGrad(l.dReal, -1, 1, norm), true)
	l.fakeBackward(ml.SoftplusGrad(l.dFake, 1, 1, norm), true)
}
