package ml

import (
	"fmt"
	"math"

	imath "github.com/ChizhovVadim/vcgan/internal/math"
)

// Logits above this value are counted as "real" by the discriminator metrics.
// The threshold is applied to raw logits, not probabilities.
const RealThreshold = 0.5

type LossWeights struct {
	MSE         float64
	Adversarial float64
}

type PredictorMetrics struct {
	MSE         float64
	Adversarial float64
	Loss        float64
}

type DiscriminatorMetrics struct {
	Real      float64
	Fake      float64
	Loss      float64
	Accuracy  float64
	Precision float64
	Recall    float64
}

// PredictorLoss combines the mean absolute error between output and target with the
// non-saturating adversarial term softplus(-dFake).
//
// The mean is taken over every element of the padded tensors: masked positions are zero on
// both sides and still count in the denominator. The adversarial sum is normalised by
// batch*time of dFake.
func PredictorLoss(output, target, dFake *Tensor, w LossWeights) (float64, PredictorMetrics, error) {
	if !output.SameShape(target) {
		return 0, PredictorMetrics{}, fmt.Errorf("ml: output %v and target %v differ in shape", output, target)
	}
	var m PredictorMetrics
	m.MSE = MeanAbsoluteError(output, target)
	m.Adversarial = softplusMean(dFake, -1)
	m.Loss = w.MSE*m.MSE + w.Adversarial*m.Adversarial
	return m.Loss, m, nil
}

// DiscriminatorLoss is softplus(-dReal) + softplus(dFake), both normalised by batch*time of dReal.
func DiscriminatorLoss(dReal, dFake *Tensor) (float64, DiscriminatorMetrics, error) {
	if !dReal.SameShape(dFake) {
		return 0, DiscriminatorMetrics{}, fmt.Errorf("ml: real scores %v and fake scores %v differ in shape", dReal, dFake)
	}
	var norm = float64(dReal.Batch * dReal.Time)
	var m DiscriminatorMetrics
	m.Real = softplusSum(dReal, -1) / norm
	m.Fake = softplusSum(dFake, 1) / norm
	m.Loss = m.Real + m.Fake

	var tp, fp, fn, tn int
	for _, x := range dReal.Data {
		if x > RealThreshold {
			tp++
		} else {
			fn++
		}
	}
	for _, x := range dFake.Data {
		if x > RealThreshold {
			fp++
		} else {
			tn++
		}
	}
	m.Accuracy = ratio(tp+tn, tp+fp+fn+tn)
	m.Precision = ratio(tp, tp+fp)
	m.Recall = ratio(tp, tp+fn)
	return m.Loss, m, nil
}

func MeanAbsoluteError(x, y *Tensor) float64 {
	if len(x.Data) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range x.Data {
		sum += math.Abs(x.Data[i] - y.Data[i])
	}
	return sum / float64(len(x.Data))
}

// MeanAbsoluteErrorGrad returns d mean|x-y| / dx scaled by weight.
func MeanAbsoluteErrorGrad(x, y *Tensor, weight float64) *Tensor {
	var grad = x.ZerosLike()
	var scale = weight / float64(len(x.Data))
	for i := range x.Data {
		grad.Data[i] = scale * imath.Sign(x.Data[i]-y.Data[i])
	}
	return grad
}

// SoftplusGrad returns d(weight * sum softplus(sign*x) / norm) / dx.
func SoftplusGrad(x *Tensor, sign, weight, norm float64) *Tensor {
	var grad = x.ZerosLike()
	var scale = weight * sign / norm
	for i, v := range x.Data {
		grad.Data[i] = scale * imath.Sigmoid(sign*v)
	}
	return grad
}

// ScoreNorm is the normaliser shared by all softplus terms: batch size times score length.
func ScoreNorm(score *Tensor) float64 {
	return float64(score.Batch * score.Time)
}

func softplusMean(x *Tensor, sign float64) float64 {
	return softplusSum(x, sign) / ScoreNorm(x)
}

func softplusSum(x *Tensor, sign float64) float64 {
	var sum float64
	for _, v := range x.Data {
		sum += imath.Softplus(sign * v)
	}
	return sum
}
