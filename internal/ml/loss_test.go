package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tensor(b, c, t int, data ...float64) *Tensor {
	return NewTensorFrom(b, c, t, data)
}

func TestPredictorLossAllOnesMask(t *testing.T) {
	var output = tensor(1, 1, 4, 1, 2, 3, 4)
	var target = tensor(1, 1, 4, 0, 2, 5, 4)
	var mask = tensor(1, 1, 4, 1, 1, 1, 1)
	mo, err := ApplyMask(output, mask)
	require.NoError(t, err)
	mt, err := ApplyMask(target, mask)
	require.NoError(t, err)
	var dFake = tensor(1, 1, 4, 0, 0, 0, 0)

	loss, m, err := PredictorLoss(mo, mt, dFake, LossWeights{MSE: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, m.MSE, 1e-12)
	assert.InDelta(t, MeanAbsoluteError(output, target), m.MSE, 1e-12)
	assert.InDelta(t, math.Log(2), m.Adversarial, 1e-12)
	assert.InDelta(t, m.MSE, loss, 1e-12)
}

func TestPredictorLossZeroMask(t *testing.T) {
	var output = tensor(1, 2, 2, 1, -2, 3, 4)
	var target = tensor(1, 2, 2, 9, 9, 9, 9)
	var mask = NewTensor(1, 1, 2)
	mo, err := ApplyMask(output, mask)
	require.NoError(t, err)
	mt, err := ApplyMask(target, mask)
	require.NoError(t, err)

	_, m, err := PredictorLoss(mo, mt, tensor(1, 1, 2, 3, -1), LossWeights{MSE: 1, Adversarial: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MSE)
}

func TestPredictorLossPaddingCountsInDenominator(t *testing.T) {
	var output = tensor(1, 1, 4, 2, 2, 0, 0)
	var target = tensor(1, 1, 4, 0, 0, 0, 0)
	_, m, err := PredictorLoss(output, target, tensor(1, 1, 4, 0, 0, 0, 0), LossWeights{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.MSE, 1e-12)
}

func TestPredictorLossShapeMismatch(t *testing.T) {
	_, _, err := PredictorLoss(NewTensor(1, 1, 3), NewTensor(1, 1, 4), NewTensor(1, 1, 4), LossWeights{})
	assert.Error(t, err)
}

func TestPredictorLossIgnoresDiscriminatorWithoutAdversarialWeight(t *testing.T) {
	var output = tensor(1, 1, 2, 1, 3)
	var target = tensor(1, 1, 2, 0, 0)
	var w = LossWeights{MSE: 1, Adversarial: 0}
	l1, _, _ := PredictorLoss(output, target, tensor(1, 1, 2, -50, 50), w)
	l2, _, _ := PredictorLoss(output, target, tensor(1, 1, 2, 7, 0.1), w)
	assert.Equal(t, 2.0, l1)
	assert.Equal(t, l1, l2)
}

func TestDiscriminatorLossMetrics(t *testing.T) {
	var dReal = tensor(2, 1, 2, 1, 2, 0, 3)
	var dFake = tensor(2, 1, 2, -1, 0.6, -2, -3)
	loss, m, err := DiscriminatorLoss(dReal, dFake)
	require.NoError(t, err)

	assert.InDelta(t, m.Real+m.Fake, loss, 1e-12)
	// tp=3 fn=1 fp=1 tn=3
	assert.InDelta(t, 6.0/8, m.Accuracy, 1e-12)
	assert.InDelta(t, 3.0/4, m.Precision, 1e-12)
	assert.InDelta(t, 3.0/4, m.Recall, 1e-12)
	assert.True(t, m.Accuracy >= 0 && m.Accuracy <= 1)
}

func TestDiscriminatorLossSwap(t *testing.T) {
	var a = tensor(1, 1, 3, 0.3, -1.2, 2)
	var b = tensor(1, 1, 3, -0.7, 0.1, 1.5)
	l1, m1, err := DiscriminatorLoss(a, b)
	require.NoError(t, err)
	// softplus(-x) and softplus(x) differ, so swap the sign as well to compare terms.
	var na = tensor(1, 1, 3, -0.3, 1.2, -2)
	var nb = tensor(1, 1, 3, 0.7, -0.1, -1.5)
	l3, m3, err := DiscriminatorLoss(nb, na)
	require.NoError(t, err)
	assert.InDelta(t, m1.Real, m3.Fake, 1e-12)
	assert.InDelta(t, m1.Fake, m3.Real, 1e-12)
	assert.InDelta(t, l1, l3, 1e-12)
}

func TestDiscriminatorLossNoPositives(t *testing.T) {
	var dReal = tensor(1, 1, 2, -1, 0)
	var dFake = tensor(1, 1, 2, -1, 0.2)
	_, m, err := DiscriminatorLoss(dReal, dFake)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m.Precision))
	assert.Equal(t, 0.0, m.Recall)
	assert.InDelta(t, 0.5, m.Accuracy, 1e-12)
}

func TestDiscriminatorLossShapeMismatch(t *testing.T) {
	var dReal = tensor(1, 1, 2, 1, -1)
	var dFake = tensor(1, 1, 3, 1, -1, 0)
	_, _, err := DiscriminatorLoss(dReal, dFake)
	assert.Error(t, err)
	_, _, err = DiscriminatorLoss(dReal, tensor(2, 1, 1, 1, -1))
	assert.Error(t, err)
}

func TestLossesFinite(t *testing.T) {
	var d = tensor(1, 1, 3, 900, -900, 0)
	loss, _, err := DiscriminatorLoss(d, d)
	require.NoError(t, err)
	assert.False(t, math.IsInf(loss, 0) || math.IsNaN(loss))
	ploss, _, err := PredictorLoss(tensor(1, 1, 1, 1), tensor(1, 1, 1, 2), d, LossWeights{MSE: 1, Adversarial: 1})
	require.NoError(t, err)
	assert.False(t, math.IsInf(ploss, 0) || math.IsNaN(ploss))
}

func TestSoftplusGradMatchesFiniteDifference(t *testing.T) {
	var x = tensor(1, 1, 3, -0.4, 0.2, 1.3)
	var grad = SoftplusGrad(x, -1, 2, ScoreNorm(x))
	const h = 1e-6
	for i := range x.Data {
		var plus = x.Clone()
		plus.Data[i] += h
		var minus = x.Clone()
		minus.Data[i] -= h
		var numeric = 2 * (softplusMean(plus, -1) - softplusMean(minus, -1)) / (2 * h)
		assert.InDelta(t, numeric, grad.Data[i], 1e-6)
	}
}
