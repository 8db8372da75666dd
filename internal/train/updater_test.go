package train

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ChizhovVadim/vcgan/internal/dataset"
	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/model"
	"github.com/ChizhovVadim/vcgan/internal/report"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTopology = model.Topology{
	InChannels:          2,
	OutChannels:         2,
	PredictorHidden:     4,
	DiscriminatorHidden: 3,
}

func nullLogger() *logrus.Logger {
	var logger, _ = test.NewNullLogger()
	return logger
}

func makeExamples(seed int64, count, channels int) []dataset.Example {
	var rnd = rand.New(rand.NewSource(seed))
	var result []dataset.Example
	for i := 0; i < count; i++ {
		var length = 3 + rnd.Intn(4)
		var e dataset.Example
		for c := 0; c < channels; c++ {
			var in = make([]float64, length)
			var out = make([]float64, length)
			for j := range in {
				in[j] = rnd.NormFloat64()
				out[j] = 0.5*in[j] + 0.1*rnd.NormFloat64()
			}
			e.Input = append(e.Input, in)
			e.Target = append(e.Target, out)
		}
		result = append(result, e)
	}
	return result
}

func newTestUpdater(seed int64, weights ml.LossWeights) (*Updater, *model.Models) {
	var models = model.NewModels(rand.New(rand.NewSource(seed)), testTopology)
	var optimizers = NewOptimizers(models, ml.DefaultAdamConfig())
	var iterator = dataset.NewSerialIterator(makeExamples(seed, 10, 2), 3, true, true, seed)
	return NewUpdater(weights, models, optimizers, iterator, dataset.Concat, nullLogger()), models
}

type identityPredictor struct{}

func (identityPredictor) Params() []*ml.Param { return nil }

func (identityPredictor) Forward(input *ml.Tensor) (*ml.Tensor, model.Backward, error) {
	var backward = func(dy *ml.Tensor, accumulate bool) *ml.Tensor { return dy }
	return input.Clone(), backward, nil
}

type countingPredictor struct {
	model.IPredictor
	calls int
}

func (p *countingPredictor) Forward(input *ml.Tensor) (*ml.Tensor, model.Backward, error) {
	p.calls++
	return p.IPredictor.Forward(input)
}

type countingDiscriminator struct {
	model.IDiscriminator
	calls int
}

func (d *countingDiscriminator) Forward(input, candidate *ml.Tensor) (*ml.Tensor, model.Backward, error) {
	d.calls++
	return d.IDiscriminator.Forward(input, candidate)
}

type failingOptimizer struct{ calls int }

func (o *failingOptimizer) Update(backward func()) error {
	o.calls++
	backward()
	return ml.ErrNonFiniteGradient
}

func identityBatch() ml.Batch {
	var data = []float64{0.1, -0.2, 0.3, 0.4, 1, 2, -1, 0}
	return ml.Batch{
		Input:  ml.NewTensorFrom(2, 1, 4, append([]float64(nil), data...)),
		Target: ml.NewTensorFrom(2, 1, 4, append([]float64(nil), data...)),
		Mask:   ml.NewTensorFrom(2, 1, 4, []float64{1, 1, 1, 1, 1, 1, 1, 1}),
	}
}

func TestForwardIdentityPredictor(t *testing.T) {
	var rnd = rand.New(rand.NewSource(1))
	var models = &model.Models{
		Predictor:     identityPredictor{},
		Discriminator: model.NewDiscriminatorNet(rnd, 1, 1, 3),
	}
	var weights = ml.LossWeights{MSE: 1, Adversarial: 0.25}
	var u = NewUpdater(weights, models, NewOptimizers(models, ml.DefaultAdamConfig()), nil, dataset.Concat, nullLogger())

	var observation = report.Observation{}
	loss, err := u.Forward(identityBatch(), observation)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loss.PredictorMetrics.MSE)
	assert.InDelta(t, 0.25*loss.PredictorMetrics.Adversarial, loss.Predictor, 1e-12)
	assert.Equal(t, []string{
		"discriminator/accuracy",
		"discriminator/fake",
		"discriminator/loss",
		"discriminator/precision",
		"discriminator/real",
		"discriminator/recall",
		"predictor/adversarial",
		"predictor/loss",
		"predictor/mse",
	}, observation.Keys())
	// identical candidates get identical scores, so exactly half of them are classified right
	assert.Equal(t, 0.5, loss.DiscriminatorMetrics.Accuracy)
}

func TestForwardMSEOnlyLoss(t *testing.T) {
	var u, _ = newTestUpdater(2, ml.LossWeights{MSE: 1, Adversarial: 0})
	batch, err := dataset.Concat(makeExamples(3, 4, 2))
	require.NoError(t, err)
	loss, err := u.Forward(batch, report.Discard{})
	require.NoError(t, err)
	assert.Equal(t, loss.PredictorMetrics.MSE, loss.Predictor)
	assert.Greater(t, loss.PredictorMetrics.Adversarial, 0.0)
}

func TestForwardZeroMask(t *testing.T) {
	var u, _ = newTestUpdater(2, ml.LossWeights{MSE: 1, Adversarial: 1})
	batch, err := dataset.Concat(makeExamples(3, 2, 2))
	require.NoError(t, err)
	for i := range batch.Mask.Data {
		batch.Mask.Data[i] = 0
	}
	loss, err := u.Forward(batch, report.Discard{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, loss.PredictorMetrics.MSE)
	assert.False(t, math.IsNaN(loss.Discriminator))
}

func TestUpdateRunsForwardOnce(t *testing.T) {
	var u, models = newTestUpdater(4, ml.LossWeights{MSE: 1, Adversarial: 0.1})
	var p = &countingPredictor{IPredictor: models.Predictor}
	var d = &countingDiscriminator{IDiscriminator: models.Discriminator}
	models.Predictor = p
	models.Discriminator = d

	var predictorBefore = ml.CloneParams(p.Params())
	var discriminatorBefore = ml.CloneParams(d.Params())
	observation, err := u.Update()
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, 1, u.Iteration())
	assert.NotEqual(t, predictorBefore, ml.CloneParams(p.Params()))
	assert.NotEqual(t, discriminatorBefore, ml.CloneParams(d.Params()))
	assert.Equal(t, 0.0, observation["predictor/skipped"])
	assert.Equal(t, 0.0, observation["discriminator/skipped"])
	assert.Contains(t, observation, "discriminator/accuracy")
}

func TestUpdateReproducible(t *testing.T) {
	var run = func() [][]float64 {
		var u, models = newTestUpdater(5, ml.LossWeights{MSE: 1, Adversarial: 0.5})
		for i := 0; i < 20; i++ {
			_, err := u.Update()
			require.NoError(t, err)
		}
		return append(ml.CloneParams(models.Predictor.Params()), ml.CloneParams(models.Discriminator.Params())...)
	}
	assert.Equal(t, run(), run())
}

func TestUpdateIndependentOptimizers(t *testing.T) {
	var u, models = newTestUpdater(6, ml.LossWeights{MSE: 0, Adversarial: 0})
	var predictorBefore = ml.CloneParams(models.Predictor.Params())
	var discriminatorBefore = ml.CloneParams(models.Discriminator.Params())
	for i := 0; i < 3; i++ {
		_, err := u.Update()
		require.NoError(t, err)
	}
	assert.Equal(t, predictorBefore, ml.CloneParams(models.Predictor.Params()))
	assert.NotEqual(t, discriminatorBefore, ml.CloneParams(models.Discriminator.Params()))
}

func TestUpdateIsolatesFailedOptimizer(t *testing.T) {
	var u, models = newTestUpdater(7, ml.LossWeights{MSE: 1, Adversarial: 1})
	var failing = &failingOptimizer{}
	u.optimizers.Predictor = failing
	var discriminatorBefore = ml.CloneParams(models.Discriminator.Params())

	observation, err := u.Update()
	require.NoError(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1.0, observation["predictor/skipped"])
	assert.Equal(t, 0.0, observation["discriminator/skipped"])
	assert.NotEqual(t, discriminatorBefore, ml.CloneParams(models.Discriminator.Params()))
}

func TestUpdateWithAligner(t *testing.T) {
	var topology = testTopology
	topology.Aligner = true
	var models = model.NewModels(rand.New(rand.NewSource(8)), topology)
	var optimizers = NewOptimizers(models, ml.DefaultAdamConfig())
	require.NotNil(t, optimizers.Get(model.Aligner))
	var alignerBefore = ml.CloneParams(models.Aligner.Params())

	var iterator = dataset.NewSerialIterator(makeExamples(8, 4, 2), 2, true, false, 0)
	var u = NewUpdater(ml.LossWeights{MSE: 1, Adversarial: 1}, models, optimizers, iterator, dataset.Concat, nullLogger())
	_, err := u.Update()
	require.NoError(t, err)
	assert.Equal(t, alignerBefore, ml.CloneParams(models.Aligner.Params()))
}

func TestUpdateIteratorError(t *testing.T) {
	var models = model.NewModels(rand.New(rand.NewSource(9)), testTopology)
	var iterator = dataset.NewSerialIterator(nil, 2, false, false, 0)
	var u = NewUpdater(ml.LossWeights{}, models, NewOptimizers(models, ml.DefaultAdamConfig()), iterator, dataset.Concat, nullLogger())
	_, err := u.Update()
	assert.Error(t, err)
	assert.Equal(t, 0, u.Iteration())
}

// Backward must match numerical derivatives of the forward losses.
func TestLossBackwardMatchesFiniteDifferences(t *testing.T) {
	var u, models = newTestUpdater(10, ml.LossWeights{MSE: 0.7, Adversarial: 0.3})
	batch, err := dataset.Concat(makeExamples(11, 3, 2))
	require.NoError(t, err)

	loss, err := u.Forward(batch, report.Discard{})
	require.NoError(t, err)

	var check = func(role, otherRole model.Role, value func(*Loss) float64) {
		var params = models.Params(role)
		var other = models.Params(otherRole)
		for _, p := range append(params, other...) {
			p.ClearGrad()
		}
		loss.Backward(role)()
		for _, p := range other {
			for _, g := range p.GradData() {
				require.Equal(t, 0.0, g, "%v backward touched %v", role, p.Name)
			}
		}
		const h = 1e-6
		for _, p := range params {
			var data = p.Data()
			for j := range data {
				var saved = data[j]
				data[j] = saved + h
				plus, err := u.Forward(batch, report.Discard{})
				require.NoError(t, err)
				data[j] = saved - h
				minus, err := u.Forward(batch, report.Discard{})
				require.NoError(t, err)
				data[j] = saved
				var numeric = (value(plus) - value(minus)) / (2 * h)
				assert.InDelta(t, numeric, p.GradData()[j], 1e-5, "%v %v[%v]", role, p.Name, j)
			}
		}
	}
	check(model.Predictor, model.Discriminator, func(l *Loss) float64 { return l.Predictor })
	check(model.Discriminator, model.Predictor, func(l *Loss) float64 { return l.Discriminator })
}
