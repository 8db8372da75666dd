package train

import (
	"errors"
	"fmt"

	"github.com/ChizhovVadim/vcgan/internal/dataset"
	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/model"
	"github.com/ChizhovVadim/vcgan/internal/report"
	"github.com/sirupsen/logrus"
)

// Roles stepped by the update core, in order.
var updateOrder = []model.Role{model.Predictor, model.Discriminator}

type Updater struct {
	weights    ml.LossWeights
	models     *model.Models
	optimizers *Optimizers
	iterator   dataset.Iterator
	converter  dataset.Converter
	iteration  int
	logger     *logrus.Logger
}

func NewUpdater(
	weights ml.LossWeights,
	models *model.Models,
	optimizers *Optimizers,
	iterator dataset.Iterator,
	converter dataset.Converter,
	logger *logrus.Logger,
) *Updater {
	if logger == nil {
		logger = logrus.New()
	}
	return &Updater{
		weights:    weights,
		models:     models,
		optimizers: optimizers,
		iterator:   iterator,
		converter:  converter,
		logger:     logger,
	}
}

func (u *Updater) Iteration() int { return u.iteration }

func (u *Updater) Epoch() int { return u.iterator.Epoch() }

// Forward runs the predictor once and the discriminator on both the masked prediction and
// the masked target, reporting metrics to sink.
func (u *Updater) Forward(batch ml.Batch, sink report.Sink) (*Loss, error) {
	if batch.Input.Batch != batch.Target.Batch || batch.Input.Time != batch.Target.Time {
		return nil, fmt.Errorf("train: input %v and target %v do not align", batch.Input, batch.Target)
	}
	output, predictorBackward, err := u.models.Predictor.Forward(batch.Input)
	if err != nil {
		return nil, err
	}
	maskedOutput, err := ml.ApplyMask(output, batch.Mask)
	if err != nil {
		return nil, err
	}
	maskedTarget, err := ml.ApplyMask(batch.Target, batch.Mask)
	if err != nil {
		return nil, err
	}

	dFake, fakeBackward, err := u.models.Discriminator.Forward(batch.Input, maskedOutput)
	if err != nil {
		return nil, err
	}
	dReal, realBackward, err := u.models.Discriminator.Forward(batch.Input, maskedTarget)
	if err != nil {
		return nil, err
	}

	var loss = &Loss{
		weights:           u.weights,
		mask:              batch.Mask,
		maskedOutput:      maskedOutput,
		maskedTarget:      maskedTarget,
		dFake:             dFake,
		dReal:             dReal,
		predictorBackward: predictorBackward,
		fakeBackward:      fakeBackward,
		realBackward:      realBackward,
	}
	loss.Predictor, loss.PredictorMetrics, err = ml.PredictorLoss(maskedOutput, maskedTarget, dFake, u.weights)
	if err != nil {
		return nil, err
	}
	loss.Discriminator, loss.DiscriminatorMetrics, err = ml.DiscriminatorLoss(dReal, dFake)
	if err != nil {
		return nil, err
	}

	var pm = &loss.PredictorMetrics
	var scope = model.Predictor.String()
	sink.Report(scope, "mse", pm.MSE)
	sink.Report(scope, "adversarial", pm.Adversarial)
	sink.Report(scope, "loss", pm.Loss)

	var dm = &loss.DiscriminatorMetrics
	scope = model.Discriminator.String()
	sink.Report(scope, "real", dm.Real)
	sink.Report(scope, "fake", dm.Fake)
	sink.Report(scope, "loss", dm.Loss)
	sink.Report(scope, "accuracy", dm.Accuracy)
	sink.Report(scope, "precision", dm.Precision)
	sink.Report(scope, "recall", dm.Recall)
	return loss, nil
}

// Update performs one training iteration: next batch, one forward pass, then the predictor
// and discriminator optimizer steps from the shared pass. An optimizer that sees non-finite
// gradients skips its step without affecting the other one.
func (u *Updater) Update() (report.Observation, error) {
	examples, err := u.iterator.Next()
	if err != nil {
		return nil, fmt.Errorf("train: next batch: %w", err)
	}
	batch, err := u.converter(examples)
	if err != nil {
		return nil, err
	}
	var observation = report.Observation{}
	loss, err := u.Forward(batch, observation)
	if err != nil {
		return nil, err
	}
	u.iteration++

	for _, role := range updateOrder {
		var skipped float64
		err = u.optimizers.Get(role).Update(loss.Backward(role))
		if errors.Is(err, ml.ErrNonFiniteGradient) {
			u.logger.WithFields(logrus.Fields{
				"iteration": u.iteration,
				"model":     role.String(),
			}).Warn("skipped update with non-finite gradients")
			skipped = 1
		} else if err != nil {
			return nil, fmt.Errorf("train: update %v: %w", role, err)
		}
		observation.Report(role.String(), "skipped", skipped)
	}
	return observation, nil
}
