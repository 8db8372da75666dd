package train

import (
	"context"
	"errors"
	"time"

	"github.com/ChizhovVadim/vcgan/internal/report"
	"github.com/sirupsen/logrus"
)

type TrainerOptions struct {
	StopIteration     int
	LogIteration      int
	SnapshotIteration int
}

// Trainer repeats the update core and runs evaluation, snapshots, the log report and the
// plot report on their iteration cadences.
type Trainer struct {
	updater         *Updater
	stopIteration   int
	logTrigger      IntervalTrigger
	snapshotTrigger IntervalTrigger
	evaluators      []*Evaluator
	snapshot        ISnapshotWriter
	logReport       *report.LogReport
	plotReport      *report.PlotReport
	logger          *logrus.Logger
}

func NewTrainer(
	updater *Updater,
	options TrainerOptions,
	evaluators []*Evaluator,
	snapshot ISnapshotWriter,
	logReport *report.LogReport,
	plotReport *report.PlotReport,
	logger *logrus.Logger,
) *Trainer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Trainer{
		updater:         updater,
		stopIteration:   options.StopIteration,
		logTrigger:      IntervalTrigger{Period: options.LogIteration},
		snapshotTrigger: IntervalTrigger{Period: options.SnapshotIteration},
		evaluators:      evaluators,
		snapshot:        snapshot,
		logReport:       logReport,
		plotReport:      plotReport,
		logger:          logger,
	}
}

func (t *Trainer) done() bool {
	return t.stopIteration > 0 && t.updater.Iteration() >= t.stopIteration
}

// Run trains until the stop iteration. Cancelling ctx stops the loop between steps.
func (t *Trainer) Run(ctx context.Context) error {
	t.logger.Info("Train started")
	defer t.logger.Info("Train finished")

	var start = time.Now()
	for !t.done() {
		if ctx.Err() != nil {
			t.logger.WithField("iteration", t.updater.Iteration()).Info("Train interrupted")
			return nil
		}
		var err = t.step(start)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			t.logger.WithField("iteration", t.updater.Iteration()).Info("Train interrupted")
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) step(start time.Time) error {
	observation, err := t.updater.Update()
	if err != nil {
		return err
	}
	var iteration = t.updater.Iteration()
	var logNow = t.logTrigger.Fire(iteration)

	if logNow {
		for _, e := range t.evaluators {
			result, err := e.Evaluate()
			if err != nil {
				return err
			}
			observation.Merge(result)
		}
	}

	if t.snapshot != nil && t.snapshotTrigger.Fire(iteration) {
		path, err := t.snapshot.Write(iteration)
		if err != nil {
			return err
		}
		t.logger.WithFields(logrus.Fields{
			"iteration": iteration,
			"path":      path,
		}).Info("Stored snapshot")
	}

	if t.logReport == nil {
		return nil
	}
	t.logReport.Observe(observation)
	if !logNow {
		return nil
	}
	entry, err := t.logReport.Flush(iteration, t.updater.Epoch(), time.Since(start))
	if err != nil {
		return err
	}
	if t.plotReport != nil {
		t.plotReport.Add(entry)
		err = t.plotReport.Save()
		if err != nil {
			return err
		}
	}
	return nil
}
