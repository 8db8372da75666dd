package train

import (
	"context"
	"math/rand"
	"runtime"

	"github.com/ChizhovVadim/vcgan/internal/config"
	"github.com/ChizhovVadim/vcgan/internal/dataset"
	"github.com/ChizhovVadim/vcgan/internal/model"
	"github.com/ChizhovVadim/vcgan/internal/report"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run loads the dataset, builds models, optimizers and extensions from cfg and trains,
// writing every artifact to outDir.
func Run(
	ctx context.Context,
	cfg *config.Config,
	outDir string,
	logger *logrus.Logger,
) error {
	examples, err := dataset.LoadFolder(ctx, cfg.Dataset.Path, cfg.Dataset.Workers, logger)
	if err != nil {
		return err
	}
	splits, err := dataset.Split(examples, cfg.Dataset.NumTest, cfg.Dataset.NumTrainEval, cfg.Dataset.Seed)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"train":      len(splits.Train),
		"test":       len(splits.Test),
		"train_eval": len(splits.TrainEval),
	}).Info("Loaded dataset")
	runtime.GC()

	var models = model.NewModels(rand.New(rand.NewSource(cfg.Model.Seed)), cfg.Model.Topology())
	var optimizers = NewOptimizers(models, cfg.Train.Optimizer.Adam())

	var batchSize = cfg.Train.BatchSize
	var trainIter dataset.Iterator = dataset.NewSerialIterator(splits.Train, batchSize, true, true, cfg.Dataset.Seed)
	if cfg.Train.Prefetch > 0 {
		var prefetcher = dataset.Prefetch(ctx, trainIter, cfg.Train.Prefetch)
		defer prefetcher.Close()
		trainIter = prefetcher
	}

	var updater = NewUpdater(cfg.Loss.Weights(), models, optimizers, trainIter, dataset.Concat, logger)
	var evaluators = []*Evaluator{
		NewEvaluator("test",
			dataset.NewSerialIterator(splits.Test, batchSize, false, false, 0),
			dataset.Concat, updater),
		NewEvaluator("train",
			dataset.NewSerialIterator(splits.TrainEval, batchSize, false, false, 0),
			dataset.Concat, updater),
	}
	var logReport = report.NewLogReport(outDir, logger)
	var trainer = NewTrainer(
		updater,
		TrainerOptions{
			StopIteration:     cfg.Train.StopIteration,
			LogIteration:      cfg.Train.LogIteration,
			SnapshotIteration: cfg.Train.SnapshotIteration,
		},
		evaluators,
		NewParamsSnapshot(outDir, model.Predictor.String(), models.Predictor.Params()),
		logReport,
		report.NewPlotReport(outDir, report.DefaultPlotKeys),
		logger,
	)

	if cfg.Train.HTTPAddr == "" {
		return trainer.Run(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	var serverCtx, stopServer = context.WithCancel(ctx)
	g.Go(func() error {
		return report.Serve(serverCtx, cfg.Train.HTTPAddr, report.NewRouter(logReport), logger)
	})
	g.Go(func() error {
		defer stopServer()
		return trainer.Run(ctx)
	})
	return g.Wait()
}
