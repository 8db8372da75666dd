package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChizhovVadim/vcgan/internal/config"
	"github.com/ChizhovVadim/vcgan/internal/train"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func main() {
	logger.SetReportCaller(true)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	gin.SetMode(gin.ReleaseMode)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v <config.json> <output>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	var err = run(flag.Arg(0), flag.Arg(1))
	if err != nil {
		logger.Fatal(err)
	}
}

func run(configPath, outDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.WithFields(configFields(cfg)).Info("Loaded config")

	err = os.MkdirAll(outDir, 0o755)
	if err != nil {
		return err
	}
	_, err = cfg.Save(outDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return train.Run(ctx, cfg, outDir, logger)
}

func configFields(cfg *config.Config) logrus.Fields {
	return logrus.Fields{
		"dataset": fmt.Sprintf("%+v", cfg.Dataset),
		"model":   fmt.Sprintf("%+v", cfg.Model),
		"loss":    fmt.Sprintf("%+v", cfg.Loss),
		"train":   fmt.Sprintf("%+v", cfg.Train),
	}
}
