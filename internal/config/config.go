package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ChizhovVadim/vcgan/internal/ml"
	"github.com/ChizhovVadim/vcgan/internal/model"
	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("config: invalid")

type DatasetConfig struct {
	Path         string `mapstructure:"path"`
	NumTest      int    `mapstructure:"num_test"`
	NumTrainEval int    `mapstructure:"num_train_eval"`
	Seed         int64  `mapstructure:"seed"`
	Workers      int    `mapstructure:"workers"`
}

type ModelConfig struct {
	InChannels          int   `mapstructure:"in_channels"`
	OutChannels         int   `mapstructure:"out_channels"`
	PredictorHidden     int   `mapstructure:"predictor_hidden"`
	DiscriminatorHidden int   `mapstructure:"discriminator_hidden"`
	Aligner             bool  `mapstructure:"aligner"`
	Seed                int64 `mapstructure:"seed"`
}

type LossConfig struct {
	MSE         float64 `mapstructure:"mse"`
	Adversarial float64 `mapstructure:"adversarial"`
}

type OptimizerConfig struct {
	Alpha float64 `mapstructure:"alpha"`
	Beta1 float64 `mapstructure:"beta1"`
	Beta2 float64 `mapstructure:"beta2"`
	Eps   float64 `mapstructure:"eps"`
}

type TrainConfig struct {
	BatchSize         int             `mapstructure:"batchsize"`
	LogIteration      int             `mapstructure:"log_iteration"`
	SnapshotIteration int             `mapstructure:"snapshot_iteration"`
	StopIteration     int             `mapstructure:"stop_iteration"`
	Prefetch          int             `mapstructure:"prefetch"`
	HTTPAddr          string          `mapstructure:"http_addr"`
	Optimizer         OptimizerConfig `mapstructure:"optimizer"`
}

type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	Model   ModelConfig   `mapstructure:"model"`
	Loss    LossConfig    `mapstructure:"loss"`
	Train   TrainConfig   `mapstructure:"train"`

	v *viper.Viper
}

var requiredKeys = []string{
	"dataset.path",
	"model.in_channels",
	"model.out_channels",
	"loss.mse",
	"loss.adversarial",
}

func setDefaults(v *viper.Viper) {
	var adam = ml.DefaultAdamConfig()
	v.SetDefault("dataset.num_test", 10)
	v.SetDefault("dataset.num_train_eval", 10)
	v.SetDefault("dataset.seed", 0)
	v.SetDefault("dataset.workers", 4)
	v.SetDefault("model.predictor_hidden", 64)
	v.SetDefault("model.discriminator_hidden", 64)
	v.SetDefault("model.aligner", false)
	v.SetDefault("model.seed", 0)
	v.SetDefault("train.batchsize", 8)
	v.SetDefault("train.log_iteration", 100)
	v.SetDefault("train.snapshot_iteration", 1000)
	v.SetDefault("train.stop_iteration", 0)
	v.SetDefault("train.prefetch", 4)
	v.SetDefault("train.http_addr", "")
	v.SetDefault("train.optimizer.alpha", adam.Alpha)
	v.SetDefault("train.optimizer.beta1", adam.Beta1)
	v.SetDefault("train.optimizer.beta2", adam.Beta2)
	v.SetDefault("train.optimizer.eps", adam.Eps)
}

// Load reads and validates a JSON config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	var v = viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v)
	var err = v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("config: read %v: %w", path, err)
	}
	for _, key := range requiredKeys {
		if !v.InConfig(key) {
			return nil, fmt.Errorf("%w: missing %v", ErrInvalid, key)
		}
	}
	var cfg = &Config{v: v}
	err = v.UnmarshalExact(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var checks = []struct {
		ok  bool
		msg string
	}{
		{c.Dataset.Path != "", "dataset.path is empty"},
		{c.Dataset.NumTest >= 0, "dataset.num_test is negative"},
		{c.Dataset.NumTrainEval >= 0, "dataset.num_train_eval is negative"},
		{c.Model.InChannels > 0, "model.in_channels must be positive"},
		{c.Model.OutChannels > 0, "model.out_channels must be positive"},
		{c.Model.PredictorHidden > 0, "model.predictor_hidden must be positive"},
		{c.Model.DiscriminatorHidden > 0, "model.discriminator_hidden must be positive"},
		{c.Loss.MSE >= 0, "loss.mse is negative"},
		{c.Loss.Adversarial >= 0, "loss.adversarial is negative"},
		{c.Train.BatchSize > 0, "train.batchsize must be positive"},
		{c.Train.LogIteration > 0, "train.log_iteration must be positive"},
		{c.Train.SnapshotIteration > 0, "train.snapshot_iteration must be positive"},
		{c.Train.StopIteration >= 0, "train.stop_iteration is negative"},
		{c.Train.Prefetch >= 0, "train.prefetch is negative"},
		{c.Train.Optimizer.Alpha > 0, "train.optimizer.alpha must be positive"},
		{c.Train.Optimizer.Beta1 >= 0 && c.Train.Optimizer.Beta1 < 1, "train.optimizer.beta1 must be in [0, 1)"},
		{c.Train.Optimizer.Beta2 >= 0 && c.Train.Optimizer.Beta2 < 1, "train.optimizer.beta2 must be in [0, 1)"},
		{c.Train.Optimizer.Eps > 0, "train.optimizer.eps must be positive"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("%w: %v", ErrInvalid, check.msg)
		}
	}
	return nil
}

// Save writes the resolved configuration, defaults included, to dir/config.json.
func (c *Config) Save(dir string) (string, error) {
	var path = filepath.Join(dir, "config.json")
	var err = c.v.WriteConfigAs(path)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (c LossConfig) Weights() ml.LossWeights {
	return ml.LossWeights{MSE: c.MSE, Adversarial: c.Adversarial}
}

func (c OptimizerConfig) Adam() ml.AdamConfig {
	return ml.AdamConfig{Alpha: c.Alpha, Beta1: c.Beta1, Beta2: c.Beta2, Eps: c.Eps}
}

func (c ModelConfig) Topology() model.Topology {
	return model.Topology{
		InChannels:          c.InChannels,
		OutChannels:         c.OutChannels,
		PredictorHidden:     c.PredictorHidden,
		DiscriminatorHidden: c.DiscriminatorHidden,
		Aligner:             c.Aligner,
	}
}
