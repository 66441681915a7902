// Package config defines engine configuration structures and loading hooks.
//
// The configuration surface is fixed at startup: history capacity, ensemble
// shape, difficulty scale thresholds, and the model path are not re-derived
// at runtime.
package config

import (
	"fmt"

	"github.com/okian/geoquiz/internal/adapters/repository"
	"github.com/okian/geoquiz/internal/domain/forest"
)

// Config contains process configuration for the difficulty engine.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ModelPath is where the binary model artifact is persisted.
	ModelPath string `koanf:"model_path"`

	// HistoryCapacity bounds each (student, topic) performance window.
	HistoryCapacity int `koanf:"history_capacity"`

	// ResponseTimeoutSeconds caps captured response latencies.
	ResponseTimeoutSeconds float64 `koanf:"response_timeout_seconds"`

	// Estimators is the number of trees grown per training pass.
	Estimators int `koanf:"estimators"`

	// MaxTreeDepth bounds every tree in the ensemble.
	MaxTreeDepth int `koanf:"max_tree_depth"`

	// MinSplit is the smallest node subsample the trainer may still split.
	MinSplit int `koanf:"min_split"`

	// MinTrainingRecords gates training: below this total record count a
	// training pass fails and the previous model stays authoritative.
	MinTrainingRecords int `koanf:"min_training_records"`

	// MinPredictRecords gates the ensemble path per window; thinner windows
	// are served by the heuristic.
	MinPredictRecords int `koanf:"min_predict_records"`

	// TrainSeed is the base seed for per-tree bootstrap sampling.
	TrainSeed int64 `koanf:"train_seed"`

	// AutoRetrainSeconds enables the background retrain loop when positive.
	AutoRetrainSeconds int `koanf:"auto_retrain_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		ModelPath:              "geoquiz_model.bin",
		HistoryCapacity:        50,
		ResponseTimeoutSeconds: 300,
		Estimators:             25,
		MaxTreeDepth:           8,
		MinSplit:               4,
		MinTrainingRecords:     5,
		MinPredictRecords:      3,
		TrainSeed:              42,
		AutoRetrainSeconds:     0,
	}
}

// validate rejects values outside the engine's fixed structural maxima.
func (c *Config) validate() error {
	if c.HistoryCapacity < 1 || c.HistoryCapacity > repository.MaxCapacity {
		return fmt.Errorf("%w: history_capacity %d outside [1, %d]", ErrInvalidConfig, c.HistoryCapacity, repository.MaxCapacity)
	}
	if c.Estimators < 1 || c.Estimators > forest.MaxEstimators {
		return fmt.Errorf("%w: estimators %d outside [1, %d]", ErrInvalidConfig, c.Estimators, forest.MaxEstimators)
	}
	if c.MaxTreeDepth < 1 || c.MaxTreeDepth > forest.MaxTreeDepth {
		return fmt.Errorf("%w: max_tree_depth %d outside [1, %d]", ErrInvalidConfig, c.MaxTreeDepth, forest.MaxTreeDepth)
	}
	if c.ResponseTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: response_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.MinTrainingRecords < 1 {
		return fmt.Errorf("%w: min_training_records must be at least 1", ErrInvalidConfig)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	}
	return nil
}
