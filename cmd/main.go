package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/geoquiz/internal/app"
	"github.com/okian/geoquiz/internal/config"
	"github.com/okian/geoquiz/internal/simulate"
	"github.com/okian/geoquiz/pkg/logger"
)

// Default simulation constants.
const (
	defaultStudents   = 8
	defaultRounds     = 30
	defaultTrainEvery = 5
	defaultSeed       = 1
)

func main() {
	var (
		students   = flag.Int("students", defaultStudents, "Number of synthetic students")
		rounds     = flag.Int("rounds", defaultRounds, "Questions per student per topic")
		trainEvery = flag.Int("train-every", defaultTrainEvery, "Retrain after this many rounds (0 disables)")
		seed       = flag.Int64("seed", defaultSeed, "Seed for the synthetic answer model")
		verbose    = flag.Bool("verbose", false, "Log every simulated response")
	)
	flag.Parse()

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the engine with configuration options
	engine := app.New(
		app.WithLogger(log),
		app.WithHistoryCapacity(cfg.HistoryCapacity),
		app.WithResponseTimeout(cfg.ResponseTimeoutSeconds),
		app.WithEstimators(cfg.Estimators),
		app.WithMaxDepth(cfg.MaxTreeDepth),
		app.WithMinSplit(cfg.MinSplit),
		app.WithMinTrainingRecords(cfg.MinTrainingRecords),
		app.WithMinPredictRecords(cfg.MinPredictRecords),
		app.WithTrainSeed(cfg.TrainSeed),
		app.WithModelPath(cfg.ModelPath),
		app.WithAutoRetrainInterval(time.Duration(cfg.AutoRetrainSeconds)*time.Second),
	)
	if err := engine.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start engine: " + err.Error() + "\n")
		return
	}
	defer engine.Stop()

	// Warm-start from a previously persisted model when one exists.
	if _, statErr := os.Stat(cfg.ModelPath); statErr == nil {
		if err := engine.LoadModel(ctx, cfg.ModelPath); err != nil {
			log.Warn(ctx, "could not load persisted model, continuing with heuristic", logger.Error(err))
		}
	}

	stats, err := simulate.Run(ctx, engine, &simulate.Config{
		Students:   *students,
		Rounds:     *rounds,
		TrainEvery: *trainEvery,
		Seed:       *seed,
		Verbose:    *verbose,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "simulation failed", logger.Error(err))
		return
	}

	// Persist the trained model for the next cold boot.
	if err := engine.SaveModel(ctx, cfg.ModelPath); err != nil {
		log.Error(ctx, "failed to save model", logger.Error(err))
		return
	}

	log.Info(ctx, "model saved",
		logger.String("path", cfg.ModelPath),
		logger.Any("engine", engine.Stats(ctx)),
		logger.Int("responses", stats.Responses),
	)
}
