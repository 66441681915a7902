// Package app provides the adaptive difficulty engine: the single owner of
// the performance store and the installed tree ensemble.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/geoquiz/internal/adapters/codec"
	"github.com/okian/geoquiz/internal/adapters/repository"
	"github.com/okian/geoquiz/internal/domain/feature"
	"github.com/okian/geoquiz/internal/domain/forest"
	"github.com/okian/geoquiz/internal/domain/heuristic"
	"github.com/okian/geoquiz/internal/domain/model"
	"github.com/okian/geoquiz/pkg/logger"
	"github.com/okian/geoquiz/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultCapacity     = 50
	defaultTimeout      = 300.0 // seconds
	defaultEstimators   = 25
	defaultMaxDepth     = 8
	defaultMinSplit     = 4
	defaultMinTraining  = 5
	defaultMinPredict   = 3
	defaultSeed         = 42
	defaultModelPath    = "geoquiz_model.bin"
	nanosPerMillisecond = 1e6
)

// Prediction source labels used in metrics.
const (
	sourceEnsemble  = "ensemble"
	sourceHeuristic = "heuristic"
)

// Engine serves difficulty predictions and owns the learning loop.
// Prediction and record-append interleave freely; the only shared mutable
// state is the installed ensemble pointer, replaced atomically on retrain.
type Engine struct {
	mu sync.Mutex // serializes lifecycle and train/swap sequencing

	// Core components
	store     *repository.Store
	extractor *feature.Extractor
	fallback  *heuristic.Predictor
	trainer   *forest.Trainer
	installed atomic.Pointer[forest.Ensemble]

	// Configuration
	capacity     int
	timeout      float64
	estimators   int
	maxDepth     int
	minSplit     int
	minTraining  int
	minPredict   int
	seed         int64
	modelPath    string
	retrainEvery time.Duration

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithHistoryCapacity bounds each performance window.
func WithHistoryCapacity(capacity int) Option {
	return func(e *Engine) {
		if capacity > 0 && capacity <= repository.MaxCapacity {
			e.capacity = capacity
		}
	}
}

// WithResponseTimeout sets the response latency cap in seconds.
func WithResponseTimeout(seconds float64) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.timeout = seconds
		}
	}
}

// WithEstimators sets the number of trees grown per training pass.
func WithEstimators(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= forest.MaxEstimators {
			e.estimators = n
		}
	}
}

// WithMaxDepth bounds tree depth.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 && depth <= forest.MaxTreeDepth {
			e.maxDepth = depth
		}
	}
}

// WithMinSplit sets the trainer's minimum-split subsample size.
func WithMinSplit(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.minSplit = n
		}
	}
}

// WithMinTrainingRecords gates training on total stored records.
func WithMinTrainingRecords(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minTraining = n
		}
	}
}

// WithMinPredictRecords gates the ensemble path per window.
func WithMinPredictRecords(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minPredict = n
		}
	}
}

// WithTrainSeed sets the base bootstrap seed.
func WithTrainSeed(seed int64) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}

// WithModelPath sets the default model artifact path.
func WithModelPath(path string) Option {
	return func(e *Engine) {
		if path != "" {
			e.modelPath = path
		}
	}
}

// WithAutoRetrainInterval enables the background retrain loop.
func WithAutoRetrainInterval(interval time.Duration) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.retrainEvery = interval
		}
	}
}

// New constructs an Engine with default configuration. The engine starts
// with an untrained ensemble and serves heuristic predictions until the
// first successful training pass or model load.
func New(opts ...Option) *Engine {
	e := &Engine{
		capacity:    defaultCapacity,
		timeout:     defaultTimeout,
		estimators:  defaultEstimators,
		maxDepth:    defaultMaxDepth,
		minSplit:    defaultMinSplit,
		minTraining: defaultMinTraining,
		minPredict:  defaultMinPredict,
		seed:        defaultSeed,
		modelPath:   defaultModelPath,
		stopCh:      make(chan struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	e.store = repository.New(
		repository.WithCapacity(e.capacity),
		repository.WithResponseTimeout(e.timeout),
	)
	e.extractor = feature.New(
		feature.WithTimeout(e.timeout),
		feature.WithCapacity(e.capacity),
	)
	e.fallback = heuristic.New()
	e.trainer = forest.NewTrainer(
		forest.WithEstimators(e.estimators),
		forest.WithMaxDepth(e.maxDepth),
		forest.WithMinSplit(e.minSplit),
		forest.WithSeed(e.seed),
	)
	e.installed.Store(forest.Untrained())

	return e
}

// Start launches the optional background retrain loop. Prediction and
// recording work without Start; only the periodic trainer needs it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.logger == nil {
		e.logger = logger.Get()
	}

	if e.retrainEvery > 0 {
		go e.retrainLoop(ctx)
	}

	e.started = true
	e.logger.Info(ctx, "difficulty engine started",
		logger.Int("capacity", e.capacity),
		logger.Int("estimators", e.estimators),
		logger.Int("maxDepth", e.maxDepth),
		logger.Bool("autoRetrain", e.retrainEvery > 0),
	)
	return nil
}

// Stop terminates the background retrain loop, if any.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}

	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
	e.started = false
}

// retrainLoop retrains periodically on accumulated records. Failed passes
// are logged and abandoned; the installed ensemble stays authoritative.
func (e *Engine) retrainLoop(ctx context.Context) {
	ticker := time.NewTicker(e.retrainEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.TrainNow(ctx); err != nil {
				e.logger.Debug(ctx, "background training pass skipped", logger.Error(err))
			}
		}
	}
}

// RecordResponse appends one answered question to the student's topic
// window. Malformed input is rejected without touching the window.
func (e *Engine) RecordResponse(ctx context.Context, studentID, topicID string, difficulty float64, correct bool, responseTime float64) error {
	err := e.store.Record(ctx, studentID, topicID, model.ResponseRecord{
		Difficulty:   difficulty,
		Correct:      correct,
		ResponseTime: responseTime,
	})
	if err != nil {
		metrics.RecordResponseInvalid()
		return fmt.Errorf("record response: %w", err)
	}

	metrics.RecordResponseRecorded()
	return nil
}

// Difficulty returns the next difficulty for the pair. The trained ensemble
// serves windows that meet the minimum-data threshold; everything else
// falls back to the deterministic heuristic. There is always an answer.
func (e *Engine) Difficulty(ctx context.Context, studentID, topicID string) float64 {
	start := time.Now()
	defer func() {
		metrics.RecordPredictionLatency(float64(time.Since(start).Nanoseconds()) / nanosPerMillisecond)
	}()

	window := e.store.Window(ctx, studentID, topicID)
	fv := e.extractor.Extract(window)

	ens := e.installed.Load()
	if ens.Trained && len(window) >= e.minPredict {
		if d, err := ens.Predict(fv); err == nil {
			metrics.RecordPrediction(sourceEnsemble)
			return d
		}
	}

	metrics.RecordPrediction(sourceHeuristic)
	return e.fallback.Predict(fv)
}

// TrainNow rebuilds the ensemble from the full performance store and swaps
// it in atomically. Below the minimum-records threshold it fails with
// ErrInsufficientData and the installed ensemble is left untouched.
func (e *Engine) TrainNow(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := e.store.TotalRecords(ctx)
	if total < e.minTraining {
		metrics.RecordTrainingFailure()
		return fmt.Errorf("train: %d records, need %d: %w", total, e.minTraining, forest.ErrInsufficientData)
	}

	samples := e.buildSamples(ctx)
	prev := e.installed.Load()

	start := time.Now()
	ens, err := e.trainer.Train(ctx, samples, prev.Version)
	if err != nil {
		metrics.RecordTrainingFailure()
		return fmt.Errorf("train: %w", err)
	}
	metrics.RecordTrainingDuration(float64(time.Since(start).Nanoseconds()) / nanosPerMillisecond)

	// Replace, never mutate: in-flight predictions keep the old ensemble.
	e.installed.Store(ens)

	metrics.RecordTraining()
	metrics.UpdateModelVersion(ens.Version)
	metrics.UpdateModelTrained(true)

	if e.logger != nil {
		e.logger.Info(ctx, "ensemble retrained",
			logger.Uint32("version", ens.Version),
			logger.Int("samples", len(samples)),
			logger.Int("trees", len(ens.Trees)),
		)
	}
	return nil
}

// SaveModel persists the installed ensemble to path (or the configured
// model path when path is empty). I/O errors propagate to the caller.
func (e *Engine) SaveModel(ctx context.Context, path string) error {
	if path == "" {
		path = e.modelPath
	}
	if err := codec.Save(path, e.installed.Load()); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadModel restores a persisted ensemble. A corrupt artifact resets the
// engine to the untrained state — heuristic predictions keep flowing — and
// the decode error is reported to the caller.
func (e *Engine) LoadModel(ctx context.Context, path string) error {
	if path == "" {
		path = e.modelPath
	}

	ens, err := codec.Load(path)
	if err != nil {
		if errors.Is(err, codec.ErrCorruptModel) {
			e.installed.Store(forest.Untrained())
			metrics.UpdateModelTrained(false)
			if e.logger != nil {
				e.logger.Error(ctx, "corrupt model artifact, falling back to heuristic",
					logger.String("path", path),
					logger.Error(err),
				)
			}
		}
		return fmt.Errorf("load model: %w", err)
	}

	e.installed.Store(ens)
	metrics.UpdateModelVersion(ens.Version)
	metrics.UpdateModelTrained(ens.Trained)

	if e.logger != nil {
		e.logger.Info(ctx, "model loaded",
			logger.String("path", path),
			logger.Uint32("version", ens.Version),
			logger.Bool("trained", ens.Trained),
		)
	}
	return nil
}

// ResetStudent drops the student's history: all topics when none are given,
// otherwise just the named topics.
func (e *Engine) ResetStudent(ctx context.Context, studentID string, topicIDs ...string) {
	if len(topicIDs) == 0 {
		e.store.Reset(ctx, studentID)
		return
	}
	for _, topicID := range topicIDs {
		e.store.ResetTopic(ctx, studentID, topicID)
	}
}

// Stats returns an engine snapshot for monitoring.
func (e *Engine) Stats(ctx context.Context) map[string]interface{} {
	ens := e.installed.Load()
	return map[string]interface{}{
		"records":      e.store.TotalRecords(ctx),
		"windows":      e.store.Count(ctx),
		"modelVersion": ens.Version,
		"trained":      ens.Trained,
		"trees":        len(ens.Trees),
		"estimators":   e.estimators,
		"maxDepth":     e.maxDepth,
	}
}
