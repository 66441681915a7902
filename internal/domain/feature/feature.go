// Package feature reduces a performance window into the fixed vector
// consumed by the predictors.
package feature

import (
	"math"

	"github.com/okian/geoquiz/internal/domain/model"
)

// Default normalization constants.
const (
	defaultTimeout  = 300.0 // seconds, matches the response capture timeout
	defaultCapacity = 50    // matches the performance window capacity

	// minTrendWindow is the smallest window for which a trend is defined.
	minTrendWindow = 3
)

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithTimeout sets the response timeout used to clamp and normalize times.
func WithTimeout(seconds float64) Option {
	return func(e *Extractor) {
		if seconds > 0 {
			e.timeout = seconds
		}
	}
}

// WithCapacity sets the window capacity used to normalize the attempt count.
func WithCapacity(capacity int) Option {
	return func(e *Extractor) {
		if capacity > 0 {
			e.capacity = capacity
		}
	}
}

// Extractor computes feature vectors from performance windows. Extraction is
// a pure function of the window and the configured normalization constants.
type Extractor struct {
	timeout  float64
	capacity int
}

// New creates an Extractor with configuration options.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		timeout:  defaultTimeout,
		capacity: defaultCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Timeout returns the configured response timeout in seconds.
func (e *Extractor) Timeout() float64 { return e.timeout }

// Extract derives the fixed feature vector from a chronological window.
// An empty window yields the sentinel vector so downstream predictors
// degrade gracefully instead of failing.
func (e *Extractor) Extract(window []model.ResponseRecord) model.FeatureVector {
	if len(window) == 0 {
		return model.SentinelFeatures()
	}

	n := len(window)
	var timeSum float64
	var correct int
	for _, rec := range window {
		// Clamp stalls and outliers to the timeout before averaging.
		timeSum += math.Min(math.Max(rec.ResponseTime, 0), e.timeout)
		if rec.Correct {
			correct++
		}
	}

	meanTime := timeSum / float64(n)
	accuracy := float64(correct) / float64(n)
	attempts := math.Min(float64(n), float64(e.capacity)) / float64(e.capacity)
	lastDifficulty := window[n-1].Difficulty / model.MaxDifficulty

	return model.FeatureVector{
		model.FeatureMeanResponseTime: meanTime / e.timeout,
		model.FeatureAccuracy:         accuracy,
		model.FeatureAttempts:         attempts,
		model.FeatureLastDifficulty:   lastDifficulty,
		model.FeatureTrend:            trend(window),
	}
}

// trend compares accuracy over the most recent third of the window against
// the remainder. Windows shorter than three records carry no trend signal.
func trend(window []model.ResponseRecord) float64 {
	n := len(window)
	if n < minTrendWindow {
		return 0
	}

	recentLen := (n + 2) / 3 // ceil(n/3)
	split := n - recentLen

	var recentCorrect, restCorrect int
	for i, rec := range window {
		if !rec.Correct {
			continue
		}
		if i >= split {
			recentCorrect++
		} else {
			restCorrect++
		}
	}

	recentAcc := float64(recentCorrect) / float64(recentLen)
	restAcc := float64(restCorrect) / float64(split)
	return recentAcc - restAcc
}
