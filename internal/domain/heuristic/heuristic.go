// Package heuristic implements the deterministic rule-based difficulty
// predictor used whenever no trained ensemble is available.
package heuristic

import (
	"github.com/okian/geoquiz/internal/domain/model"
)

// Default rule thresholds. Accuracy thresholds are fractions in [0, 1];
// time thresholds are fractions of the response timeout.
const (
	defaultHighAccuracy = 0.8
	defaultLowAccuracy  = 0.4
	defaultFastTime     = 0.5
	defaultSlowTime     = 0.9
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithAccuracyThresholds sets the low and high accuracy cutoffs.
func WithAccuracyThresholds(low, high float64) Option {
	return func(p *Predictor) {
		if low > 0 && high > low && high <= 1 {
			p.lowAccuracy = low
			p.highAccuracy = high
		}
	}
}

// WithTimeThresholds sets the fast and slow response-time fractions.
func WithTimeThresholds(fast, slow float64) Option {
	return func(p *Predictor) {
		if fast > 0 && slow > fast && slow <= 1 {
			p.fastTime = fast
			p.slowTime = slow
		}
	}
}

// Predictor holds the rule table. It carries no learned state and is always
// available as a fallback.
type Predictor struct {
	highAccuracy float64
	lowAccuracy  float64
	fastTime     float64
	slowTime     float64
}

// New creates a Predictor with configuration options.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		highAccuracy: defaultHighAccuracy,
		lowAccuracy:  defaultLowAccuracy,
		fastTime:     defaultFastTime,
		slowTime:     defaultSlowTime,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Predict returns the next difficulty for the given features. The rule table:
// raise one step when the student answers accurately and well within the
// timeout, lower one step when accuracy is poor or responses approach the
// timeout, otherwise hold the last presented difficulty.
func (p *Predictor) Predict(fv model.FeatureVector) float64 {
	accuracy := fv[model.FeatureAccuracy]
	meanTime := fv[model.FeatureMeanResponseTime]
	current := fv[model.FeatureLastDifficulty] * model.MaxDifficulty

	var next float64
	switch {
	case accuracy > p.highAccuracy && meanTime < p.fastTime:
		next = current + model.DifficultyStep
	case accuracy < p.lowAccuracy || meanTime > p.slowTime:
		next = current - model.DifficultyStep
	default:
		next = current
	}

	return model.NormalizeDifficulty(next)
}
