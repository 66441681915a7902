// Package model contains domain types passed between engine layers.
package model

import "math"

// Difficulty scale constants. Every predictor output is clamped to this
// range and snapped to the step before leaving the engine.
const (
	MinDifficulty  = 1.0
	MaxDifficulty  = 10.0
	DifficultyStep = 0.5

	// DefaultDifficulty is the mid-scale starting level served for students
	// with no recorded history.
	DefaultDifficulty = 5.5
)

// FeatureCount is the fixed dimensionality of a FeatureVector.
const FeatureCount = 5

// Feature indices into a FeatureVector.
const (
	FeatureMeanResponseTime = iota // mean response time, normalized by the timeout
	FeatureAccuracy                // fraction correct over the full window
	FeatureAttempts                // saturating attempt count, normalized by capacity
	FeatureLastDifficulty          // last presented difficulty, normalized by MaxDifficulty
	FeatureTrend                   // recent-vs-rest accuracy delta, in [-1, 1]
)

// ResponseRecord captures a single answered question. Immutable once recorded.
type ResponseRecord struct {
	TopicID      string  // topic the question belonged to, e.g. "Kerala"
	Difficulty   float64 // difficulty presented, within the scale above
	Correct      bool    // whether the answer was correct
	ResponseTime float64 // seconds taken to answer, capped at the timeout
	Attempt      int     // ordinal of this response within the topic
}

// FeatureVector is the fixed 5-dimensional input to both predictors.
type FeatureVector [FeatureCount]float64

// SentinelFeatures is the vector returned for an empty window: neutral
// accuracy, no timing or attempt signal, mid-scale difficulty, flat trend.
func SentinelFeatures() FeatureVector {
	return FeatureVector{
		FeatureMeanResponseTime: 0,
		FeatureAccuracy:         0.5,
		FeatureAttempts:         0,
		FeatureLastDifficulty:   DefaultDifficulty / MaxDifficulty,
		FeatureTrend:            0,
	}
}

// ClampDifficulty bounds d to [MinDifficulty, MaxDifficulty].
func ClampDifficulty(d float64) float64 {
	return math.Max(MinDifficulty, math.Min(MaxDifficulty, d))
}

// SnapDifficulty rounds d to the nearest multiple of DifficultyStep.
func SnapDifficulty(d float64) float64 {
	return math.Round(d/DifficultyStep) * DifficultyStep
}

// NormalizeDifficulty clamps, snaps, and returns a value usable as an
// engine-facing difficulty level.
func NormalizeDifficulty(d float64) float64 {
	return SnapDifficulty(ClampDifficulty(d))
}

// ValidDifficulty reports whether d lies on the difficulty scale.
func ValidDifficulty(d float64) bool {
	if d < MinDifficulty || d > MaxDifficulty {
		return false
	}
	steps := d / DifficultyStep
	return math.Abs(steps-math.Round(steps)) < 1e-9
}
