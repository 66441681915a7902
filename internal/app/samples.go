package app

import (
	"context"

	"github.com/okian/geoquiz/internal/domain/forest"
	"github.com/okian/geoquiz/internal/domain/model"
)

// Label thresholds as fractions of the response timeout. A correct answer
// inside the fast fraction shows headroom; a miss or a response past the
// slow fraction shows strain.
const (
	fastFraction = 0.5
	slowFraction = 0.9
)

// buildSamples derives training pairs from every stored window. For each
// position i the features describe the history before record i and the
// target is the difficulty that record i's outcome argues for: one step up
// when the student answered correctly with time to spare, one step down
// when they missed or ran close to the timeout, unchanged otherwise. The
// ensemble therefore regresses toward the difficulty that sustains
// engagement, not the difficulty last shown.
func (e *Engine) buildSamples(ctx context.Context) []forest.Sample {
	windows := e.store.Windows(ctx)

	var samples []forest.Sample
	for _, window := range windows {
		for i := 1; i < len(window); i++ {
			samples = append(samples, forest.Sample{
				Features: e.extractor.Extract(window[:i]),
				Target:   e.engagementTarget(window[i]),
			})
		}
	}
	return samples
}

// engagementTarget nudges the presented difficulty one step in the
// direction the outcome supports, clamped and snapped onto the scale.
func (e *Engine) engagementTarget(rec model.ResponseRecord) float64 {
	fast := rec.ResponseTime <= fastFraction*e.timeout
	slow := rec.ResponseTime >= slowFraction*e.timeout

	target := rec.Difficulty
	switch {
	case rec.Correct && fast:
		target += model.DifficultyStep
	case !rec.Correct || slow:
		target -= model.DifficultyStep
	}

	return model.NormalizeDifficulty(target)
}
