package forest

import (
	"github.com/okian/geoquiz/internal/domain/model"
)

// Ensemble is a fixed-size array of independently grown trees plus the
// trained flag and a version counter bumped on every successful retrain.
// An Ensemble is never mutated after publication; retraining builds a new
// value and the owner swaps it in atomically.
type Ensemble struct {
	Trees    []Tree
	MaxDepth int
	Trained  bool
	Version  uint32
}

// Untrained returns an empty, unversioned ensemble. It serves as the initial
// installed model and as the fallback after a corrupt decode.
func Untrained() *Ensemble {
	return &Ensemble{MaxDepth: MaxTreeDepth}
}

// Predict averages the per-tree outputs and snaps the result onto the
// difficulty scale. Callers must check Trained and fall back to the
// heuristic predictor; querying an untrained ensemble is an error.
func (e *Ensemble) Predict(fv model.FeatureVector) (float64, error) {
	if !e.Trained || len(e.Trees) == 0 {
		return 0, ErrUntrained
	}

	var sum float64
	for i := range e.Trees {
		sum += e.Trees[i].Predict(fv)
	}
	mean := sum / float64(len(e.Trees))

	return model.NormalizeDifficulty(mean), nil
}
