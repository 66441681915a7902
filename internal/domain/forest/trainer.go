package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/okian/geoquiz/internal/domain/model"
)

// Default trainer configuration constants.
const (
	defaultEstimators = 25
	defaultMaxDepth   = 8
	defaultMinSplit   = 4
	defaultSeed       = 42
)

// Sample is one training pair: a feature context and the difficulty that
// empirically kept the student engaged in that context.
type Sample struct {
	Features model.FeatureVector
	Target   float64
}

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithEstimators sets the number of trees to grow, capped at MaxEstimators.
func WithEstimators(n int) Option {
	return func(t *Trainer) {
		if n > 0 && n <= MaxEstimators {
			t.estimators = n
		}
	}
}

// WithMaxDepth sets the tree depth limit, capped at MaxTreeDepth.
func WithMaxDepth(depth int) Option {
	return func(t *Trainer) {
		if depth > 0 && depth <= MaxTreeDepth {
			t.maxDepth = depth
		}
	}
}

// WithMinSplit sets the smallest node subsample that may still be split.
func WithMinSplit(n int) Option {
	return func(t *Trainer) {
		if n > 1 {
			t.minSplit = n
		}
	}
}

// WithSeed sets the base seed for per-tree bootstrap sampling.
func WithSeed(seed int64) Option {
	return func(t *Trainer) {
		t.seed = seed
	}
}

// Trainer grows ensembles from accumulated performance samples under fixed
// memory bounds: tree count, depth, and node arrays are all capped up front.
type Trainer struct {
	estimators int
	maxDepth   int
	minSplit   int
	seed       int64
}

// NewTrainer creates a Trainer with configuration options.
func NewTrainer(opts ...Option) *Trainer {
	t := &Trainer{
		estimators: defaultEstimators,
		maxDepth:   defaultMaxDepth,
		minSplit:   defaultMinSplit,
		seed:       defaultSeed,
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Train grows a fresh ensemble from the samples. Each tree sees its own
// bootstrap resample drawn from a per-tree seeded source, so trees stay
// decorrelated and a fixed base seed reproduces the same forest.
// The returned ensemble carries prevVersion+1 and is fully independent of
// any installed model; the caller swaps it in atomically.
func (t *Trainer) Train(ctx context.Context, samples []Sample, prevVersion uint32) (*Ensemble, error) {
	if len(samples) < 2 {
		return nil, ErrInsufficientData
	}

	ens := &Ensemble{
		Trees:    make([]Tree, t.estimators),
		MaxDepth: t.maxDepth,
		Trained:  true,
		Version:  prevVersion + 1,
	}

	for i := 0; i < t.estimators; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training abandoned: %w", err)
		}

		// Reseed per tree for distinct bootstrap sequences.
		rng := rand.New(rand.NewSource(t.seed + int64(i))) //nolint:gosec // deterministic seed for reproducible training
		boot := make([]int, len(samples))
		for j := range boot {
			boot[j] = rng.Intn(len(samples))
		}

		tree := Tree{Nodes: make([]Node, NodesForDepth(t.maxDepth))}
		t.grow(&tree, 0, 0, samples, boot)
		ens.Trees[i] = tree
	}

	return ens, nil
}

// grow fills nodes[idx] for the given subsample, splitting greedily on the
// variance-minimizing (feature, threshold) pair until depth or size runs out.
func (t *Trainer) grow(tree *Tree, idx, depth int, samples []Sample, subsample []int) {
	mean := meanTarget(samples, subsample)

	if depth >= t.maxDepth || len(subsample) < t.minSplit {
		tree.Nodes[idx] = Node{Leaf: true, LeafValue: mean}
		return
	}

	featIdx, threshold, ok := bestSplit(samples, subsample)
	if !ok {
		tree.Nodes[idx] = Node{Leaf: true, LeafValue: mean}
		return
	}

	var left, right []int
	for _, s := range subsample {
		if samples[s].Features[featIdx] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		tree.Nodes[idx] = Node{Leaf: true, LeafValue: mean}
		return
	}

	tree.Nodes[idx] = Node{FeatureIndex: uint8(featIdx), Threshold: threshold}
	t.grow(tree, 2*idx+1, depth+1, samples, left)
	t.grow(tree, 2*idx+2, depth+1, samples, right)
}

// bestSplit scans every feature and candidate threshold (midpoints between
// sorted distinct values) for the split with the lowest weighted variance.
func bestSplit(samples []Sample, subsample []int) (int, float64, bool) {
	bestVar := math.Inf(1)
	bestFeat := -1
	var bestThr float64

	values := make([]float64, 0, len(subsample))
	for f := 0; f < model.FeatureCount; f++ {
		values = values[:0]
		for _, s := range subsample {
			values = append(values, samples[s].Features[f])
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			thr := (values[i] + values[i-1]) / 2

			v, ok := splitVariance(samples, subsample, f, thr)
			if ok && v < bestVar {
				bestVar = v
				bestFeat = f
				bestThr = thr
			}
		}
	}

	return bestFeat, bestThr, bestFeat >= 0
}

// splitVariance computes the size-weighted target variance of the two sides
// of a candidate split.
func splitVariance(samples []Sample, subsample []int, feat int, thr float64) (float64, bool) {
	var lSum, lSq, rSum, rSq float64
	var lN, rN int
	for _, s := range subsample {
		target := samples[s].Target
		if samples[s].Features[feat] <= thr {
			lSum += target
			lSq += target * target
			lN++
		} else {
			rSum += target
			rSq += target * target
			rN++
		}
	}
	if lN == 0 || rN == 0 {
		return 0, false
	}

	lVar := lSq/float64(lN) - (lSum/float64(lN))*(lSum/float64(lN))
	rVar := rSq/float64(rN) - (rSum/float64(rN))*(rSum/float64(rN))
	total := float64(lN + rN)
	return lVar*float64(lN)/total + rVar*float64(rN)/total, true
}

func meanTarget(samples []Sample, subsample []int) float64 {
	if len(subsample) == 0 {
		return model.DefaultDifficulty
	}
	var sum float64
	for _, s := range subsample {
		sum += samples[s].Target
	}
	return sum / float64(len(subsample))
}
