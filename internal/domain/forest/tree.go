// Package forest implements the decision-tree ensemble: flat-array trees,
// bounded-depth inference, and bootstrap training.
package forest

import (
	"github.com/okian/geoquiz/internal/domain/model"
)

// Structural maxima. The codec rejects any persisted model exceeding them.
const (
	// MaxEstimators bounds the number of trees in an ensemble.
	MaxEstimators = 25
	// MaxTreeDepth bounds tree depth; traversal never exceeds it.
	MaxTreeDepth = 8
)

// Node is one slot of a tree's flat node array. Internal nodes route on
// Features[FeatureIndex] <= Threshold; leaves yield LeafValue.
type Node struct {
	FeatureIndex uint8
	Threshold    float64
	LeafValue    float64
	Leaf         bool
}

// NodesForDepth returns the flat array size of a complete binary tree of the
// given depth: 2^(depth+1) - 1. Child indices are computed arithmetically,
// so no pointers are stored.
func NodesForDepth(depth int) int {
	return (1 << (depth + 1)) - 1
}

// Tree is a single regression tree stored as a complete binary tree in a
// flat array sized to the ensemble's maximum depth.
type Tree struct {
	Nodes []Node
}

// Predict descends from the root to a leaf. Traversal is bounded by the
// array size, so there is no recursion and no allocation.
func (t *Tree) Predict(fv model.FeatureVector) float64 {
	idx := 0
	for idx < len(t.Nodes) {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.LeafValue
		}
		if fv[node.FeatureIndex] <= node.Threshold {
			idx = 2*idx + 1
		} else {
			idx = 2*idx + 2
		}
	}
	// Unreachable for well-formed trees: the deepest layer is all leaves.
	return model.DefaultDifficulty
}
