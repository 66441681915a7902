// Package codec serializes tree ensembles to a fixed binary layout for
// persistence and cold-boot loading.
//
// Layout (little-endian, every field fixed-width):
//
//	header: magic uint32, format version uint16, tree count uint16,
//	        max depth uint16, trained uint8, pad uint8, ensemble version uint32
//	per tree: 2^(depth+1)-1 node records of
//	        {feature index uint8, leaf flag uint8, threshold float64, leaf value float64}
//
// The total byte size is computable from the header alone, so decoding
// validates length before reading any node.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/okian/geoquiz/internal/domain/forest"
	"github.com/okian/geoquiz/internal/domain/model"
	"github.com/okian/geoquiz/pkg/metrics"
)

// Wire format constants.
const (
	// magic spells "GQM1" when read as little-endian bytes.
	magic         = uint32('G') | uint32('Q')<<8 | uint32('M')<<16 | uint32('1')<<24
	formatVersion = 1

	headerSize = 16
	nodeSize   = 18

	modelFilePermission = 0o600
)

// Size returns the encoded byte size for the given tree count and depth.
func Size(treeCount, depth int) int {
	return headerSize + treeCount*forest.NodesForDepth(depth)*nodeSize
}

// Encode serializes the ensemble wholesale.
func Encode(ens *forest.Ensemble) ([]byte, error) {
	if len(ens.Trees) > forest.MaxEstimators {
		return nil, fmt.Errorf("%w: %d trees exceeds maximum %d", ErrCorruptModel, len(ens.Trees), forest.MaxEstimators)
	}
	if ens.MaxDepth < 1 || ens.MaxDepth > forest.MaxTreeDepth {
		return nil, fmt.Errorf("%w: depth %d outside [1, %d]", ErrCorruptModel, ens.MaxDepth, forest.MaxTreeDepth)
	}

	nodesPerTree := forest.NodesForDepth(ens.MaxDepth)
	buf := make([]byte, Size(len(ens.Trees), ens.MaxDepth))

	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint16(buf[4:], formatVersion)
	binary.LittleEndian.PutUint16(buf[6:], uint16(len(ens.Trees)))
	binary.LittleEndian.PutUint16(buf[8:], uint16(ens.MaxDepth))
	if ens.Trained {
		buf[10] = 1
	}
	binary.LittleEndian.PutUint32(buf[12:], ens.Version)

	off := headerSize
	for ti := range ens.Trees {
		tree := &ens.Trees[ti]
		if len(tree.Nodes) != nodesPerTree {
			return nil, fmt.Errorf("%w: tree %d has %d nodes, want %d", ErrCorruptModel, ti, len(tree.Nodes), nodesPerTree)
		}
		for ni := range tree.Nodes {
			node := tree.Nodes[ni]
			buf[off] = node.FeatureIndex
			if node.Leaf {
				buf[off+1] = 1
			}
			binary.LittleEndian.PutUint64(buf[off+2:], math.Float64bits(node.Threshold))
			binary.LittleEndian.PutUint64(buf[off+10:], math.Float64bits(node.LeafValue))
			off += nodeSize
		}
	}

	metrics.UpdateModelBytes(len(buf))

	return buf, nil
}

// Decode reconstructs an ensemble, validating header maxima and the exact
// byte length before reading nodes. Any violation yields ErrCorruptModel;
// callers fall back to an untrained ensemble and keep serving.
func Decode(data []byte) (*forest.Ensemble, error) {
	ens, err := decode(data)
	if err != nil {
		metrics.RecordDecodeFailure()
		return nil, err
	}
	return ens, nil
}

func decode(data []byte) (*forest.Ensemble, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptModel, len(data))
	}
	if got := binary.LittleEndian.Uint32(data[0:]); got != magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrCorruptModel, got)
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptModel, v)
	}

	treeCount := int(binary.LittleEndian.Uint16(data[6:]))
	depth := int(binary.LittleEndian.Uint16(data[8:]))
	trainedFlag := data[10]
	version := binary.LittleEndian.Uint32(data[12:])

	if treeCount > forest.MaxEstimators {
		return nil, fmt.Errorf("%w: %d trees exceeds maximum %d", ErrCorruptModel, treeCount, forest.MaxEstimators)
	}
	if depth < 1 || depth > forest.MaxTreeDepth {
		return nil, fmt.Errorf("%w: depth %d outside [1, %d]", ErrCorruptModel, depth, forest.MaxTreeDepth)
	}
	if trainedFlag > 1 {
		return nil, fmt.Errorf("%w: trained flag %d", ErrCorruptModel, trainedFlag)
	}
	if trainedFlag == 1 && treeCount == 0 {
		return nil, fmt.Errorf("%w: trained model with zero trees", ErrCorruptModel)
	}
	if want := Size(treeCount, depth); len(data) != want {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrCorruptModel, len(data), want)
	}

	nodesPerTree := forest.NodesForDepth(depth)
	ens := &forest.Ensemble{
		Trees:    make([]forest.Tree, treeCount),
		MaxDepth: depth,
		Trained:  trainedFlag == 1,
		Version:  version,
	}

	off := headerSize
	for ti := 0; ti < treeCount; ti++ {
		nodes := make([]forest.Node, nodesPerTree)
		for ni := range nodes {
			featureIndex := data[off]
			leafFlag := data[off+1]
			if featureIndex >= model.FeatureCount {
				return nil, fmt.Errorf("%w: feature index %d in tree %d", ErrCorruptModel, featureIndex, ti)
			}
			if leafFlag > 1 {
				return nil, fmt.Errorf("%w: leaf flag %d in tree %d", ErrCorruptModel, leafFlag, ti)
			}
			nodes[ni] = forest.Node{
				FeatureIndex: featureIndex,
				Leaf:         leafFlag == 1,
				Threshold:    math.Float64frombits(binary.LittleEndian.Uint64(data[off+2:])),
				LeafValue:    math.Float64frombits(binary.LittleEndian.Uint64(data[off+10:])),
			}
			off += nodeSize
		}
		ens.Trees[ti] = forest.Tree{Nodes: nodes}
	}

	return ens, nil
}

// Save encodes the ensemble and writes it to path via a temp file and
// rename, so a crash never leaves a torn model file behind.
func Save(path string, ens *forest.Ensemble) error {
	data, err := Encode(ens)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Chmod(tmpName, modelFilePermission); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// Load reads and decodes a model file. I/O errors propagate as-is; decode
// failures carry ErrCorruptModel.
func Load(path string) (*forest.Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return Decode(data)
}
