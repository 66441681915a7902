package codec_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/geoquiz/internal/adapters/codec"
	"github.com/okian/geoquiz/internal/domain/forest"
	"github.com/okian/geoquiz/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// ShouldNotWrap asserts that the actual error does not wrap the expected
// target per errors.Is. goconvey provides ShouldWrap but no negation.
func ShouldNotWrap(actual any, expected ...any) string {
	if len(expected) != 1 {
		return fmt.Sprintf("ShouldNotWrap expects exactly one target error, got %d", len(expected))
	}
	err, ok := actual.(error)
	if !ok {
		return fmt.Sprintf("ShouldNotWrap expects an error as actual, got %T", actual)
	}
	target, ok := expected[0].(error)
	if !ok {
		return fmt.Sprintf("ShouldNotWrap expects an error as target, got %T", expected[0])
	}
	if errors.Is(err, target) {
		return fmt.Sprintf("expected error %q not to wrap %q, but it does", err, target)
	}
	return ""
}

// fixtureEnsemble builds a small trained forest with full node arrays, the
// shape the trainer produces.
func fixtureEnsemble() *forest.Ensemble {
	depth := 2
	trees := make([]forest.Tree, 3)
	for ti := range trees {
		nodes := make([]forest.Node, forest.NodesForDepth(depth))
		nodes[0] = forest.Node{FeatureIndex: model.FeatureAccuracy, Threshold: 0.5}
		nodes[1] = forest.Node{FeatureIndex: model.FeatureMeanResponseTime, Threshold: 0.25}
		nodes[2] = forest.Node{Leaf: true, LeafValue: 6.0 + float64(ti)*0.5}
		nodes[3] = forest.Node{Leaf: true, LeafValue: 3.5}
		nodes[4] = forest.Node{Leaf: true, LeafValue: 4.5}
		trees[ti] = forest.Tree{Nodes: nodes}
	}
	return &forest.Ensemble{Trees: trees, MaxDepth: depth, Trained: true, Version: 7}
}

func TestEncodeDecode(t *testing.T) {
	Convey("Given a trained ensemble", t, func() {
		ens := fixtureEnsemble()

		Convey("When encoded and decoded", func() {
			data, err := codec.Encode(ens)
			So(err, ShouldBeNil)
			So(len(data), ShouldEqual, codec.Size(len(ens.Trees), ens.MaxDepth))

			got, err := codec.Decode(data)
			So(err, ShouldBeNil)

			Convey("Then the structure round-trips exactly", func() {
				So(got.Version, ShouldEqual, ens.Version)
				So(got.Trained, ShouldBeTrue)
				So(got.MaxDepth, ShouldEqual, ens.MaxDepth)
				So(got.Trees, ShouldResemble, ens.Trees)
			})

			Convey("And predictions are bit-identical", func() {
				vectors := []model.FeatureVector{
					{model.FeatureAccuracy: 0.2, model.FeatureMeanResponseTime: 0.1},
					{model.FeatureAccuracy: 0.2, model.FeatureMeanResponseTime: 0.9},
					{model.FeatureAccuracy: 0.8},
					model.SentinelFeatures(),
				}
				for _, fv := range vectors {
					want, werr := ens.Predict(fv)
					have, herr := got.Predict(fv)
					So(werr, ShouldBeNil)
					So(herr, ShouldBeNil)
					So(have, ShouldEqual, want)
				}
			})
		})

		Convey("When encoding an untrained ensemble", func() {
			data, err := codec.Encode(forest.Untrained())
			So(err, ShouldBeNil)

			got, derr := codec.Decode(data)

			Convey("Then it decodes back untrained with no trees", func() {
				So(derr, ShouldBeNil)
				So(got.Trained, ShouldBeFalse)
				So(got.Trees, ShouldBeEmpty)
				So(got.Version, ShouldEqual, 0)
			})
		})

		Convey("When a tree's node array does not match the depth", func() {
			bad := fixtureEnsemble()
			bad.Trees[1].Nodes = bad.Trees[1].Nodes[:3]
			_, err := codec.Encode(bad)

			Convey("Then encoding refuses", func() {
				So(err, ShouldWrap, codec.ErrCorruptModel)
			})
		})
	})
}

func TestDecodeRejectsCorruption(t *testing.T) {
	Convey("Given a valid encoded model", t, func() {
		data, err := codec.Encode(fixtureEnsemble())
		So(err, ShouldBeNil)

		tamper := func(mutate func([]byte)) []byte {
			cp := make([]byte, len(data))
			copy(cp, data)
			mutate(cp)
			return cp
		}

		Convey("When the tree count header claims 999 trees", func() {
			bad := tamper(func(b []byte) { binary.LittleEndian.PutUint16(b[6:], 999) })
			_, err := codec.Decode(bad)

			Convey("Then decoding fails before any allocation", func() {
				So(err, ShouldWrap, codec.ErrCorruptModel)
			})
		})

		Convey("When the magic is wrong", func() {
			bad := tamper(func(b []byte) { binary.LittleEndian.PutUint32(b[0:], 0xdeadbeef) })
			_, err := codec.Decode(bad)
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})

		Convey("When the format version is unknown", func() {
			bad := tamper(func(b []byte) { binary.LittleEndian.PutUint16(b[4:], 42) })
			_, err := codec.Decode(bad)
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})

		Convey("When the depth is outside its bounds", func() {
			for _, depth := range []uint16{0, 9} {
				bad := tamper(func(b []byte) { binary.LittleEndian.PutUint16(b[8:], depth) })
				_, err := codec.Decode(bad)
				So(err, ShouldWrap, codec.ErrCorruptModel)
			}
		})

		Convey("When the payload is truncated", func() {
			_, err := codec.Decode(data[:len(data)-5])
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})

		Convey("When the payload is shorter than the header", func() {
			_, err := codec.Decode(data[:7])
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})

		Convey("When trailing garbage follows the nodes", func() {
			_, err := codec.Decode(append(append([]byte{}, data...), 0x00))
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})

		Convey("When a node carries an out-of-range feature index", func() {
			bad := tamper(func(b []byte) { b[16] = model.FeatureCount })
			_, err := codec.Decode(bad)
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})

		Convey("When the trained flag claims trees it does not have", func() {
			hdr := make([]byte, codec.Size(0, 2))
			copy(hdr, data[:16])
			binary.LittleEndian.PutUint16(hdr[6:], 0)
			_, err := codec.Decode(hdr)
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})
	})
}

func TestSaveLoad(t *testing.T) {
	Convey("Given a model file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "model.bin")
		ens := fixtureEnsemble()

		Convey("When saved and loaded", func() {
			So(codec.Save(path, ens), ShouldBeNil)
			got, err := codec.Load(path)

			Convey("Then the ensemble survives the round trip", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, ens)
			})

			Convey("And no temp files are left behind", func() {
				entries, rerr := os.ReadDir(dir)
				So(rerr, ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Name(), ShouldEqual, "model.bin")
			})
		})

		Convey("When saving over an existing file", func() {
			So(codec.Save(path, ens), ShouldBeNil)
			ens.Version = 8
			So(codec.Save(path, ens), ShouldBeNil)

			got, err := codec.Load(path)
			So(err, ShouldBeNil)
			So(got.Version, ShouldEqual, 8)
		})

		Convey("When the file does not exist", func() {
			_, err := codec.Load(filepath.Join(dir, "missing.bin"))

			Convey("Then the I/O error propagates without ErrCorruptModel", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldNotWrap, codec.ErrCorruptModel)
			})
		})

		Convey("When the file holds garbage", func() {
			So(os.WriteFile(path, []byte("not a model"), 0o600), ShouldBeNil)
			_, err := codec.Load(path)
			So(err, ShouldWrap, codec.ErrCorruptModel)
		})
	})
}
