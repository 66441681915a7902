package simulate

import (
	"context"
	"math/rand"
	"testing"

	"github.com/okian/geoquiz/internal/app"
	"github.com/okian/geoquiz/internal/domain/model"
	"github.com/okian/geoquiz/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewStudents(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		rng := rand.New(rand.NewSource(3)) //nolint:gosec // deterministic test
		topics := []string{"Kerala", "Goa"}

		Convey("When generating students", func() {
			students := newStudents(rng, 5, topics)

			Convey("Then each has a unique ID and per-topic skills on the scale", func() {
				seen := make(map[string]bool, len(students))
				for _, s := range students {
					So(seen[s.ID], ShouldBeFalse)
					seen[s.ID] = true
					So(len(s.Skill), ShouldEqual, 2)
					for _, skill := range s.Skill {
						So(skill, ShouldBeBetweenOrEqual, minSkill, minSkill+skillRange)
					}
					So(s.BaseTime, ShouldBeGreaterThanOrEqualTo, baseTimeMin)
				}
			})
		})
	})
}

func TestAnswer(t *testing.T) {
	Convey("Given a student with a known skill", t, func() {
		rng := rand.New(rand.NewSource(9)) //nolint:gosec // deterministic test
		student := Student{
			ID:       "s",
			Skill:    map[string]float64{"Kerala": 8.0},
			BaseTime: 10,
		}

		Convey("When asked far below their skill", func() {
			correct := 0
			for i := 0; i < 100; i++ {
				ok, rt := student.answer(rng, "Kerala", 1.0)
				if ok {
					correct++
				}
				So(rt, ShouldBeGreaterThan, 0)
			}

			Convey("Then they almost always answer correctly", func() {
				So(correct, ShouldBeGreaterThan, 90)
			})
		})

		Convey("When asked far above their skill", func() {
			correct := 0
			for i := 0; i < 100; i++ {
				if ok, _ := student.answer(rng, "Kerala", 10.0); ok {
					correct++
				}
			}

			Convey("Then they rarely answer correctly", func() {
				So(correct, ShouldBeLessThan, 40)
			})
		})
	})
}

func TestRun(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Convey("Given an engine and a small simulation", t, func() {
		ctx := context.Background()
		engine := app.New(
			app.WithEstimators(5),
			app.WithMaxDepth(3),
		)

		Convey("When running two students for six rounds over two topics", func() {
			stats, err := Run(ctx, engine, &Config{
				Students:   2,
				Rounds:     6,
				Topics:     []string{"Kerala", "Goa"},
				TrainEvery: 3,
				Seed:       1,
			})

			Convey("Then every question produces a recorded response", func() {
				So(err, ShouldBeNil)
				So(stats.Responses, ShouldEqual, 2*6*2)
				So(stats.Rejected, ShouldEqual, 0)
				So(stats.Correct, ShouldBeBetweenOrEqual, 0, stats.Responses)
			})

			Convey("And the engine trains along the way", func() {
				So(err, ShouldBeNil)
				So(stats.Trainings, ShouldBeGreaterThanOrEqualTo, 1)
				So(engine.Stats(ctx)["trained"], ShouldBeTrue)
			})

			Convey("And served difficulties stay on the scale", func() {
				So(err, ShouldBeNil)
				for _, topic := range []string{"Kerala", "Goa"} {
					d := engine.Difficulty(ctx, "unseen-student", topic)
					So(model.ValidDifficulty(d), ShouldBeTrue)
				}
			})
		})

		Convey("When the configuration is empty", func() {
			_, err := Run(ctx, engine, &Config{})

			Convey("Then the run is refused", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := Run(cancelled, engine, &Config{Students: 1, Rounds: 3, Seed: 1})

			Convey("Then the simulation stops early", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
