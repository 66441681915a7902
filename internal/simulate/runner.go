package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/geoquiz/internal/app"
	"github.com/okian/geoquiz/internal/domain/forest"
	"github.com/okian/geoquiz/pkg/logger"
)

// Run executes a complete simulation against the engine: every round asks
// each student one question per topic at the engine's suggested difficulty,
// records the outcome, and periodically retrains.
func Run(ctx context.Context, engine *app.Engine, config *Config) (*Stats, error) {
	if config.Students < 1 || config.Rounds < 1 {
		return nil, fmt.Errorf("simulation needs at least one student and one round")
	}
	topics := config.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}

	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	log.Info(ctx, "starting simulation",
		logger.Int("students", config.Students),
		logger.Int("rounds", config.Rounds),
		logger.Int("topics", len(topics)),
		logger.Int("trainEvery", config.TrainEvery),
	)

	rng := rand.New(rand.NewSource(config.Seed)) //nolint:gosec // reproducible simulation
	students := newStudents(rng, config.Students, topics)

	for round := 0; round < config.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("simulation interrupted: %w", err)
		}

		for si := range students {
			student := &students[si]
			for _, topic := range topics {
				difficulty := engine.Difficulty(ctx, student.ID, topic)
				correct, responseTime := student.answer(rng, topic, difficulty)

				if err := engine.RecordResponse(ctx, student.ID, topic, difficulty, correct, responseTime); err != nil {
					stats.Rejected++
					continue
				}
				stats.Responses++
				if correct {
					stats.Correct++
				}

				if config.Verbose {
					log.Debug(ctx, "response recorded",
						logger.String("student", student.ID),
						logger.String("topic", topic),
						logger.Float64("difficulty", difficulty),
						logger.Bool("correct", correct),
						logger.Float64("responseTime", responseTime),
					)
				}
			}
		}

		if config.TrainEvery > 0 && (round+1)%config.TrainEvery == 0 {
			if err := engine.TrainNow(ctx); err != nil {
				stats.TrainingErrors++
				if !errors.Is(err, forest.ErrInsufficientData) {
					return stats, fmt.Errorf("training failed: %w", err)
				}
			} else {
				stats.Trainings++
			}
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	reportTrajectories(ctx, engine, students, topics, log)

	log.Info(ctx, "simulation finished",
		logger.Int("responses", stats.Responses),
		logger.Int("correct", stats.Correct),
		logger.Int("rejected", stats.Rejected),
		logger.Int("trainings", stats.Trainings),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

// reportTrajectories logs where each student's difficulty settled against
// their latent skill, a quick sanity read on the adaptation loop.
func reportTrajectories(ctx context.Context, engine *app.Engine, students []Student, topics []string, log logger.Logger) {
	for si := range students {
		student := &students[si]
		for _, topic := range topics {
			served := engine.Difficulty(ctx, student.ID, topic)
			log.Debug(ctx, "trajectory",
				logger.String("student", student.ID),
				logger.String("topic", topic),
				logger.Float64("skill", student.Skill[topic]),
				logger.Float64("difficulty", served),
			)
		}
	}
}
