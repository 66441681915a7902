package simulate

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Answer model constants.
const (
	// skillScale controls how sharply correctness probability falls off as
	// presented difficulty exceeds latent skill.
	skillScale = 1.5

	minSkill   = 2.0
	skillRange = 7.0

	baseTimeMin   = 5.0 // seconds
	baseTimeRange = 20.0
	timeNoise     = 4.0
)

// Student is a synthetic quiz taker with a latent per-topic skill on the
// difficulty scale and a personal base response time.
type Student struct {
	ID       string
	Skill    map[string]float64
	BaseTime float64
}

// newStudents generates students with unique IDs and randomized skills.
func newStudents(rng *rand.Rand, count int, topics []string) []Student {
	students := make([]Student, count)
	for i := range students {
		skill := make(map[string]float64, len(topics))
		for _, topic := range topics {
			skill[topic] = minSkill + rng.Float64()*skillRange
		}
		students[i] = Student{
			ID:       uuid.New().String(),
			Skill:    skill,
			BaseTime: baseTimeMin + rng.Float64()*baseTimeRange,
		}
	}
	return students
}

// answer simulates one question: a logistic curve on the skill/difficulty
// gap decides correctness, and harder questions take longer.
func (s *Student) answer(rng *rand.Rand, topic string, difficulty float64) (bool, float64) {
	gap := (difficulty - s.Skill[topic]) / skillScale
	pCorrect := 1.0 / (1.0 + math.Exp(gap))
	correct := rng.Float64() < pCorrect

	responseTime := s.BaseTime + difficulty + rng.Float64()*timeNoise
	if !correct {
		// Misses tend to come after longer deliberation.
		responseTime += s.BaseTime / 2
	}
	return correct, responseTime
}
