// Package simulate drives the engine with synthetic students so the full
// record/predict/train loop can be exercised without quiz hardware.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	Students   int    // number of synthetic students
	Rounds     int    // questions asked per student per topic
	Topics     []string
	TrainEvery int   // retrain after this many rounds; 0 disables
	Seed       int64 // seed for the answer model
	Verbose    bool  // log every response
}

// Stats holds simulation statistics.
type Stats struct {
	Responses      int
	Correct        int
	Rejected       int
	Trainings      int
	TrainingErrors int
	StartTime      time.Time
	Duration       time.Duration
}

// DefaultTopics are the states used when the caller does not supply any.
func DefaultTopics() []string {
	return []string{"Kerala", "Rajasthan", "Assam", "Goa", "Punjab"}
}
