// Package repository implements the fixed-capacity performance store:
// one FIFO ring buffer of response records per (student, topic) pair.
package repository

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/okian/geoquiz/internal/domain/model"
	"github.com/okian/geoquiz/pkg/metrics"
)

// Default store configuration constants.
const (
	// MaxCapacity is the hard upper bound on records per window.
	MaxCapacity = 50

	defaultCapacity = 50
	defaultTimeout  = 300.0 // seconds
)

// pairKey identifies one performance window.
type pairKey struct {
	student string
	topic   string
}

// ringWindow is a fixed-capacity FIFO buffer. Eviction precedes overflow,
// so a capacity violation is impossible by construction.
type ringWindow struct {
	records  []model.ResponseRecord
	head     int // index of the oldest record
	size     int
	appended int // lifetime count, drives the attempt ordinal
}

func (w *ringWindow) push(rec model.ResponseRecord) {
	capacity := len(w.records)
	if w.size == capacity {
		// Overwrite the oldest slot.
		w.records[w.head] = rec
		w.head = (w.head + 1) % capacity
	} else {
		w.records[(w.head+w.size)%capacity] = rec
		w.size++
	}
	w.appended++
}

// snapshot returns the window contents oldest-first.
func (w *ringWindow) snapshot() []model.ResponseRecord {
	out := make([]model.ResponseRecord, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.records[(w.head+i)%len(w.records)]
	}
	return out
}

// Store holds all performance windows for the process. Windows are created
// lazily on first response and live until an explicit reset.
type Store struct {
	mu       sync.RWMutex
	windows  map[pairKey]*ringWindow
	capacity int
	timeout  float64
}

// New creates a Store with configuration options.
func New(opts ...Option) *Store {
	s := &Store{
		windows:  make(map[pairKey]*ringWindow),
		capacity: defaultCapacity,
		timeout:  defaultTimeout,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Capacity returns the per-window record capacity.
func (s *Store) Capacity() int { return s.capacity }

// Record validates and appends a response record to the (student, topic)
// window, evicting the oldest record at capacity. The attempt ordinal is
// assigned by the store. Malformed input returns ErrInvalidRecord and
// leaves the window untouched.
func (s *Store) Record(ctx context.Context, studentID, topicID string, rec model.ResponseRecord) error {
	if studentID == "" || topicID == "" {
		return fmt.Errorf("%w: empty student or topic id", ErrInvalidRecord)
	}
	if rec.ResponseTime < 0 || math.IsNaN(rec.ResponseTime) {
		return fmt.Errorf("%w: negative response time %.2f", ErrInvalidRecord, rec.ResponseTime)
	}
	if !model.ValidDifficulty(rec.Difficulty) {
		return fmt.Errorf("%w: difficulty %.2f off scale", ErrInvalidRecord, rec.Difficulty)
	}

	rec.TopicID = topicID
	rec.ResponseTime = math.Min(rec.ResponseTime, s.timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{student: studentID, topic: topicID}
	w, ok := s.windows[key]
	if !ok {
		w = &ringWindow{records: make([]model.ResponseRecord, s.capacity)}
		s.windows[key] = w
	}
	rec.Attempt = w.appended + 1
	w.push(rec)

	metrics.UpdateTrackedWindows(len(s.windows))
	metrics.UpdateStoredRecords(s.totalLocked())

	return nil
}

// Window returns the current bounded sequence for the pair, oldest first.
// An unseen pair yields an empty slice.
func (s *Store) Window(ctx context.Context, studentID, topicID string) []model.ResponseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[pairKey{student: studentID, topic: topicID}]
	if !ok {
		return nil
	}
	return w.snapshot()
}

// HasMinimumData reports whether the pair's window holds at least threshold
// records. A threshold below one is treated as one.
func (s *Store) HasMinimumData(ctx context.Context, studentID, topicID string, threshold int) bool {
	if threshold < 1 {
		threshold = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[pairKey{student: studentID, topic: topicID}]
	return ok && w.size >= threshold
}

// Windows returns a snapshot of every tracked window, for training.
// No cross-pair ordering is guaranteed.
func (s *Store) Windows(ctx context.Context) [][]model.ResponseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]model.ResponseRecord, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w.snapshot())
	}
	return out
}

// TotalRecords returns the record count across all windows.
func (s *Store) TotalRecords(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalLocked()
}

func (s *Store) totalLocked() int {
	total := 0
	for _, w := range s.windows {
		total += w.size
	}
	return total
}

// Count returns the number of tracked (student, topic) windows.
func (s *Store) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

// Reset drops every window belonging to the student.
func (s *Store) Reset(ctx context.Context, studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.windows {
		if key.student == studentID {
			delete(s.windows, key)
		}
	}

	metrics.UpdateTrackedWindows(len(s.windows))
	metrics.UpdateStoredRecords(s.totalLocked())
}

// ResetTopic drops the single window for the (student, topic) pair.
func (s *Store) ResetTopic(ctx context.Context, studentID, topicID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, pairKey{student: studentID, topic: topicID})

	metrics.UpdateTrackedWindows(len(s.windows))
	metrics.UpdateStoredRecords(s.totalLocked())
}
