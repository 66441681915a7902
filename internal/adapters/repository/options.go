package repository

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithCapacity sets the per-window record capacity, capped at MaxCapacity.
func WithCapacity(capacity int) Option {
	return func(s *Store) {
		if capacity > 0 && capacity <= MaxCapacity {
			s.capacity = capacity
		}
	}
}

// WithResponseTimeout sets the timeout used to cap recorded response times.
func WithResponseTimeout(seconds float64) Option {
	return func(s *Store) {
		if seconds > 0 {
			s.timeout = seconds
		}
	}
}
