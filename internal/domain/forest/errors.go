package forest

import "errors"

// Sentinel kinds for ensemble errors.
var (
	ErrInsufficientData = errors.New("insufficient data for training")
	ErrUntrained        = errors.New("ensemble is not trained")
)
