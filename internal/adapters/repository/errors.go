package repository

import "errors"

// Sentinel kinds for performance store errors.
var (
	ErrInvalidRecord = errors.New("invalid response record")
)
