package codec

import "errors"

// Sentinel kinds for model codec errors.
var (
	ErrCorruptModel = errors.New("corrupt model data")
)
