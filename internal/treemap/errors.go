package treemap

import "errors"

var (
	// ErrInvalidInput is returned when the weights view is missing or cannot report its length.
	ErrInvalidInput = errors.New("weights must be a flat sequence of numbers with a known length")
	// ErrUnknownAlgorithm is returned when a layout algorithm name is not recognised.
	ErrUnknownAlgorithm = errors.New("unknown layout algorithm")
)
