package common

import "errors"

// Core error taxonomy. Callers classify failures with errors.Is.
var (
	// ErrInvalidConfiguration indicates bad weights, chunk/overlap settings,
	// or vector dimensions. Always fatal to the call, never silently corrected.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDataUnavailable indicates a trailing window with zero observations.
	// The aggregator recovers by substituting the neutral default and marking
	// the snapshot partial.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrDimensionMismatch indicates an embedding vector of the wrong size.
	// Fatal to the specific upsert/query call.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrTimeout indicates a dimension computation or index query exceeded its
	// bound. Aggregation treats it as ErrDataUnavailable; direct calls surface it.
	ErrTimeout = errors.New("operation timed out")
)
