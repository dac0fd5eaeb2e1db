package types

import "errors"

// Sentinel errors shared across packages. Callers wrap them with %w and match
// with errors.Is.
var (
	// ErrInvalidInput marks malformed numeric input to a pure function.
	// Always a programming or config error; never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientLiquidity means a trade size exceeds modeled depth.
	// Skip this size/direction for the tick; not fatal.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrStaleData means a snapshot's age exceeds its freshness threshold.
	ErrStaleData = errors.New("stale data")

	// ErrCrossedBook means an update arrived with bid >= ask. The update is
	// rejected and the prior book state retained.
	ErrCrossedBook = errors.New("crossed book")
)
