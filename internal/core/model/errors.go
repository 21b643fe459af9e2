package model

import "errors"

// Error taxonomy. Per-record failures wrap ErrInvalidInput and are skipped
// and logged; only ErrInvalidConfiguration aborts a run. Oracle failures
// degrade to conservative no-action paths.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrOracleUnavailable    = errors.New("oracle unavailable")
)
