package pipeline

import (
	"errors"

	"backtest-gate/internal/prices"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitNoData         = 11 // no input file matched the data pattern
	ExitActivityAbsent = 12 // neither exits nor trade rows
	ExitContract       = 13 // data or trade log violates the input contract
	ExitPredsContract  = 14 // predictions violate the input contract
)

var (
	// ErrNoDataMatched is returned when the data pattern matches no file.
	ErrNoDataMatched = errors.New("no data file matched")

	// ErrActivityAbsent is returned when a run has neither exits nor trade rows.
	ErrActivityAbsent = errors.New("activity absent: no exits and no trade rows")

	// ErrContract is returned when data or trade log checks fail.
	ErrContract = errors.New("input contract failed")

	// ErrPredsContract is returned when the predictions check fails.
	ErrPredsContract = errors.New("predictions contract failed")
)

// ExitCode maps an error returned by this package to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoDataMatched), errors.Is(err, prices.ErrNoSourceMatched):
		return ExitNoData
	case errors.Is(err, ErrActivityAbsent):
		return ExitActivityAbsent
	case errors.Is(err, ErrContract):
		return ExitContract
	case errors.Is(err, ErrPredsContract):
		return ExitPredsContract
	default:
		return ExitFailure
	}
}
