package covertree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/covertree/internal/pointstore"
	"github.com/hupe1980/covertree/internal/tree"
	"github.com/hupe1980/covertree/persistence"
)

var (
	// ErrInvalidInput is returned for malformed points, queries or options.
	ErrInvalidInput = errors.New("covertree: invalid input")

	// ErrInvalidK is returned when k is not positive, or when SpreadOut is
	// asked for more seeds than there are live points.
	ErrInvalidK = fmt.Errorf("%w: invalid k", ErrInvalidInput)

	// ErrNotFound is returned for unknown or removed identities, missing
	// snapshots and queries against a tree without live points.
	ErrNotFound = errors.New("covertree: not found")

	// ErrCorruptData is returned when a snapshot fails validation.
	ErrCorruptData = errors.New("covertree: corrupt data")

	// ErrIndexAnomaly tags log records for out-of-range identities that a
	// query produced and that were replaced. It is never returned.
	ErrIndexAnomaly = errors.New("covertree: index anomaly")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("covertree: tree is closed")
)

// ErrDimensionMismatch indicates a point or query of the wrong length.
// It matches ErrInvalidInput with errors.Is.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	// Row is the offending row of a batch, or -1 for single vectors.
	Row   int
	cause error
}

func (e *ErrDimensionMismatch) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("covertree: dimension mismatch at row %d: expected %d, got %d", e.Row, e.Expected, e.Actual)
	}
	return fmt.Sprintf("covertree: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.cause}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *pointstore.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, Row: dm.Row, cause: err}
	}

	switch {
	case errors.Is(err, tree.ErrNotFound), errors.Is(err, tree.ErrEmpty):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, tree.ErrInvalidK):
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	case errors.Is(err, tree.ErrInvalidBase),
		errors.Is(err, tree.ErrInvalidTruncation),
		errors.Is(err, pointstore.ErrEmpty),
		errors.Is(err, pointstore.ErrNonFinite),
		errors.Is(err, pointstore.ErrInvalidDimension),
		errors.Is(err, pointstore.ErrFull):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, persistence.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	return err
}

// withRow attaches a batch row to a dimension mismatch.
func withRow(err error, row int) error {
	var dm *ErrDimensionMismatch
	if errors.As(err, &dm) {
		dm.Row = row
		return dm
	}
	return fmt.Errorf("row %d: %w", row, err)
}
