package index

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the backing service could not be reached or
	// timed out. Callers may retry with backoff.
	ErrUnavailable = errors.New("similarity index unavailable")

	// ErrInconsistent indicates the index reported state incompatible with
	// the configuration, e.g. a dimension mismatch. Not retryable; requires
	// operator attention.
	ErrInconsistent = errors.New("similarity index inconsistent")

	// ErrUnsupportedField is returned by QueryByMetadata for unknown fields.
	ErrUnsupportedField = errors.New("unsupported metadata field")
)

// DimensionMismatchError indicates a vector whose length does not match the
// index schema. It unwraps to ErrInconsistent.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrInconsistent }
