package meter

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateTimestamp is returned when a subscriber already has a raw
	// reading at the exact same second. The reading is rejected, never overwritten.
	ErrDuplicateTimestamp = errors.New("duplicate reading timestamp")

	// ErrApportionmentWrite is returned when the hourly delta batch could not be
	// persisted. The raw reading written in the same transaction is rolled back.
	ErrApportionmentWrite = errors.New("writing hourly deltas failed")

	// ErrInsufficientHistory is returned by statistics that need at least two readings.
	ErrInsufficientHistory = errors.New("not enough readings")

	// ErrInvalidTimestamp is returned when a time of day or date cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidWeights is returned for a malformed time-of-day weight table.
	ErrInvalidWeights = errors.New("invalid weight table")
)

// DuplicateTimestampError identifies the reading that already exists.
type DuplicateTimestampError struct {
	SubscriberID int64
	Timestamp    time.Time
}

func (e *DuplicateTimestampError) Error() string {
	return fmt.Sprintf("reading already exists for subscriber %d at %s",
		e.SubscriberID, e.Timestamp.Format(TimestampLayout))
}

func (e *DuplicateTimestampError) Unwrap() error {
	return ErrDuplicateTimestamp
}

// ApportionmentWriteError wraps the store failure that aborted an ingestion.
type ApportionmentWriteError struct {
	SubscriberID int64
	Hours        int
	Err          error
}

func (e *ApportionmentWriteError) Error() string {
	return fmt.Sprintf("writing %d hourly deltas for subscriber %d: %v", e.Hours, e.SubscriberID, e.Err)
}

func (e *ApportionmentWriteError) Unwrap() []error {
	return []error{ErrApportionmentWrite, e.Err}
}

// IsClientError reports whether err was caused by the caller's input rather
// than by the storage layer.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicateTimestamp) ||
		errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrInvalidTimestamp)
}
