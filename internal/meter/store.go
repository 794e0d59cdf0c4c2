package meter

import (
	"context"
	"time"

	"github.com/jgoulah/gridmeter/pkg/models"
)

// ReadingStore persists raw cumulative readings. Readings are append-only.
type ReadingStore interface {
	// InsertReading appends a reading. It returns a *DuplicateTimestampError
	// when the subscriber already has a reading at that second.
	InsertReading(ctx context.Context, r models.RawReading) error

	// PreviousReading returns the latest reading strictly before ts, or nil.
	PreviousReading(ctx context.Context, subscriberID int64, ts time.Time) (*models.RawReading, error)

	// LatestReadings returns up to limit readings at or before ts, newest first.
	LatestReadings(ctx context.Context, subscriberID int64, ts time.Time, limit int) ([]models.RawReading, error)

	// MaxValueBefore returns the largest value recorded strictly before ts.
	MaxValueBefore(ctx context.Context, subscriberID int64, ts time.Time) (float64, bool, error)

	// ValueRange returns the smallest and largest values recorded in [from, to].
	ValueRange(ctx context.Context, subscriberID int64, from, to time.Time) (lo, hi float64, ok bool, err error)

	// ListReadings returns every reading of a subscriber ordered by timestamp.
	ListReadings(ctx context.Context, subscriberID int64) ([]models.RawReading, error)
}

// DeltaStore persists derived hourly deltas.
type DeltaStore interface {
	// InsertDeltas writes the whole batch or nothing.
	InsertDeltas(ctx context.Context, deltas []models.HourlyDelta) error

	// DeltasInRange returns deltas with hour_start in [from, to] ordered by hour.
	DeltasInRange(ctx context.Context, subscriberID int64, from, to time.Time) ([]models.HourlyDelta, error)

	// ListDeltas returns every delta of a subscriber ordered by hour.
	ListDeltas(ctx context.Context, subscriberID int64) ([]models.HourlyDelta, error)
}

// Store is the full Reading/Delta Store contract.
type Store interface {
	ReadingStore
	DeltaStore

	// Purge removes all readings and deltas of a subscriber atomically.
	Purge(ctx context.Context, subscriberID int64) error
}

// TxStore runs fn inside a transaction. If fn returns an error every write
// made through the Store passed to fn is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
