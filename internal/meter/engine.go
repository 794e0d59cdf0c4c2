package meter

import (
	"context"
	"fmt"
	"time"

	"github.com/jgoulah/gridmeter/pkg/models"
)

// Engine ingests raw readings and derives their hourly deltas.
type Engine struct {
	store   TxStore
	weights WeightTable
	locks   *subscriberLocks
}

// NewEngine creates an engine writing through store with the given weights.
func NewEngine(store TxStore, weights WeightTable) *Engine {
	return &Engine{
		store:   store,
		weights: weights,
		locks:   newSubscriberLocks(),
	}
}

// Weights returns the table the engine apportions with.
func (e *Engine) Weights() WeightTable {
	return e.weights
}

// RecordReading stores a raw reading and the hourly deltas between it and the
// subscriber's previous reading, in one transaction. It returns the deltas
// written, which is empty for a first reading or a gap inside a single hour.
// Ingestions for the same subscriber are serialized.
func (e *Engine) RecordReading(ctx context.Context, subscriberID int64, value float64, ts time.Time) ([]models.HourlyDelta, error) {
	reading := models.RawReading{
		SubscriberID: subscriberID,
		Timestamp:    Naive(ts),
		Value:        value,
	}

	unlock := e.locks.lock(subscriberID)
	defer unlock()

	var batch []models.HourlyDelta
	err := e.store.WithTx(ctx, func(s Store) error {
		if err := s.InsertReading(ctx, reading); err != nil {
			return err
		}

		prev, err := s.PreviousReading(ctx, subscriberID, reading.Timestamp)
		if err != nil {
			return fmt.Errorf("looking up previous reading: %w", err)
		}
		if prev == nil {
			return nil
		}

		deltas := Apportion(*prev, reading, e.weights)
		if len(deltas) == 0 {
			return nil
		}
		if err := s.InsertDeltas(ctx, deltas); err != nil {
			return &ApportionmentWriteError{SubscriberID: subscriberID, Hours: len(deltas), Err: err}
		}
		batch = deltas
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}
