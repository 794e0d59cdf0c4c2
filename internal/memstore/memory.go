// Package memstore provides an in-memory Reading/Delta Store for tests and dry runs.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
)

// Memory keeps readings and deltas per subscriber, sorted by time.
type Memory struct {
	mu   sync.RWMutex
	data *tables

	// FailDeltas, when set, makes every InsertDeltas call return it.
	FailDeltas error
}

type tables struct {
	readings map[int64][]models.RawReading
	deltas   map[int64][]models.HourlyDelta
}

func newTables() *tables {
	return &tables{
		readings: make(map[int64][]models.RawReading),
		deltas:   make(map[int64][]models.HourlyDelta),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.readings {
		c.readings[k] = slices.Clone(v)
	}
	for k, v := range t.deltas {
		c.deltas[k] = slices.Clone(v)
	}
	return c
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{data: newTables()}
}

var _ meter.TxStore = (*Memory)(nil)

// WithTx runs fn against a private copy and publishes it only if fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(meter.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &txView{parent: m, data: m.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.data = tx.data
	return nil
}

// InsertReading stores r. A second reading at the same instant is a DuplicateTimestampError.
func (m *Memory) InsertReading(ctx context.Context, r models.RawReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return insertReading(m.data, r)
}

// InsertDeltas stores a batch of deltas, all or nothing.
func (m *Memory) InsertDeltas(ctx context.Context, deltas []models.HourlyDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeltas != nil {
		return m.FailDeltas
	}
	return insertDeltas(m.data, deltas)
}

// PreviousReading returns the latest reading strictly before ts, or nil.
func (m *Memory) PreviousReading(ctx context.Context, subscriberID int64, ts time.Time) (*models.RawReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return previousReading(m.data, subscriberID, ts), nil
}

// LatestReadings returns up to limit readings at or before ts, newest first.
func (m *Memory) LatestReadings(ctx context.Context, subscriberID int64, ts time.Time, limit int) ([]models.RawReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return latestReadings(m.data, subscriberID, ts, limit), nil
}

// MaxValueBefore returns the largest value recorded before ts.
func (m *Memory) MaxValueBefore(ctx context.Context, subscriberID int64, ts time.Time) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := maxValueBefore(m.data, subscriberID, ts)
	return v, ok, nil
}

// ValueRange returns the min and max values recorded between from and to inclusive.
func (m *Memory) ValueRange(ctx context.Context, subscriberID int64, from, to time.Time) (float64, float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo, hi, ok := valueRange(m.data, subscriberID, from, to)
	return lo, hi, ok, nil
}

// ListReadings returns every reading of a subscriber ordered by time.
func (m *Memory) ListReadings(ctx context.Context, subscriberID int64) ([]models.RawReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data.readings[subscriberID]), nil
}

// DeltasInRange returns the deltas whose hour start lies between from and to inclusive.
func (m *Memory) DeltasInRange(ctx context.Context, subscriberID int64, from, to time.Time) ([]models.HourlyDelta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deltasInRange(m.data, subscriberID, from, to), nil
}

// ListDeltas returns every hourly delta of a subscriber ordered by hour.
func (m *Memory) ListDeltas(ctx context.Context, subscriberID int64) ([]models.HourlyDelta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data.deltas[subscriberID]), nil
}

// Purge removes all readings and deltas of a subscriber.
func (m *Memory) Purge(ctx context.Context, subscriberID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data.readings, subscriberID)
	delete(m.data.deltas, subscriberID)
	return nil
}

// txView is the Store handed to WithTx callbacks. The parent lock is held.
type txView struct {
	parent *Memory
	data   *tables
}

func (t *txView) InsertReading(ctx context.Context, r models.RawReading) error {
	return insertReading(t.data, r)
}

func (t *txView) InsertDeltas(ctx context.Context, deltas []models.HourlyDelta) error {
	if t.parent.FailDeltas != nil {
		return t.parent.FailDeltas
	}
	return insertDeltas(t.data, deltas)
}

func (t *txView) PreviousReading(ctx context.Context, subscriberID int64, ts time.Time) (*models.RawReading, error) {
	return previousReading(t.data, subscriberID, ts), nil
}

func (t *txView) LatestReadings(ctx context.Context, subscriberID int64, ts time.Time, limit int) ([]models.RawReading, error) {
	return latestReadings(t.data, subscriberID, ts, limit), nil
}

func (t *txView) MaxValueBefore(ctx context.Context, subscriberID int64, ts time.Time) (float64, bool, error) {
	v, ok := maxValueBefore(t.data, subscriberID, ts)
	return v, ok, nil
}

func (t *txView) ValueRange(ctx context.Context, subscriberID int64, from, to time.Time) (float64, float64, bool, error) {
	lo, hi, ok := valueRange(t.data, subscriberID, from, to)
	return lo, hi, ok, nil
}

func (t *txView) ListReadings(ctx context.Context, subscriberID int64) ([]models.RawReading, error) {
	return slices.Clone(t.data.readings[subscriberID]), nil
}

func (t *txView) DeltasInRange(ctx context.Context, subscriberID int64, from, to time.Time) ([]models.HourlyDelta, error) {
	return deltasInRange(t.data, subscriberID, from, to), nil
}

func (t *txView) ListDeltas(ctx context.Context, subscriberID int64) ([]models.HourlyDelta, error) {
	return slices.Clone(t.data.deltas[subscriberID]), nil
}

func (t *txView) Purge(ctx context.Context, subscriberID int64) error {
	delete(t.data.readings, subscriberID)
	delete(t.data.deltas, subscriberID)
	return nil
}

func insertReading(t *tables, r models.RawReading) error {
	r.Timestamp = meter.Naive(r.Timestamp)
	rs := t.readings[r.SubscriberID]
	i, found := slices.BinarySearchFunc(rs, r.Timestamp, func(e models.RawReading, ts time.Time) int {
		return e.Timestamp.Compare(ts)
	})
	if found {
		return &meter.DuplicateTimestampError{SubscriberID: r.SubscriberID, Timestamp: r.Timestamp}
	}
	t.readings[r.SubscriberID] = slices.Insert(rs, i, r)
	return nil
}

// insertDeltas checks the whole batch for key conflicts before writing any of it.
func insertDeltas(t *tables, deltas []models.HourlyDelta) error {
	staged := make(map[int64][]models.HourlyDelta)
	for _, d := range deltas {
		d.HourStart = meter.Naive(d.HourStart)
		ds, ok := staged[d.SubscriberID]
		if !ok {
			ds = slices.Clone(t.deltas[d.SubscriberID])
		}
		i, found := slices.BinarySearchFunc(ds, d.HourStart, func(e models.HourlyDelta, h time.Time) int {
			return e.HourStart.Compare(h)
		})
		if found {
			return &DuplicateHourError{SubscriberID: d.SubscriberID, HourStart: d.HourStart}
		}
		staged[d.SubscriberID] = slices.Insert(ds, i, d)
	}
	for id, ds := range staged {
		t.deltas[id] = ds
	}
	return nil
}

func previousReading(t *tables, subscriberID int64, ts time.Time) *models.RawReading {
	ts = meter.Naive(ts)
	rs := t.readings[subscriberID]
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].Timestamp.Before(ts) {
			r := rs[i]
			return &r
		}
	}
	return nil
}

func latestReadings(t *tables, subscriberID int64, ts time.Time, limit int) []models.RawReading {
	ts = meter.Naive(ts)
	rs := t.readings[subscriberID]
	var out []models.RawReading
	for i := len(rs) - 1; i >= 0 && len(out) < limit; i-- {
		if !rs[i].Timestamp.After(ts) {
			out = append(out, rs[i])
		}
	}
	return out
}

func maxValueBefore(t *tables, subscriberID int64, ts time.Time) (float64, bool) {
	ts = meter.Naive(ts)
	var maxV float64
	found := false
	for _, r := range t.readings[subscriberID] {
		if !r.Timestamp.Before(ts) {
			break
		}
		if !found || r.Value > maxV {
			maxV = r.Value
			found = true
		}
	}
	return maxV, found
}

func valueRange(t *tables, subscriberID int64, from, to time.Time) (float64, float64, bool) {
	from, to = meter.Naive(from), meter.Naive(to)
	var lo, hi float64
	found := false
	for _, r := range t.readings[subscriberID] {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		if !found {
			lo, hi, found = r.Value, r.Value, true
			continue
		}
		lo = min(lo, r.Value)
		hi = max(hi, r.Value)
	}
	return lo, hi, found
}

func deltasInRange(t *tables, subscriberID int64, from, to time.Time) []models.HourlyDelta {
	from, to = meter.Naive(from), meter.Naive(to)
	var out []models.HourlyDelta
	for _, d := range t.deltas[subscriberID] {
		if d.HourStart.Before(from) || d.HourStart.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out
}
