package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func hour(day, h int) time.Time {
	return time.Date(2024, time.March, day, h, 0, 0, 0, time.UTC)
}

func TestInsertReadingRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	r := models.RawReading{SubscriberID: 1, Timestamp: hour(5, 9), Value: 100}
	require.NoError(t, db.InsertReading(ctx, r))

	r.Value = 200
	err := db.InsertReading(ctx, r)
	require.ErrorIs(t, err, meter.ErrDuplicateTimestamp)

	var dup *meter.DuplicateTimestampError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, hour(5, 9), dup.Timestamp)

	readings, err := db.ListReadings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 100.0, readings[0].Value)
}

func TestReadingQueries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, r := range []models.RawReading{
		{SubscriberID: 1, Timestamp: time.Date(2024, 2, 27, 8, 0, 0, 0, time.UTC), Value: 400},
		{SubscriberID: 1, Timestamp: time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC), Value: 410},
		{SubscriberID: 1, Timestamp: hour(2, 8), Value: 430},
		{SubscriberID: 1, Timestamp: hour(4, 8), Value: 425},
		{SubscriberID: 1, Timestamp: hour(9, 8), Value: 470},
		{SubscriberID: 2, Timestamp: hour(3, 8), Value: 9999},
	} {
		require.NoError(t, db.InsertReading(ctx, r))
	}

	prev, err := db.PreviousReading(ctx, 1, hour(4, 8))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, hour(2, 8), prev.Timestamp)
	assert.Equal(t, 430.0, prev.Value)

	prev, err = db.PreviousReading(ctx, 2, hour(3, 8))
	require.NoError(t, err)
	assert.Nil(t, prev)

	latest, err := db.LatestReadings(ctx, 1, hour(4, 8), 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, 425.0, latest[0].Value)
	assert.Equal(t, 430.0, latest[1].Value)

	maxV, ok, err := db.MaxValueBefore(ctx, 1, hour(1, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 410.0, maxV)

	_, ok, err = db.MaxValueBefore(ctx, 2, hour(1, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	lo, hi, ok, err := db.ValueRange(ctx, 1, hour(1, 0), hour(5, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 425.0, lo)
	assert.Equal(t, 430.0, hi)

	_, _, ok, err = db.ValueRange(ctx, 1, hour(20, 0), hour(25, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertDeltasIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.InsertDeltas(ctx, []models.HourlyDelta{
		{SubscriberID: 1, HourStart: hour(5, 11), Delta: 1},
	}))

	err := db.InsertDeltas(ctx, []models.HourlyDelta{
		{SubscriberID: 1, HourStart: hour(5, 10), Delta: 2},
		{SubscriberID: 1, HourStart: hour(5, 11), Delta: 3},
	})
	require.Error(t, err)

	deltas, err := db.ListDeltas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, hour(5, 11), deltas[0].HourStart)
}

func TestDeltasInRange(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var batch []models.HourlyDelta
	for h := 0; h < 24; h++ {
		batch = append(batch, models.HourlyDelta{SubscriberID: 1, HourStart: hour(5, h), Delta: float64(h)})
	}
	require.NoError(t, db.InsertDeltas(ctx, batch))

	deltas, err := db.DeltasInRange(ctx, 1, hour(5, 10), hour(5, 12))
	require.NoError(t, err)
	require.Len(t, deltas, 3)
	assert.Equal(t, 10.0, deltas[0].Delta)
	assert.Equal(t, 12.0, deltas[2].Delta)
}

func TestEngineRollsBackOnSQLiteConflict(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	engine := meter.NewEngine(db, meter.DefaultWeights)

	_, err := engine.RecordReading(ctx, 1, 100, hour(5, 10))
	require.NoError(t, err)
	deltas, err := engine.RecordReading(ctx, 1, 140, hour(5, 14))
	require.NoError(t, err)
	require.Len(t, deltas, 3)

	_, err = engine.RecordReading(ctx, 1, 120, hour(5, 12))
	require.ErrorIs(t, err, meter.ErrApportionmentWrite)

	readings, err := db.ListReadings(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	stored, err := db.ListDeltas(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, deltas, stored)
}

func TestPurgeIsolatesSubscribers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	engine := meter.NewEngine(db, meter.DefaultWeights)

	for _, sub := range []int64{1, 2} {
		_, err := engine.RecordReading(ctx, sub, 100, hour(5, 6))
		require.NoError(t, err)
		_, err = engine.RecordReading(ctx, sub, 120, hour(5, 18))
		require.NoError(t, err)
	}

	require.NoError(t, db.Purge(ctx, 1))

	readings, err := db.ListReadings(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, readings)
	deltas, err := db.ListDeltas(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, deltas)

	readings, err = db.ListReadings(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, readings, 2)
	deltas, err = db.ListDeltas(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, deltas, 11)
}

func TestStatsOverSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	engine := meter.NewEngine(db, meter.DefaultWeights)

	for _, p := range []struct {
		at    time.Time
		value float64
	}{
		{time.Date(2024, 2, 28, 20, 0, 0, 0, time.UTC), 900},
		{hour(1, 20), 920},
		{hour(3, 20), 950},
	} {
		_, err := engine.RecordReading(ctx, 1, p.value, p.at)
		require.NoError(t, err)
	}

	rep, err := meter.NewStats(db).Report(ctx, 1, hour(4, 0), 0)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rep.MonthToDate, 1e-9)
	assert.InDelta(t, 30.0, rep.DeltaFromPrev, 1e-9)
	assert.Len(t, rep.Daily, 3)
}

func TestMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := New(MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	engine := meter.NewEngine(db, meter.DefaultWeights)
	_, err = engine.RecordReading(ctx, 1, 100, hour(5, 8))
	require.NoError(t, err)
	deltas, err := engine.RecordReading(ctx, 1, 110, hour(5, 10))
	require.NoError(t, err)
	assert.Len(t, deltas, 1)
}
