package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// DB wraps the database connection
type DB struct {
	queries
	conn *sql.DB
}

var _ meter.TxStore = (*DB)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	if dbPath != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	}

	db := &DB{queries: queries{q: conn}, conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS raw_readings (
		subscriber_id INTEGER NOT NULL,
		ts TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (subscriber_id, ts)
	);
	CREATE TABLE IF NOT EXISTS hourly_deltas (
		subscriber_id INTEGER NOT NULL,
		hour_start TEXT NOT NULL,
		delta REAL NOT NULL,
		PRIMARY KEY (subscriber_id, hour_start)
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// WithTx runs fn inside a transaction, committing only if fn returns nil
func (db *DB) WithTx(ctx context.Context, fn func(meter.Store) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{queries: queries{q: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InsertDeltas writes a batch of hourly deltas in its own transaction
func (db *DB) InsertDeltas(ctx context.Context, deltas []models.HourlyDelta) error {
	return db.WithTx(ctx, func(s meter.Store) error {
		return s.InsertDeltas(ctx, deltas)
	})
}

// Purge removes every reading and delta of a subscriber in one transaction
func (db *DB) Purge(ctx context.Context, subscriberID int64) error {
	return db.WithTx(ctx, func(s meter.Store) error {
		return s.Purge(ctx, subscriberID)
	})
}

// txStore is the meter.Store view of an open transaction
type txStore struct {
	queries
}

// Purge deletes both tables' rows inside the enclosing transaction
func (t *txStore) Purge(ctx context.Context, subscriberID int64) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM raw_readings WHERE subscriber_id = ?`, subscriberID); err != nil {
		return fmt.Errorf("deleting readings: %w", err)
	}
	if _, err := t.q.ExecContext(ctx, `DELETE FROM hourly_deltas WHERE subscriber_id = ?`, subscriberID); err != nil {
		return fmt.Errorf("deleting hourly deltas: %w", err)
	}
	return nil
}

// queries holds the statements shared by the connection and transactions
type queries struct {
	q querier
}

// InsertReading appends a raw reading, rejecting a second reading at the same second
func (s queries) InsertReading(ctx context.Context, r models.RawReading) error {
	query := `INSERT INTO raw_readings (subscriber_id, ts, value) VALUES (?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query, r.SubscriberID, meter.FormatTimestamp(r.Timestamp), r.Value)
	if isConstraintViolation(err) {
		return &meter.DuplicateTimestampError{SubscriberID: r.SubscriberID, Timestamp: meter.Naive(r.Timestamp)}
	}
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// InsertDeltas writes hourly deltas through the current executor
func (s queries) InsertDeltas(ctx context.Context, deltas []models.HourlyDelta) error {
	query := `INSERT INTO hourly_deltas (subscriber_id, hour_start, delta) VALUES (?, ?, ?)`

	for _, d := range deltas {
		if _, err := s.q.ExecContext(ctx, query, d.SubscriberID, meter.FormatTimestamp(d.HourStart), d.Delta); err != nil {
			return fmt.Errorf("inserting hourly delta %s: %w", meter.FormatTimestamp(d.HourStart), err)
		}
	}
	return nil
}

// PreviousReading returns the latest reading strictly before ts, or nil if there is none
func (s queries) PreviousReading(ctx context.Context, subscriberID int64, ts time.Time) (*models.RawReading, error) {
	query := `
	SELECT ts, value
	FROM raw_readings
	WHERE subscriber_id = ? AND ts < ?
	ORDER BY ts DESC
	LIMIT 1
	`

	row := s.q.QueryRowContext(ctx, query, subscriberID, meter.FormatTimestamp(ts))

	var tsStr string
	r := models.RawReading{SubscriberID: subscriberID}
	err := row.Scan(&tsStr, &r.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying previous reading: %w", err)
	}

	r.Timestamp, err = meter.ParseTimestamp(tsStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ts: %w", err)
	}
	return &r, nil
}

// LatestReadings returns up to limit readings at or before ts, newest first
func (s queries) LatestReadings(ctx context.Context, subscriberID int64, ts time.Time, limit int) ([]models.RawReading, error) {
	query := `
	SELECT subscriber_id, ts, value
	FROM raw_readings
	WHERE subscriber_id = ? AND ts <= ?
	ORDER BY ts DESC
	LIMIT ?
	`
	return s.queryReadings(ctx, query, subscriberID, meter.FormatTimestamp(ts), limit)
}

// ListReadings returns all readings of a subscriber ordered by timestamp
func (s queries) ListReadings(ctx context.Context, subscriberID int64) ([]models.RawReading, error) {
	query := `
	SELECT subscriber_id, ts, value
	FROM raw_readings
	WHERE subscriber_id = ?
	ORDER BY ts
	`
	return s.queryReadings(ctx, query, subscriberID)
}

func (s queries) queryReadings(ctx context.Context, query string, args ...any) ([]models.RawReading, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var results []models.RawReading
	for rows.Next() {
		var r models.RawReading
		var tsStr string

		if err := rows.Scan(&r.SubscriberID, &tsStr, &r.Value); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Timestamp, err = meter.ParseTimestamp(tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing ts: %w", err)
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

// MaxValueBefore returns the largest reading strictly before ts
func (s queries) MaxValueBefore(ctx context.Context, subscriberID int64, ts time.Time) (float64, bool, error) {
	query := `SELECT MAX(value) FROM raw_readings WHERE subscriber_id = ? AND ts < ?`

	var v sql.NullFloat64
	if err := s.q.QueryRowContext(ctx, query, subscriberID, meter.FormatTimestamp(ts)).Scan(&v); err != nil {
		return 0, false, fmt.Errorf("querying max value: %w", err)
	}
	return v.Float64, v.Valid, nil
}

// ValueRange returns the smallest and largest readings in [from, to]
func (s queries) ValueRange(ctx context.Context, subscriberID int64, from, to time.Time) (float64, float64, bool, error) {
	query := `
	SELECT MIN(value), MAX(value)
	FROM raw_readings
	WHERE subscriber_id = ? AND ts >= ? AND ts <= ?
	`

	var lo, hi sql.NullFloat64
	row := s.q.QueryRowContext(ctx, query, subscriberID, meter.FormatTimestamp(from), meter.FormatTimestamp(to))
	if err := row.Scan(&lo, &hi); err != nil {
		return 0, 0, false, fmt.Errorf("querying value range: %w", err)
	}
	return lo.Float64, hi.Float64, lo.Valid && hi.Valid, nil
}

// DeltasInRange returns hourly deltas with hour_start in [from, to]
func (s queries) DeltasInRange(ctx context.Context, subscriberID int64, from, to time.Time) ([]models.HourlyDelta, error) {
	query := `
	SELECT subscriber_id, hour_start, delta
	FROM hourly_deltas
	WHERE subscriber_id = ? AND hour_start >= ? AND hour_start <= ?
	ORDER BY hour_start
	`
	return s.queryDeltas(ctx, query, subscriberID, meter.FormatTimestamp(from), meter.FormatTimestamp(to))
}

// ListDeltas returns all hourly deltas of a subscriber ordered by hour
func (s queries) ListDeltas(ctx context.Context, subscriberID int64) ([]models.HourlyDelta, error) {
	query := `
	SELECT subscriber_id, hour_start, delta
	FROM hourly_deltas
	WHERE subscriber_id = ?
	ORDER BY hour_start
	`
	return s.queryDeltas(ctx, query, subscriberID)
}

func (s queries) queryDeltas(ctx context.Context, query string, args ...any) ([]models.HourlyDelta, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying hourly deltas: %w", err)
	}
	defer rows.Close()

	var results []models.HourlyDelta
	for rows.Next() {
		var d models.HourlyDelta
		var hourStr string

		if err := rows.Scan(&d.SubscriberID, &hourStr, &d.Delta); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		d.HourStart, err = meter.ParseTimestamp(hourStr)
		if err != nil {
			return nil, fmt.Errorf("parsing hour_start: %w", err)
		}

		results = append(results, d)
	}

	return results, rows.Err()
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
