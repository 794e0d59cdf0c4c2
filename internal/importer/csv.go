// Package importer bulk-loads raw readings from meter exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
)

// Recorder is the ingestion entry point the importer feeds.
type Recorder interface {
	RecordReading(ctx context.Context, subscriberID int64, value float64, ts time.Time) ([]models.HourlyDelta, error)
}

// Result summarizes an import run.
type Result struct {
	Total      int
	Imported   int
	Duplicates int
	Deltas     int
}

// columns holds the header positions found in the CSV, -1 when absent.
type columns struct {
	subscriber int
	timestamp  int
	date       int
	time       int
	value      int
}

// ParseCSV reads readings from r. A row without a subscriber column belongs
// to defaultSubscriber. Rows that cannot be parsed are reported, not fatal.
func ParseCSV(r io.Reader, defaultSubscriber int64) ([]models.RawReading, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Read header to find column indices
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := columns{subscriber: -1, timestamp: -1, date: -1, time: -1, value: -1}
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "subscriber", "subscriber_id", "user_id":
			cols.subscriber = i
		case "timestamp", "ts":
			cols.timestamp = i
		case "date":
			cols.date = i
		case "time":
			cols.time = i
		case "value", "reading", "kwh":
			cols.value = i
		}
	}

	if cols.value == -1 || (cols.timestamp == -1 && cols.date == -1) {
		return nil, nil, fmt.Errorf("could not find required columns (value and timestamp or date) in CSV. Header: %v", header)
	}
	if cols.subscriber == -1 && defaultSubscriber == 0 {
		return nil, nil, fmt.Errorf("CSV has no subscriber column and no default subscriber was given")
	}

	var readings []models.RawReading
	var problems []string
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		reading, err := parseRecord(record, cols, defaultSubscriber)
		if err != nil {
			problems = append(problems, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		readings = append(readings, reading)
	}

	return readings, problems, nil
}

func parseRecord(record []string, cols columns, defaultSubscriber int64) (models.RawReading, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	r := models.RawReading{SubscriberID: defaultSubscriber}
	if s := field(cols.subscriber); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return r, fmt.Errorf("invalid subscriber %q", s)
		}
		r.SubscriberID = id
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(field(cols.value), ",", ""), 64)
	if err != nil {
		return r, fmt.Errorf("invalid value %q", field(cols.value))
	}
	r.Value = value

	if s := field(cols.timestamp); s != "" {
		r.Timestamp, err = meter.ParseTimestamp(s)
		if err != nil {
			return r, err
		}
		return r, nil
	}

	date := field(cols.date)
	if date == "" {
		return r, fmt.Errorf("missing date")
	}
	timeOfDay := field(cols.time)
	if timeOfDay == "" {
		timeOfDay = "00:00"
	}
	r.Timestamp, err = meter.NormalizeTimestamp(time.Time{}, timeOfDay, date)
	return r, err
}

// Import records readings oldest first so every reading is apportioned
// against its true predecessor. Duplicates are counted and skipped.
func Import(ctx context.Context, rec Recorder, readings []models.RawReading) (*Result, error) {
	readings = slices.Clone(readings)
	slices.SortStableFunc(readings, func(a, b models.RawReading) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	result := &Result{Total: len(readings)}
	for _, r := range readings {
		deltas, err := rec.RecordReading(ctx, r.SubscriberID, r.Value, r.Timestamp)
		switch {
		case errors.Is(err, meter.ErrDuplicateTimestamp):
			result.Duplicates++
		case err != nil:
			return result, fmt.Errorf("recording reading at %s: %w", meter.FormatTimestamp(r.Timestamp), err)
		default:
			result.Imported++
			result.Deltas += len(deltas)
		}
	}
	return result, nil
}
