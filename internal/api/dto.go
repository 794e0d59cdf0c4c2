package api

import (
	"time"

	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
)

// RecordReadingRequest is the body of POST /api/subscribers/{id}/readings.
// Time ("HH:MM" or "HH:MM:SS") and date ("YYYY-MM-DD") default to now.
type RecordReadingRequest struct {
	Value *float64 `json:"value"`
	Time  string   `json:"time,omitempty"`
	Date  string   `json:"date,omitempty"`
}

// ReadingDTO is a raw reading with its timestamp in the persisted layout.
type ReadingDTO struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// DeltaDTO is an hourly delta with its hour in the persisted layout.
type DeltaDTO struct {
	HourStart string  `json:"hour_start"`
	Delta     float64 `json:"delta"`
}

// RecordReadingResponse is returned after a reading was stored.
type RecordReadingResponse struct {
	Reading ReadingDTO      `json:"reading"`
	Deltas  []DeltaDTO      `json:"deltas"`
	Report  *ReportResponse `json:"report,omitempty"`
}

// ReportResponse carries the statistics and their text rendering.
type ReportResponse struct {
	Text   string         `json:"text"`
	Report *models.Report `json:"report"`
}

// ExecRequest is the body of POST /api/admin/exec.
type ExecRequest struct {
	Statement string `json:"statement"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toReadingDTO(r models.RawReading) ReadingDTO {
	return ReadingDTO{Timestamp: meter.FormatTimestamp(r.Timestamp), Value: r.Value}
}

func toReadingDTOs(rs []models.RawReading) []ReadingDTO {
	out := make([]ReadingDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReadingDTO(r))
	}
	return out
}

func toDeltaDTOs(ds []models.HourlyDelta) []DeltaDTO {
	out := make([]DeltaDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, DeltaDTO{HourStart: meter.FormatTimestamp(d.HourStart), Delta: d.Delta})
	}
	return out
}

func parseAsOf(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return meter.Naive(now), nil
	}
	if len(s) == len("2006-01-02") {
		return meter.NormalizeTimestamp(now, "23:59:59", s)
	}
	return meter.ParseTimestamp(s)
}
