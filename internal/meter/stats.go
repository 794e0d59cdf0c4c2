package meter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/jgoulah/gridmeter/pkg/models"
)

// AnomalySigmas is the half-width of the daily usage guide band, in standard deviations.
const AnomalySigmas = 3

// Stats computes read-only statistics over the reading and delta stores.
// Every computation takes an explicit asOf so results never depend on the clock.
type Stats struct {
	store Store
}

// NewStats creates a statistics engine reading from store.
func NewStats(store Store) *Stats {
	return &Stats{store: store}
}

// MonthToDateTotal returns the energy used from the start of asOf's month up to asOf.
// The baseline is the highest reading before the month; a subscriber with no
// earlier reading is measured from their lowest reading of the month.
func (s *Stats) MonthToDateTotal(ctx context.Context, subscriberID int64, asOf time.Time) (float64, error) {
	asOf = Naive(asOf)
	monthStart := MonthStart(asOf)

	lo, hi, ok, err := s.store.ValueRange(ctx, subscriberID, monthStart, asOf)
	if err != nil {
		return 0, fmt.Errorf("reading month range: %w", err)
	}
	if !ok {
		return 0, nil
	}

	baseline, found, err := s.store.MaxValueBefore(ctx, subscriberID, monthStart)
	if err != nil {
		return 0, fmt.Errorf("reading month baseline: %w", err)
	}
	if !found {
		baseline = lo
	}
	return hi - baseline, nil
}

// DeltaFromPrevious returns the difference between the two latest readings at
// or before asOf, larger minus smaller.
func (s *Stats) DeltaFromPrevious(ctx context.Context, subscriberID int64, asOf time.Time) (float64, error) {
	readings, err := s.store.LatestReadings(ctx, subscriberID, Naive(asOf), 2)
	if err != nil {
		return 0, fmt.Errorf("reading latest readings: %w", err)
	}
	if len(readings) < 2 {
		return 0, fmt.Errorf("%w: subscriber %d has %d reading(s)", ErrInsufficientHistory, subscriberID, len(readings))
	}
	a, b := readings[0].Value, readings[1].Value
	return math.Max(a, b) - math.Min(a, b), nil
}

// DailyUsageSeries sums hourly deltas in [monthStart, asOf] per calendar day.
func (s *Stats) DailyUsageSeries(ctx context.Context, subscriberID int64, asOf, monthStart time.Time) ([]models.DailyUsage, error) {
	deltas, err := s.store.DeltasInRange(ctx, subscriberID, Naive(monthStart), Naive(asOf))
	if err != nil {
		return nil, fmt.Errorf("reading hourly deltas: %w", err)
	}
	return GroupByDay(deltas), nil
}

// HourlySeries returns the hourly deltas in [asOf-window, asOf].
func (s *Stats) HourlySeries(ctx context.Context, subscriberID int64, asOf time.Time, window time.Duration) ([]models.HourlyDelta, error) {
	asOf = Naive(asOf)
	deltas, err := s.store.DeltasInRange(ctx, subscriberID, asOf.Add(-window), asOf)
	if err != nil {
		return nil, fmt.Errorf("reading hourly deltas: %w", err)
	}
	return deltas, nil
}

// Report gathers every statistic for one subscriber. Too little history for
// DeltaFromPrevious is reported through HasDeltaFromPrev, not as an error.
// A zero hourlyWindow leaves the hourly series out.
func (s *Stats) Report(ctx context.Context, subscriberID int64, asOf time.Time, hourlyWindow time.Duration) (*models.Report, error) {
	asOf = Naive(asOf)
	report := &models.Report{
		SubscriberID: subscriberID,
		AsOf:         asOf,
		MonthStart:   MonthStart(asOf),
	}

	total, err := s.MonthToDateTotal(ctx, subscriberID, asOf)
	if err != nil {
		return nil, err
	}
	report.MonthToDate = total

	delta, err := s.DeltaFromPrevious(ctx, subscriberID, asOf)
	switch {
	case errors.Is(err, ErrInsufficientHistory):
	case err != nil:
		return nil, err
	default:
		report.DeltaFromPrev = delta
		report.HasDeltaFromPrev = true
	}

	report.Daily, err = s.DailyUsageSeries(ctx, subscriberID, asOf, report.MonthStart)
	if err != nil {
		return nil, err
	}
	report.DailyStats = DailyUsageStats(report.Daily)

	if hourlyWindow > 0 {
		report.Hourly, err = s.HourlySeries(ctx, subscriberID, asOf, hourlyWindow)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// GroupByDay sums deltas per calendar day of their hour start, ascending by day.
func GroupByDay(deltas []models.HourlyDelta) []models.DailyUsage {
	var series []models.DailyUsage
	index := make(map[time.Time]int)
	for _, d := range deltas {
		h := Naive(d.HourStart)
		day := time.Date(h.Year(), h.Month(), h.Day(), 0, 0, 0, 0, time.UTC)
		i, ok := index[day]
		if !ok {
			i = len(series)
			index[day] = i
			series = append(series, models.DailyUsage{Day: day})
		}
		series[i].Energy += d.Delta
	}
	slices.SortFunc(series, func(a, b models.DailyUsage) int {
		return a.Day.Compare(b.Day)
	})
	return series
}

// DailyUsageStats returns the mean and sample standard deviation of a daily
// series with the mean ± 3σ guide band. The deviation and band need two days.
func DailyUsageStats(series []models.DailyUsage) models.DailyStats {
	stats := models.DailyStats{Days: len(series)}
	if len(series) == 0 {
		return stats
	}

	var sum float64
	for _, d := range series {
		sum += d.Energy
	}
	stats.Mean = sum / float64(len(series))
	stats.HasMean = true

	if len(series) < 2 {
		return stats
	}
	var sq float64
	for _, d := range series {
		diff := d.Energy - stats.Mean
		sq += diff * diff
	}
	stats.StdDev = math.Sqrt(sq / float64(len(series)-1))
	stats.HasStdDev = true
	stats.Lower = stats.Mean - AnomalySigmas*stats.StdDev
	stats.Upper = stats.Mean + AnomalySigmas*stats.StdDev
	return stats
}
