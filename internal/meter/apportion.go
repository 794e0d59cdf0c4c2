package meter

import (
	"time"

	"github.com/jgoulah/gridmeter/pkg/models"
)

// CoveredHours lists the hour starts a reading pair is spread over. The first
// hour is the one after the hour containing prev; the last one starts before next.
func CoveredHours(prev, next time.Time) []time.Time {
	prev, next = Naive(prev), Naive(next)

	var hours []time.Time
	for h := prev.Truncate(time.Hour).Add(time.Hour); h.Before(next); h = h.Add(time.Hour) {
		hours = append(hours, h)
	}
	return hours
}

// Apportion spreads next.Value-prev.Value over the covered hours in proportion
// to their weights. A pair that does not cross an hour boundary yields nothing
// and its energy is dropped. Negative differences are spread the same way.
func Apportion(prev, next models.RawReading, weights WeightTable) []models.HourlyDelta {
	hours := CoveredHours(prev.Timestamp, next.Timestamp)
	if len(hours) == 0 {
		return nil
	}

	var total float64
	for _, h := range hours {
		total += weights.For(h.Hour())
	}

	diff := next.Value - prev.Value
	deltas := make([]models.HourlyDelta, 0, len(hours))
	for _, h := range hours {
		deltas = append(deltas, models.HourlyDelta{
			SubscriberID: next.SubscriberID,
			HourStart:    h,
			Delta:        diff * weights.For(h.Hour()) / total,
		})
	}
	return deltas
}
