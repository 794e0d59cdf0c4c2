package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridmeter/pkg/models"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, time.UTC)
}

func reading(ts time.Time, value float64) models.RawReading {
	return models.RawReading{SubscriberID: 7, Timestamp: ts, Value: value}
}

func sumDeltas(deltas []models.HourlyDelta) float64 {
	var sum float64
	for _, d := range deltas {
		sum += d.Delta
	}
	return sum
}

func TestApportionWeightedSplit(t *testing.T) {
	// 08:30 -> 11:00 covers 09:00 (W=2) and 10:00 (W=3)
	deltas := Apportion(reading(at(5, 8, 30), 100), reading(at(5, 11, 0), 106), DefaultWeights)

	require.Len(t, deltas, 2)
	assert.Equal(t, at(5, 9, 0), deltas[0].HourStart)
	assert.InDelta(t, 2.4, deltas[0].Delta, 1e-9)
	assert.Equal(t, at(5, 10, 0), deltas[1].HourStart)
	assert.InDelta(t, 3.6, deltas[1].Delta, 1e-9)
	for _, d := range deltas {
		assert.Equal(t, int64(7), d.SubscriberID)
	}
}

func TestApportionSkipsHourOfPreviousReading(t *testing.T) {
	deltas := Apportion(reading(at(5, 9, 0), 100), reading(at(5, 11, 30), 106), DefaultWeights)

	require.Len(t, deltas, 2)
	assert.Equal(t, at(5, 10, 0), deltas[0].HourStart)
	assert.Equal(t, at(5, 11, 0), deltas[1].HourStart)
	assert.InDelta(t, 3.0, deltas[0].Delta, 1e-9)
	assert.InDelta(t, 3.0, deltas[1].Delta, 1e-9)
}

func TestApportionWithinSingleHour(t *testing.T) {
	deltas := Apportion(reading(at(5, 10, 5), 100), reading(at(5, 10, 45), 101), DefaultWeights)
	assert.Empty(t, deltas)
}

func TestApportionNextOnHourBoundaryIsExcluded(t *testing.T) {
	hours := CoveredHours(at(5, 10, 50), at(5, 11, 0))
	assert.Empty(t, hours)

	hours = CoveredHours(at(5, 10, 50), at(5, 11, 10))
	assert.Equal(t, []time.Time{at(5, 11, 0)}, hours)
}

func TestApportionCrossesMidnight(t *testing.T) {
	deltas := Apportion(reading(at(5, 22, 30), 10), reading(at(6, 1, 15), 13), DefaultWeights)

	require.Len(t, deltas, 3)
	assert.Equal(t, at(5, 23, 0), deltas[0].HourStart)
	assert.Equal(t, at(6, 0, 0), deltas[1].HourStart)
	assert.Equal(t, at(6, 1, 0), deltas[2].HourStart)
	// weights 1, 0.5, 0.5
	assert.InDelta(t, 1.5, deltas[0].Delta, 1e-9)
	assert.InDelta(t, 0.75, deltas[1].Delta, 1e-9)
	assert.InDelta(t, 0.75, deltas[2].Delta, 1e-9)
}

func TestApportionPreservesSum(t *testing.T) {
	tests := []struct {
		name       string
		prev, next models.RawReading
	}{
		{"two hours", reading(at(5, 8, 30), 100), reading(at(5, 11, 0), 106)},
		{"one day", reading(at(5, 0, 0), 1000), reading(at(6, 0, 0), 1023.7)},
		{"eleven days", reading(at(1, 7, 13), 12.5), reading(at(12, 19, 42), 431.9)},
		{"fractional", reading(at(5, 3, 59), 0.1), reading(at(5, 17, 1), 0.3)},
		{"negative", reading(at(5, 6, 0), 500), reading(at(5, 20, 0), 480)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas := Apportion(tt.prev, tt.next, DefaultWeights)
			require.NotEmpty(t, deltas)
			assert.InDelta(t, tt.next.Value-tt.prev.Value, sumDeltas(deltas), 1e-9)
		})
	}
}

func TestApportionFollowsWeights(t *testing.T) {
	for _, diff := range []float64{24, -24} {
		deltas := Apportion(reading(at(5, 0, 0), 100), reading(at(6, 0, 30), 100+diff), DefaultWeights)
		require.Len(t, deltas, 24)

		for _, a := range deltas {
			for _, b := range deltas {
				if DefaultWeights.For(a.HourStart.Hour()) <= DefaultWeights.For(b.HourStart.Hour()) {
					continue
				}
				if diff >= 0 {
					assert.GreaterOrEqual(t, a.Delta, b.Delta)
				} else {
					assert.LessOrEqual(t, a.Delta, b.Delta)
				}
			}
		}
	}
}

func TestApportionNegativeDifference(t *testing.T) {
	deltas := Apportion(reading(at(5, 8, 30), 106), reading(at(5, 11, 0), 100), DefaultWeights)

	require.Len(t, deltas, 2)
	assert.InDelta(t, -2.4, deltas[0].Delta, 1e-9)
	assert.InDelta(t, -3.6, deltas[1].Delta, 1e-9)
}

func TestApportionCustomWeights(t *testing.T) {
	var flat WeightTable
	for i := range flat {
		flat[i] = 1
	}
	deltas := Apportion(reading(at(5, 0, 0), 0), reading(at(5, 4, 30), 8), flat)

	require.Len(t, deltas, 4)
	for _, d := range deltas {
		assert.InDelta(t, 2.0, d.Delta, 1e-9)
	}
}
