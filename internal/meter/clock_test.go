package meter

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kiev")
	require.NoError(t, err)
	now := time.Date(2024, time.March, 5, 14, 37, 52, 123, kyiv)

	tests := []struct {
		name      string
		timeOfDay string
		date      string
		want      time.Time
	}{
		{"defaults to now truncated to the minute", "", "", time.Date(2024, 3, 5, 14, 37, 0, 0, time.UTC)},
		{"hours and minutes", "09:15", "", time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC)},
		{"full time", "09:15:30", "", time.Date(2024, 3, 5, 9, 15, 30, 0, time.UTC)},
		{"explicit date", "23:00", "2024-02-29", time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)},
		{"date only", "", "2024-01-10", time.Date(2024, 1, 10, 14, 37, 0, 0, time.UTC)},
		{"surrounding spaces", " 07:05 ", " 2024-03-01 ", time.Date(2024, 3, 1, 7, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTimestamp(now, tt.timeOfDay, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTimestampInvalid(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 37, 0, 0, time.UTC)

	for _, in := range [][2]string{{"25:00", ""}, {"noon", ""}, {"10:00", "2024-13-01"}, {"10:00", "05.03.2024"}} {
		_, err := NormalizeTimestamp(now, in[0], in[1])
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "input %q %q", in[0], in[1])
	}
}

func TestNaiveKeepsWallClock(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kiev")
	require.NoError(t, err)

	// summer time started at 03:00 local on this day
	ts := time.Date(2024, time.March, 31, 4, 30, 15, 999, kyiv)
	n := Naive(ts)

	assert.Equal(t, time.UTC, n.Location())
	assert.Equal(t, time.Date(2024, 3, 31, 4, 30, 15, 0, time.UTC), n)
	assert.Equal(t, "2024-03-31 04:30:15", FormatTimestamp(ts))
}

func TestLocalize(t *testing.T) {
	kyiv, err := time.LoadLocation("Europe/Kiev")
	require.NoError(t, err)

	winter := Localize(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), kyiv)
	assert.Equal(t, "2024-03-05T09:00:00+02:00", winter.Format(time.RFC3339))

	summer := Localize(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), kyiv)
	assert.Equal(t, "2024-07-01T09:00:00+03:00", summer.Format(time.RFC3339))

	// round trip back to the naive value
	assert.Equal(t, time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), Naive(summer))
}

func TestMonthStart(t *testing.T) {
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), MonthStart(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-05 10:20:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC), ts)

	_, err = ParseTimestamp("2024-03-05T10:20:30Z")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}
