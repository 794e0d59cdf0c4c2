package models

import "time"

// RawReading is a single cumulative meter value reported by a subscriber
type RawReading struct {
	SubscriberID int64     `json:"subscriber_id"`
	Timestamp    time.Time `json:"timestamp"` // Naive local wall clock, second precision
	Value        float64   `json:"value"`     // Cumulative kWh
}

// HourlyDelta is the energy attributed to one calendar hour
type HourlyDelta struct {
	SubscriberID int64     `json:"subscriber_id"`
	HourStart    time.Time `json:"hour_start"`
	Delta        float64   `json:"delta"`
}

// DailyUsage is the summed hourly energy for one local calendar day
type DailyUsage struct {
	Day    time.Time `json:"day"`
	Energy float64   `json:"energy"`
}

// DailyStats describes a daily usage series. Mean and StdDev are only
// meaningful when the matching Has* flag is set.
type DailyStats struct {
	Days      int     `json:"days"`
	Mean      float64 `json:"mean"`
	HasMean   bool    `json:"has_mean"`
	StdDev    float64 `json:"stddev"`
	HasStdDev bool    `json:"has_stddev"`
	Lower     float64 `json:"lower_bound"`
	Upper     float64 `json:"upper_bound"`
}

// Report bundles everything the reporting side needs for one subscriber
type Report struct {
	SubscriberID     int64         `json:"subscriber_id"`
	AsOf             time.Time     `json:"as_of"`
	MonthStart       time.Time     `json:"month_start"`
	MonthToDate      float64       `json:"month_to_date"`
	DeltaFromPrev    float64       `json:"delta_from_previous"`
	HasDeltaFromPrev bool          `json:"has_delta_from_previous"`
	Daily            []DailyUsage  `json:"daily"`
	DailyStats       DailyStats    `json:"daily_stats"`
	Hourly           []HourlyDelta `json:"hourly,omitempty"`
}
