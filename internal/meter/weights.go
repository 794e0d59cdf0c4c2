package meter

import "fmt"

// WeightTable holds one coefficient per hour of day. A gap between two
// readings is spread over its hours in proportion to these values.
type WeightTable [24]float64

// DefaultWeights models a household load shape: flat overnight, ramping up in
// the morning, peaking from late morning to evening and tapering at night.
var DefaultWeights = WeightTable{
	0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, // 00-06
	1, 2, 2, // 07-09
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, // 10-20
	2, 2, // 21-22
	1, // 23
}

// ParseWeights builds a table from exactly 24 positive values.
func ParseWeights(values []float64) (WeightTable, error) {
	var w WeightTable
	if len(values) != len(w) {
		return w, fmt.Errorf("%w: need %d values, got %d", ErrInvalidWeights, len(w), len(values))
	}
	for i, v := range values {
		if v <= 0 {
			return w, fmt.Errorf("%w: hour %02d has non-positive weight %g", ErrInvalidWeights, i, v)
		}
		w[i] = v
	}
	return w, nil
}

// For returns the weight of the given hour of day.
func (w WeightTable) For(hour int) float64 {
	return w[hour]
}
