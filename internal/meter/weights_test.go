package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeights(t *testing.T) {
	assert.Equal(t, 0.5, DefaultWeights.For(0))
	assert.Equal(t, 0.5, DefaultWeights.For(6))
	assert.Equal(t, 1.0, DefaultWeights.For(7))
	assert.Equal(t, 2.0, DefaultWeights.For(9))
	assert.Equal(t, 3.0, DefaultWeights.For(10))
	assert.Equal(t, 3.0, DefaultWeights.For(20))
	assert.Equal(t, 2.0, DefaultWeights.For(21))
	assert.Equal(t, 1.0, DefaultWeights.For(23))

	for h := 0; h < 24; h++ {
		assert.Positive(t, DefaultWeights.For(h))
	}
}

func TestParseWeights(t *testing.T) {
	values := make([]float64, 24)
	for i := range values {
		values[i] = float64(i + 1)
	}
	w, err := ParseWeights(values)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.For(0))
	assert.Equal(t, 24.0, w.For(23))

	_, err = ParseWeights(values[:23])
	assert.ErrorIs(t, err, ErrInvalidWeights)

	values[5] = 0
	_, err = ParseWeights(values)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}
