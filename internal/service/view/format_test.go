package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarColor_TierBoundaries(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{100, BarHigh},
		{90, BarHigh},
		{89.99, BarMedium},
		{75, BarMedium},
		{74.99, BarLow},
		{0, BarLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BarColor(tt.percent), "percent %v", tt.percent)
	}
}

func TestPercentAndMillis(t *testing.T) {
	assert.Equal(t, "94.00%", Percent(0.94))
	assert.Equal(t, "0.00%", Percent(0))
	assert.Equal(t, "100.00%", Percent(1))
	assert.Equal(t, "120ms", Millis(0.12))
	assert.Equal(t, "1500ms", Millis(1.5))
}
