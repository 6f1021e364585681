package view

import (
	"fmt"
	"strconv"

	"autodocvision/internal/model"
)

// Confidence bar fills, from the highest tier down.
const (
	BarHigh   = "linear-gradient(90deg, #16a34a, #15803d)"
	BarMedium = "linear-gradient(90deg, #ea580c, #c2410c)"
	BarLow    = "linear-gradient(90deg, #dc2626, #b91c1c)"
)

const (
	StatusAbove = "✅ Válido"
	StatusBelow = "⚠️ Bajo Umbral"
)

// BarColor returns the bar fill for a confidence percentage. 90 and 75 are
// inclusive lower bounds of the two upper tiers.
func BarColor(percent float64) string {
	switch {
	case percent >= 90:
		return BarHigh
	case percent >= 75:
		return BarMedium
	default:
		return BarLow
	}
}

// Percent formats a [0,1] confidence as "94.00%".
func Percent(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

// Millis formats seconds as "120ms".
func Millis(seconds float64) string {
	return fmt.Sprintf("%.0fms", seconds*1000)
}

// Status returns the threshold-pass indicator text.
func Status(r *model.DetectionResult) string {
	if r.AboveThreshold {
		return StatusAbove
	}
	return StatusBelow
}

func barWidth(percent float64) string {
	return strconv.FormatFloat(percent, 'f', -1, 64) + "%"
}
