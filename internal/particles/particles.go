// Package particles converts funnel percentages into particle counts for the
// visualization.
package particles

import "math"

const (
	// Total is the size of the particle field.
	Total = 500
	// DecayRate shapes how quickly particles fade as the pool shrinks.
	DecayRate = 0.15
	// MinActiveFraction keeps a few particles alive at 0%.
	MinActiveFraction = 0.1
)

// ActiveCount is the number of lit particles for a progress percentage. The
// curve decays exponentially so small percentage changes stay visible.
func ActiveCount(percentage float64, total int) int {
	if total <= 0 {
		return 0
	}
	switch {
	case percentage >= 100:
		return total
	case percentage <= 0 || math.IsNaN(percentage):
		return int(math.Floor(float64(total) * MinActiveFraction))
	}

	p := percentage / 100
	n := float64(total) * math.Exp(-DecayRate*(1-p)) * (MinActiveFraction + (1-MinActiveFraction)*p)
	return int(math.Floor(n))
}

// MatchCount is the number of highlighted particles on the results screen:
// the final percentage of the field, never fewer than one.
func MatchCount(percentage float64, total int) int {
	if total <= 0 {
		return 0
	}
	if math.IsNaN(percentage) {
		return 1
	}

	n := int(math.Round(float64(total) * percentage / 100))
	if n < 1 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}
