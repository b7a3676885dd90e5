package app

import "math"

const (
	basePoints = 1000
	speedBonus = 500
)

// Points scores a correct answer. The bonus decays linearly with the time
// already spent; budget must be positive.
func Points(remaining, budget int) int {
	return basePoints + int(math.Round(speedBonus*float64(remaining)/float64(budget)))
}
