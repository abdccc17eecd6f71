package economy

import (
	"math/rand"
	"time"
)

// Penalty fractions per gated action. Applied to the amount drawn for the
// attempt, then clamped to the actor's available cash so the cash pool never
// goes negative. Work has no failure branch.
func penaltyFraction(kind ActionKind) float64 {
	switch kind {
	case ActionSlut, ActionRob:
		return 0.25
	case ActionCrime:
		return 0.50
	}
	return 0
}

// drawAmount picks a uniform integer in [min, max] inclusive.
func drawAmount(rng *rand.Rand, min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rng.Int63n(max-min+1)
}

// rollSuccess rolls against rate. A rate of 1.0 always succeeds and 0.0
// always fails regardless of the draw.
func rollSuccess(rng *rand.Rand, rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0 {
		return false
	}
	return rng.Float64() < rate
}

// penaltyAmount computes the failure penalty: a fraction of the drawn amount,
// never more than the cash on hand.
func penaltyAmount(drawn int64, fraction float64, cash int64) int64 {
	pen := int64(float64(drawn) * fraction)
	if pen > cash {
		pen = cash
	}
	if pen < 0 {
		pen = 0
	}
	return pen
}

// cooldownRemaining returns how long until the action is usable again, or 0
// when it is eligible now. A nil last-use means the action was never used.
func cooldownRemaining(last *time.Time, now time.Time, cooldown time.Duration) time.Duration {
	if last == nil {
		return 0
	}
	remaining := cooldown - now.Sub(*last)
	if remaining < 0 {
		return 0
	}
	return remaining
}
