package engine

import (
	"math"

	"github.com/2beens/traintrack/pkg"
)

const (
	// setDecay trades weight for volume on later sets: the first set
	// of a lift is the primary overload stimulus, every following set
	// gets 15% less of the weekly increment.
	setDecay = 0.15

	// DefaultTargetReps is the fallback rep target when neither the
	// heuristic nor the rule history has an opinion. Deliberately low,
	// so it is easy to progress from.
	DefaultTargetReps = 6
)

// Suggest distributes the weekly progressive overload target across
// the sets of an exercise, weighted towards the first (heaviest) set:
//
//	suggested = base + (poTarget/setCount) * max(0, 1-(setNumber-1)*0.15)
//
// rounded to the nearest half kilo. setNumber is 1-based.
func Suggest(setNumber, setCount int, poTarget, baseWeight float64) float64 {
	if setCount < 1 {
		setCount = 1
	}
	if setNumber < 1 {
		setNumber = 1
	}

	perSet := poTarget / float64(setCount)
	bias := math.Max(0, 1-float64(setNumber-1)*setDecay)
	suggested := pkg.RoundToHalfKilo(baseWeight + perSet*bias)
	return math.Max(0, suggested)
}

// SuggestReps picks the rep target with the priority: heuristic
// (AI) reps, then last rule-based reps, then the fixed default.
// Zero means "no data" for both inputs.
func SuggestReps(aiReps, ruleReps int) int {
	if aiReps > 0 {
		return aiReps
	}
	if ruleReps > 0 {
		return ruleReps
	}
	return DefaultTargetReps
}

// ResolveBaseWeight picks the base for the next suggestion with the
// priority: most recent AI-adjusted weight, then most recent
// rule-based (recommended) weight, then the history-free seed
// estimate. Zero means "no data" for the first two inputs; this chain
// makes the suggestion path total, it never errors on missing history.
func ResolveBaseWeight(aiWeight, ruleWeight, seedWeight float64) float64 {
	if aiWeight > 0 {
		return aiWeight
	}
	if ruleWeight > 0 {
		return ruleWeight
	}
	return seedWeight
}
