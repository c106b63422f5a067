package engine

import (
	"math"

	"github.com/2beens/traintrack/pkg"
)

// Feedback is the subjective per-set verdict reported by the user.
type Feedback string

const (
	FeedbackTooEasy  Feedback = "too_easy"
	FeedbackOnTarget Feedback = "on_target"
	FeedbackTooHard  Feedback = "too_hard"
)

func (f Feedback) String() string {
	return string(f)
}

func (f Feedback) IsValid() bool {
	switch f {
	case FeedbackTooEasy, FeedbackOnTarget, FeedbackTooHard:
		return true
	default:
		return false
	}
}

// Intensity maps the feedback verdict onto the 1-10 effort scale
// reported in session metrics (RPE-like, 10 is maximal effort).
func (f Feedback) Intensity() int {
	switch f {
	case FeedbackTooEasy:
		return 6
	case FeedbackTooHard:
		return 10
	default:
		return 8
	}
}

// poTargetStep is the kg/week delta applied per feedback report.
const poTargetStep = 0.25

// ApplyFeedback moves the weekly progressive overload target in
// response to a single set's feedback. The on_target case is a no-op
// value-wise but callers still persist it, so the audit trail shows
// that the set was evaluated.
func ApplyFeedback(feedback Feedback, currentPOTarget float64) float64 {
	switch feedback {
	case FeedbackTooEasy:
		currentPOTarget += poTargetStep
	case FeedbackTooHard:
		currentPOTarget -= poTargetStep
	}
	// two decimals, to avoid float drift accumulating over many sessions
	return pkg.RoundToTwoDecimals(math.Max(0, currentPOTarget))
}
