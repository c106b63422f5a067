package sessions

import (
	"time"

	"github.com/2beens/traintrack/internal/overload/engine"
)

// Session is one finished (or skipped) training day. Immutable once
// created; corrections require a new session.
type Session struct {
	ID       int       `json:"id"`
	UserID   string    `json:"userId"`
	Date     time.Time `json:"date"`
	DayType  string    `json:"dayType"`
	Finished bool      `json:"finished"`
	Calories int       `json:"calories"`
	Sets     []Set     `json:"sets"`
}

// DayStatus marks a calendar day in the training diary.
type DayStatus string

const (
	DayFinished DayStatus = "finished"
	DaySkipped  DayStatus = "skipped"
)

func (s DayStatus) IsValid() bool {
	return s == DayFinished || s == DaySkipped
}

// Set is a single performed set. The recommended values are captured
// at submission time, exactly as shown to the user, and are never
// recomputed retroactively; that keeps the audit trail of how well
// recommendations tracked reality.
type Set struct {
	ID                int             `json:"id"`
	Exercise          string          `json:"exercise"`
	SetNumber         int             `json:"setNumber"`
	ActualWeight      float64         `json:"actualWeight"`
	ActualReps        int             `json:"actualReps"`
	RecommendedWeight float64         `json:"recommendedWeight"`
	RecommendedReps   int             `json:"recommendedReps"`
	Feedback          engine.Feedback `json:"feedback"`
}

// IsMalformed reports whether a set misses the essentials. Malformed
// sets are excluded from persistence but do not abort the session.
func (s Set) IsMalformed() bool {
	return s.Exercise == "" || s.ActualWeight <= 0 || s.ActualReps <= 0
}

// HistoryEntry is one persisted set joined with its session date,
// the unit the analyzer works on.
type HistoryEntry struct {
	SessionID         int             `json:"sessionId"`
	Date              time.Time       `json:"date"`
	Exercise          string          `json:"exercise"`
	SetNumber         int             `json:"setNumber"`
	ActualWeight      float64         `json:"actualWeight"`
	ActualReps        int             `json:"actualReps"`
	RecommendedWeight float64         `json:"recommendedWeight"`
	RecommendedReps   int             `json:"recommendedReps"`
	Feedback          engine.Feedback `json:"feedback"`
}

// Success reports whether the set met the recommendation shown to
// the user: target reps reached at (or above) the suggested weight.
func (e HistoryEntry) Success() bool {
	if e.RecommendedReps <= 0 || e.RecommendedWeight <= 0 {
		return false
	}
	return e.ActualReps >= e.RecommendedReps && e.ActualWeight >= e.RecommendedWeight
}
