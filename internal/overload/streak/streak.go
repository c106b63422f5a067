package streak

import (
	"time"

	"github.com/2beens/traintrack/internal/overload/sessions"
)

// RestDay is the day type of a planned rest day in the weekly split.
const RestDay = "Rest"

// Schedule is the fixed 7-day training split, indexed by time.Weekday
// (Sunday first).
type Schedule [7]string

// DefaultSchedule is a classic 4-day split with weekends off.
var DefaultSchedule = Schedule{
	RestDay,     // Sunday
	"Chest",     // Monday
	"Legs",      // Tuesday
	RestDay,     // Wednesday
	"Back",      // Thursday
	"Shoulders", // Friday
	RestDay,     // Saturday
}

func (s Schedule) DayType(day time.Time) string {
	return s[day.Weekday()]
}

func (s Schedule) IsRest(day time.Time) bool {
	return s.DayType(day) == RestDay
}

// milestones a streak can celebrate, ascending.
var milestones = []int{3, 7, 14, 30}

// State is the per-user streak cache. It is derived entirely from the
// day markers and recomputable at any time, so losing it costs
// nothing but a recount.
type State struct {
	Current int `json:"current"`
	Best    int `json:"best"`
	// LastMissedDate is the training day that broke the current walk,
	// zero when nothing broke it yet
	LastMissedDate time.Time `json:"lastMissedDate"`
	// MilestoneWatermark is the highest milestone already celebrated.
	// It only moves up, so re-reaching an old milestone stays quiet;
	// resetting it to zero re-arms all celebrations.
	MilestoneWatermark int `json:"milestoneWatermark"`
}

// ResetMilestones re-arms all milestone celebrations.
func (s *State) ResetMilestones() {
	s.MilestoneWatermark = 0
}

// Update is the result of one streak recomputation.
type Update struct {
	State State `json:"state"`
	// Celebrations lists the milestones newly reached by this update,
	// each fired at most once per watermark cycle
	Celebrations []int `json:"celebrations,omitempty"`
}

type Tracker struct {
	schedule Schedule
}

func NewTracker(schedule Schedule) *Tracker {
	return &Tracker{schedule: schedule}
}

// Compute walks the calendar backward from today and recounts the
// streak. Finished days extend it, planned rest days and user-skipped
// days neither break nor extend it, and any other training day breaks
// it on the spot. Best is a high-water mark.
func (t *Tracker) Compute(prev State, statuses map[time.Time]sessions.DayStatus, today time.Time) Update {
	today = dayOf(today)

	// no point walking past the earliest marker
	earliest := today
	for day := range statuses {
		if day.Before(earliest) {
			earliest = day
		}
	}

	current := 0
	var lastMissed time.Time
	for day := today; !day.Before(earliest); day = day.AddDate(0, 0, -1) {
		status, marked := statuses[day]
		switch {
		case marked && status == sessions.DayFinished:
			current++
		case t.schedule.IsRest(day) || (marked && status == sessions.DaySkipped):
			// neither breaks nor extends
		default:
			lastMissed = day
		}
		if !lastMissed.IsZero() {
			break
		}
	}

	next := State{
		Current:            current,
		Best:               prev.Best,
		LastMissedDate:     lastMissed,
		MilestoneWatermark: prev.MilestoneWatermark,
	}
	if lastMissed.IsZero() {
		next.LastMissedDate = prev.LastMissedDate
	}
	if current > next.Best {
		next.Best = current
	}

	update := Update{State: next}
	for _, m := range milestones {
		if current >= m && m > update.State.MilestoneWatermark {
			update.Celebrations = append(update.Celebrations, m)
			update.State.MilestoneWatermark = m
		}
	}
	return update
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
