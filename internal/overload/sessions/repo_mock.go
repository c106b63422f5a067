package sessions

import (
	"context"
	"sort"
	"time"
)

type repoMock struct {
	nextSessionID int
	nextSetID     int
	sessions      map[int]*Session
	dayStatuses   map[string]map[time.Time]DayStatus
}

func NewMockSessionsRepo() *repoMock {
	return &repoMock{
		nextSessionID: 1,
		nextSetID:     1,
		sessions:      make(map[int]*Session),
		dayStatuses:   make(map[string]map[time.Time]DayStatus),
	}
}

func (r *repoMock) AddSession(ctx context.Context, session Session) (*Session, error) {
	session.ID = r.nextSessionID
	r.nextSessionID++
	for i := range session.Sets {
		session.Sets[i].ID = r.nextSetID
		r.nextSetID++
	}
	r.sessions[session.ID] = &session
	if session.Finished {
		if err := r.MarkDay(ctx, session.UserID, session.Date, DayFinished); err != nil {
			return nil, err
		}
	}
	return &session, nil
}

func (r *repoMock) History(_ context.Context, params HistoryParams) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	for _, s := range r.sessions {
		if s.UserID != params.UserID {
			continue
		}
		if !params.From.IsZero() && s.Date.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && s.Date.After(params.To) {
			continue
		}
		for _, set := range s.Sets {
			if params.Exercise != "" && set.Exercise != params.Exercise {
				continue
			}
			entries = append(entries, HistoryEntry{
				SessionID:         s.ID,
				Date:              s.Date,
				Exercise:          set.Exercise,
				SetNumber:         set.SetNumber,
				ActualWeight:      set.ActualWeight,
				ActualReps:        set.ActualReps,
				RecommendedWeight: set.RecommendedWeight,
				RecommendedReps:   set.RecommendedReps,
				Feedback:          set.Feedback,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].SessionID < entries[j].SessionID
	})
	if params.Limit > 0 && len(entries) > params.Limit {
		entries = entries[len(entries)-params.Limit:]
	}
	return entries, nil
}

func (r *repoMock) GetSession(_ context.Context, id int) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := *s
	return &session, nil
}

func (r *repoMock) ListSessions(_ context.Context, params SessionParams) ([]Session, error) {
	var sessions []Session
	for _, s := range r.sessions {
		if s.UserID != params.UserID {
			continue
		}
		if !params.From.IsZero() && s.Date.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && s.Date.After(params.To) {
			continue
		}
		// sets are not hydrated here, same as the real repo
		session := *s
		session.Sets = nil
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Date.Before(sessions[j].Date)
	})
	return sessions, nil
}

func (r *repoMock) DailyCalories(_ context.Context, userID string, from, to time.Time) (map[time.Time]int, error) {
	calories := make(map[time.Time]int)
	for _, s := range r.sessions {
		if s.UserID != userID || s.Calories <= 0 {
			continue
		}
		day := dayOf(s.Date)
		if day.Before(dayOf(from)) || day.After(dayOf(to)) {
			continue
		}
		if s.Calories > calories[day] {
			calories[day] = s.Calories
		}
	}
	return calories, nil
}

func (r *repoMock) MarkDay(_ context.Context, userID string, day time.Time, status DayStatus) error {
	if r.dayStatuses[userID] == nil {
		r.dayStatuses[userID] = make(map[time.Time]DayStatus)
	}
	r.dayStatuses[userID][dayOf(day)] = status
	return nil
}

func (r *repoMock) DayStatuses(_ context.Context, userID string, from, to time.Time) (map[time.Time]DayStatus, error) {
	statuses := make(map[time.Time]DayStatus)
	for day, status := range r.dayStatuses[userID] {
		if day.Before(dayOf(from)) || day.After(dayOf(to)) {
			continue
		}
		statuses[day] = status
	}
	return statuses, nil
}
