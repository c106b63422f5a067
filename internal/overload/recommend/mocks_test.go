package recommend

import (
	"context"

	"github.com/2beens/traintrack/internal/overload/profile"
	"github.com/2beens/traintrack/internal/overload/streak"
)

type profilesMock struct {
	profiles map[string]profile.Profile
}

func newProfilesMock() *profilesMock {
	return &profilesMock{profiles: make(map[string]profile.Profile)}
}

func (m *profilesMock) Get(_ context.Context, userID string) (*profile.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return &p, nil
}

func (m *profilesMock) Upsert(_ context.Context, p profile.Profile) error {
	m.profiles[p.UserID] = p
	return nil
}

type poTargetsMock struct {
	targets map[string]float64
}

func newPOTargetsMock() *poTargetsMock {
	return &poTargetsMock{targets: make(map[string]float64)}
}

func (m *poTargetsMock) SeedIfAbsent(_ context.Context, userID, exercise string, seed float64) (float64, error) {
	key := userID + "|" + exercise
	if target, ok := m.targets[key]; ok {
		return target, nil
	}
	m.targets[key] = seed
	return seed, nil
}

func (m *poTargetsMock) Set(_ context.Context, userID, exercise string, target float64) error {
	m.targets[userID+"|"+exercise] = target
	return nil
}

type streaksMock struct {
	states map[string]streak.State
}

func newStreaksMock() *streaksMock {
	return &streaksMock{states: make(map[string]streak.State)}
}

func (m *streaksMock) Get(_ context.Context, userID string) (streak.State, error) {
	return m.states[userID], nil
}

func (m *streaksMock) Save(_ context.Context, userID string, state streak.State) error {
	m.states[userID] = state
	return nil
}
