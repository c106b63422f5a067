package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/traintrack/internal/overload/catalog"
	"github.com/2beens/traintrack/internal/overload/engine"
	"github.com/2beens/traintrack/internal/overload/profile"
	"github.com/2beens/traintrack/internal/overload/sessions"
	"github.com/2beens/traintrack/internal/overload/streak"
	"github.com/2beens/traintrack/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *profilesMock, *poTargetsMock) {
	t.Helper()

	sessRepo := sessions.NewMockSessionsRepo()
	profiles := newProfilesMock()
	poTargets := newPOTargetsMock()

	service := NewService(
		catalog.Default(),
		sessions.NewAnalyzer(sessRepo),
		sessRepo,
		profiles,
		poTargets,
		newStreaksMock(),
		streak.NewTracker(streak.DefaultSchedule),
		metrics.NewTestManager(),
	)
	return service, profiles, poTargets
}

// week of 2026-08-17: Mon 17, Tue 18, Wed 19 (rest), Thu 20, Fri 21
func trainingDay(n int) time.Time {
	return time.Date(2026, 8, n, 18, 0, 0, 0, time.UTC)
}

func squatSession(day time.Time, sets ...sessions.Set) sessions.Session {
	return sessions.Session{
		Date:     day,
		DayType:  "Legs",
		Finished: true,
		Sets:     sets,
	}
}

func squatSet(weight float64, reps int, feedback engine.Feedback) sessions.Set {
	return sessions.Set{
		Exercise:          "Squat",
		SetNumber:         1,
		ActualWeight:      weight,
		ActualReps:        reps,
		RecommendedWeight: weight,
		RecommendedReps:   reps,
		Feedback:          feedback,
	}
}

func TestService_GetRecommendation_NoHistory(t *testing.T) {
	service, profiles, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, profiles.Upsert(ctx, profile.Profile{
		UserID:   "serj",
		Sex:      profile.SexMale,
		Age:      30,
		WeightKg: 80,
		HeightCm: 180,
	}))

	snapshot, err := service.GetRecommendation(ctx, "serj", "Squat")
	require.NoError(t, err)

	// 80kg bodyweight seeds the squat at 103.5, the 0.5 kg/week target
	// spread over 4 sets barely moves the first-set suggestion
	assert.Equal(t, "Squat", snapshot.Exercise)
	assert.Equal(t, 103.5, snapshot.RuleWeight)
	assert.Equal(t, engine.DefaultTargetReps, snapshot.RuleReps)
	assert.Equal(t, 0.5, snapshot.POTarget)
	assert.Equal(t, 4, snapshot.RecommendedSets)
	assert.Nil(t, snapshot.AIWeight)
	assert.Nil(t, snapshot.AIReps)
	assert.Zero(t, snapshot.FatigueScore)
	assert.False(t, snapshot.Plateau)
	// no ideal weight stored, the stretch goal equals the seed
	assert.Equal(t, 103.5, snapshot.StretchWeight)

	require.Len(t, snapshot.SetWeights, 4)
	for i := 1; i < len(snapshot.SetWeights); i++ {
		assert.LessOrEqual(t, snapshot.SetWeights[i], snapshot.SetWeights[i-1])
	}
}

func TestService_GetRecommendation_NoProfileUsesDefaults(t *testing.T) {
	service, _, _ := newTestService(t)

	// 70kg default bodyweight: 70 * 1.2 * 1.08 = 90.72 -> 90.5
	snapshot, err := service.GetRecommendation(context.Background(), "ghost", "Squat")
	require.NoError(t, err)
	assert.Equal(t, 90.5, snapshot.RuleWeight)
}

func TestService_GetRecommendation_Cached(t *testing.T) {
	service, profiles, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, profiles.Upsert(ctx, profile.Profile{UserID: "serj", WeightKg: 80}))
	first, err := service.GetRecommendation(ctx, "serj", "Squat")
	require.NoError(t, err)

	// a profile change is invisible until the cache expires
	require.NoError(t, profiles.Upsert(ctx, profile.Profile{UserID: "serj", WeightKg: 100}))
	second, err := service.GetRecommendation(ctx, "serj", "Squat")
	require.NoError(t, err)
	assert.Equal(t, first.RuleWeight, second.RuleWeight)
}

func TestService_SubmitSession(t *testing.T) {
	service, profiles, poTargets := newTestService(t)
	ctx := context.Background()

	require.NoError(t, profiles.Upsert(ctx, profile.Profile{UserID: "serj", WeightKg: 80}))

	result, err := service.SubmitSession(ctx, "serj", squatSession(trainingDay(21),
		squatSet(100, 6, engine.FeedbackTooEasy),
		squatSet(100, 6, engine.FeedbackOnTarget),
		squatSet(0, 6, engine.FeedbackOnTarget), // malformed, no weight
	))
	require.NoError(t, err)

	assert.Greater(t, result.SessionID, 0)
	assert.Equal(t, 1, result.SkippedSets)
	// too_easy (6) and on_target (8) kept, the malformed set dropped
	assert.Equal(t, 7.0, result.AvgIntensity)
	// only Friday trained in the trailing week
	assert.Equal(t, 6, result.MissedDaysLast7)

	// seed 0.5, then too_easy bumps it, on_target confirms it
	target, err := poTargets.SeedIfAbsent(ctx, "serj", "Squat", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.75, target)

	require.Len(t, result.Snapshots, 1)
	assert.Equal(t, "Squat", result.Snapshots[0].Exercise)
	assert.Equal(t, 0.75, result.Snapshots[0].POTarget)
	// the fresh snapshot already builds on the submitted session
	require.NotNil(t, result.Snapshots[0].AIWeight)

	assert.Equal(t, 1, result.Streak.State.Current)
}

func TestService_SubmitSession_FeedbackVisibleWithinSession(t *testing.T) {
	service, _, poTargets := newTestService(t)
	ctx := context.Background()

	_, err := service.SubmitSession(ctx, "serj", squatSession(trainingDay(21),
		squatSet(100, 6, engine.FeedbackTooEasy),
		squatSet(100, 6, engine.FeedbackTooEasy),
	))
	require.NoError(t, err)

	// both deltas applied sequentially: 0.5 -> 0.75 -> 1.0
	target, err := poTargets.SeedIfAbsent(ctx, "serj", "Squat", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, target)
}

func TestService_SubmitSession_InvalidFeedbackRejected(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.SubmitSession(context.Background(), "serj", squatSession(trainingDay(21),
		squatSet(100, 6, "brutal"),
	))
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestService_StreakAcrossSessions(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	// Mon, Tue, Thu: the third finished training day crosses the first
	// milestone (Wed is a rest day)
	for _, day := range []int{17, 18} {
		_, err := service.SubmitSession(ctx, "serj",
			squatSession(trainingDay(day), squatSet(100, 6, engine.FeedbackOnTarget)))
		require.NoError(t, err)
	}
	result, err := service.SubmitSession(ctx, "serj",
		squatSession(trainingDay(20), squatSet(100, 6, engine.FeedbackOnTarget)))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Streak.State.Current)
	assert.Equal(t, []int{3}, result.Streak.Celebrations)

	// reading the streak the next day extends it without re-celebrating
	result2, err := service.SubmitSession(ctx, "serj",
		squatSession(trainingDay(21), squatSet(100, 6, engine.FeedbackOnTarget)))
	require.NoError(t, err)
	assert.Equal(t, 4, result2.Streak.State.Current)
	assert.Empty(t, result2.Streak.Celebrations)

	update, err := service.GetStreak(ctx, "serj", trainingDay(21))
	require.NoError(t, err)
	assert.Equal(t, 4, update.State.Current)
	assert.Equal(t, 4, update.State.Best)
}

func TestService_SkipDayKeepsStreakAlive(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	for _, day := range []int{17, 18} {
		_, err := service.SubmitSession(ctx, "serj",
			squatSession(trainingDay(day), squatSet(100, 6, engine.FeedbackOnTarget)))
		require.NoError(t, err)
	}
	// Thursday deliberately skipped, Friday trained
	require.NoError(t, service.SkipDay(ctx, "serj", trainingDay(20)))
	result, err := service.SubmitSession(ctx, "serj",
		squatSession(trainingDay(21), squatSet(100, 6, engine.FeedbackOnTarget)))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Streak.State.Current)
}

func TestService_GetProfile_Defaults(t *testing.T) {
	service, _, _ := newTestService(t)

	resp, err := service.GetProfile(context.Background(), "ghost")
	require.NoError(t, err)

	// documented defaults: male, 25, 70kg, 175cm -> 2594 kcal
	assert.Equal(t, 2594, resp.Derived.MaintenanceCalories)
	assert.Equal(t, "ghost", resp.Profile.UserID)
}

func TestService_PutProfile(t *testing.T) {
	service, profiles, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, service.PutProfile(ctx, "serj", profile.Profile{
		Sex:      profile.SexFemale,
		Age:      28,
		WeightKg: 62,
		HeightCm: 168,
	}))
	stored, err := profiles.Get(ctx, "serj")
	require.NoError(t, err)
	assert.Equal(t, profile.SexFemale, stored.Sex)
	assert.Equal(t, "serj", stored.UserID)

	err = service.PutProfile(ctx, "serj", profile.Profile{Sex: "robot"})
	assert.ErrorIs(t, err, ErrInvalidProfile)

	err = service.PutProfile(ctx, "serj", profile.Profile{WeightKg: -3})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestService_GetAnalytics(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.SubmitSession(ctx, "serj", squatSession(trainingDay(17),
		squatSet(100, 6, engine.FeedbackOnTarget),
		squatSet(102, 6, engine.FeedbackOnTarget),
	))
	require.NoError(t, err)

	analytics, err := service.GetAnalytics(ctx, "serj", "Squat", time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, analytics.Series, 2)
	assert.Equal(t, 102.0, analytics.Series[1].RunningPR)
	require.Len(t, analytics.PersonalRecords, 1)
	assert.Equal(t, 102.0, analytics.PersonalRecords[0].WeightKg)
	// two sets are far below the correlation sample minimum
	assert.Nil(t, analytics.CaloriesCorrelation)

	// an exercise never trained degrades to empty series, not an error
	empty, err := service.GetAnalytics(ctx, "serj", "Deadlift", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, empty.Series)
}
