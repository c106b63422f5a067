package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/traintrack/internal/overload/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2026, 8, n, 0, 0, 0, 0, time.UTC)
}

func addDaySession(
	t *testing.T,
	repo *repoMock,
	userID string,
	sessionDay time.Time,
	calories int,
	sets ...Set,
) {
	t.Helper()
	_, err := repo.AddSession(context.Background(), Session{
		UserID:   userID,
		Date:     sessionDay,
		DayType:  "Push",
		Finished: true,
		Calories: calories,
		Sets:     sets,
	})
	require.NoError(t, err)
}

func set(exercise string, weight float64, reps int, feedback engine.Feedback) Set {
	return Set{
		Exercise:          exercise,
		SetNumber:         1,
		ActualWeight:      weight,
		ActualReps:        reps,
		RecommendedWeight: weight,
		RecommendedReps:   reps,
		Feedback:          feedback,
	}
}

func TestAnalyzer_PersonalRecords(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)
	ctx := context.Background()

	addDaySession(t, repo, "serj", day(1), 0, set("Squat", 100, 5, engine.FeedbackOnTarget))
	addDaySession(t, repo, "serj", day(2), 0, set("Bench Press", 80, 5, engine.FeedbackOnTarget))
	addDaySession(t, repo, "serj", day(3), 0, set("Squat", 100, 5, engine.FeedbackOnTarget))

	records, err := analyzer.PersonalRecords(ctx, "serj", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// equal squat weights resolve to the more recent date
	assert.Equal(t, "Squat", records[0].Exercise)
	assert.Equal(t, 100.0, records[0].WeightKg)
	assert.Equal(t, day(3), records[0].Date)
	assert.Equal(t, "Bench Press", records[1].Exercise)

	top, err := analyzer.PersonalRecords(ctx, "serj", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Squat", top[0].Exercise)

	// other users do not leak in
	none, err := analyzer.PersonalRecords(ctx, "other", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFatigueScore(t *testing.T) {
	assert.Zero(t, fatigueScore(nil))

	flatOnTarget := make([]HistoryEntry, 6)
	for i := range flatOnTarget {
		flatOnTarget[i] = HistoryEntry{ActualWeight: 60, Feedback: engine.FeedbackOnTarget}
	}
	assert.Zero(t, fatigueScore(flatOnTarget))

	flatTooHard := make([]HistoryEntry, 6)
	for i := range flatTooHard {
		flatTooHard[i] = HistoryEntry{ActualWeight: 60, Feedback: engine.FeedbackTooHard}
	}
	assert.InDelta(t, 0.6, fatigueScore(flatTooHard), 1e-9)

	// flipping one report to too_hard can only raise the score
	oneTooHard := make([]HistoryEntry, 6)
	copy(oneTooHard, flatOnTarget)
	oneTooHard[3].Feedback = engine.FeedbackTooHard
	assert.Greater(t, fatigueScore(oneTooHard), fatigueScore(flatOnTarget))
	assert.Less(t, fatigueScore(oneTooHard), fatigueScore(flatTooHard))

	// declining weights raise the score even with pleasant feedback
	declining := make([]HistoryEntry, 6)
	for i := range declining {
		declining[i] = HistoryEntry{ActualWeight: 100 - float64(i)*5, Feedback: engine.FeedbackOnTarget}
	}
	assert.Greater(t, fatigueScore(declining), 0.0)
	assert.LessOrEqual(t, fatigueScore(declining), 1.0)
}

func TestPlateauDetected(t *testing.T) {
	sessionEntries := func(sessionID int, best float64, feedback engine.Feedback) []HistoryEntry {
		return []HistoryEntry{
			{SessionID: sessionID, ActualWeight: best - 2, Feedback: feedback},
			{SessionID: sessionID, ActualWeight: best, Feedback: feedback},
		}
	}
	flatten := func(groups ...[]HistoryEntry) []HistoryEntry {
		var entries []HistoryEntry
		for _, g := range groups {
			entries = append(entries, g...)
		}
		return entries
	}

	// too few sessions, no verdict
	assert.False(t, plateauDetected(flatten(
		sessionEntries(1, 100, engine.FeedbackOnTarget),
		sessionEntries(2, 100, engine.FeedbackOnTarget),
	)))

	// three flat sessions with headroom is the textbook plateau
	assert.True(t, plateauDetected(flatten(
		sessionEntries(1, 100, engine.FeedbackOnTarget),
		sessionEntries(2, 100, engine.FeedbackOnTarget),
		sessionEntries(3, 100, engine.FeedbackTooEasy),
	)))

	// flat but everything too hard is overreach, not a plateau
	assert.False(t, plateauDetected(flatten(
		sessionEntries(1, 100, engine.FeedbackTooHard),
		sessionEntries(2, 100, engine.FeedbackTooHard),
		sessionEntries(3, 100, engine.FeedbackTooHard),
	)))

	// any increase inside the window clears the verdict
	assert.False(t, plateauDetected(flatten(
		sessionEntries(1, 100, engine.FeedbackOnTarget),
		sessionEntries(2, 100, engine.FeedbackOnTarget),
		sessionEntries(3, 102, engine.FeedbackOnTarget),
	)))

	// only the trailing window counts, earlier progress is irrelevant
	assert.True(t, plateauDetected(flatten(
		sessionEntries(1, 90, engine.FeedbackOnTarget),
		sessionEntries(2, 100, engine.FeedbackOnTarget),
		sessionEntries(3, 100, engine.FeedbackOnTarget),
		sessionEntries(4, 100, engine.FeedbackOnTarget),
	)))
}

// gradedSets builds one day of sets against a shown recommendation,
// the first hits of them reaching the target and the rest missing it.
func gradedSets(exercise string, weight float64, hits, total int) []Set {
	sets := make([]Set, 0, total)
	for n := 1; n <= total; n++ {
		s := Set{
			Exercise:          exercise,
			SetNumber:         n,
			ActualWeight:      weight,
			ActualReps:        10,
			RecommendedWeight: weight,
			RecommendedReps:   10,
			Feedback:          engine.FeedbackOnTarget,
		}
		if n > hits {
			s.ActualReps = 7
			s.Feedback = engine.FeedbackTooHard
		}
		sets = append(sets, s)
	}
	return sets
}

func TestAnalyzer_CalorieCorrelation(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)
	ctx := context.Background()

	// four day pairs are below the reporting threshold
	for i := 0; i < 4; i++ {
		addDaySession(t, repo, "serj", day(i+1), 2000+i*100,
			gradedSets("Squat", 60, i, 4)...)
	}
	corr, err := analyzer.CalorieCorrelation(ctx, "serj", "Squat")
	require.NoError(t, err)
	assert.Nil(t, corr)

	// the fifth pair unlocks it; the share of sets hitting the shown
	// target tracks calories perfectly here
	addDaySession(t, repo, "serj", day(5), 2400,
		gradedSets("Squat", 60, 4, 4)...)
	corr, err = analyzer.CalorieCorrelation(ctx, "serj", "Squat")
	require.NoError(t, err)
	require.NotNil(t, corr)
	assert.Equal(t, 1.0, *corr)

	// no history at all: no correlation, no error
	corr, err = analyzer.CalorieCorrelation(ctx, "serj", "Deadlift")
	require.NoError(t, err)
	assert.Nil(t, corr)
}

func TestAnalyzer_CalorieCorrelation_OutcomeIsTargetHitsNotVolume(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	// heavier and heavier sets on the high calorie days, so the lifted
	// volume rises with calories, but fewer and fewer of the sets reach
	// the shown target
	for i := 0; i < 5; i++ {
		addDaySession(t, repo, "serj", day(i+1), 2000+i*100,
			gradedSets("Squat", 50+float64(i)*10, 4-i, 4)...)
	}

	corr, err := analyzer.CalorieCorrelation(context.Background(), "serj", "Squat")
	require.NoError(t, err)
	require.NotNil(t, corr)
	assert.Equal(t, -1.0, *corr)
}

func TestAnalyzer_CalorieCorrelation_UngradedSetsCarryNoSignal(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	// freestyle sets logged without a recommendation shown
	for i := 0; i < 5; i++ {
		s := set("Squat", 50+float64(i)*5, 10, engine.FeedbackOnTarget)
		s.RecommendedWeight = 0
		s.RecommendedReps = 0
		addDaySession(t, repo, "serj", day(i+1), 2000+i*100, s)
	}

	corr, err := analyzer.CalorieCorrelation(context.Background(), "serj", "Squat")
	require.NoError(t, err)
	assert.Nil(t, corr)
}

func TestAnalyzer_Recommend_NoHistory(t *testing.T) {
	analyzer := NewAnalyzer(NewMockSessionsRepo())

	rec, err := analyzer.Recommend(context.Background(), "serj", "Squat", 3, 10)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestAnalyzer_Recommend_FlatHistory(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	for i := 1; i <= 6; i++ {
		addDaySession(t, repo, "serj", day(i), 0,
			set("Squat", 60, 8, engine.FeedbackOnTarget))
	}

	rec, err := analyzer.Recommend(context.Background(), "serj", "Squat", 3, 10)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 60.0, rec.WeightKg)
	assert.Equal(t, 8, rec.Reps)
	assert.Zero(t, rec.FatigueScore)
	assert.False(t, rec.FatigueAdjusted)
	// relaxed feedback and no fatigue earns an extra set
	assert.Equal(t, 4, rec.RecommendedSets)
	assert.Nil(t, rec.CaloriesCorrelation)
}

func TestAnalyzer_Recommend_RisingHistoryIsCapped(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	// steep linear progress, the raw forecast would be 110
	for i := 0; i < 6; i++ {
		addDaySession(t, repo, "serj", day(i+1), 0,
			set("Squat", 50+float64(i)*10, 8, engine.FeedbackOnTarget))
	}

	rec, err := analyzer.Recommend(context.Background(), "serj", "Squat", 3, 10)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// capped at 105% of the last weight, then the 2% progress bonus
	assert.Equal(t, 107.0, rec.WeightKg)
	assert.LessOrEqual(t, rec.WeightKg, 100*1.05*1.02)
}

func TestAnalyzer_Recommend_FatigueReducesLoad(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	// twelve declining too_hard sets, a lifter digging themselves a hole
	for i := 0; i < 12; i++ {
		addDaySession(t, repo, "serj", day(i+1), 0,
			set("Squat", 100-float64(i)*2, 8, engine.FeedbackTooHard))
	}

	rec, err := analyzer.Recommend(context.Background(), "serj", "Squat", 3, 10)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.True(t, rec.FatigueAdjusted)
	assert.Greater(t, rec.FatigueScore, 0.6)
	assert.Less(t, rec.WeightKg, 78.0)
	// high fatigue drops a set instead of adding one
	assert.Equal(t, 2, rec.RecommendedSets)
}

func TestAnalyzer_Recommend_LowCaloriesConservatism(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	// target hits track calories and the intake is low, so the
	// forecast backs off a little
	for i := 0; i < 6; i++ {
		s := set("Squat", 50+float64(i)*2, 10, engine.FeedbackOnTarget)
		if i < 3 {
			// the shown target was missed on the low calorie days
			s.ActualReps = 8
		}
		addDaySession(t, repo, "serj", day(i+1), 1800+i*20, s)
	}

	rec, err := analyzer.Recommend(context.Background(), "serj", "Squat", 3, 10)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.NotNil(t, rec.CaloriesCorrelation)
	assert.Equal(t, 0.88, *rec.CaloriesCorrelation)
	assert.Contains(t, rec.Note, "calories")
	// 62 forecast, x0.97 calories, x1.02 progress bonus, to the half kilo
	assert.Equal(t, 61.5, rec.WeightKg)
}

func TestAnalyzer_ProgressionSeries(t *testing.T) {
	repo := NewMockSessionsRepo()
	analyzer := NewAnalyzer(repo)

	addDaySession(t, repo, "serj", day(1), 0, set("Squat", 60, 8, engine.FeedbackOnTarget))
	addDaySession(t, repo, "serj", day(2), 2400, set("Squat", 65, 8, engine.FeedbackTooHard))
	addDaySession(t, repo, "serj", day(3), 0, set("Squat", 63, 8, engine.FeedbackOnTarget))

	points, err := analyzer.ProgressionSeries(
		context.Background(), "serj", "Squat", time.Time{}, time.Time{},
	)
	require.NoError(t, err)
	require.Len(t, points, 3)

	// the running record never goes down
	assert.Equal(t, 60.0, points[0].RunningPR)
	assert.Equal(t, 65.0, points[1].RunningPR)
	assert.Equal(t, 65.0, points[2].RunningPR)

	assert.Nil(t, points[0].Calories)
	require.NotNil(t, points[1].Calories)
	assert.Equal(t, 2400, *points[1].Calories)
	assert.Nil(t, points[2].Calories)

	assert.Equal(t, engine.FeedbackTooHard, points[1].Feedback)
	assert.Equal(t, 10, points[1].Intensity)
	assert.Equal(t, 8, points[2].Intensity)

	empty, err := analyzer.ProgressionSeries(
		context.Background(), "serj", "Deadlift", time.Time{}, time.Time{},
	)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSet_IsMalformed(t *testing.T) {
	assert.False(t, set("Squat", 60, 8, engine.FeedbackOnTarget).IsMalformed())
	assert.True(t, set("", 60, 8, engine.FeedbackOnTarget).IsMalformed())
	assert.True(t, set("Squat", 0, 8, engine.FeedbackOnTarget).IsMalformed())
	assert.True(t, set("Squat", 60, 0, engine.FeedbackOnTarget).IsMalformed())
}
