package sessions

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/2beens/traintrack/internal/overload/engine"
	"github.com/2beens/traintrack/internal/telemetry/tracing"
	"github.com/2beens/traintrack/pkg"
)

const (
	// historyWindow caps how far back trend detection looks, in sets
	historyWindow = 50

	// fatigueWindow is the number of recent sets the fatigue blend
	// looks at
	fatigueWindow = 12

	// plateauWindow is the number of trailing sessions whose best
	// weight must stay flat before we call it a plateau
	plateauWindow = 3

	// minCorrelationSamples is the minimum number of (calories, outcome)
	// day pairs before a correlation is reported at all
	minCorrelationSamples = 5

	// lowCalorieThreshold marks an average daily intake below which the
	// calorie-correlation conservatism kicks in, in kcal
	lowCalorieThreshold = 2200

	// holt smoothing parameters, tuned for short noisy weight series
	holtAlpha = 0.25
	holtBeta  = 0.05

	maxRecommendedSets = 8
)

type analyzerRepo interface {
	History(ctx context.Context, params HistoryParams) ([]HistoryEntry, error)
	DailyCalories(ctx context.Context, userID string, from, to time.Time) (map[time.Time]int, error)
}

// Analyzer derives read-only projections from the set history: records,
// fatigue, plateaus, calorie correlation and the trend-based weight
// forecast. Everything here is recomputable from the raw sets.
type Analyzer struct {
	repo analyzerRepo
}

func NewAnalyzer(repo analyzerRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

type PersonalRecord struct {
	Exercise string    `json:"exercise"`
	WeightKg float64   `json:"weightKg"`
	Date     time.Time `json:"date"`
}

// PersonalRecords returns the heaviest lifted weight per exercise,
// heaviest first. Equal weights rank by the more recent date.
func (a *Analyzer) PersonalRecords(ctx context.Context, userID string, topN int) (_ []PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.overload.personal-records")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.History(ctx, HistoryParams{UserID: userID})
	if err != nil {
		return nil, err
	}

	best := make(map[string]PersonalRecord)
	for _, e := range entries {
		record, ok := best[e.Exercise]
		if !ok || e.ActualWeight > record.WeightKg ||
			(e.ActualWeight == record.WeightKg && e.Date.After(record.Date)) {
			best[e.Exercise] = PersonalRecord{
				Exercise: e.Exercise,
				WeightKg: e.ActualWeight,
				Date:     e.Date,
			}
		}
	}

	records := make([]PersonalRecord, 0, len(best))
	for _, r := range best {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].WeightKg != records[j].WeightKg {
			return records[i].WeightKg > records[j].WeightKg
		}
		return records[i].Date.After(records[j].Date)
	})

	if topN > 0 && len(records) > topN {
		records = records[:topN]
	}
	return records, nil
}

// FatigueScore blends the share of too_hard feedback with the downward
// weight trend over the recent sets into a score in [0, 1]. More
// too_hard reports or a steeper decline can only push the score up.
func (a *Analyzer) FatigueScore(ctx context.Context, userID, exercise string) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.overload.fatigue-score")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.History(ctx, HistoryParams{
		UserID:   userID,
		Exercise: exercise,
		Limit:    historyWindow,
	})
	if err != nil {
		return 0, err
	}
	return fatigueScore(entries), nil
}

func fatigueScore(entries []HistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	if len(entries) > fatigueWindow {
		entries = entries[len(entries)-fatigueWindow:]
	}

	var tooHard int
	for _, e := range entries {
		if e.Feedback == engine.FeedbackTooHard {
			tooHard++
		}
	}
	tooHardShare := float64(tooHard) / float64(len(entries))

	// downward trend: relative drop of the recent half vs the earlier half
	var drop float64
	if half := len(entries) / 2; half > 0 {
		var earlier, recent float64
		for _, e := range entries[:half] {
			earlier += e.ActualWeight
		}
		earlier /= float64(half)
		for _, e := range entries[half:] {
			recent += e.ActualWeight
		}
		recent /= float64(len(entries) - half)

		if earlier > 0 && recent < earlier {
			drop = math.Min(1, (earlier-recent)/earlier)
		}
	}

	return math.Min(1, 0.6*tooHardShare+0.4*drop)
}

// PlateauDetected reports whether the per-session best weight has not
// increased over the trailing sessions although the lifter still had
// headroom (at least one on_target or too_easy report in the window).
// Flat sessions full of too_hard feedback are overreach, not a plateau.
func (a *Analyzer) PlateauDetected(ctx context.Context, userID, exercise string) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.overload.plateau-detected")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.History(ctx, HistoryParams{
		UserID:   userID,
		Exercise: exercise,
		Limit:    historyWindow,
	})
	if err != nil {
		return false, err
	}
	return plateauDetected(entries), nil
}

func plateauDetected(entries []HistoryEntry) bool {
	type sessionBest struct {
		best        float64
		hadHeadroom bool
	}

	var bests []sessionBest
	lastSessionID := -1
	for _, e := range entries {
		if e.SessionID != lastSessionID {
			bests = append(bests, sessionBest{})
			lastSessionID = e.SessionID
		}
		current := &bests[len(bests)-1]
		if e.ActualWeight > current.best {
			current.best = e.ActualWeight
		}
		if e.Feedback == engine.FeedbackOnTarget || e.Feedback == engine.FeedbackTooEasy {
			current.hadHeadroom = true
		}
	}

	if len(bests) < plateauWindow {
		return false
	}

	window := bests[len(bests)-plateauWindow:]
	hadHeadroom := false
	for _, b := range window {
		if b.hadHeadroom {
			hadHeadroom = true
		}
		if b.best > window[0].best {
			return false
		}
	}
	return hadHeadroom
}

// CalorieCorrelation pairs each training day's set success rate (the
// share of sets that hit the recommended reps at the recommended
// weight) with the calories logged for that day and returns the
// Pearson coefficient. With fewer than five pairs there is no signal
// worth reporting and nil comes back instead of a number.
func (a *Analyzer) CalorieCorrelation(ctx context.Context, userID, exercise string) (_ *float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.overload.calorie-correlation")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.History(ctx, HistoryParams{
		UserID:   userID,
		Exercise: exercise,
		Limit:    historyWindow,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	from := dayOf(entries[0].Date)
	to := dayOf(entries[len(entries)-1].Date)
	calories, err := a.repo.DailyCalories(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	return calorieCorrelation(entries, calories), nil
}

func calorieCorrelation(entries []HistoryEntry, calories map[time.Time]int) *float64 {
	type dayOutcome struct {
		hits   int
		graded int
	}
	days := make(map[time.Time]*dayOutcome)
	var order []time.Time
	for _, e := range entries {
		day := dayOf(e.Date)
		if _, ok := days[day]; !ok {
			days[day] = &dayOutcome{}
			order = append(order, day)
		}
		// sets logged without a shown recommendation have no target
		// to hit and carry no outcome signal
		if e.RecommendedWeight <= 0 || e.RecommendedReps <= 0 {
			continue
		}
		days[day].graded++
		if e.Success() {
			days[day].hits++
		}
	}

	var cals, successRates []float64
	for _, day := range order {
		cal, ok := calories[day]
		if !ok {
			continue
		}
		d := days[day]
		if d.graded == 0 {
			continue
		}
		cals = append(cals, float64(cal))
		successRates = append(successRates, float64(d.hits)/float64(d.graded))
	}

	if len(cals) < minCorrelationSamples {
		return nil
	}
	corr, ok := pearsonCorrelation(cals, successRates)
	if !ok {
		return nil
	}
	corr = pkg.RoundToTwoDecimals(corr)
	return &corr
}

// Recommendation is the trend-based forecast for the next session of
// one exercise, before the rule-based suggestion is layered on top.
type Recommendation struct {
	WeightKg            float64  `json:"weightKg"`
	Reps                int      `json:"reps"`
	Note                string   `json:"note"`
	FatigueScore        float64  `json:"fatigueScore"`
	FatigueAdjusted     bool     `json:"fatigueAdjusted"`
	RecommendedSets     int      `json:"recommendedSets"`
	CaloriesCorrelation *float64 `json:"caloriesCorrelation,omitempty"`
}

// Recommend forecasts the next weight and reps for the exercise from
// its history. Returns nil without error when there is no history at
// all, the caller then falls back to rule-based suggestions only.
//
// The pipeline: Holt smoothing (regression fallback) for the raw
// forecast, capped to [0.90, 1.05] of the last lifted weight, then a
// fatigue reduction, then calorie conservatism, then a small
// aggression factor from the recent progression slope.
func (a *Analyzer) Recommend(
	ctx context.Context,
	userID, exercise string,
	baseSets, targetReps int,
) (_ *Recommendation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.overload.recommend")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.History(ctx, HistoryParams{
		UserID:   userID,
		Exercise: exercise,
		Limit:    historyWindow,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	from := dayOf(entries[0].Date)
	to := dayOf(entries[len(entries)-1].Date)
	calories, err := a.repo.DailyCalories(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	return recommend(entries, calories, baseSets, targetReps), nil
}

func recommend(entries []HistoryEntry, calories map[time.Time]int, baseSets, targetReps int) *Recommendation {
	if baseSets < 1 {
		baseSets = 1
	}
	if targetReps < 1 {
		targetReps = engine.DefaultTargetReps
	}

	xs := make([]float64, len(entries))
	weights := make([]float64, len(entries))
	reps := make([]float64, len(entries))
	for i, e := range entries {
		xs[i] = float64(i)
		weights[i] = e.ActualWeight
		reps[i] = float64(e.ActualReps)
	}
	lastWeight := weights[len(weights)-1]
	lastReps := entries[len(entries)-1].ActualReps

	predictX := float64(len(xs))
	weightPred, ok := holtLinearPredict(weights, holtAlpha, holtBeta, 1)
	if !ok {
		if weightPred, ok = linearRegressionPredict(xs, weights, predictX); !ok {
			weightPred = lastWeight
		}
	}
	// cap the jump in either direction, trend lines extrapolate eagerly
	weightPred = math.Max(lastWeight*0.90, math.Min(lastWeight*1.05, weightPred))

	repsPred, ok := linearRegressionPredict(xs, reps, predictX)
	if !ok {
		repsPred = float64(lastReps)
	}
	aiReps := int(math.Round(repsPred))
	if aiReps < 1 {
		aiReps = 1
	}
	if aiReps > targetReps+2 {
		aiReps = targetReps + 2
	}

	rec := &Recommendation{
		Note:            "trend-based suggestion",
		FatigueScore:    pkg.RoundToTwoDecimals(fatigueScore(entries)),
		RecommendedSets: baseSets,
		Reps:            aiReps,
	}

	if rec.FatigueScore > 0.45 {
		weightPred *= math.Max(0.85, 1-rec.FatigueScore*0.12)
		rec.FatigueAdjusted = true
		rec.Note = "fatigue predicted, reducing load"
	}

	rec.CaloriesCorrelation = calorieCorrelation(entries, calories)
	if rec.CaloriesCorrelation != nil && *rec.CaloriesCorrelation > 0.3 {
		if avg, ok := averageCalories(calories); ok && avg < lowCalorieThreshold {
			weightPred *= 0.97
			rec.Note = "low calories correlated with lower performance, modest reduction applied"
		}
	}

	// set count adjustment, conservative in both directions
	recentTooHard := recentTooHardShare(entries)
	if recentTooHard < 0.1 && rec.FatigueScore < 0.25 && baseSets < maxRecommendedSets {
		rec.RecommendedSets = baseSets + 1
	}
	if rec.FatigueScore > 0.6 && baseSets > 1 {
		rec.RecommendedSets = baseSets - 1
	}

	// lifters progressing fast get a slightly more aggressive forecast,
	// regressing ones a slightly gentler one
	slope := (weights[len(weights)-1] - weights[0]) / float64(len(weights))
	if slope > 0.01 {
		weightPred *= 1.02
	} else if slope < -0.02 {
		weightPred *= 0.98
	}

	rec.WeightKg = math.Max(0, pkg.RoundToHalfKilo(weightPred))
	return rec
}

func recentTooHardShare(entries []HistoryEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	recent := entries
	if len(recent) > 6 {
		recent = recent[len(recent)-6:]
	}
	var tooHard int
	for _, e := range recent {
		if e.Feedback == engine.FeedbackTooHard {
			tooHard++
		}
	}
	return float64(tooHard) / float64(len(recent))
}

func averageCalories(calories map[time.Time]int) (float64, bool) {
	if len(calories) == 0 {
		return 0, false
	}
	var sum int
	for _, c := range calories {
		sum += c
	}
	return float64(sum) / float64(len(calories)), true
}

// ProgressionPoint is one set in the per-exercise chart series.
type ProgressionPoint struct {
	Date      time.Time       `json:"date"`
	WeightKg  float64         `json:"weightKg"`
	Reps      int             `json:"reps"`
	Feedback  engine.Feedback `json:"feedback"`
	Intensity int             `json:"intensity"`
	RunningPR float64         `json:"runningPr"`
	Calories  *int            `json:"calories,omitempty"`
}

// ProgressionSeries returns the chronological set series for one
// exercise, each point annotated with the personal record as of that
// point and the calories logged that day, when known.
func (a *Analyzer) ProgressionSeries(
	ctx context.Context,
	userID, exercise string,
	from, to time.Time,
) (_ []ProgressionPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.overload.progression-series")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.repo.History(ctx, HistoryParams{
		UserID:   userID,
		Exercise: exercise,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []ProgressionPoint{}, nil
	}

	calories, err := a.repo.DailyCalories(ctx, userID, dayOf(entries[0].Date), dayOf(entries[len(entries)-1].Date))
	if err != nil {
		return nil, err
	}

	points := make([]ProgressionPoint, 0, len(entries))
	runningPR := 0.0
	for _, e := range entries {
		if e.ActualWeight > runningPR {
			runningPR = e.ActualWeight
		}
		point := ProgressionPoint{
			Date:      e.Date,
			WeightKg:  e.ActualWeight,
			Reps:      e.ActualReps,
			Feedback:  e.Feedback,
			Intensity: e.Feedback.Intensity(),
			RunningPR: runningPR,
		}
		if cal, ok := calories[dayOf(e.Date)]; ok {
			point.Calories = &cal
		}
		points = append(points, point)
	}
	return points, nil
}

// dayOf truncates a timestamp to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
