package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/traintrack/internal/overload/catalog"
	"github.com/2beens/traintrack/internal/overload/engine"
	"github.com/2beens/traintrack/internal/overload/profile"
	"github.com/2beens/traintrack/internal/overload/sessions"
	"github.com/2beens/traintrack/internal/overload/streak"
	"github.com/2beens/traintrack/internal/telemetry/metrics"
	"github.com/2beens/traintrack/internal/telemetry/tracing"
	"github.com/2beens/traintrack/pkg"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrInvalidFeedback = errors.New("invalid feedback value")
	ErrInvalidProfile  = errors.New("invalid profile")
)

const (
	// snapshot cache: snapshots are cheap to rebuild but read often,
	// a short TTL keeps them fresh enough between sessions
	snapshotCacheSize = 10 * 1024 * 1024
	snapshotCacheTTL  = 60 // seconds

	// streakLookback bounds the day-marker window fed to the tracker
	streakLookback = 90 * 24 * time.Hour
)

type sessionsRepo interface {
	AddSession(ctx context.Context, session sessions.Session) (*sessions.Session, error)
	GetSession(ctx context.Context, id int) (*sessions.Session, error)
	ListSessions(ctx context.Context, params sessions.SessionParams) ([]sessions.Session, error)
	History(ctx context.Context, params sessions.HistoryParams) ([]sessions.HistoryEntry, error)
	MarkDay(ctx context.Context, userID string, day time.Time, status sessions.DayStatus) error
	DayStatuses(ctx context.Context, userID string, from, to time.Time) (map[time.Time]sessions.DayStatus, error)
}

type overloadAnalyzer interface {
	PersonalRecords(ctx context.Context, userID string, topN int) ([]sessions.PersonalRecord, error)
	PlateauDetected(ctx context.Context, userID, exercise string) (bool, error)
	CalorieCorrelation(ctx context.Context, userID, exercise string) (*float64, error)
	Recommend(ctx context.Context, userID, exercise string, baseSets, targetReps int) (*sessions.Recommendation, error)
	ProgressionSeries(ctx context.Context, userID, exercise string, from, to time.Time) ([]sessions.ProgressionPoint, error)
}

type profilesRepo interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	Upsert(ctx context.Context, p profile.Profile) error
}

type poTargetsRepo interface {
	SeedIfAbsent(ctx context.Context, userID, exercise string, seed float64) (float64, error)
	Set(ctx context.Context, userID, exercise string, target float64) error
}

type streaksRepo interface {
	Get(ctx context.Context, userID string) (streak.State, error)
	Save(ctx context.Context, userID string, state streak.State) error
}

// Snapshot is the ephemeral, recomputed-on-read recommendation payload
// for one exercise. History is derived from the persisted sets, never
// from old snapshots.
type Snapshot struct {
	Exercise   string  `json:"exercise"`
	RuleWeight float64 `json:"ruleWeight"`
	RuleReps   int     `json:"ruleReps"`
	// SetWeights holds the suggestion for every planned set, first set
	// heaviest, so clients do not re-derive the decay bias
	SetWeights      []float64 `json:"setWeights"`
	AIWeight        *float64  `json:"aiWeight,omitempty"`
	AIReps          *int      `json:"aiReps,omitempty"`
	FatigueScore    float64   `json:"fatigueScore"`
	RecommendedSets int       `json:"recommendedSets"`
	Substitutions   []string  `json:"substitutions,omitempty"`
	StretchWeight   float64   `json:"stretchWeight"`
	POTarget        float64   `json:"poTarget"`
	Plateau         bool      `json:"plateau"`
	Note            string    `json:"note,omitempty"`
}

type SubmitResult struct {
	SessionID   int        `json:"sessionId"`
	SkippedSets int        `json:"skippedSets"`
	Snapshots   []Snapshot `json:"snapshots"`
	// AvgIntensity is the mean reported effort of the kept sets on the
	// 1-10 scale, MissedDaysLast7 the days without a finished session
	// in the 7-day window ending on the session date
	AvgIntensity    float64       `json:"avgIntensity"`
	MissedDaysLast7 int           `json:"missedDaysLast7"`
	Streak          streak.Update `json:"streak"`
}

type Analytics struct {
	Exercise            string                      `json:"exercise"`
	Series              []sessions.ProgressionPoint `json:"series"`
	PersonalRecords     []sessions.PersonalRecord   `json:"personalRecords"`
	Plateau             bool                        `json:"plateau"`
	CaloriesCorrelation *float64                    `json:"caloriesCorrelation,omitempty"`
}

type ProfileResponse struct {
	Profile profile.Profile        `json:"profile"`
	Derived profile.DerivedProfile `json:"derived"`
	Ideal   profile.DerivedProfile `json:"ideal"`
}

type Service struct {
	catalog      *catalog.Catalog
	seeder       *engine.Seeder
	analyzer     overloadAnalyzer
	sessionsRepo sessionsRepo
	profiles     profilesRepo
	poTargets    poTargetsRepo
	streaks      streaksRepo
	tracker      *streak.Tracker
	cache        *freecache.Cache
	metrics      *metrics.Manager
}

func NewService(
	exerciseCatalog *catalog.Catalog,
	analyzer overloadAnalyzer,
	sessionsRepo sessionsRepo,
	profiles profilesRepo,
	poTargets poTargetsRepo,
	streaks streaksRepo,
	tracker *streak.Tracker,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		catalog:      exerciseCatalog,
		seeder:       engine.NewSeeder(exerciseCatalog),
		analyzer:     analyzer,
		sessionsRepo: sessionsRepo,
		profiles:     profiles,
		poTargets:    poTargets,
		streaks:      streaks,
		tracker:      tracker,
		cache:        freecache.NewCache(snapshotCacheSize),
		metrics:      metricsManager,
	}
}

// GetRecommendation builds the recommendation snapshot for one
// exercise. It never fails on missing data: without a profile the
// documented defaults kick in, without history the seed estimate does.
func (s *Service) GetRecommendation(ctx context.Context, userID, exercise string) (_ *Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.get-recommendation")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))

	cacheKey := snapshotCacheKey(userID, exercise)
	if cached, err := s.cache.Get(cacheKey); err == nil {
		var snapshot Snapshot
		if err := json.Unmarshal(cached, &snapshot); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &snapshot, nil
		}
	}

	snapshot, err := s.buildSnapshot(ctx, userID, exercise)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(snapshot); err == nil {
		if err := s.cache.Set(cacheKey, encoded, snapshotCacheTTL); err != nil {
			log.Warnf("set snapshot cache [%s]: %s", exercise, err)
		}
	}

	s.metrics.CounterRecommendations.Inc()
	return snapshot, nil
}

func (s *Service) buildSnapshot(ctx context.Context, userID, exercise string) (*Snapshot, error) {
	userProfile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrProfileNotFound) {
			return nil, fmt.Errorf("get profile: %w", err)
		}
		userProfile = &profile.Profile{UserID: userID}
	}
	derived := profile.Resolve(*userProfile)
	ideal := profile.ResolveIdeal(*userProfile)

	seedWeight := s.seeder.InitialWeight(exercise, derived.WeightKg)
	poTarget, err := s.poTargets.SeedIfAbsent(ctx, userID, exercise, s.seeder.SeedPOTarget(exercise))
	if err != nil {
		return nil, fmt.Errorf("seed po target: %w", err)
	}

	// the freshest persisted recommendation is the rule-based fallback
	var lastRuleWeight float64
	var lastRuleReps int
	recent, err := s.sessionsRepo.History(ctx, sessions.HistoryParams{
		UserID:   userID,
		Exercise: exercise,
		Limit:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if len(recent) > 0 {
		lastRuleWeight = recent[0].RecommendedWeight
		lastRuleReps = recent[0].RecommendedReps
	}

	aiRec, err := s.analyzer.Recommend(
		ctx, userID, exercise,
		s.catalog.DefaultSetCount(exercise), engine.DefaultTargetReps,
	)
	if err != nil {
		return nil, fmt.Errorf("analyzer recommend: %w", err)
	}

	plateau, err := s.analyzer.PlateauDetected(ctx, userID, exercise)
	if err != nil {
		return nil, fmt.Errorf("detect plateau: %w", err)
	}

	snapshot := &Snapshot{
		Exercise:        exercise,
		RecommendedSets: s.catalog.DefaultSetCount(exercise),
		Substitutions:   s.catalog.Substitutions(exercise),
		StretchWeight:   s.seeder.StretchWeight(exercise, ideal.WeightKg),
		POTarget:        poTarget,
		Plateau:         plateau,
		Note:            "no history yet, seeded from body profile",
	}

	var aiWeight float64
	var aiReps int
	if aiRec != nil {
		aiWeight = aiRec.WeightKg
		aiReps = aiRec.Reps
		snapshot.AIWeight = &aiRec.WeightKg
		snapshot.AIReps = &aiRec.Reps
		snapshot.FatigueScore = aiRec.FatigueScore
		snapshot.Note = aiRec.Note
		if aiRec.RecommendedSets > 0 {
			snapshot.RecommendedSets = aiRec.RecommendedSets
		}
	}

	base := engine.ResolveBaseWeight(aiWeight, lastRuleWeight, seedWeight)
	snapshot.RuleWeight = engine.Suggest(1, snapshot.RecommendedSets, poTarget, base)
	snapshot.RuleReps = engine.SuggestReps(aiReps, lastRuleReps)
	for setNumber := 1; setNumber <= snapshot.RecommendedSets; setNumber++ {
		snapshot.SetWeights = append(snapshot.SetWeights,
			engine.Suggest(setNumber, snapshot.RecommendedSets, poTarget, base))
	}
	return snapshot, nil
}

// SubmitSession persists a finished session and applies its feedback.
// Malformed sets are dropped, an invalid feedback value rejects the
// whole session. Returns refreshed snapshots for the session's
// exercises together with the updated streak.
func (s *Service) SubmitSession(ctx context.Context, userID string, session sessions.Session) (_ *SubmitResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.submit-session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session.UserID = userID
	if session.Date.IsZero() {
		session.Date = time.Now()
	}

	kept := make([]sessions.Set, 0, len(session.Sets))
	skipped := 0
	for _, set := range session.Sets {
		if set.IsMalformed() {
			log.Warnf("submit session [%s]: dropping malformed set %d [%s]", userID, set.SetNumber, set.Exercise)
			skipped++
			continue
		}
		if !set.Feedback.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFeedback, set.Feedback)
		}
		kept = append(kept, set)
	}
	session.Sets = kept

	added, err := s.sessionsRepo.AddSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}

	s.metrics.CounterSessionsSubmitted.Inc()
	s.metrics.CounterSetsLogged.Add(float64(len(added.Sets)))

	if err := s.applyFeedback(ctx, userID, added.Sets); err != nil {
		return nil, err
	}

	streakUpdate, err := s.refreshStreak(ctx, userID, session.Date)
	if err != nil {
		return nil, err
	}

	missedDays, err := s.missedDaysLast7(ctx, userID, session.Date)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		SessionID:       added.ID,
		SkippedSets:     skipped,
		AvgIntensity:    avgIntensity(added.Sets),
		MissedDaysLast7: missedDays,
		Streak:          *streakUpdate,
	}
	for _, exercise := range distinctExercises(added.Sets) {
		s.cache.Del(snapshotCacheKey(userID, exercise))
		snapshot, err := s.GetRecommendation(ctx, userID, exercise)
		if err != nil {
			return nil, err
		}
		result.Snapshots = append(result.Snapshots, *snapshot)
	}
	return result, nil
}

// applyFeedback walks the kept sets in order and mutates the PO
// targets. Deltas are applied sequentially, so feedback from an early
// set is already visible to a later set of the same exercise.
func (s *Service) applyFeedback(ctx context.Context, userID string, sets []sessions.Set) error {
	targets := make(map[string]float64)
	for _, set := range sets {
		current, ok := targets[set.Exercise]
		if !ok {
			var err error
			current, err = s.poTargets.SeedIfAbsent(ctx, userID, set.Exercise, s.seeder.SeedPOTarget(set.Exercise))
			if err != nil {
				return fmt.Errorf("seed po target: %w", err)
			}
		}

		// on_target writes too, the audit trail shows the set was evaluated
		next := engine.ApplyFeedback(set.Feedback, current)
		if err := s.poTargets.Set(ctx, userID, set.Exercise, next); err != nil {
			return fmt.Errorf("set po target: %w", err)
		}
		targets[set.Exercise] = next
	}
	return nil
}

// GetStreak recomputes and persists the streak as of today.
func (s *Service) GetStreak(ctx context.Context, userID string, today time.Time) (_ *streak.Update, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.get-streak")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return s.refreshStreak(ctx, userID, today)
}

func (s *Service) refreshStreak(ctx context.Context, userID string, today time.Time) (*streak.Update, error) {
	statuses, err := s.sessionsRepo.DayStatuses(ctx, userID, today.Add(-streakLookback), today)
	if err != nil {
		return nil, fmt.Errorf("get day statuses: %w", err)
	}

	prev, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get streak state: %w", err)
	}

	update := s.tracker.Compute(prev, statuses, today)
	if err := s.streaks.Save(ctx, userID, update.State); err != nil {
		return nil, fmt.Errorf("save streak state: %w", err)
	}
	if len(update.Celebrations) > 0 {
		s.metrics.CounterStreakMilestones.Add(float64(len(update.Celebrations)))
	}
	return &update, nil
}

// GetSession returns one stored session with its sets. A session id
// belonging to another user reads as not found.
func (s *Service) GetSession(ctx context.Context, userID string, id int) (_ *sessions.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.get-session")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.sessionsRepo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, sessions.ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns the user's sessions in chronological order,
// without their sets.
func (s *Service) ListSessions(ctx context.Context, userID string, from, to time.Time) (_ []sessions.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.list-sessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.sessionsRepo.ListSessions(ctx, sessions.SessionParams{
		UserID: userID,
		From:   from,
		To:     to,
	})
}

// SkipDay marks a training day as deliberately skipped, which keeps it
// from breaking the streak.
func (s *Service) SkipDay(ctx context.Context, userID string, day time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.skip-day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return s.sessionsRepo.MarkDay(ctx, userID, day, sessions.DaySkipped)
}

// GetAnalytics returns the charting series and derived analytics for
// one exercise. Sparse history degrades to empty series and omitted
// fields, never to an error.
func (s *Service) GetAnalytics(ctx context.Context, userID, exercise string, from, to time.Time) (_ *Analytics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.get-analytics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))

	series, err := s.analyzer.ProgressionSeries(ctx, userID, exercise, from, to)
	if err != nil {
		return nil, fmt.Errorf("progression series: %w", err)
	}
	records, err := s.analyzer.PersonalRecords(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("personal records: %w", err)
	}
	plateau, err := s.analyzer.PlateauDetected(ctx, userID, exercise)
	if err != nil {
		return nil, fmt.Errorf("detect plateau: %w", err)
	}
	correlation, err := s.analyzer.CalorieCorrelation(ctx, userID, exercise)
	if err != nil {
		return nil, fmt.Errorf("calorie correlation: %w", err)
	}

	return &Analytics{
		Exercise:            exercise,
		Series:              series,
		PersonalRecords:     records,
		Plateau:             plateau,
		CaloriesCorrelation: correlation,
	}, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (_ *ProfileResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.get-profile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	userProfile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrProfileNotFound) {
			return nil, err
		}
		userProfile = &profile.Profile{UserID: userID}
	}
	return &ProfileResponse{
		Profile: *userProfile,
		Derived: profile.Resolve(*userProfile),
		Ideal:   profile.ResolveIdeal(*userProfile),
	}, nil
}

func (s *Service) PutProfile(ctx context.Context, userID string, p profile.Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.overload.put-profile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if p.Sex != "" && !p.Sex.IsValid() {
		return fmt.Errorf("%w: sex %q", ErrInvalidProfile, p.Sex)
	}
	if p.Age < 0 || p.WeightKg < 0 || p.HeightCm < 0 || p.IdealWeightKg < 0 {
		return fmt.Errorf("%w: negative values", ErrInvalidProfile)
	}

	p.UserID = userID
	return s.profiles.Upsert(ctx, p)
}

// missedDaysLast7 counts the days with no finished session in the
// 7-day window ending on the given day, inclusive.
func (s *Service) missedDaysLast7(ctx context.Context, userID string, day time.Time) (int, error) {
	statuses, err := s.sessionsRepo.DayStatuses(ctx, userID, day.AddDate(0, 0, -6), day)
	if err != nil {
		return 0, fmt.Errorf("get day statuses: %w", err)
	}

	missed := 7
	for _, status := range statuses {
		if status == sessions.DayFinished {
			missed--
		}
	}
	return missed, nil
}

func avgIntensity(sets []sessions.Set) float64 {
	if len(sets) == 0 {
		return 0
	}
	sum := 0
	for _, set := range sets {
		sum += set.Feedback.Intensity()
	}
	return pkg.RoundToTwoDecimals(float64(sum) / float64(len(sets)))
}

func snapshotCacheKey(userID, exercise string) []byte {
	return []byte(userID + "|" + exercise)
}

func distinctExercises(sets []sessions.Set) []string {
	seen := make(map[string]struct{})
	var exercises []string
	for _, set := range sets {
		if _, ok := seen[set.Exercise]; ok {
			continue
		}
		seen[set.Exercise] = struct{}{}
		exercises = append(exercises, set.Exercise)
	}
	return exercises
}
