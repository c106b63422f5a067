package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/traintrack/internal/telemetry/tracing"
	"github.com/2beens/traintrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrSessionNotFound = errors.New("session not found")

type HistoryParams struct {
	UserID   string
	Exercise string
	From     time.Time
	To       time.Time
	// Limit keeps only the most recent N sets; the result stays in
	// chronological order regardless
	Limit int
}

type SessionParams struct {
	UserID string
	From   time.Time
	To     time.Time
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// AddSession stores the session together with all its sets in a single
// transaction, so a session is never visible half-written. When the
// session is finished, the training day is marked in the same tx.
func (r *Repo) AddSession(ctx context.Context, session Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO training_session (user_id, date, day_type, finished, calories)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		session.UserID,
		session.Date,
		session.DayType,
		session.Finished,
		session.Calories,
	).Scan(&session.ID)
	if err != nil {
		return nil, err
	}

	for i := range session.Sets {
		set := &session.Sets[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO training_set
				(session_id, exercise, set_number, actual_weight, actual_reps, recommended_weight, recommended_reps, feedback)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`,
			session.ID,
			set.Exercise,
			set.SetNumber,
			set.ActualWeight,
			set.ActualReps,
			set.RecommendedWeight,
			set.RecommendedReps,
			set.Feedback,
		).Scan(&set.ID)
		if err != nil {
			if pkg.IsUniqueViolationError(err) {
				return nil, fmt.Errorf("duplicate set number %d for %s", set.SetNumber, set.Exercise)
			}
			return nil, fmt.Errorf("insert set %d: %w", set.SetNumber, err)
		}
	}

	if session.Finished {
		if _, err = tx.Exec(ctx, `
			INSERT INTO training_day (user_id, day, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, day) DO UPDATE SET status = EXCLUDED.status
		`, session.UserID, dayOf(session.Date), DayFinished); err != nil {
			return nil, fmt.Errorf("mark day finished: %w", err)
		}
	}

	span.SetAttributes(attribute.Int("session.id", session.ID))
	return &session, nil
}

// History lists persisted sets for a user, joined with their session
// date, in chronological order. All filters are optional.
func (r *Repo) History(ctx context.Context, params HistoryParams) (_ []HistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := `
		SELECT ts.session_id, s.date, ts.exercise, ts.set_number,
			ts.actual_weight, ts.actual_reps, ts.recommended_weight, ts.recommended_reps, ts.feedback
		FROM training_set ts
		JOIN training_session s ON s.id = ts.session_id
		WHERE s.user_id = $1`
	args := []any{params.UserID}

	if params.Exercise != "" {
		args = append(args, params.Exercise)
		query += fmt.Sprintf(" AND ts.exercise = $%d", len(args))
	}
	if !params.From.IsZero() {
		args = append(args, params.From)
		query += fmt.Sprintf(" AND s.date >= $%d", len(args))
	}
	if !params.To.IsZero() {
		args = append(args, params.To)
		query += fmt.Sprintf(" AND s.date <= $%d", len(args))
	}

	// take the most recent N first, then flip back to chronological
	query += " ORDER BY s.date DESC, ts.id DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.SessionID, &e.Date, &e.Exercise, &e.SetNumber,
			&e.ActualWeight, &e.ActualReps, &e.RecommendedWeight, &e.RecommendedReps, &e.Feedback,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// GetSession returns one session together with its sets.
func (r *Repo) GetSession(ctx context.Context, id int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session_id", id))

	s := &Session{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, date, day_type, finished, calories
			FROM training_session
			WHERE id = $1
		`, id).
		Scan(&s.ID, &s.UserID, &s.Date, &s.DayType, &s.Finished, &s.Calories)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, exercise, set_number, actual_weight, actual_reps,
			recommended_weight, recommended_reps, feedback
		FROM training_set
		WHERE session_id = $1
		ORDER BY set_number ASC, id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var set Set
		if err := rows.Scan(
			&set.ID, &set.Exercise, &set.SetNumber, &set.ActualWeight, &set.ActualReps,
			&set.RecommendedWeight, &set.RecommendedReps, &set.Feedback,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		s.Sets = append(s.Sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns the sessions of a user in chronological order,
// without their sets.
func (r *Repo) ListSessions(ctx context.Context, params SessionParams) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := `
		SELECT id, user_id, date, day_type, finished, calories
		FROM training_session
		WHERE user_id = $1`
	args := []any{params.UserID}

	if !params.From.IsZero() {
		args = append(args, params.From)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if !params.To.IsZero() {
		args = append(args, params.To)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.DayType, &s.Finished, &s.Calories); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DailyCalories aggregates the logged calories per training day in the
// given range. Days without a calorie log are simply absent.
func (r *Repo) DailyCalories(ctx context.Context, userID string, from, to time.Time) (_ map[time.Time]int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.daily-calories")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT date::date, MAX(calories)
		FROM training_session
		WHERE user_id = $1 AND calories > 0 AND date::date >= $2 AND date::date <= $3
		GROUP BY date::date
	`, userID, dayOf(from), dayOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calories := make(map[time.Time]int)
	for rows.Next() {
		var day time.Time
		var cal int
		if err := rows.Scan(&day, &cal); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		calories[dayOf(day)] = cal
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return calories, nil
}

// MarkDay records the status of a calendar day, overwriting any
// previous marker for that day.
func (r *Repo) MarkDay(ctx context.Context, userID string, day time.Time, status DayStatus) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.mark-day")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(ctx, `
		INSERT INTO training_day (user_id, day, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day) DO UPDATE SET status = EXCLUDED.status
	`, userID, dayOf(day), status)
	return err
}

// DayStatuses returns the day markers of a user in the given range.
func (r *Repo) DayStatuses(ctx context.Context, userID string, from, to time.Time) (_ map[time.Time]DayStatus, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.sessions.day-statuses")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT day, status
		FROM training_day
		WHERE user_id = $1 AND day >= $2 AND day <= $3
	`, userID, dayOf(from), dayOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[time.Time]DayStatus)
	for rows.Next() {
		var day time.Time
		var status DayStatus
		if err := rows.Scan(&day, &status); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		statuses[dayOf(day)] = status
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}
