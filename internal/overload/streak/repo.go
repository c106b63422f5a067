package streak

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/traintrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Get loads the cached streak state of a user. A user without one yet
// gets the zero state, that is not an error.
func (r *Repo) Get(ctx context.Context, userID string) (_ State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.streak.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var state State
	var lastMissed *time.Time
	err = r.db.QueryRow(ctx, `
		SELECT current, best, last_missed, milestone_watermark
		FROM streak_state
		WHERE user_id = $1
	`, userID).Scan(&state.Current, &state.Best, &lastMissed, &state.MilestoneWatermark)
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	if lastMissed != nil {
		state.LastMissedDate = *lastMissed
	}
	return state, nil
}

// Save upserts the streak state, last write wins.
func (r *Repo) Save(ctx context.Context, userID string, state State) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.streak.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var lastMissed *time.Time
	if !state.LastMissedDate.IsZero() {
		lastMissed = &state.LastMissedDate
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO streak_state (user_id, current, best, last_missed, milestone_watermark)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			current = EXCLUDED.current,
			best = EXCLUDED.best,
			last_missed = EXCLUDED.last_missed,
			milestone_watermark = EXCLUDED.milestone_watermark
	`, userID, state.Current, state.Best, lastMissed, state.MilestoneWatermark)
	return err
}
