package recommend

import (
	"context"
	"fmt"

	"github.com/2beens/traintrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// POTargetRepo persists the per-user per-exercise weekly progressive
// overload targets, in kg/week.
type POTargetRepo struct {
	db *pgxpool.Pool
}

func NewPOTargetRepo(db *pgxpool.Pool) *POTargetRepo {
	return &POTargetRepo{
		db: db,
	}
}

// SeedIfAbsent writes the seed target only when the user has none for
// the exercise yet, and returns the target now in effect. Seeding is
// idempotent by presence-check: a stored target, however it got there,
// is never overwritten by another seeding call.
func (r *POTargetRepo) SeedIfAbsent(ctx context.Context, userID, exercise string, seed float64) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.potarget.seed-if-absent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))

	if _, err := r.db.Exec(ctx, `
		INSERT INTO po_target (user_id, exercise, target)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, exercise) DO NOTHING
	`, userID, exercise, seed); err != nil {
		return 0, fmt.Errorf("seed po target: %w", err)
	}

	var target float64
	if err := r.db.QueryRow(ctx, `
		SELECT target FROM po_target WHERE user_id = $1 AND exercise = $2
	`, userID, exercise).Scan(&target); err != nil {
		return 0, fmt.Errorf("get po target: %w", err)
	}
	return target, nil
}

// Set stores the target for an exercise, last write wins.
func (r *POTargetRepo) Set(ctx context.Context, userID, exercise string, target float64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.potarget.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))

	_, err = r.db.Exec(ctx, `
		INSERT INTO po_target (user_id, exercise, target)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, exercise) DO UPDATE SET target = EXCLUDED.target
	`, userID, exercise, target)
	return err
}

// All returns the full exercise to target map of a user.
func (r *POTargetRepo) All(ctx context.Context, userID string) (_ map[string]float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.overload.potarget.all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT exercise, target FROM po_target WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := make(map[string]float64)
	for rows.Next() {
		var exercise string
		var target float64
		if err := rows.Scan(&exercise, &target); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		targets[exercise] = target
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}
