package profile

import (
	"context"
	"errors"

	"github.com/2beens/traintrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, userID string) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	p := &Profile{}
	err = r.db.
		QueryRow(ctx, `
			SELECT user_id, sex, age, weight_kg, height_cm, ideal_weight_kg
			FROM user_profile
			WHERE user_id = $1
		`, userID).
		Scan(&p.UserID, &p.Sex, &p.Age, &p.WeightKg, &p.HeightCm, &p.IdealWeightKg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// Upsert stores the profile; last write wins per user.
func (r *Repo) Upsert(ctx context.Context, p Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profile.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", p.UserID))

	_, err = r.db.Exec(ctx, `
		INSERT INTO user_profile (user_id, sex, age, weight_kg, height_cm, ideal_weight_kg)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			sex = EXCLUDED.sex,
			age = EXCLUDED.age,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			ideal_weight_kg = EXCLUDED.ideal_weight_kg;
	`, p.UserID, p.Sex, p.Age, p.WeightKg, p.HeightCm, p.IdealWeightKg)
	return err
}
