//go:build integration_test || all_tests

package recommend

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/2beens/traintrack/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPORepoSetup(t *testing.T) (*POTargetRepo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "traintrack",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewPOTargetRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestPOTargetRepo_SeedIsWriteOnce(t *testing.T) {
	repo, shutdown := testPORepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	userID := gofakeit.Username()

	target, err := repo.SeedIfAbsent(ctx, userID, "Squat", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, target)

	// a second seed call never overwrites the stored target
	target, err = repo.SeedIfAbsent(ctx, userID, "Squat", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.5, target)

	// an explicit set does, last write wins
	require.NoError(t, repo.Set(ctx, userID, "Squat", 0.75))
	target, err = repo.SeedIfAbsent(ctx, userID, "Squat", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.75, target)

	all, err := repo.All(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Squat": 0.75}, all)
}
