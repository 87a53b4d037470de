//go:build integration

package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Skryldev/user-records/db"
	"github.com/Skryldev/user-records/models"
	"github.com/Skryldev/user-records/repo"
	"github.com/Skryldev/user-records/service"
)

// setupPostgres starts a throwaway PostgreSQL and returns a pool opened
// through the postgres driver adapter, with the users table created.
func setupPostgres(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	database, err := db.OpenWithDriver("postgres", db.DriverOptions{
		Host:     host,
		Port:     port.Int(),
		User:     "postgres",
		Password: "password",
		Database: "test_db",
	}, db.Config{MaxOpenConns: 10, DefaultTimeout: 10 * time.Second})
	require.NoError(t, err, "open pool")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, repo.EnsureSchema(ctx, database, "postgres"))
	require.NoError(t, repo.EnsureSchema(ctx, database, "postgres"), "second run must be a no-op")
	return database
}

func TestPostgres_Lifecycle(t *testing.T) {
	database := setupPostgres(t)
	svc := service.NewUserService(database)
	ctx := context.Background()

	alice, err := svc.Create(ctx, models.CreateUserParams{Name: "Alice", Email: "a@x.com", Age: ptr(30)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	updated, err := svc.Update(ctx, alice.ID, models.UserPatch{Age: models.Int(31)})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	require.NotNil(t, updated.Age)
	assert.EqualValues(t, 31, *updated.Age)

	updated, err = svc.Update(ctx, alice.ID, models.UserPatch{Age: models.Null()})
	require.NoError(t, err)
	assert.Nil(t, updated.Age)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, svc.Delete(ctx, alice.ID))
	_, err = svc.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPostgres_DuplicateEmailMapsToDuplicateKey(t *testing.T) {
	database := setupPostgres(t)
	svc := service.NewUserService(database)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateUserParams{Name: "A", Email: "dup@x.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.CreateUserParams{Name: "B", Email: "dup@x.com"})
	assert.True(t, db.IsDuplicateKey(err), "got %v", err)
}

func TestPostgres_ConcurrentDeleteOnlyOneWins(t *testing.T) {
	database := setupPostgres(t)
	svc := service.NewUserService(database)
	ctx := context.Background()

	u, err := svc.Create(ctx, models.CreateUserParams{Name: "Race", Email: "race@x.com"})
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Delete(ctx, u.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, service.ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, notFound)
}
