package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/glizzus/radio-relay/internal/datalayer"
	"github.com/glizzus/radio-relay/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Stations is the catalog every e2e test imports into Postgres.
var Stations = []catalog.Stream{
	{Key: "alpha", Label: "Alpha FM", URL: "https://radio.example/alpha.mp3", Emoji: "📻"},
	{Key: "beta", Label: "Beta Radio", URL: "https://radio.example/beta/playlist.m3u8", Style: catalog.StyleSuccess},
	{Key: "gamma", Label: "Gamma Talk", URL: "https://radio.example/gamma.aac", Row: 1},
}

var seedOnce sync.Once

// SeedStations replaces the stored catalog with Stations once per run.
func SeedStations(t *testing.T, repo *repository.PostgresStreamRepository) {
	t.Helper()
	var err error
	seedOnce.Do(func() {
		err = repo.Import(context.Background(), Stations)
	})
	if err != nil {
		t.Fatalf("failed to seed stations: %v", err)
	}
}

var (
	once              sync.Once
	postgresContainer *postgres.PostgresContainer
	connStr           string
	startErr          error
	wg                sync.WaitGroup
)

// UsePostgres signals that the test is using Postgres as its database.
// This will either provision or reuse a Postgres container for the test.
// Do not expect a clean state in the database; it is shared across tests.
func UsePostgres(t *testing.T) string {
	t.Helper()

	once.Do(func() {
		ctx := context.Background()
		postgresContainer, startErr = postgres.Run(
			ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("radio"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			postgres.BasicWaitStrategies(),
		)
		if startErr != nil {
			return
		}
		connStr, startErr = postgresContainer.ConnectionString(ctx, "sslmode=disable")
		if startErr != nil {
			return
		}

		var pool *pgxpool.Pool
		pool, startErr = datalayer.NewPostgresPool(ctx, connStr)
		if startErr != nil {
			return
		}
		defer pool.Close()

		startErr = datalayer.MigratePostgres(pool)
	})

	if startErr != nil {
		t.Fatalf("failed to start postgres container: %v", startErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	return connStr
}

// GetRepository creates a stream repository on its own pool.
// It performs no migrations.
func GetRepository(t *testing.T, connStr string) *repository.PostgresStreamRepository {
	t.Helper()
	pool, err := pgxpool.New(t.Context(), connStr)
	if err != nil {
		t.Fatalf("failed to create postgres pool: %v", err)
	}

	t.Cleanup(pool.Close)
	return repository.NewPostgresStreamRepository(pool)
}

func TerminatePostgresForE2E() {
	wg.Wait()
	if postgresContainer != nil {
		err := postgresContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate postgres container: %v", err)
		}
	}
}
