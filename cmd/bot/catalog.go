package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glizzus/radio-relay/internal/catalog"
	"github.com/glizzus/radio-relay/internal/config"
	"github.com/glizzus/radio-relay/internal/datalayer"
	"github.com/glizzus/radio-relay/internal/repository"
)

// loadCatalog picks the station list: Postgres when configured and non-empty,
// then the CATALOG_PATH file, then the catalog compiled into the binary.
func loadCatalog(ctx context.Context, relayConfig *config.RelayConfig, postgresConfig *config.PostgresConfig) (*catalog.Catalog, error) {
	if postgresConfig.Enabled() {
		streams, err := listStoredStreams(ctx, postgresConfig)
		if err != nil {
			return nil, err
		}
		if len(streams) > 0 {
			slog.Info("Loaded catalog from postgres", "streams", len(streams))
			return catalog.New(streams)
		}
		slog.Warn("Postgres catalog is empty, falling back")
	}

	if relayConfig.CatalogPath != "" {
		cat, err := catalog.Load(relayConfig.CatalogPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Loaded catalog from file", "path", relayConfig.CatalogPath, "streams", cat.Len())
		return cat, nil
	}

	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded built-in catalog", "streams", cat.Len())
	return cat, nil
}

func listStoredStreams(ctx context.Context, postgresConfig *config.PostgresConfig) ([]catalog.Stream, error) {
	pool, err := datalayer.NewPostgresPool(ctx, postgresConfig.DSN())
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return repository.NewPostgresStreamRepository(pool).List(ctx)
}
