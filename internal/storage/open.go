// Package storage selects the report store backing a deployment.
package storage

import (
	"context"
	"log/slog"

	"github.com/sheikh-saqib/concurrent-ledger/internal/config"
	interfaces "github.com/sheikh-saqib/concurrent-ledger/internal/interfaces"
	"github.com/sheikh-saqib/concurrent-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/concurrent-ledger/internal/storage/postgres"
)

// Open returns the Postgres store when a DSN is configured and the in-memory
// store otherwise.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (interfaces.ReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		logger.Info("Using in-memory report store")
		return memory.NewMemoryReportStore(), nil
	}

	store, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	logger.Info("Using postgres report store")
	return store, nil
}
