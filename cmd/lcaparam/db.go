package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lcaparam/internal/config"
	"lcaparam/internal/store"
	"lcaparam/internal/store/postgres"
	"lcaparam/internal/store/sqlite"
)

func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.Database.DSN
	var (
		db  store.Store
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		db, err = sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err = postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database dsn: %s", dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	logger.Debug("opened store", zap.String("scheme", strings.SplitN(dsn, "://", 2)[0]))
	return db, nil
}
