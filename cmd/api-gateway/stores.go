package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	"github.com/noah-isme/rvm-assignment-api/pkg/config"
	"github.com/noah-isme/rvm-assignment-api/pkg/database"
)

// stores groups the backends chosen by STORE_DRIVER.
type stores struct {
	assignments service.AssignmentStore
	roster      service.RosterReader
	history     service.HistoryStore
	ping        func(ctx context.Context) error
	close       func() error
}

func openStores(ctx context.Context, cfg config.StoreConfig, dbCfg config.DatabaseConfig, logr *zap.Logger) (*stores, error) {
	switch cfg.Driver {
	case "", config.StoreMemory:
		mem := repository.NewMemoryStore()
		logr.Warn("using in-memory store; data is lost on restart")
		return &stores{assignments: mem, roster: mem, history: mem, close: func() error { return nil }}, nil
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &stores{
			assignments: repository.NewAssignmentRepository(db),
			roster:      repository.NewPersonRepository(db),
			history:     repository.NewHistoryRepository(db),
			ping:        db.PingContext,
			close:       db.Close,
		}, nil
	case config.StoreSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		store, err := repository.NewSQLiteStore(db)
		if err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &stores{assignments: store, roster: store, history: store, ping: sqlDB.PingContext, close: store.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
