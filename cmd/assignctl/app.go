package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/rvm-assignment-api/internal/engine"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/repository"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	"github.com/noah-isme/rvm-assignment-api/pkg/config"
	"github.com/noah-isme/rvm-assignment-api/pkg/database"
)

// cliStore is satisfied by both embedded backends.
type cliStore interface {
	service.AssignmentStore
	service.HistoryStore
	service.RosterReader
	SavePersons(ctx context.Context, persons []models.Person) error
}

type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      cliStore
	workflow   *service.WorkflowService
	generation *service.GenerationService
	history    *service.HistoryService
	close      func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if globalFlags.debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zapCfg.OutputPaths = []string{"stderr"}
	logr, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	driver := globalFlags.store
	path := globalFlags.db
	if path == "" {
		path = cfg.Store.SQLitePath
	}

	a := &app{cfg: cfg, logger: logr, close: func() { _ = logr.Sync() }}
	switch driver {
	case config.StoreMemory:
		a.store = repository.NewMemoryStore()
	case "", config.StoreSQLite:
		db, err := database.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		store, err := repository.NewSQLiteStore(db)
		if err != nil {
			return nil, fmt.Errorf("migrate %s: %w", path, err)
		}
		a.store = store
		a.close = func() {
			_ = store.Close()
			_ = logr.Sync()
		}
	default:
		return nil, fmt.Errorf("unknown store %q", driver)
	}

	a.workflow = service.NewWorkflowService(a.store, logr)
	orchestrator := engine.NewOrchestrator(engine.ConfigFromSettings(cfg.Engine), logr)
	a.generation = service.NewGenerationService(orchestrator, a.workflow, a.store, a.store, nil, logr)
	a.history = service.NewHistoryService(a.store, nil, nil, logr)
	return a, nil
}

// staticHistory serves a history file without storing it.
type staticHistory []models.HistoryEntry

func (h staticHistory) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	return h, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// staticRoster serves a roster file without storing it.
type staticRoster []models.Person

func (r staticRoster) ListPersons(ctx context.Context) ([]models.Person, error) {
	return r, nil
}
