package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/forensic-intel/internal/adapters/store"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// Store persists records and alerts and owns its connections
type Store interface {
	core.RecordStore
	core.AlertStore
	Close() error
}

// StoreFactory creates record stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore(ctx context.Context) (Store, error) {
	sc, err := f.cfg.GetStore()
	if err != nil {
		return nil, err
	}
	opts := store.Options{
		Overwrite:        sc.Overwrite,
		AlertRetention:   sc.AlertRetention,
		CleanupFrequency: sc.CleanupFrequency,
	}

	var s Store
	switch sc.Type {
	case "memory":
		s = store.NewMemoryStore(f.logger, sc.Overwrite, sc.AlertRetention, sc.CleanupFrequency)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		s, err = sqlStore(store.NewSQLiteStore(sc.SQLitePath, opts, f.logger))
	case "mysql":
		s, err = sqlStore(store.NewMySQLStore(sc.MySQLDSN, opts, f.logger))
	case "postgres":
		var pg *store.PostgresStore
		if pg, err = store.NewPostgresStore(ctx, sc.PostgresDSN, opts, f.logger); err == nil {
			s = pg
		}
	default:
		return nil, fmt.Errorf("unsupported store type: %s", sc.Type)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Record store ready", zap.String("type", sc.Type), zap.Bool("overwrite", sc.Overwrite))
	return s, nil
}

func sqlStore(s *store.SQLStore, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
