package factory

import (
	"context"

	"github.com/mikey/forensic-intel/internal/adapters/graphstore"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// GraphFactory creates the graph database exporter
type GraphFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGraphFactory creates a new graph factory
func NewGraphFactory(cfg *config.Config, logger *zap.Logger) *GraphFactory {
	return &GraphFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateExporter connects to the configured graph database. It returns nil when export is disabled.
func (f *GraphFactory) CreateExporter(ctx context.Context, roles core.RoleClassifier) (*graphstore.Exporter, error) {
	gc := f.cfg.GetGraphExport()
	if !gc.Enabled {
		return nil, nil
	}

	client, err := graphstore.NewNeo4jClient(ctx, graphstore.Options{
		URI:            gc.URI,
		Database:       gc.Database,
		Username:       gc.Username,
		Password:       gc.Password,
		MaxConnections: gc.MaxConnections,
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("Graph export enabled", zap.String("uri", gc.URI), zap.String("database", gc.Database))
	return graphstore.NewExporter(client, roles, f.logger), nil
}
