package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/factory"
	"github.com/mikey/forensic-intel/internal/ingest"
	"github.com/mikey/forensic-intel/internal/monitor"
)

// BuildMonitorContainer extends the pipeline container with the monitoring daemon
func BuildMonitorContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container, err := BuildContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Register monitor configuration
	if err := container.Provide(func(cfg *config.Config) (config.MonitorConfig, error) {
		return cfg.GetMonitor()
	}); err != nil {
		return nil, err
	}

	// Register alert handler
	if err := container.Provide(func(s factory.Store, logger *zap.Logger) monitor.Handler {
		return monitor.NewActionHandler(s, logger)
	}); err != nil {
		return nil, err
	}

	// Register monitor with one task per configured source
	if err := container.Provide(func(
		mc config.MonitorConfig,
		cfg *config.Config,
		stages core.Stages,
		s factory.Store,
		handler monitor.Handler,
		logger *zap.Logger,
	) (*monitor.Monitor, error) {
		m := monitor.New(s, handler, mc.QueueSize, logger)

		if mc.DropDir != "" {
			m.AddTask(monitor.NewMessageCollector(mc.DropDir, stages.Ingestor, stages.Extractor, stages.Analyzer,
				ingest.Supported, mc, cfg.GetCase().ID, logger), mc.MessagesInterval)
		}

		if mc.DecisionsFeed != "" {
			c, err := monitor.NewFeedCollector(monitor.KindDecision, mc.DecisionsFeed, logger)
			if err != nil {
				return nil, err
			}
			m.AddTask(c, mc.DecisionsInterval)
		}
		if mc.LegalFeed != "" {
			c, err := monitor.NewFeedCollector(monitor.KindLegalUpdate, mc.LegalFeed, logger)
			if err != nil {
				return nil, err
			}
			m.AddTask(c, mc.LegalInterval)
		}
		if len(mc.Deadlines) > 0 {
			c, err := monitor.NewDeadlineCollector(mc)
			if err != nil {
				return nil, err
			}
			m.AddTask(c, mc.DeadlinesInterval)
		}
		return m, nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
