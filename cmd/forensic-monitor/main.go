// forensic-monitor polls the configured drop directory, decision and legal-update
// feeds and case deadlines, persisting and acting on every alert until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/di"
	"github.com/mikey/forensic-intel/internal/logging"
	"github.com/mikey/forensic-intel/internal/monitor"
)

var configFile = flag.String("config", "", "Path to config file (default: search ./configs, $HOME/.forensic-intel, /etc/forensic-intel)")

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildMonitorContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build dependency container", zap.Error(err))
		os.Exit(1)
	}

	// Run the application
	runErr := container.Invoke(func(m *monitor.Monitor) error {
		return run(ctx, m, logger)
	})

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Invoke(func(closers *di.Closers) error { return closers.Close(closeCtx) }); err != nil {
		logger.Error("Failed to release resources", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("Application error", zap.Error(runErr))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if *configFile != "" {
		return config.NewFromFile(*configFile)
	}
	return config.New()
}

// run starts the monitor and blocks until the context is cancelled by a signal
func run(ctx context.Context, m *monitor.Monitor, logger *zap.Logger) error {
	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	logger.Info("Monitoring started")

	<-ctx.Done()
	logger.Info("Shutting down...")

	m.Stop()
	logger.Info("Shutdown complete")
	return nil
}
