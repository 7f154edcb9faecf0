package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/logging"
)

// CLIFlags contains the command line flags shared by the CLI commands
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides applied on top of the configuration file
	CaseID    string
	CaseName  string
	Workers   int
	Provider  string
	StoreType string
	Overwrite bool
}

// LoadConfig reads the configuration file, or the default search path when none is
// given, and applies the non-empty flag overrides
func LoadConfig(flags *CLIFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigFile != "" {
		cfg, err = config.NewFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	if flags.CaseID != "" {
		cfg.Set("case.id", flags.CaseID)
	}
	if flags.CaseName != "" {
		cfg.Set("case.name", flags.CaseName)
	}
	if flags.Workers > 0 {
		cfg.Set("pipeline.workers", flags.Workers)
	}
	if flags.Provider != "" {
		cfg.Set("verification.provider", flags.Provider)
	}
	if flags.StoreType != "" {
		cfg.Set("store.type", flags.StoreType)
	}
	if flags.Overwrite {
		cfg.Set("store.overwrite", true)
	}
	return cfg, nil
}

// BuildCLIContainer creates a container for the CLI with a console logger
func BuildCLIContainer(ctx context.Context, flags *CLIFlags) (*dig.Container, error) {
	logger, err := logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, err
	}
	if flags.ConfigFile != "" {
		logger.Info("Loaded configuration from file", zap.String("file", flags.ConfigFile))
	}

	container, err := BuildContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}
	return container, nil
}
