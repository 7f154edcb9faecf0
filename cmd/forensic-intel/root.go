// forensic-intel analyzes a case's email corpus into a structured intelligence report.
//
// Usage:
//
//	forensic-intel analyze <path> [--documents=<docs.yaml>] [-o report.json]
//	forensic-intel query [--message-id=<id>] [--sender=<addr>] [--subject=<text>]
//	forensic-intel verify <text>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/forensic-intel/internal/di"
)

// version is set at build time via -ldflags.
var version = "dev"

var flags di.CLIFlags

var rootCmd = &cobra.Command{
	Use:   "forensic-intel",
	Short: "Forensic email intelligence for tenancy disputes",
	Long: "forensic-intel ingests email archives, extracts forensic metadata, builds a\n" +
		"timeline and relationship graph, and synthesizes a case report.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "Path to config file (default: search ./configs, $HOME/.forensic-intel, /etc/forensic-intel)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.StringVar(&flags.CaseID, "case-id", "", "Case identifier (overrides case.id)")
	pf.StringVar(&flags.CaseName, "case-name", "", "Case name (overrides case.name)")
	pf.StringVar(&flags.StoreType, "store", "", "Record store: memory, sqlite, mysql or postgres")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.Version = version
}

// invoke builds the CLI container, runs fn with its dependencies and releases every
// opened resource afterwards
func invoke(ctx context.Context, fn interface{}) error {
	container, err := di.BuildCLIContainer(ctx, &flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	invokeErr := container.Invoke(fn)
	closeErr := container.Invoke(func(closers *di.Closers, logger *zap.Logger) error {
		defer logger.Sync() //nolint:errcheck
		return closers.Close(ctx)
	})
	if invokeErr != nil {
		return dig.RootCause(invokeErr)
	}
	return closeErr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
