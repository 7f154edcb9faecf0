package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/ingest"
	"github.com/mikey/forensic-intel/internal/synthesis"
)

var analyzeFlags struct {
	documents string
	output    string
	summary   bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Analyze an email file, mbox, archive or directory",
	Long: `Analyze ingests every message under path, stores the analyzed records and
writes the case report as JSON.

Path may be a single .eml, an .mbox, a .zip archive, a gzip or brotli compressed
message or a directory containing any of those. Records already stored by an
earlier run are kept and counted as duplicates, so running analyze again over a
grown corpus reports on the whole case.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.documents, "documents", "", "YAML file of legal documents (filings, notices, orders)")
	f.StringVarP(&analyzeFlags.output, "output", "o", "", "Report output path (default: stdout)")
	f.BoolVar(&analyzeFlags.summary, "summary", false, "Log the executive summary after writing the report")
	f.IntVar(&flags.Workers, "workers", 0, "Parallel extraction workers (overrides pipeline.workers)")
	f.StringVar(&flags.Provider, "provider", "", "Verification provider: heuristic, openai, gemini, bedrock, anthropic or none")
	f.BoolVar(&flags.Overwrite, "overwrite", false, "Replace stored records that share a content hash")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var docs []core.LegalDocument
	if analyzeFlags.documents != "" {
		var err error
		if docs, err = ingest.LoadDocuments(analyzeFlags.documents); err != nil {
			return err
		}
	}

	return invoke(ctx, func(svc *core.ForensicService, logger *zap.Logger) error {
		report, err := svc.Analyze(ctx, core.AnalyzeRequest{Source: args[0], Documents: docs})
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}

		var w io.Writer = cmd.OutOrStdout()
		if analyzeFlags.output != "" {
			file, err := os.Create(analyzeFlags.output)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			defer file.Close() //nolint:errcheck
			w = file
		}
		if err := synthesis.WriteReport(w, *report); err != nil {
			return err
		}

		if analyzeFlags.output != "" {
			logger.Info("Report written", zap.String("file", analyzeFlags.output))
		}
		if analyzeFlags.summary {
			es := report.Synthesis.ExecutiveSummary
			logger.Info("Executive summary",
				zap.Strings("key_findings", es.KeyFindings),
				zap.String("risk_assessment", es.RiskAssessment),
				zap.String("recommended_strategy", es.RecommendedStrategy),
				zap.Float64("success_probability", es.SuccessProbability),
				zap.Bool("requires_review", report.CaseMetadata.RequiresReview))
		}
		return nil
	})
}
