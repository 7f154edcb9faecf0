package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/forensic-intel/internal/core"
)

var verifyFlags struct {
	file string
}

var verifyCmd = &cobra.Command{
	Use:   "verify [text]",
	Short: "Check the legal references in a text span",
	Long: `Verify sends a text span to the configured verification oracle and prints its
verdict as JSON. Text is taken from the arguments, from --file, or from stdin.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyFlags.file, "file", "f", "", "Read the span from a file")
	verifyCmd.Flags().StringVar(&flags.Provider, "provider", "", "Verification provider: heuristic, openai, gemini, bedrock, anthropic or none")
}

func readSpan(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case verifyFlags.file != "":
		data, err := os.ReadFile(verifyFlags.file)
		if err != nil {
			return "", fmt.Errorf("failed to read span: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	span, err := readSpan(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(span) == "" {
		return errors.New("nothing to verify")
	}

	ctx := cmd.Context()
	return invoke(ctx, func(svc *core.ForensicService) error {
		v, err := svc.Verify(ctx, span)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
