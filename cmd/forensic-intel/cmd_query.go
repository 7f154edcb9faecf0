package main

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/mikey/forensic-intel/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var queryFlags struct {
	messageID string
	hash      string
	sender    string
	subject   string
	since     string
	until     string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List stored records matching a filter",
	Long: `Query prints one JSON object per matching stored record, ordered by content
hash. Without filters every record is listed. Only persistent stores (sqlite,
mysql, postgres) keep records between runs.`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.messageID, "message-id", "", "Exact Message-ID, including angle brackets")
	f.StringVar(&queryFlags.hash, "hash", "", "Content hash")
	f.StringVar(&queryFlags.sender, "sender", "", "Sender address (case-insensitive)")
	f.StringVar(&queryFlags.subject, "subject", "", "Subject substring (case-insensitive)")
	f.StringVar(&queryFlags.since, "since", "", "Earliest sent time (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&queryFlags.until, "until", "", "Latest sent time (RFC3339 or YYYY-MM-DD)")
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q: want RFC3339 or YYYY-MM-DD", name, value)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	since, err := parseTimeFlag("since", queryFlags.since)
	if err != nil {
		return err
	}
	until, err := parseTimeFlag("until", queryFlags.until)
	if err != nil {
		return err
	}
	filter := core.RecordFilter{
		MessageID:       strings.TrimSpace(queryFlags.messageID),
		ContentHash:     strings.TrimSpace(queryFlags.hash),
		Sender:          strings.TrimSpace(queryFlags.sender),
		SubjectContains: queryFlags.subject,
		Since:           since,
		Until:           until,
	}

	ctx := cmd.Context()
	return invoke(ctx, func(svc *core.ForensicService) error {
		records, err := svc.Query(ctx, filter)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
		}
		return nil
	})
}
