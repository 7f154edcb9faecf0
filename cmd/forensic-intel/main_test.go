package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/forensic-intel/internal/core"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand_WritesReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.eml"), []byte(
		"From: agent@realestate.com\nTo: tenant@example.com\nSubject: Inspection\n"+
			"Message-ID: <1@example.com>\nDate: Tue, 5 Mar 2024 09:15:00 +0000\n\n"+
			"Please allow access within 7 days under Section 86.\n"), 0o600))
	docs := filepath.Join(t.TempDir(), "docs.yaml")
	require.NoError(t, os.WriteFile(docs, []byte("- id: doc-1\n  type: application\n  title: VCAT application\n  parties: [tenant@example.com]\n"), 0o600))
	out := filepath.Join(t.TempDir(), "report.json")

	_, err := execute(t, "analyze", dir, "--case-id", "VCAT-CLI", "--documents", docs, "-o", out, "--store", "memory")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report core.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "VCAT-CLI", report.CaseMetadata.CaseID)
	assert.Equal(t, 1, report.CaseMetadata.RecordCount)
	assert.Equal(t, 1, report.CaseMetadata.DocumentCount)
}

func TestVerifyCommand(t *testing.T) {
	out, err := execute(t, "verify", "--provider", "heuristic", "Section 86 of the Residential Tenancies Act 1997")
	require.NoError(t, err)

	var v core.Verification
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.True(t, v.Verified)
}

func TestQueryCommand_InvalidSince(t *testing.T) {
	_, err := execute(t, "query", "--since", "yesterday")
	assert.ErrorContains(t, err, "invalid --since")
}

func TestAnalyzeCommand_MissingSource(t *testing.T) {
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "absent"), "--store", "memory")
	assert.Error(t, err)
}
