package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/forensic-intel/internal/analyzer"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/extract"
	"github.com/mikey/forensic-intel/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const relevantMessage = "From: Agent <agent@realestate.com>\r\n" +
	"To: tenant@example.com\r\n" +
	"Subject: Notice\r\n" +
	"Message-ID: <n1@realestate.com>\r\n" +
	"Date: Tue, 5 Mar 2024 09:15:00 +1100\r\n" +
	"\r\n" +
	"Under Section 86 you must provide access.\r\n"

const irrelevantMessage = "From: friend@example.com\r\n" +
	"To: tenant@example.com\r\n" +
	"Subject: Lunch\r\n" +
	"Message-ID: <l1@example.com>\r\n" +
	"\r\n" +
	"Pizza on Friday?\r\n"

func newTestMessageCollector(t *testing.T, dir string) *MessageCollector {
	t.Helper()
	a, err := analyzer.New(analyzer.DefaultPatterns(), zap.NewNop())
	require.NoError(t, err)
	cfg := config.MonitorConfig{RelevanceThreshold: 0.7, CaseKeywords: []string{"rental", "repair"}}
	return NewMessageCollector(dir, ingest.New(zap.NewNop()), extract.NewExtractor(zap.NewNop()), a,
		ingest.Supported, cfg, "RT252398", zap.NewNop())
}

func TestMessageCollector_NewRelevantFilesOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.eml"), []byte(relevantMessage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.eml"), []byte(irrelevantMessage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(relevantMessage), 0o644))

	c := newTestMessageCollector(t, dir)
	alerts, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	msg, ok := alerts[0].Payload.(NewMessage)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a.eml"), msg.Ref)
	assert.Equal(t, "agent@realestate.com", msg.Sender)
	assert.InDelta(t, 1.0, msg.Relevance, 1e-9)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)
	assert.Equal(t, "Notice", msg.Record.Record.Subject)

	alerts, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestMessageCollector_MissingDirectory(t *testing.T) {
	c := newTestMessageCollector(t, filepath.Join(t.TempDir(), "missing"))
	_, err := c.Check(context.Background())
	assert.Error(t, err)
}

func TestRelevance(t *testing.T) {
	keywords := []string{"rt252398", "rental", "repair", "water damage"}
	rec := &core.EmailRecord{Subject: "Rental repair", PlainTextBody: "There is water damage in RT252398."}
	assert.InDelta(t, 1.0, Relevance(rec, core.AnalysisResult{}, keywords), 1e-9)

	rec = &core.EmailRecord{Subject: "Repair", PlainTextBody: "Hello"}
	assert.InDelta(t, 0.25, Relevance(rec, core.AnalysisResult{}, keywords), 1e-9)
	assert.InDelta(t, 1.0, Relevance(rec, core.AnalysisResult{LegalReferences: []string{"VCAT"}}, keywords), 1e-9)
	assert.Zero(t, Relevance(rec, core.AnalysisResult{}, nil))
}

func TestDeadlineSeverity(t *testing.T) {
	for days, want := range map[int]Severity{0: SeverityHigh, 7: SeverityHigh, 8: SeverityMedium, 14: SeverityMedium, 15: SeverityLow} {
		assert.Equal(t, want, DeadlineSeverity(days), "days=%d", days)
	}
}

func TestDeadlineCollector(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cfg := config.MonitorConfig{
		DeadlineHorizon: 30 * 24 * time.Hour,
		Deadlines: []config.Deadline{
			{Name: "far", Due: "2024-07-01"},
			{Name: "hearing", Due: "2024-05-04T09:00:00Z", Notes: "bring photos"},
			{Name: "past", Due: "2024-04-01"},
			{Name: "submissions", Due: "2024-05-12"},
		},
	}
	c, err := NewDeadlineCollector(cfg)
	require.NoError(t, err)
	c.WithClock(func() time.Time { return now })

	alerts, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	first := alerts[0].Payload.(DeadlineNotice)
	assert.Equal(t, "hearing", first.Name)
	assert.Equal(t, 3, first.DaysRemaining)
	assert.Equal(t, "bring photos", first.Notes)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)

	second := alerts[1].Payload.(DeadlineNotice)
	assert.Equal(t, "submissions", second.Name)
	assert.Equal(t, 10, second.DaysRemaining)
	assert.Equal(t, SeverityMedium, alerts[1].Severity)

	// same countdown is not reported twice
	alerts, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)

	now = now.Add(24 * time.Hour)
	alerts, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestDeadlineCollector_InvalidDue(t *testing.T) {
	_, err := NewDeadlineCollector(config.MonitorConfig{Deadlines: []config.Deadline{{Name: "x", Due: "soon"}}})
	assert.Error(t, err)
}

func TestFeedCollector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	c, err := NewFeedCollector(KindDecision, path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "decisions", c.Name())

	// a missing feed is not an error
	alerts, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)

	require.NoError(t, os.WriteFile(path, []byte(
		`{"id":"1","title":"Smith v Jones","reference":"[2024] VCAT 101"}`+"\n"+
			"not json\n"+
			`{"id":"2","title":"Brown v Green"}`+"\n"+
			`{"id":"3","title":"partial`), 0o644))

	alerts, err = c.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	d := alerts[0].Payload.(Decision)
	assert.Equal(t, "Smith v Jones", d.Title)
	assert.Equal(t, "[2024] VCAT 101", d.Reference)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(` v White"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	alerts, err = c.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "partial v White", alerts[0].Payload.(Decision).Title)

	// truncation restarts from the beginning
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"4","title":"Fresh"}`+"\n"), 0o644))
	alerts, err = c.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Fresh", alerts[0].Payload.(Decision).Title)
}

func TestFeedCollector_LegalUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"1","title":"RTA amendment"}`+"\n"), 0o644))

	c, err := NewFeedCollector(KindLegalUpdate, path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "legal_updates", c.Name())

	alerts, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, KindLegalUpdate, alerts[0].Payload.Kind())
	assert.Equal(t, SeverityMedium, alerts[0].Severity)

	_, err = NewFeedCollector(KindDeadline, path, zap.NewNop())
	assert.Error(t, err)
}
