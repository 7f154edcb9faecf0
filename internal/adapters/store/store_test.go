package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/forensic-intel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordStore interface {
	core.RecordStore
	core.AlertStore
	Cleanup(ctx context.Context) error
	Close() error
}

func sample(hash, sender, subject string, sent time.Time) core.AnalyzedRecord {
	return core.AnalyzedRecord{
		Record: core.EmailRecord{
			MessageID:    "<" + hash + "@example.com>",
			ContentHash:  hash,
			Sender:       core.Address{Address: sender},
			RecipientsTo: []string{"b@example.com"},
			SentAt:       &sent,
			Subject:      subject,
		},
		Analysis: core.AnalysisResult{
			LegalReferences:  []string{"Section 86"},
			BehavioralScores: map[string]int{"urgency": 2},
			Tone:             core.ToneAggressive,
		},
	}
}

// backends returns every store that can run without an external server
func backends(t *testing.T, overwrite bool) map[string]recordStore {
	t.Helper()
	opts := Options{Overwrite: overwrite, AlertRetention: time.Hour}
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"), opts, zap.NewNop())
	require.NoError(t, err)

	stores := map[string]recordStore{
		"memory": NewMemoryStore(zap.NewNop(), overwrite, time.Hour, 0),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_Idempotent(t *testing.T) {
	ctx := context.Background()
	sent := time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC)
	for name, s := range backends(t, false) {
		t.Run(name, func(t *testing.T) {
			rec := sample("aaa", "a@example.com", "Notice", sent)

			inserted, err := s.Store(ctx, rec)
			require.NoError(t, err)
			assert.True(t, inserted)

			changed := rec
			changed.Record.Subject = "Changed"
			inserted, err = s.Store(ctx, changed)
			require.NoError(t, err)
			assert.False(t, inserted)

			got, err := s.Query(ctx, core.RecordFilter{})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Notice", got[0].Record.Subject)
			assert.Equal(t, []string{"Section 86"}, got[0].Analysis.LegalReferences)
			assert.True(t, got[0].Record.SentAt.Equal(sent))
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	sent := time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC)
	for name, s := range backends(t, true) {
		t.Run(name, func(t *testing.T) {
			rec := sample("aaa", "a@example.com", "Notice", sent)
			_, err := s.Store(ctx, rec)
			require.NoError(t, err)

			rec.Record.Subject = "Changed"
			inserted, err := s.Store(ctx, rec)
			require.NoError(t, err)
			assert.False(t, inserted)

			got, err := s.Query(ctx, core.RecordFilter{ContentHash: "aaa"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Changed", got[0].Record.Subject)
		})
	}
}

func TestStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }
	for name, s := range backends(t, false) {
		t.Run(name, func(t *testing.T) {
			for _, rec := range []core.AnalyzedRecord{
				sample("ccc", "agent@realestate.com", "Rent increase", day(3)),
				sample("aaa", "agent@realestate.com", "Notice to vacate", day(1)),
				sample("bbb", "tenant@example.com", "Re: Notice to vacate", day(2)),
			} {
				_, err := s.Store(ctx, rec)
				require.NoError(t, err)
			}

			hashes := func(f core.RecordFilter) []string {
				got, err := s.Query(ctx, f)
				require.NoError(t, err)
				out := []string{}
				for _, r := range got {
					out = append(out, r.Record.ContentHash)
				}
				return out
			}

			since, until := day(2), day(3)
			assert.Equal(t, []string{"aaa", "bbb", "ccc"}, hashes(core.RecordFilter{}))
			assert.Equal(t, []string{"aaa", "ccc"}, hashes(core.RecordFilter{Sender: "Agent@RealEstate.com"}))
			assert.Equal(t, []string{"aaa", "bbb"}, hashes(core.RecordFilter{SubjectContains: "NOTICE"}))
			assert.Equal(t, []string{"bbb", "ccc"}, hashes(core.RecordFilter{Since: &since}))
			assert.Equal(t, []string{"bbb"}, hashes(core.RecordFilter{Since: &since, Until: &since}))
			assert.Equal(t, []string{"aaa", "bbb", "ccc"}, hashes(core.RecordFilter{Until: &until}))
			assert.Equal(t, []string{"bbb"}, hashes(core.RecordFilter{MessageID: "<bbb@example.com>"}))
		})
	}
}

func TestStore_Alerts(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for name, s := range backends(t, false) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveAlert(ctx, core.AlertRecord{ID: "old", Kind: "deadline", Source: "config", Severity: "low", RaisedAt: now.Add(-2 * time.Hour)}))
			require.NoError(t, s.SaveAlert(ctx, core.AlertRecord{ID: "a", Kind: "new_message", Source: "drop", Severity: "high", RaisedAt: now, Payload: []byte(`{"ref":"x.eml"}`)}))
			require.NoError(t, s.SaveAlert(ctx, core.AlertRecord{ID: "b", Kind: "decision", Source: "feed", Severity: "medium", RaisedAt: now.Add(-time.Minute)}))

			got, err := s.ListAlerts(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "a", got[0].ID)
			assert.Equal(t, "b", got[1].ID)
			assert.Equal(t, `{"ref":"x.eml"}`, string(got[0].Payload))
			assert.True(t, got[0].RaisedAt.Equal(now))

			require.NoError(t, s.Cleanup(ctx))
			got, err = s.ListAlerts(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})
	}
}
