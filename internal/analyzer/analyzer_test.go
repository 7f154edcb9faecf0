package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/forensic-intel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDefault(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(DefaultPatterns(), zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestClassifyTone(t *testing.T) {
	cases := []struct {
		name                             string
		aggressive, passive, professional int
		want                             core.Tone
	}{
		{"aggressive ties passive", 2, 2, 0, core.ToneAggressive},
		{"aggressive leads", 3, 1, 1, core.ToneAggressive},
		{"passive leads", 1, 3, 0, core.TonePassive},
		{"professional ties aggressive", 2, 0, 2, core.ToneProfessional},
		{"professional only", 0, 0, 1, core.ToneProfessional},
		{"passive ties professional", 0, 1, 1, core.ToneProfessional},
		{"nothing", 0, 0, 0, core.ToneNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTone(tc.aggressive, tc.passive, tc.professional))
		})
	}
}

func TestAnalyze_ToneTieFavorsAggressive(t *testing.T) {
	rec := &core.EmailRecord{Subject: "Rent", PlainTextBody: "We demand payment. We demand it now. Please. Kindly."}
	res := newDefault(t).Analyze(rec)

	assert.Equal(t, 2, res.Score(core.IndicatorToneAggressive))
	assert.Equal(t, 2, res.Score(core.IndicatorTonePassive))
	assert.Equal(t, 0, res.Score(core.IndicatorToneProfessional))
	assert.Equal(t, core.ToneAggressive, res.Tone)
}

func TestAnalyze_CountsOccurrences(t *testing.T) {
	rec := &core.EmailRecord{
		Subject:       "URGENT",
		PlainTextBody: "This is urgent. An emergency repair is needed. Urgent again.",
	}
	res := newDefault(t).Analyze(rec)
	assert.Equal(t, 4, res.Score(core.IndicatorUrgency))
}

func TestAnalyze_LegalReferences(t *testing.T) {
	rec := &core.EmailRecord{
		Subject: "Notice",
		PlainTextBody: "Under Section 86 and section  86 of the Residential Tenancies Act 1997, " +
			"and Section 91ZZB, you may apply to VCAT.",
	}
	res := newDefault(t).Analyze(rec)
	assert.Equal(t, []string{"Section 86", "Residential Tenancies Act 1997", "Section 91ZZB", "VCAT"}, res.LegalReferences)
}

func TestAnalyze_NoReferences(t *testing.T) {
	res := newDefault(t).Analyze(&core.EmailRecord{Subject: "hello", PlainTextBody: "see you soon"})
	assert.Empty(t, res.LegalReferences)
	assert.NotNil(t, res.LegalReferences)
	assert.Equal(t, core.ToneNeutral, res.Tone)
	for name, v := range res.BehavioralScores {
		assert.Zero(t, v, name)
	}
}

func TestAnalyze_DeadlinePressureRegex(t *testing.T) {
	rec := &core.EmailRecord{PlainTextBody: "Reply within 14 days, no later than Friday. The deadline is firm."}
	res := newDefault(t).Analyze(rec)
	assert.Equal(t, 3, res.Score(core.IndicatorDeadlinePressure))
}

func TestLoadPatterns_AddsGroupWithoutCodeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	body := `
groups:
  - name: gaslighting
    patterns: ["that never happened", "you are imagining"]
  - name: urgency
    kind: keyword
    patterns: ["hurry"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	p, err := LoadPatterns(path)
	require.NoError(t, err)
	a, err := New(p, zap.NewNop())
	require.NoError(t, err)

	res := a.Analyze(&core.EmailRecord{PlainTextBody: "That never happened. Hurry, urgent!"})
	assert.Equal(t, 1, res.BehavioralScores["gaslighting"])
	assert.Equal(t, 1, res.Score(core.IndicatorUrgency))
}

func TestNew_RejectsBadRegex(t *testing.T) {
	_, err := New(Patterns{Groups: []Group{{Name: "bad", Kind: KindRegex, Patterns: []string{"("}}}}, zap.NewNop())
	require.Error(t, err)
}

func TestAnalyze_Pure(t *testing.T) {
	a := newDefault(t)
	rec := &core.EmailRecord{Subject: "Final notice", PlainTextBody: "You must respond immediately or else."}
	assert.Equal(t, a.Analyze(rec), a.Analyze(rec))
}
