package synthesis

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/mikey/forensic-intel/internal/roles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSynth() *Synthesizer {
	classifier := roles.NewClassifier(config.RolesConfig{
		Rules:             []config.RoleRule{{Match: "realestate", Role: "property_manager"}},
		GovernmentDomains: []string{".gov.au"},
	}, zap.NewNop())
	return NewSynthesizer(classifier, zap.NewNop())
}

func TestComplexity(t *testing.T) {
	cases := []struct {
		name       string
		actors     int
		docTypes   int
		government bool
		emotional  string
		want       float64
		level      string
	}{
		{"clamped", 8, 1, true, LevelHigh, 10, LevelHigh},
		{"small", 2, 0, false, LevelLow, 1, LevelLow},
		{"medium", 4, 1, false, LevelMedium, 5, LevelMedium},
		{"boundary", 2, 3, false, LevelLow, 7, LevelMedium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Complexity(tc.actors, tc.docTypes, tc.government, tc.emotional)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.level, ComplexityLevel(got))
		})
	}
}

func TestEmotionalLevel(t *testing.T) {
	rec := func(urgency, pressure int) core.AnalyzedRecord {
		return core.AnalyzedRecord{Analysis: core.AnalysisResult{BehavioralScores: map[string]int{
			string(core.IndicatorUrgency):  urgency,
			string(core.IndicatorPressure): pressure,
		}}}
	}
	assert.Equal(t, LevelLow, EmotionalLevel(nil))
	assert.Equal(t, LevelLow, EmotionalLevel([]core.AnalyzedRecord{rec(0, 0), rec(1, 0)}))
	assert.Equal(t, LevelMedium, EmotionalLevel([]core.AnalyzedRecord{rec(1, 0), rec(0, 1)}))
	assert.Equal(t, LevelHigh, EmotionalLevel([]core.AnalyzedRecord{rec(2, 2), rec(1, 1)}))
}

func TestSynthesize_EmptyInputHasFixedShape(t *testing.T) {
	report := newSynth().Synthesize(core.SynthesisInput{CaseID: "C-1", RunID: "run"})

	assert.NotNil(t, report.TimelineAnalysis.Events)
	assert.NotNil(t, report.ActorRoleMapping.Actors)
	assert.NotNil(t, report.RetaliationAnalysis.FlaggedLinks)
	assert.NotNil(t, report.StrategicAnalysis.Scenarios)
	assert.NotNil(t, report.CaseMetadata.Integrity.Skipped)
	es := report.Synthesis.ExecutiveSummary
	assert.NotNil(t, es.ImmediateActions)
	assert.NotNil(t, es.ActionSequence)
	assert.Empty(t, es.RecommendedStrategy)
	assert.Len(t, es.KeyFindings, 1)
}

func TestWriteReport_TopLevelKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, newSynth().Synthesize(core.SynthesisInput{CaseID: "C-1"})))

	out := buf.String()
	last := -1
	for _, key := range []string{
		`"case_metadata"`, `"timeline_analysis"`, `"actor_role_mapping"`,
		`"retaliation_analysis"`, `"strategic_analysis"`, `"synthesis"`,
	} {
		idx := strings.Index(out, key)
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, key)
		last = idx
	}
	assert.Contains(t, out, `"skipped": []`)
	assert.NotContains(t, out, "References")
}

func TestSynthesize_ActorsAndGovernment(t *testing.T) {
	sent := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	later := sent.Add(48 * time.Hour)
	records := []core.AnalyzedRecord{
		{Record: core.EmailRecord{ContentHash: "h1", Sender: core.Address{Name: "Agent", Address: "agent@realestate.com"}, RecipientsTo: []string{"tenant@example.com"}, SentAt: &sent}},
		{Record: core.EmailRecord{ContentHash: "h2", Sender: core.Address{Address: "tenant@example.com"}, RecipientsTo: []string{"help@consumer.vic.gov.au"}, SentAt: &later}},
	}
	graph := core.GraphResult{
		Nodes:    []string{"agent@realestate.com", "tenant@example.com", "help@consumer.vic.gov.au"},
		Profiles: map[string]core.ActorPowerProfile{"tenant@example.com": {OverallPowerScore: 0.5}},
	}

	report := newSynth().Synthesize(core.SynthesisInput{
		Records:   records,
		Graph:     graph,
		Documents: []core.LegalDocument{{Type: "Notice"}, {Type: "notice"}, {Type: "order"}},
	})

	actors := report.ActorRoleMapping.Actors
	require.Len(t, actors, 3)
	assert.Equal(t, "property_manager", actors[0].Role)
	assert.Equal(t, "Agent", actors[0].Name)
	assert.Equal(t, 2, actors[1].CommunicationCount)
	assert.Equal(t, &sent, actors[1].FirstContact)
	assert.Equal(t, &later, actors[1].LastContact)
	assert.Equal(t, 0.5, actors[1].Power.OverallPowerScore)
	assert.Equal(t, "government_agency", actors[2].Role)

	syn := report.Synthesis
	assert.True(t, syn.GovernmentInvolved)
	assert.Equal(t, []string{"notice", "order"}, syn.DocumentTypes)
	// 0.5*3 + 2*2 + 5 + 0
	assert.Equal(t, 10.0, syn.ComplexityScore)
}

func TestSynthesize_FlagsRetaliationAfterLegalActivity(t *testing.T) {
	records := []core.AnalyzedRecord{
		{
			Record: core.EmailRecord{ContentHash: "effect", Forensics: core.ForensicHeaders{AfterHours: true}},
			Analysis: core.AnalysisResult{BehavioralScores: map[string]int{
				string(core.IndicatorRetaliation): 2,
			}},
		},
	}
	tl := core.Timeline{
		Events: []core.TimelineEvent{
			{ID: "doc-1", Type: core.EventLegalAction},
			{ID: "evt-effect", Type: core.EventCommunication, ContentHash: "effect"},
		},
		Links: []core.CausalLink{{Cause: "doc-1", Effect: "evt-effect", Strength: 0.7}},
	}
	scenarios := []core.StrategyScenario{{
		Name: core.StrategyMediationApproach, SuccessProbability: 0.8, RiskLevel: "low",
		ActionSequence: []string{"Propose mediation in writing"},
	}}

	report := newSynth().Synthesize(core.SynthesisInput{
		Records:      records,
		Timeline:     tl,
		Scenarios:    scenarios,
		Aggregates:   core.AggregateScores(records),
		Verification: core.VerificationSummary{RequiresReview: true},
	})

	ra := report.RetaliationAnalysis
	assert.Equal(t, 2, ra.RetaliationIndicators)
	assert.Equal(t, 1, ra.AfterHoursMessages)
	require.Len(t, ra.FlaggedLinks, 1)

	es := report.Synthesis.ExecutiveSummary
	assert.Equal(t, "mediation_approach", es.RecommendedStrategy)
	assert.Equal(t, 0.8, es.SuccessProbability)
	assert.Equal(t, LevelHigh, es.RiskAssessment)
	assert.Equal(t, []string{
		"Manually verify flagged legal references before relying on them",
		"Propose mediation in writing",
	}, es.ImmediateActions)
	assert.True(t, report.CaseMetadata.RequiresReview)
}
