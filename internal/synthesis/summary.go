package synthesis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mikey/forensic-intel/internal/core"
)

// Emotional complexity levels
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

var emotionalIndicators = []core.Indicator{
	core.IndicatorUrgency,
	core.IndicatorPressure,
	core.IndicatorNegativeTone,
	core.IndicatorAuthorityAssertion,
}

// EmotionalLevel grades the mean per-record emotional indicator load
func EmotionalLevel(records []core.AnalyzedRecord) string {
	if len(records) == 0 {
		return LevelLow
	}
	total := 0
	for _, r := range records {
		for _, ind := range emotionalIndicators {
			total += r.Analysis.Score(ind)
		}
	}
	mean := float64(total) / float64(len(records))
	switch {
	case mean >= 3:
		return LevelHigh
	case mean >= 1:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Complexity scores a case on a 0-10 scale
func Complexity(actors, docTypes int, government bool, emotional string) float64 {
	score := 0.5*float64(min(actors, 6)) + 2*float64(docTypes)
	if government {
		score += 5
	}
	switch emotional {
	case LevelHigh:
		score += 3
	case LevelMedium:
		score++
	}
	return round(math.Max(0, math.Min(10, score)), 2)
}

// ComplexityLevel maps a complexity score to a level
func ComplexityLevel(score float64) string {
	switch {
	case score > 7:
		return LevelHigh
	case score > 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

func documentTypes(docs []core.LegalDocument) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, d := range docs {
		t := strings.ToLower(strings.TrimSpace(d.Type))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Synthesizer) governmentInvolved(nodes []string) bool {
	if s.roles == nil {
		return false
	}
	for _, n := range nodes {
		if s.roles.IsGovernment(n) {
			return true
		}
	}
	return false
}

func (s *Synthesizer) synthesis(in core.SynthesisInput, report core.Report) core.Synthesis {
	docTypes := documentTypes(in.Documents)
	gov := s.governmentInvolved(in.Graph.Nodes)
	emotional := EmotionalLevel(in.Records)
	score := Complexity(len(in.Graph.Nodes), len(docTypes), gov, emotional)

	return core.Synthesis{
		ComplexityScore:     score,
		ComplexityLevel:     ComplexityLevel(score),
		EmotionalComplexity: emotional,
		DocumentTypes:       docTypes,
		GovernmentInvolved:  gov,
		ExecutiveSummary:    executiveSummary(in, report, gov),
	}
}

func executiveSummary(in core.SynthesisInput, report core.Report, gov bool) core.ExecutiveSummary {
	sum := core.ExecutiveSummary{
		KeyFindings:      keyFindings(in, report, gov),
		ImmediateActions: []string{},
		ActionSequence:   []string{},
		RiskAssessment:   LevelLow,
	}

	if in.Aggregates.Total(core.IndicatorDeadlinePressure) > 0 {
		sum.ImmediateActions = append(sum.ImmediateActions,
			"Calendar every deadline cited in correspondence and respond before it falls due")
	}
	if report.CaseMetadata.RequiresReview {
		sum.ImmediateActions = append(sum.ImmediateActions,
			"Manually verify flagged legal references before relying on them")
	}

	if len(in.Scenarios) > 0 {
		top := in.Scenarios[0]
		sum.RecommendedStrategy = string(top.Name)
		sum.SuccessProbability = top.SuccessProbability
		sum.RiskAssessment = top.RiskLevel
		sum.ActionSequence = append(sum.ActionSequence, top.ActionSequence...)
		sum.ImmediateActions = append(sum.ImmediateActions, top.ActionSequence...)
	}
	if len(report.RetaliationAnalysis.FlaggedLinks) > 0 {
		sum.RiskAssessment = LevelHigh
	}
	return sum
}

func keyFindings(in core.SynthesisInput, report core.Report, gov bool) []string {
	findings := []string{
		fmt.Sprintf("%d communications across %d threads between %d actors",
			len(in.Records), len(in.Timeline.Threads), len(in.Graph.Nodes)),
	}

	refs := 0
	for _, r := range in.Records {
		refs += len(r.Analysis.LegalReferences)
	}
	if refs > 0 {
		findings = append(findings, fmt.Sprintf("%d legal references cited", refs))
	}
	if n := len(in.Timeline.Links); n > 0 {
		findings = append(findings, fmt.Sprintf("%d causal links inferred", n))
	}
	ra := report.RetaliationAnalysis
	if ra.RetaliationIndicators > 0 {
		findings = append(findings, fmt.Sprintf("%d retaliation indicators", ra.RetaliationIndicators))
	}
	if len(ra.FlaggedLinks) > 0 {
		findings = append(findings, fmt.Sprintf("%d communications with retaliation language follow legal activity", len(ra.FlaggedLinks)))
	}
	if ra.AfterHoursMessages > 0 {
		findings = append(findings, fmt.Sprintf("%d messages sent outside business hours", ra.AfterHoursMessages))
	}
	if gov {
		findings = append(findings, "Government actors are involved")
	}
	if n := len(in.Integrity.Skipped); n > 0 {
		findings = append(findings, fmt.Sprintf("%d ingested items could not be parsed", n))
	}
	if report.CaseMetadata.RequiresReview {
		findings = append(findings, "Legal references require manual review")
	}
	return findings
}
