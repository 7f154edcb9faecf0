package synthesis

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// Synthesizer implements core.IntelligenceSynthesizer
type Synthesizer struct {
	roles  core.RoleClassifier
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(roles core.RoleClassifier, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{roles: roles, logger: logger}
}

// Synthesize merges every stage output into the final report
func (s *Synthesizer) Synthesize(in core.SynthesisInput) core.Report {
	byHash := make(map[string]*core.AnalyzedRecord, len(in.Records))
	for i := range in.Records {
		byHash[in.Records[i].Record.ContentHash] = &in.Records[i]
	}

	gaps := threadGaps(in.Timeline.Threads)
	report := core.Report{
		CaseMetadata: core.CaseMetadata{
			CaseID:         in.CaseID,
			CaseName:       in.CaseName,
			RunID:          in.RunID,
			GeneratedAt:    in.GeneratedAt,
			Source:         in.Source,
			RecordCount:    len(in.Records),
			DocumentCount:  len(in.Documents),
			RequiresReview: in.Verification.RequiresReview,
			Integrity:      normalizeIntegrity(in.Integrity),
			Verification:   normalizeVerification(in.Verification),
		},
		TimelineAnalysis: core.TimelineAnalysis{
			TotalEvents: len(in.Timeline.Events),
			DateRange:   dateRange(in.Timeline.Events),
			Events:      orEmpty(in.Timeline.Events),
			Threads:     orEmpty(in.Timeline.Threads),
			CausalLinks: orEmpty(in.Timeline.Links),
			GapAnalysis: gaps,
		},
		ActorRoleMapping: core.ActorRoleMapping{
			Actors: s.actors(in.Records, in.Graph),
			Edges:  orEmpty(in.Graph.Edges),
		},
		RetaliationAnalysis: retaliation(in, gaps, byHash),
		StrategicAnalysis: core.StrategicAnalysis{
			MeanPowerScore: round(in.Graph.MeanPower(), 4),
			Scenarios:      orEmpty(in.Scenarios),
		},
	}
	report.Synthesis = s.synthesis(in, report)

	s.logger.Info("Synthesized report",
		zap.String("case_id", in.CaseID),
		zap.String("run_id", in.RunID),
		zap.Float64("complexity", report.Synthesis.ComplexityScore),
		zap.String("recommended_strategy", report.Synthesis.ExecutiveSummary.RecommendedStrategy))

	return report
}

func (s *Synthesizer) actors(records []core.AnalyzedRecord, g core.GraphResult) []core.ActorProfile {
	type contact struct {
		name        string
		count       int
		first, last *time.Time
	}
	contacts := map[string]*contact{}
	get := func(addr string) *contact {
		c, ok := contacts[addr]
		if !ok {
			c = &contact{}
			contacts[addr] = c
		}
		return c
	}

	for i := range records {
		rec := &records[i].Record
		if sender := strings.ToLower(rec.Sender.Address); sender != "" && get(sender).name == "" {
			get(sender).name = rec.Sender.Name
		}
		for _, addr := range rec.Participants() {
			c := get(addr)
			c.count++
			if rec.SentAt == nil {
				continue
			}
			if c.first == nil || rec.SentAt.Before(*c.first) {
				c.first = rec.SentAt
			}
			if c.last == nil || rec.SentAt.After(*c.last) {
				c.last = rec.SentAt
			}
		}
	}

	actors := make([]core.ActorProfile, 0, len(g.Nodes))
	for _, addr := range g.Nodes {
		c := get(addr)
		role := "unknown"
		if s.roles != nil {
			role = s.roles.Role(addr, c.name)
		}
		actors = append(actors, core.ActorProfile{
			Address:            addr,
			Name:               c.name,
			Role:               role,
			CommunicationCount: c.count,
			FirstContact:       c.first,
			LastContact:        c.last,
			Power:              g.Profiles[addr],
		})
	}
	return actors
}

func retaliation(in core.SynthesisInput, gaps []core.ThreadGap, byHash map[string]*core.AnalyzedRecord) core.RetaliationAnalysis {
	ra := core.RetaliationAnalysis{
		RetaliationIndicators: in.Aggregates.Total(core.IndicatorRetaliation),
		ProceduralViolations:  in.Aggregates.Total(core.IndicatorProceduralViolation),
		FlaggedLinks:          []core.CausalLink{},
	}
	for _, r := range in.Records {
		if r.Record.Forensics.AfterHours {
			ra.AfterHoursMessages++
		}
	}

	ra.ThreadGaps = append([]core.ThreadGap{}, gaps...)
	sort.SliceStable(ra.ThreadGaps, func(i, j int) bool {
		return ra.ThreadGaps[i].MaxGapHours > ra.ThreadGaps[j].MaxGapHours
	})

	for _, l := range in.Timeline.Links {
		cause, ok1 := in.Timeline.EventByID(l.Cause)
		effect, ok2 := in.Timeline.EventByID(l.Effect)
		if !ok1 || !ok2 {
			continue
		}
		eff := byHash[effect.ContentHash]
		if eff == nil || eff.Analysis.Score(core.IndicatorRetaliation) == 0 {
			continue
		}
		if cause.Type == core.EventLegalAction {
			ra.FlaggedLinks = append(ra.FlaggedLinks, l)
			continue
		}
		if c := byHash[cause.ContentHash]; c != nil && len(c.Analysis.LegalReferences) > 0 {
			ra.FlaggedLinks = append(ra.FlaggedLinks, l)
		}
	}
	return ra
}

func threadGaps(threads []core.NarrativeThread) []core.ThreadGap {
	gaps := make([]core.ThreadGap, 0, len(threads))
	for _, th := range threads {
		gaps = append(gaps, core.ThreadGap{
			ThreadID:    th.ID,
			Topic:       th.Topic,
			Events:      len(th.EventIDs),
			MaxGapHours: th.MaxGapHours,
		})
	}
	return gaps
}

func dateRange(events []core.TimelineEvent) core.DateRange {
	var dr core.DateRange
	for _, e := range events {
		if e.Timestamp == nil {
			continue
		}
		if dr.Start == nil || e.Timestamp.Before(*dr.Start) {
			dr.Start = e.Timestamp
		}
		if dr.End == nil || e.Timestamp.After(*dr.End) {
			dr.End = e.Timestamp
		}
	}
	return dr
}

func normalizeIntegrity(i core.Integrity) core.Integrity {
	i.Skipped = orEmpty(i.Skipped)
	i.Warnings = orEmpty(i.Warnings)
	return i
}

func normalizeVerification(v core.VerificationSummary) core.VerificationSummary {
	v.Outcomes = orEmpty(v.Outcomes)
	return v
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
