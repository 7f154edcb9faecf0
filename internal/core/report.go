package core

import "time"

// Report is the final case artifact. Field order fixes the top-level shape.
type Report struct {
	CaseMetadata        CaseMetadata        `json:"case_metadata"`
	TimelineAnalysis    TimelineAnalysis    `json:"timeline_analysis"`
	ActorRoleMapping    ActorRoleMapping    `json:"actor_role_mapping"`
	RetaliationAnalysis RetaliationAnalysis `json:"retaliation_analysis"`
	StrategicAnalysis   StrategicAnalysis   `json:"strategic_analysis"`
	Synthesis           Synthesis           `json:"synthesis"`
}

// CaseMetadata identifies the run and carries integrity and verification state
type CaseMetadata struct {
	CaseID         string              `json:"case_id"`
	CaseName       string              `json:"case_name,omitempty"`
	RunID          string              `json:"run_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Source         string              `json:"source"`
	RecordCount    int                 `json:"record_count"`
	DocumentCount  int                 `json:"document_count"`
	RequiresReview bool                `json:"requires_review"`
	Integrity      Integrity           `json:"integrity"`
	Verification   VerificationSummary `json:"verification"`
}

// SkippedItem is an ingested item that produced no record
type SkippedItem struct {
	Item  string `json:"item"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Integrity enumerates everything that was skipped or degraded
type Integrity struct {
	ItemsSeen        int           `json:"items_seen"`
	RecordsExtracted int           `json:"records_extracted"`
	Duplicates       int           `json:"duplicates"`
	Skipped          []SkippedItem `json:"skipped"`
	Warnings         []Warning     `json:"warnings"`
	Complete         bool          `json:"complete"`
}

// VerificationSummary lists per-record oracle outcomes against the review threshold
type VerificationSummary struct {
	Threshold      float64               `json:"threshold"`
	Outcomes       []VerificationOutcome `json:"outcomes"`
	RequiresReview bool                  `json:"requires_review"`
}

// DateRange spans the dated events of a timeline
type DateRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// ThreadGap exposes the largest silence inside one thread
type ThreadGap struct {
	ThreadID    string  `json:"thread_id"`
	Topic       string  `json:"topic"`
	Events      int     `json:"events"`
	MaxGapHours float64 `json:"max_gap_hours"`
}

// TimelineAnalysis is the report view of the timeline stage
type TimelineAnalysis struct {
	TotalEvents int               `json:"total_events"`
	DateRange   DateRange         `json:"date_range"`
	Events      []TimelineEvent   `json:"events"`
	Threads     []NarrativeThread `json:"threads"`
	CausalLinks []CausalLink      `json:"causal_links"`
	GapAnalysis []ThreadGap       `json:"gap_analysis"`
}

// ActorProfile summarizes one correspondent
type ActorProfile struct {
	Address            string            `json:"address"`
	Name               string            `json:"name,omitempty"`
	Role               string            `json:"role"`
	CommunicationCount int               `json:"communication_count"`
	FirstContact       *time.Time        `json:"first_contact"`
	LastContact        *time.Time        `json:"last_contact"`
	Power              ActorPowerProfile `json:"power"`
}

// ActorRoleMapping is the report view of the relationship stage
type ActorRoleMapping struct {
	Actors []ActorProfile     `json:"actors"`
	Edges  []RelationshipEdge `json:"edges"`
}

// RetaliationAnalysis collects timing and escalation evidence
type RetaliationAnalysis struct {
	RetaliationIndicators int          `json:"retaliation_indicators"`
	ProceduralViolations  int          `json:"procedural_violations"`
	AfterHoursMessages    int          `json:"after_hours_messages"`
	ThreadGaps            []ThreadGap  `json:"thread_gaps"`
	FlaggedLinks          []CausalLink `json:"flagged_links"`
}

// StrategicAnalysis is the report view of the strategy stage
type StrategicAnalysis struct {
	MeanPowerScore float64            `json:"mean_power_score"`
	Scenarios      []StrategyScenario `json:"scenarios"`
}

// ExecutiveSummary has a fixed shape regardless of input
type ExecutiveSummary struct {
	KeyFindings         []string `json:"key_findings"`
	ImmediateActions    []string `json:"immediate_actions"`
	RiskAssessment      string   `json:"risk_assessment"`
	SuccessProbability  float64  `json:"success_probability"`
	RecommendedStrategy string   `json:"recommended_strategy"`
	ActionSequence      []string `json:"action_sequence"`
}

// Synthesis is the cross-stage assessment
type Synthesis struct {
	ComplexityScore     float64          `json:"complexity_score"`
	ComplexityLevel     string           `json:"complexity_level"`
	EmotionalComplexity string           `json:"emotional_complexity"`
	DocumentTypes       []string         `json:"document_types"`
	GovernmentInvolved  bool             `json:"government_involved"`
	ExecutiveSummary    ExecutiveSummary `json:"executive_summary"`
}

// SynthesisInput bundles every stage output for the synthesizer
type SynthesisInput struct {
	CaseID       string
	CaseName     string
	RunID        string
	Source       string
	GeneratedAt  time.Time
	Records      []AnalyzedRecord
	Documents    []LegalDocument
	Timeline     Timeline
	Graph        GraphResult
	Scenarios    []StrategyScenario
	Aggregates   BehavioralAggregates
	Integrity    Integrity
	Verification VerificationSummary
}
