package core

import (
	"sort"
	"strings"
	"time"
)

// Address is a correspondent's display name and mailbox
type Address struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Attachment describes one attached payload. Error is set when the payload
// could not be read or decoded; the remaining fields are then best effort.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	SHA256   string `json:"sha256,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Partial reports whether the attachment metadata is incomplete
func (a Attachment) Partial() bool {
	return a.Error != ""
}

// AuthSignals records which sender authentication checks passed
type AuthSignals struct {
	SPF   bool `json:"spf"`
	DKIM  bool `json:"dkim"`
	DMARC bool `json:"dmarc"`
}

// ForensicHeaders holds secondary header evidence kept for the report
type ForensicHeaders struct {
	XMailer       string `json:"x_mailer,omitempty"`
	OriginatingIP string `json:"originating_ip,omitempty"`
	DeliveredTo   string `json:"delivered_to,omitempty"`
	AfterHours    bool   `json:"after_hours"`
	Weekend       bool   `json:"weekend"`
	ThreadDepth   int    `json:"thread_depth"`
}

// EmailRecord is one parsed message
type EmailRecord struct {
	MessageID            string          `json:"message_id"`
	MessageIDSynthesized bool            `json:"message_id_synthesized,omitempty"`
	ContentHash          string          `json:"content_hash"`
	Source               string          `json:"source,omitempty"`
	Sender               Address         `json:"sender"`
	ReplyTo              []string        `json:"reply_to,omitempty"`
	RecipientsTo         []string        `json:"recipients_to"`
	RecipientsCc         []string        `json:"recipients_cc"`
	RecipientsBcc        []string        `json:"recipients_bcc"`
	SentAt               *time.Time      `json:"sent_at"`
	Subject              string          `json:"subject"`
	PlainTextBody        string          `json:"plain_text_body"`
	Attachments          []Attachment    `json:"attachments"`
	InReplyTo            []string        `json:"in_reply_to,omitempty"`
	ThreadReferences     []string        `json:"thread_references"`
	DeliveryPath         []string        `json:"delivery_path"`
	AuthSignals          AuthSignals     `json:"auth_signals"`
	Forensics            ForensicHeaders `json:"forensics"`
	ExtractedAt          time.Time       `json:"extracted_at"`
}

// Recipients returns to, cc and bcc in that order, duplicates kept
func (r *EmailRecord) Recipients() []string {
	out := make([]string, 0, len(r.RecipientsTo)+len(r.RecipientsCc)+len(r.RecipientsBcc))
	out = append(out, r.RecipientsTo...)
	out = append(out, r.RecipientsCc...)
	return append(out, r.RecipientsBcc...)
}

// Participants returns the sorted set of every address on the message
func (r *EmailRecord) Participants() []string {
	all := r.Recipients()
	if r.Sender.Address != "" {
		all = append(all, r.Sender.Address)
	}
	return SortedSet(all)
}

// Indicator names a behavioral pattern group
type Indicator string

const (
	IndicatorUrgency             Indicator = "urgency"
	IndicatorAuthorityAssertion  Indicator = "authority_assertion"
	IndicatorNegativeTone        Indicator = "negative_tone"
	IndicatorPressure            Indicator = "pressure"
	IndicatorDeadlinePressure    Indicator = "deadline_pressure"
	IndicatorRetaliation         Indicator = "retaliation"
	IndicatorProceduralViolation Indicator = "procedural_violation"
	IndicatorManipulation        Indicator = "manipulation"
	IndicatorToneAggressive      Indicator = "tone_aggressive"
	IndicatorTonePassive         Indicator = "tone_passive"
	IndicatorToneProfessional    Indicator = "tone_professional"
)

// Tone is the overall register of a message
type Tone string

const (
	ToneAggressive   Tone = "aggressive"
	TonePassive      Tone = "passive"
	ToneProfessional Tone = "professional"
	ToneNeutral      Tone = "neutral"
)

// AnalysisResult holds the behavioral scoring of one record
type AnalysisResult struct {
	LegalReferences   []string       `json:"legal_references"`
	BehavioralScores  map[string]int `json:"behavioral_scores"`
	Tone              Tone           `json:"tone_classification"`
	ManipulationIndex float64        `json:"manipulation_index"`
}

// Score returns the hit count for an indicator, zero when absent
func (a AnalysisResult) Score(ind Indicator) int {
	return a.BehavioralScores[string(ind)]
}

// AnalyzedRecord pairs a record with its analysis
type AnalyzedRecord struct {
	Record   EmailRecord    `json:"record"`
	Analysis AnalysisResult `json:"analysis"`
}

// LegalDocument is a filing, notice or order that names parties
type LegalDocument struct {
	ID      string     `json:"id" yaml:"id"`
	Type    string     `json:"type" yaml:"type"`
	Title   string     `json:"title" yaml:"title"`
	Date    *time.Time `json:"date" yaml:"date"`
	Parties []string   `json:"parties" yaml:"parties"`
}

// EventType distinguishes communications from legal actions
type EventType string

const (
	EventCommunication EventType = "communication"
	EventLegalAction   EventType = "legal_action"
)

// Importance is an ordinal event weight
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Rank orders importance levels low < medium < high
func (i Importance) Rank() int {
	switch i {
	case ImportanceHigh:
		return 2
	case ImportanceMedium:
		return 1
	default:
		return 0
	}
}

// TimelineEvent is a point-in-time occurrence
type TimelineEvent struct {
	ID           string     `json:"id"`
	Index        int        `json:"index"`
	Timestamp    *time.Time `json:"timestamp"`
	Type         EventType  `json:"type"`
	Participants []string   `json:"participants"`
	Content      string     `json:"content"`
	Importance   Importance `json:"importance"`
	ThreadID     string     `json:"thread_id"`
	MessageID    string     `json:"message_id,omitempty"`
	ContentHash  string     `json:"content_hash,omitempty"`
	References   []string   `json:"-"`
	Source       string     `json:"-"`
}

// NarrativeThread groups events sharing a topic/participant signature
type NarrativeThread struct {
	ID           string        `json:"id"`
	Topic        string        `json:"topic"`
	EventIDs     []string      `json:"event_ids"`
	Start        *time.Time    `json:"start"`
	End          *time.Time    `json:"end"`
	Participants []string      `json:"participants"`
	MaxGap       time.Duration `json:"-"`
	MaxGapHours  float64       `json:"max_gap_hours"`
}

// CausalLink is an inferred influence from an earlier event to a later one
type CausalLink struct {
	Cause       string   `json:"cause_event"`
	Effect      string   `json:"effect_event"`
	CauseIndex  int      `json:"cause_index"`
	EffectIndex int      `json:"effect_index"`
	Strength    float64  `json:"strength"`
	Evidence    []string `json:"evidence"`
}

// Timeline is the full output of the timeline stage
type Timeline struct {
	Events  []TimelineEvent   `json:"events"`
	Threads []NarrativeThread `json:"threads"`
	Links   []CausalLink      `json:"causal_links"`
}

// EventByID returns the event with the given id
func (t Timeline) EventByID(id string) (TimelineEvent, bool) {
	for _, e := range t.Events {
		if e.ID == id {
			return e, true
		}
	}
	return TimelineEvent{}, false
}

// HasLegalAction reports whether any legal-action event is present
func (t Timeline) HasLegalAction() bool {
	for _, e := range t.Events {
		if e.Type == EventLegalAction {
			return true
		}
	}
	return false
}

// EdgeKind distinguishes message traffic from co-listing on a document
type EdgeKind string

const (
	EdgeCommunication EdgeKind = "communication"
	EdgeLegal         EdgeKind = "legal"
)

// RelationshipEdge is a directed weighted edge between correspondents
type RelationshipEdge struct {
	From   string   `json:"from_address"`
	To     string   `json:"to_address"`
	Weight float64  `json:"weight"`
	Kind   EdgeKind `json:"kind"`
}

// ActorPowerProfile is the centrality summary for one node
type ActorPowerProfile struct {
	Betweenness       float64 `json:"betweenness"`
	Closeness         float64 `json:"closeness"`
	Eigenvector       float64 `json:"eigenvector"`
	OverallPowerScore float64 `json:"overall_power_score"`
	Degenerate        bool    `json:"degenerate,omitempty"`
	Unconverged       bool    `json:"unconverged,omitempty"`
}

// GraphResult is the serializable output of the relationship stage
type GraphResult struct {
	Nodes    []string                     `json:"nodes"`
	Edges    []RelationshipEdge           `json:"edges"`
	Profiles map[string]ActorPowerProfile `json:"profiles"`
	Warnings []Warning                    `json:"-"`
}

// MeanPower averages overall power over all profiled actors
func (g GraphResult) MeanPower() float64 {
	if len(g.Profiles) == 0 {
		return 0
	}
	var sum float64
	for _, p := range g.Profiles {
		sum += p.OverallPowerScore
	}
	return sum / float64(len(g.Profiles))
}

// StrategyName is one entry of the fixed strategy catalog
type StrategyName string

const (
	StrategyAggressiveLitigation     StrategyName = "aggressive_litigation"
	StrategyCollaborativeNegotiation StrategyName = "collaborative_negotiation"
	StrategyMediationApproach        StrategyName = "mediation_approach"
	StrategyRegulatoryEscalation     StrategyName = "regulatory_escalation"
	StrategyPublicPressure           StrategyName = "public_pressure"
	StrategySettlementNegotiation    StrategyName = "settlement_negotiation"
)

// Adjustment records one additive term applied to a base probability
type Adjustment struct {
	Signal string  `json:"signal"`
	Delta  float64 `json:"delta"`
}

// StrategyScenario is one candidate course of action
type StrategyScenario struct {
	Name                 StrategyName      `json:"name"`
	Rank                 int               `json:"rank"`
	BaseProbability      float64           `json:"base_probability"`
	SuccessProbability   float64           `json:"success_probability"`
	RiskLevel            string            `json:"risk_level"`
	ExpectedTimeline     string            `json:"expected_timeline"`
	ResourceRequirements []string          `json:"resource_requirements"`
	StakeholderResponses map[string]string `json:"stakeholder_response_predictions"`
	Adjustments          []Adjustment      `json:"adjustments"`
	ActionSequence       []string          `json:"action_sequence"`
}

// BehavioralAggregates sums indicator counts over a record set
type BehavioralAggregates struct {
	Records int            `json:"records"`
	Totals  map[string]int `json:"totals"`
}

// AggregateScores sums every record's behavioral scores
func AggregateScores(records []AnalyzedRecord) BehavioralAggregates {
	agg := BehavioralAggregates{Records: len(records), Totals: make(map[string]int)}
	for _, r := range records {
		for k, v := range r.Analysis.BehavioralScores {
			agg.Totals[k] += v
		}
	}
	return agg
}

// Total returns the summed count for an indicator
func (b BehavioralAggregates) Total(ind Indicator) int {
	return b.Totals[string(ind)]
}

// Verification is the oracle's answer for one text span
type Verification struct {
	Verified   bool     `json:"verified"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

// VerificationStatus is the policy outcome for a verified span
type VerificationStatus string

const (
	StatusVerified       VerificationStatus = "verified"
	StatusRequiresReview VerificationStatus = "requires_review"
	StatusUnverified     VerificationStatus = "unverified"
)

// VerificationOutcome is the verification result attached to one record
type VerificationOutcome struct {
	MessageID       string             `json:"message_id"`
	LegalReferences []string           `json:"legal_references"`
	Status          VerificationStatus `json:"status"`
	Confidence      float64            `json:"confidence"`
	Warnings        []string           `json:"warnings"`
}

// AlertRecord is the persisted form of a monitoring alert
type AlertRecord struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Source   string    `json:"source"`
	Severity string    `json:"severity"`
	RaisedAt time.Time `json:"raised_at"`
	Payload  []byte    `json:"payload"`
}

// RecordFilter selects stored records; zero fields match everything
type RecordFilter struct {
	MessageID       string
	ContentHash     string
	Sender          string
	SubjectContains string
	Since           *time.Time
	Until           *time.Time
}

// Matches reports whether a record satisfies the filter
func (f RecordFilter) Matches(r *EmailRecord) bool {
	if f.MessageID != "" && r.MessageID != f.MessageID {
		return false
	}
	if f.ContentHash != "" && r.ContentHash != f.ContentHash {
		return false
	}
	if f.Sender != "" && !strings.EqualFold(r.Sender.Address, f.Sender) {
		return false
	}
	if f.SubjectContains != "" && !strings.Contains(strings.ToLower(r.Subject), strings.ToLower(f.SubjectContains)) {
		return false
	}
	if f.Since != nil && (r.SentAt == nil || r.SentAt.Before(*f.Since)) {
		return false
	}
	if f.Until != nil && (r.SentAt == nil || r.SentAt.After(*f.Until)) {
		return false
	}
	return true
}

// SortedSet lower-cases, deduplicates and sorts addresses, dropping empties
func SortedSet(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
