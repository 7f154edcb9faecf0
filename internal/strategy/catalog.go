package strategy

import "github.com/mikey/forensic-intel/internal/core"

// Signal names a case condition that shifts strategy probabilities
type Signal string

const (
	SignalHighPower        Signal = "high_mean_power"
	SignalDeadlinePressure Signal = "deadline_pressure"
	SignalNegativeTone     Signal = "negative_tone"
	SignalLegalAction      Signal = "legal_action_present"
)

// Entry is one strategy with its base probability, the additive term applied
// for each signal, and the static planning data carried into the scenario
type Entry struct {
	Name             core.StrategyName
	Base             float64
	Terms            map[Signal]float64
	RiskLevel        string
	ExpectedTimeline string
	Resources        []string
	Actions          []string
	// Responses maps an actor role to the predicted response; "*" is the fallback
	Responses map[string]string
}

// DefaultCatalog returns the six built-in strategies in ranking tie-break order
func DefaultCatalog() []Entry {
	return []Entry{
		{
			Name: core.StrategyAggressiveLitigation,
			Base: 0.60,
			Terms: map[Signal]float64{
				SignalHighPower:        0.10,
				SignalDeadlinePressure: 0.05,
				SignalNegativeTone:     0.10,
				SignalLegalAction:      0.10,
			},
			RiskLevel:        "high",
			ExpectedTimeline: "3-6 months",
			Resources:        []string{"legal representation", "evidence bundle", "filing fees"},
			Actions: []string{
				"Assemble the evidence bundle from the timeline",
				"File a tribunal application",
				"Serve notice on the respondent",
				"Prepare for hearing",
			},
			Responses: map[string]string{
				"property_manager":     "defensive, likely to engage counsel",
				"legal_representative": "procedural challenge to the application",
				"tribunal":             "listing for hearing",
				"*":                    "escalation and entrenchment",
			},
		},
		{
			Name: core.StrategyCollaborativeNegotiation,
			Base: 0.75,
			Terms: map[Signal]float64{
				SignalHighPower:        0.10,
				SignalDeadlinePressure: -0.05,
				SignalNegativeTone:     -0.10,
			},
			RiskLevel:        "low",
			ExpectedTimeline: "2-6 weeks",
			Resources:        []string{"written proposal", "meeting time"},
			Actions: []string{
				"Summarize the issues in a single written proposal",
				"Request a meeting with the decision maker",
				"Confirm any agreement in writing",
			},
			Responses: map[string]string{
				"property_manager": "willing to discuss terms",
				"*":                "cautious engagement",
			},
		},
		{
			Name: core.StrategyMediationApproach,
			Base: 0.80,
			Terms: map[Signal]float64{
				SignalHighPower:    0.10,
				SignalNegativeTone: -0.05,
				SignalLegalAction:  0.05,
			},
			RiskLevel:        "low",
			ExpectedTimeline: "1-2 months",
			Resources:        []string{"mediator", "position statement"},
			Actions: []string{
				"Propose mediation in writing",
				"Prepare a position statement with key evidence",
				"Attend mediation",
				"Record the outcome as a signed agreement",
			},
			Responses: map[string]string{
				"tribunal":          "referral to dispute resolution",
				"government_agency": "supportive of conciliation",
				"*":                 "agrees to a facilitated discussion",
			},
		},
		{
			Name: core.StrategyRegulatoryEscalation,
			Base: 0.70,
			Terms: map[Signal]float64{
				SignalHighPower:        0.10,
				SignalDeadlinePressure: 0.05,
				SignalNegativeTone:     0.05,
				SignalLegalAction:      0.05,
			},
			RiskLevel:        "medium",
			ExpectedTimeline: "1-3 months",
			Resources:        []string{"formal complaint", "supporting documents"},
			Actions: []string{
				"Lodge a complaint with the regulator",
				"Attach the timeline and flagged communications",
				"Follow up on the complaint reference",
			},
			Responses: map[string]string{
				"government_agency": "opens an inquiry",
				"property_manager":  "compliance response",
				"*":                 "formal reply under regulatory scrutiny",
			},
		},
		{
			Name: core.StrategyPublicPressure,
			Base: 0.50,
			Terms: map[Signal]float64{
				SignalHighPower:    0.10,
				SignalNegativeTone: 0.05,
				SignalLegalAction:  -0.10,
			},
			RiskLevel:        "high",
			ExpectedTimeline: "uncertain",
			Resources:        []string{"public statement", "media contacts"},
			Actions: []string{
				"Verify every public claim against the evidence",
				"Publish a factual account",
				"Engage advocacy groups",
			},
			Responses: map[string]string{
				"legal_representative": "defamation warning",
				"*":                    "reputational defense",
			},
		},
		{
			Name: core.StrategySettlementNegotiation,
			Base: 0.85,
			Terms: map[Signal]float64{
				SignalHighPower:        0.10,
				SignalDeadlinePressure: 0.05,
				SignalNegativeTone:     -0.05,
			},
			RiskLevel:        "medium",
			ExpectedTimeline: "2-8 weeks",
			Resources:        []string{"settlement terms", "legal review"},
			Actions: []string{
				"Define minimum acceptable terms",
				"Make a without-prejudice offer",
				"Have any settlement reviewed before signing",
			},
			Responses: map[string]string{
				"property_manager":     "counter-offer",
				"legal_representative": "negotiates terms",
				"*":                    "open to resolution",
			},
		},
	}
}
