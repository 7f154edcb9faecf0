package core

import (
	"context"
)

// IngestItem is one candidate message enumerated from an ingestion source.
// Err is set when the item could not be read out of its container.
type IngestItem struct {
	Ref   string
	Index int
	Data  []byte
	Err   error
}

// Ingestor enumerates the messages inside a file, archive or directory
type Ingestor interface {
	// Ingest returns every item in source order; an error means the source itself is unusable
	Ingest(ctx context.Context, path string) ([]IngestItem, error)
}

// MetadataExtractor parses raw message bytes into a record
type MetadataExtractor interface {
	// Extract returns a *ParseError when the input is not a structured message at all
	Extract(raw []byte) (*EmailRecord, []Warning, error)
}

// ContentAnalyzer scores a record's text against the configured pattern groups
type ContentAnalyzer interface {
	Analyze(record *EmailRecord) AnalysisResult
}

// TimelineBuilder orders records and documents into events, threads and causal links
type TimelineBuilder interface {
	Build(records []AnalyzedRecord, docs []LegalDocument) Timeline
}

// RelationshipGraphBuilder builds the correspondent graph and its power profiles
type RelationshipGraphBuilder interface {
	Build(records []AnalyzedRecord, docs []LegalDocument) GraphResult
}

// StrategySimulator ranks the strategy catalog against the case aggregates
type StrategySimulator interface {
	Simulate(timeline Timeline, profiles map[string]ActorPowerProfile, aggregates BehavioralAggregates) []StrategyScenario
}

// IntelligenceSynthesizer merges all stage outputs into the report
type IntelligenceSynthesizer interface {
	Synthesize(in SynthesisInput) Report
}

// RoleClassifier maps a correspondent to an actor role
type RoleClassifier interface {
	Role(address, name string) string
	IsGovernment(address string) bool
}

// VerificationOracle rates the accuracy of legal references in a text span
type VerificationOracle interface {
	Verify(ctx context.Context, span string) (*Verification, error)
}

// RecordStore persists analyzed records keyed by content hash
type RecordStore interface {
	// Store returns false when a record with the same content hash already exists
	Store(ctx context.Context, rec AnalyzedRecord) (bool, error)

	// Query returns matching records ordered by content hash
	Query(ctx context.Context, filter RecordFilter) ([]AnalyzedRecord, error)
}

// AlertStore persists monitoring alerts
type AlertStore interface {
	SaveAlert(ctx context.Context, alert AlertRecord) error
	ListAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// GraphSink exports a relationship graph snapshot to an external graph database
type GraphSink interface {
	Export(ctx context.Context, caseID string, graph GraphResult) error
}
