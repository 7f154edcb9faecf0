package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SpanFormatter builds the text span sent to the verification oracle
type SpanFormatter interface {
	VerificationSpan(refs []string, subject, body string, maxSize int) string
}

// Stages groups the pipeline stage implementations
type Stages struct {
	Ingestor    Ingestor
	Extractor   MetadataExtractor
	Analyzer    ContentAnalyzer
	Timeline    TimelineBuilder
	Graph       RelationshipGraphBuilder
	Strategy    StrategySimulator
	Synthesizer IntelligenceSynthesizer
}

// ServiceConfig holds the run-level settings of the service
type ServiceConfig struct {
	CaseID          string
	CaseName        string
	Workers         int
	ReviewThreshold float64
	MaxOracleSpan   int
}

// AnalyzeRequest names the ingestion source and any legal documents for one run
type AnalyzeRequest struct {
	Source    string
	Documents []LegalDocument
}

// ForensicService runs the analysis pipeline end to end
type ForensicService struct {
	stages  Stages
	records RecordStore
	oracle  VerificationOracle
	sink    GraphSink
	spans   SpanFormatter
	cfg     ServiceConfig
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewForensicService creates the service; sink may be nil to disable graph export
func NewForensicService(
	stages Stages,
	records RecordStore,
	oracle VerificationOracle,
	sink GraphSink,
	spans SpanFormatter,
	cfg ServiceConfig,
	logger *zap.Logger,
) *ForensicService {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &ForensicService{
		stages:  stages,
		records: records,
		oracle:  oracle,
		sink:    sink,
		spans:   spans,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock replaces the clock used for the report timestamp
func (s *ForensicService) WithClock(now func() time.Time) *ForensicService {
	s.now = now
	return s
}

// WithRunID replaces the run identifier generator
func (s *ForensicService) WithRunID(newID func() string) *ForensicService {
	s.newID = newID
	return s
}

type itemResult struct {
	record   *AnalyzedRecord
	warnings []Warning
	err      *ParseError
}

// Analyze ingests the source, stores every new record and reports on the stored set.
// Only an unusable source, a source without a single record, a store failure or
// cancellation fail the run; everything else is listed in the integrity section.
func (s *ForensicService) Analyze(ctx context.Context, req AnalyzeRequest) (*Report, error) {
	runID := s.newID()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("source", req.Source))

	items, err := s.stages.Ingestor.Ingest(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest %s: %w", req.Source, err)
	}

	results, err := s.process(ctx, items)
	if err != nil {
		return nil, err
	}

	integrity := Integrity{ItemsSeen: len(items), Skipped: []SkippedItem{}, Warnings: []Warning{}}
	for _, res := range results {
		if res.err != nil {
			logger.Warn("Skipping item", zap.String("item", res.err.Item), zap.Int("index", res.err.Index), zap.Error(res.err.Err))
			integrity.Skipped = append(integrity.Skipped, SkippedItem{Item: res.err.Item, Index: res.err.Index, Error: res.err.Err.Error()})
			continue
		}
		integrity.RecordsExtracted++
		integrity.Warnings = append(integrity.Warnings, res.warnings...)

		inserted, err := s.records.Store(ctx, *res.record)
		if err != nil {
			return nil, fmt.Errorf("failed to store record %s: %w", res.record.Record.MessageID, err)
		}
		if !inserted {
			integrity.Duplicates++
			integrity.Warnings = append(integrity.Warnings, NewWarning(WarnDuplicate, res.record.Record.MessageID,
				"content hash %s already stored", res.record.Record.ContentHash))
		}
	}
	if integrity.RecordsExtracted == 0 {
		return nil, fmt.Errorf("%s: %w", req.Source, ErrNoRecords)
	}

	records, err := s.records.Query(ctx, RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load stored records: %w", err)
	}

	timeline := s.stages.Timeline.Build(records, req.Documents)
	graph := s.stages.Graph.Build(records, req.Documents)
	integrity.Warnings = append(integrity.Warnings, graph.Warnings...)

	if s.sink != nil {
		if err := s.sink.Export(ctx, s.cfg.CaseID, graph); err != nil {
			logger.Warn("Graph export failed", zap.Error(err))
			integrity.Warnings = append(integrity.Warnings, NewWarning(WarnExport, s.cfg.CaseID, "graph export failed: %v", err))
		}
	}

	verification, warnings, err := s.verify(ctx, records)
	if err != nil {
		return nil, err
	}
	integrity.Warnings = append(integrity.Warnings, warnings...)
	integrity.Complete = len(integrity.Skipped) == 0

	aggregates := AggregateScores(records)
	scenarios := s.stages.Strategy.Simulate(timeline, graph.Profiles, aggregates)

	report := s.stages.Synthesizer.Synthesize(SynthesisInput{
		CaseID:       s.cfg.CaseID,
		CaseName:     s.cfg.CaseName,
		RunID:        runID,
		Source:       req.Source,
		GeneratedAt:  s.now().UTC(),
		Records:      records,
		Documents:    req.Documents,
		Timeline:     timeline,
		Graph:        graph,
		Scenarios:    scenarios,
		Aggregates:   aggregates,
		Integrity:    integrity,
		Verification: verification,
	})

	logger.Info("Analysis complete",
		zap.Int("items", integrity.ItemsSeen),
		zap.Int("extracted", integrity.RecordsExtracted),
		zap.Int("skipped", len(integrity.Skipped)),
		zap.Int("duplicates", integrity.Duplicates),
		zap.Int("records", len(records)),
		zap.Int("events", len(timeline.Events)),
		zap.Int("causal_links", len(timeline.Links)),
		zap.Bool("requires_review", verification.RequiresReview))

	return &report, nil
}

// process extracts and analyzes items in parallel; results keep item order
func (s *ForensicService) process(ctx context.Context, items []IngestItem) ([]itemResult, error) {
	results := make([]itemResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.processItem(item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	return results, nil
}

func (s *ForensicService) processItem(item IngestItem) itemResult {
	if item.Err != nil {
		return itemResult{err: &ParseError{Item: item.Ref, Index: item.Index, Err: item.Err}}
	}

	rec, warnings, err := s.stages.Extractor.Extract(item.Data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return itemResult{err: &ParseError{Item: item.Ref, Index: item.Index, Err: pe.Err}}
		}
		return itemResult{err: &ParseError{Item: item.Ref, Index: item.Index, Err: err}}
	}
	for i := range warnings {
		warnings[i] = warnings[i].WithItem(item.Ref)
	}

	analysis := s.stages.Analyzer.Analyze(rec)
	return itemResult{record: &AnalyzedRecord{Record: *rec, Analysis: analysis}, warnings: warnings}
}

// verify asks the oracle about every record that cites a legal reference
func (s *ForensicService) verify(ctx context.Context, records []AnalyzedRecord) (VerificationSummary, []Warning, error) {
	summary := VerificationSummary{Threshold: s.cfg.ReviewThreshold, Outcomes: []VerificationOutcome{}}

	var pending []int
	for i, r := range records {
		if len(r.Analysis.LegalReferences) > 0 {
			pending = append(pending, i)
		}
	}

	outcomes := make([]VerificationOutcome, len(pending))
	failures := make([]error, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for n, idx := range pending {
		g.Go(func() error {
			r := records[idx]
			span := s.spans.VerificationSpan(r.Analysis.LegalReferences, r.Record.Subject, r.Record.PlainTextBody, s.cfg.MaxOracleSpan)
			v, err := s.oracle.Verify(gctx, span)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[n], failures[n] = s.outcome(r, v, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, nil, fmt.Errorf("verification cancelled: %w", err)
	}

	var warnings []Warning
	for n, o := range outcomes {
		if failures[n] != nil {
			s.logger.Warn("Verification oracle unavailable",
				zap.String("message_id", o.MessageID), zap.Error(failures[n]))
			warnings = append(warnings, NewWarning(WarnOracleUnavailable, o.MessageID, "verification failed: %v", failures[n]))
		}
		if o.Status != StatusVerified {
			summary.RequiresReview = true
		}
		summary.Outcomes = append(summary.Outcomes, o)
	}
	return summary, warnings, nil
}

func (s *ForensicService) outcome(r AnalyzedRecord, v *Verification, err error) (VerificationOutcome, error) {
	o := VerificationOutcome{
		MessageID:       r.Record.MessageID,
		LegalReferences: r.Analysis.LegalReferences,
		Status:          StatusUnverified,
		Warnings:        []string{},
	}
	if err != nil {
		return o, err
	}
	if v == nil {
		return o, ErrOracleUnavailable
	}

	o.Confidence = v.Confidence
	if v.Warnings != nil {
		o.Warnings = v.Warnings
	}
	if v.Verified && v.Confidence >= s.cfg.ReviewThreshold {
		o.Status = StatusVerified
	} else {
		o.Status = StatusRequiresReview
	}
	return o, nil
}

// Query returns stored records matching the filter
func (s *ForensicService) Query(ctx context.Context, filter RecordFilter) ([]AnalyzedRecord, error) {
	records, err := s.records.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return records, nil
}

// Verify runs the configured oracle on a free-text span
func (s *ForensicService) Verify(ctx context.Context, text string) (*Verification, error) {
	return s.oracle.Verify(ctx, s.spans.VerificationSpan(nil, "", text, s.cfg.MaxOracleSpan))
}
