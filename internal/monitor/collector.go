package monitor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// Collector checks one external source and returns the alerts it found
type Collector interface {
	Name() string
	Check(ctx context.Context) ([]Alert, error)
}

// Supported reports whether a file name is an ingestable message source
type Supported func(name string) bool

// MessageCollector watches a drop directory for message files it has not seen before
type MessageCollector struct {
	dir       string
	ingestor  core.Ingestor
	extractor core.MetadataExtractor
	analyzer  core.ContentAnalyzer
	supported Supported
	keywords  []string
	threshold float64
	logger    *zap.Logger

	mu   sync.Mutex
	seen map[string]string
}

// NewMessageCollector creates a drop-directory collector
func NewMessageCollector(
	dir string,
	ingestor core.Ingestor,
	extractor core.MetadataExtractor,
	analyzer core.ContentAnalyzer,
	supported Supported,
	cfg config.MonitorConfig,
	caseID string,
	logger *zap.Logger,
) *MessageCollector {
	keywords := make([]string, 0, len(cfg.CaseKeywords)+1)
	if caseID != "" {
		keywords = append(keywords, strings.ToLower(caseID))
	}
	for _, k := range cfg.CaseKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &MessageCollector{
		dir:       dir,
		ingestor:  ingestor,
		extractor: extractor,
		analyzer:  analyzer,
		supported: supported,
		keywords:  keywords,
		threshold: cfg.RelevanceThreshold,
		logger:    logger,
		seen:      make(map[string]string),
	}
}

func (c *MessageCollector) Name() string { return "messages" }

// Check ingests files that are new or changed since the previous check
func (c *MessageCollector) Check(ctx context.Context) ([]Alert, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read drop directory %s: %w", c.dir, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var alerts []Alert
	for _, entry := range entries {
		if entry.IsDir() || !c.supported(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		stamp := fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
		if c.seen[path] == stamp {
			continue
		}

		items, err := c.ingestor.Ingest(ctx, path)
		if err != nil {
			c.logger.Warn("Failed to ingest dropped file", zap.String("file", path), zap.Error(err))
			continue
		}
		c.seen[path] = stamp

		for _, item := range items {
			if alert, ok := c.assess(item); ok {
				alerts = append(alerts, alert)
			}
		}
	}
	return alerts, nil
}

func (c *MessageCollector) assess(item core.IngestItem) (Alert, bool) {
	if item.Err != nil {
		c.logger.Warn("Skipping unreadable dropped item", zap.String("item", item.Ref), zap.Error(item.Err))
		return Alert{}, false
	}
	rec, _, err := c.extractor.Extract(item.Data)
	if err != nil {
		c.logger.Warn("Skipping dropped item", zap.String("item", item.Ref), zap.Error(err))
		return Alert{}, false
	}
	analysis := c.analyzer.Analyze(rec)
	relevance := Relevance(rec, analysis, c.keywords)
	if relevance < c.threshold {
		c.logger.Debug("Dropped message below relevance threshold",
			zap.String("item", item.Ref), zap.Float64("relevance", relevance))
		return Alert{}, false
	}

	severity := SeverityLow
	if relevance > 0.8 {
		severity = SeverityMedium
	}
	return Alert{
		Source:   c.dir,
		Severity: severity,
		Payload: NewMessage{
			Ref:       item.Ref,
			MessageID: rec.MessageID,
			Sender:    rec.Sender.Address,
			Subject:   rec.Subject,
			Relevance: relevance,
			Record:    core.AnalyzedRecord{Record: *rec, Analysis: analysis},
		},
	}, true
}

// Relevance is the share of case keywords present in the subject and body. A message that
// cites a legal reference is always fully relevant.
func Relevance(rec *core.EmailRecord, analysis core.AnalysisResult, keywords []string) float64 {
	if len(analysis.LegalReferences) > 0 {
		return 1
	}
	if len(keywords) == 0 {
		return 0
	}
	text := strings.ToLower(rec.Subject + "\n" + rec.PlainTextBody)
	hits := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			hits++
		}
	}
	return math.Min(1, float64(hits)/float64(len(keywords)))
}

type deadline struct {
	name  string
	notes string
	due   time.Time
}

// DeadlineCollector counts down to configured deadlines inside a horizon
type DeadlineCollector struct {
	deadlines []deadline
	horizon   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	reported map[string]int
}

// NewDeadlineCollector parses the configured deadlines; due dates are YYYY-MM-DD or RFC 3339
func NewDeadlineCollector(cfg config.MonitorConfig) (*DeadlineCollector, error) {
	deadlines := make([]deadline, 0, len(cfg.Deadlines))
	for _, d := range cfg.Deadlines {
		due, err := parseDue(d.Due)
		if err != nil {
			return nil, fmt.Errorf("invalid due date for deadline %q: %w", d.Name, err)
		}
		deadlines = append(deadlines, deadline{name: d.Name, notes: d.Notes, due: due})
	}
	sort.SliceStable(deadlines, func(i, j int) bool { return deadlines[i].due.Before(deadlines[j].due) })
	return &DeadlineCollector{
		deadlines: deadlines,
		horizon:   cfg.DeadlineHorizon,
		now:       time.Now,
		reported:  make(map[string]int),
	}, nil
}

// WithClock replaces the time source
func (c *DeadlineCollector) WithClock(now func() time.Time) *DeadlineCollector {
	c.now = now
	return c
}

func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (c *DeadlineCollector) Name() string { return "deadlines" }

// DeadlineSeverity maps days remaining to a severity
func DeadlineSeverity(days int) Severity {
	switch {
	case days <= 7:
		return SeverityHigh
	case days <= 14:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Check emits one alert per upcoming deadline each time its whole-day countdown changes
func (c *DeadlineCollector) Check(context.Context) ([]Alert, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var alerts []Alert
	for _, d := range c.deadlines {
		remaining := d.due.Sub(now)
		if remaining < 0 || (c.horizon > 0 && remaining > c.horizon) {
			continue
		}
		days := int(remaining.Hours() / 24)
		if last, ok := c.reported[d.name]; ok && last == days {
			continue
		}
		c.reported[d.name] = days
		alerts = append(alerts, Alert{
			Source:   "config",
			Severity: DeadlineSeverity(days),
			RaisedAt: now,
			Payload:  DeadlineNotice{Name: d.name, Due: d.due, DaysRemaining: days, Notes: d.notes},
		})
	}
	return alerts, nil
}

// FeedCollector reads entries appended to a JSON-lines feed file since the previous check
type FeedCollector struct {
	name     string
	path     string
	kind     Kind
	severity Severity
	logger   *zap.Logger

	mu     sync.Mutex
	offset int64
}

// NewFeedCollector creates a collector for a decisions or legal-updates feed
func NewFeedCollector(kind Kind, path string, logger *zap.Logger) (*FeedCollector, error) {
	severity := SeverityMedium
	switch kind {
	case KindDecision:
		severity = SeverityHigh
	case KindLegalUpdate:
	default:
		return nil, fmt.Errorf("feed collector does not produce %s alerts", kind)
	}
	return &FeedCollector{
		name:     string(kind) + "s",
		path:     path,
		kind:     kind,
		severity: severity,
		logger:   logger,
	}, nil
}

func (c *FeedCollector) Name() string { return c.name }

// Check returns one alert per complete new line; a trailing partial line waits for the next check
func (c *FeedCollector) Check(context.Context) ([]Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open feed %s: %w", c.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat feed %s: %w", c.path, err)
	}
	if info.Size() < c.offset {
		c.logger.Info("Feed truncated, reading from start", zap.String("feed", c.path))
		c.offset = 0
	}
	if _, err := f.Seek(c.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek feed %s: %w", c.path, err)
	}

	var alerts []Alert
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return alerts, fmt.Errorf("failed to read feed %s: %w", c.path, err)
		}
		c.offset += int64(len(line))

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry FeedEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			c.logger.Warn("Skipping malformed feed entry", zap.String("feed", c.path), zap.Error(err))
			continue
		}
		alerts = append(alerts, Alert{Source: c.path, Severity: c.severity, Payload: c.payload(entry)})
	}
	return alerts, nil
}

func (c *FeedCollector) payload(entry FeedEntry) Payload {
	if c.kind == KindDecision {
		return Decision{FeedEntry: entry}
	}
	return LegalUpdate{FeedEntry: entry}
}
