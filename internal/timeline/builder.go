package timeline

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

var (
	replyPrefix = regexp.MustCompile(`^(?:re|fw|fwd|aw|sv)\s*(?:\[\d+\])?\s*:\s*`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Builder implements core.TimelineBuilder
type Builder struct {
	window    int
	threshold float64
	logger    *zap.Logger
}

// NewBuilder creates a timeline builder. window is the number of immediately
// preceding events considered as causes; links at or below threshold are dropped.
func NewBuilder(window int, threshold float64, logger *zap.Logger) *Builder {
	if window < 0 {
		window = 0
	}
	return &Builder{window: window, threshold: threshold, logger: logger}
}

// Build orders records and documents into events, threads and causal links
func (b *Builder) Build(records []core.AnalyzedRecord, docs []core.LegalDocument) core.Timeline {
	events := make([]core.TimelineEvent, 0, len(records)+len(docs))
	for i := range records {
		events = append(events, communicationEvent(&records[i]))
	}
	for i, d := range docs {
		events = append(events, legalEvent(d, i))
	}

	// Undated evidence sorts first so it is never dropped.
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Timestamp, events[j].Timestamp
		switch {
		case ti == nil && tj == nil:
			return false
		case ti == nil:
			return true
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})
	for i := range events {
		events[i].Index = i
	}

	threads := assignThreads(events)
	links := b.causalLinks(events)

	b.logger.Debug("Built timeline",
		zap.Int("events", len(events)),
		zap.Int("threads", len(threads)),
		zap.Int("causal_links", len(links)))

	return core.Timeline{Events: events, Threads: threads, Links: links}
}

func communicationEvent(r *core.AnalyzedRecord) core.TimelineEvent {
	return core.TimelineEvent{
		ID:           "evt-" + r.Record.ContentHash[:min(12, len(r.Record.ContentHash))],
		Timestamp:    r.Record.SentAt,
		Type:         core.EventCommunication,
		Participants: r.Record.Participants(),
		Content:      r.Record.Subject,
		Importance:   importance(r.Analysis),
		MessageID:    r.Record.MessageID,
		ContentHash:  r.Record.ContentHash,
		References:   r.Record.ThreadReferences,
		Source:       r.Record.Source,
	}
}

func legalEvent(d core.LegalDocument, i int) core.TimelineEvent {
	id := d.ID
	if id == "" {
		id = fmt.Sprintf("%d", i+1)
	}
	content := d.Title
	if content == "" {
		content = d.Type
	}
	return core.TimelineEvent{
		ID:           "doc-" + id,
		Timestamp:    d.Date,
		Type:         core.EventLegalAction,
		Participants: core.SortedSet(d.Parties),
		Content:      content,
		Importance:   core.ImportanceHigh,
	}
}

func importance(a core.AnalysisResult) core.Importance {
	switch {
	case len(a.LegalReferences) > 0 || a.Score(core.IndicatorDeadlinePressure) > 0:
		return core.ImportanceHigh
	case a.Score(core.IndicatorUrgency) > 0 || a.Score(core.IndicatorAuthorityAssertion) > 0:
		return core.ImportanceMedium
	default:
		return core.ImportanceLow
	}
}

// TopicRoot lower-cases a subject, strips reply/forward prefixes and collapses whitespace
func TopicRoot(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		stripped := strings.TrimSpace(replyPrefix.ReplaceAllString(s, ""))
		if stripped == s {
			break
		}
		s = stripped
	}
	return whitespace.ReplaceAllString(s, " ")
}

func threadKey(e core.TimelineEvent) string {
	return TopicRoot(e.Content) + "|" + strings.Join(e.Participants, ",")
}

// assignThreads sets ThreadID on every event. A reply joins the thread of the
// message it references; otherwise events sharing a key share a thread.
func assignThreads(events []core.TimelineEvent) []core.NarrativeThread {
	byKey := map[string]int{}
	byMessage := map[string]int{}
	var threads []core.NarrativeThread

	for i := range events {
		e := &events[i]
		key := threadKey(*e)

		idx, ok := -1, false
		for _, ref := range e.References {
			if idx, ok = byMessage[ref]; ok {
				break
			}
		}
		if !ok {
			idx, ok = byKey[key]
		}
		if !ok {
			sum := sha1.Sum([]byte(key))
			threads = append(threads, core.NarrativeThread{
				ID:    "thr-" + hex.EncodeToString(sum[:])[:12],
				Topic: TopicRoot(e.Content),
			})
			idx = len(threads) - 1
		}
		if _, taken := byKey[key]; !taken {
			byKey[key] = idx
		}
		if e.MessageID != "" {
			if _, taken := byMessage[e.MessageID]; !taken {
				byMessage[e.MessageID] = idx
			}
		}

		e.ThreadID = threads[idx].ID
		th := &threads[idx]
		th.EventIDs = append(th.EventIDs, e.ID)
		th.Participants = core.SortedSet(append(th.Participants, e.Participants...))
	}

	for ti := range threads {
		summarizeThread(&threads[ti], events)
	}
	return threads
}

func summarizeThread(th *core.NarrativeThread, events []core.TimelineEvent) {
	var prev *time.Time
	for _, e := range events {
		if e.ThreadID != th.ID || e.Timestamp == nil {
			continue
		}
		ts := e.Timestamp
		if th.Start == nil || ts.Before(*th.Start) {
			th.Start = ts
		}
		if th.End == nil || ts.After(*th.End) {
			th.End = ts
		}
		if prev != nil {
			if gap := ts.Sub(*prev); gap > th.MaxGap {
				th.MaxGap = gap
			}
		}
		prev = ts
	}
	th.MaxGapHours = math.Round(th.MaxGap.Hours()*100) / 100
}

func (b *Builder) causalLinks(events []core.TimelineEvent) []core.CausalLink {
	links := []core.CausalLink{}
	for i := range events {
		effect := events[i]
		if effect.Timestamp == nil {
			continue
		}
		for j := max(0, i-b.window); j < i; j++ {
			cause := events[j]
			if cause.Timestamp == nil || !cause.Timestamp.Before(*effect.Timestamp) {
				continue
			}
			strength, evidence := causalStrength(cause, effect)
			if strength <= b.threshold {
				continue
			}
			links = append(links, core.CausalLink{
				Cause:       cause.ID,
				Effect:      effect.ID,
				CauseIndex:  cause.Index,
				EffectIndex: effect.Index,
				Strength:    strength,
				Evidence:    evidence,
			})
		}
	}
	return links
}

// causalStrength scores shared participants, temporal proximity and reply linkage
func causalStrength(cause, effect core.TimelineEvent) (float64, []string) {
	var strength float64
	var evidence []string

	shared, union := overlap(cause.Participants, effect.Participants)
	if len(shared) > 0 && union > 0 {
		strength += 0.4 * float64(len(shared)) / float64(union)
		evidence = append(evidence, "shared participants: "+strings.Join(shared, ", "))
	}

	gap := effect.Timestamp.Sub(*cause.Timestamp)
	switch {
	case gap <= 24*time.Hour:
		strength += 0.3
		evidence = append(evidence, fmt.Sprintf("follows within %.1fh", gap.Hours()))
	case gap <= 72*time.Hour:
		strength += 0.2
		evidence = append(evidence, fmt.Sprintf("follows within %.1fh", gap.Hours()))
	case gap <= 7*24*time.Hour:
		strength += 0.1
		evidence = append(evidence, fmt.Sprintf("follows within %.1f days", gap.Hours()/24))
	}

	if cause.MessageID != "" {
		for _, ref := range effect.References {
			if ref == cause.MessageID {
				strength += 0.4
				evidence = append(evidence, "references "+cause.MessageID)
				break
			}
		}
	}

	strength = math.Min(1, strength)
	return math.Round(strength*10000) / 10000, evidence
}

func overlap(a, b []string) ([]string, int) {
	inA := make(map[string]struct{}, len(a))
	for _, x := range a {
		inA[x] = struct{}{}
	}
	var shared []string
	union := len(a)
	for _, x := range b {
		if _, ok := inA[x]; ok {
			shared = append(shared, x)
		} else {
			union++
		}
	}
	return shared, union
}
