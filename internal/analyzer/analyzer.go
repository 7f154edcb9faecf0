package analyzer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

var whitespace = regexp.MustCompile(`\s+`)

type matcher struct {
	name     string
	keywords []string
	regexes  []*regexp.Regexp
}

func (m matcher) count(lower, original string) int {
	n := 0
	for _, kw := range m.keywords {
		n += strings.Count(lower, kw)
	}
	for _, re := range m.regexes {
		n += len(re.FindAllStringIndex(original, -1))
	}
	return n
}

// Analyzer implements core.ContentAnalyzer over configured pattern groups
type Analyzer struct {
	matchers []matcher
	legal    []*regexp.Regexp
	logger   *zap.Logger
}

// New compiles the pattern configuration
func New(p Patterns, logger *zap.Logger) (*Analyzer, error) {
	a := &Analyzer{logger: logger}
	for _, g := range p.Groups {
		m := matcher{name: g.Name}
		for _, pat := range g.Patterns {
			switch g.Kind {
			case KindRegex:
				re, err := regexp.Compile("(?i)" + pat)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern %q in group %s: %w", pat, g.Name, err)
				}
				m.regexes = append(m.regexes, re)
			case KindKeyword, "":
				if kw := strings.ToLower(pat); kw != "" {
					m.keywords = append(m.keywords, kw)
				}
			default:
				return nil, fmt.Errorf("unknown pattern kind %q in group %s", g.Kind, g.Name)
			}
		}
		a.matchers = append(a.matchers, m)
	}
	for _, pat := range p.LegalReferences {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("invalid legal reference pattern %q: %w", pat, err)
		}
		a.legal = append(a.legal, re)
	}
	return a, nil
}

// Analyze scores the subject and body of a record
func (a *Analyzer) Analyze(record *core.EmailRecord) core.AnalysisResult {
	text := record.Subject + "\n" + record.PlainTextBody
	lower := strings.ToLower(text)

	scores := make(map[string]int, len(a.matchers))
	for _, m := range a.matchers {
		scores[m.name] += m.count(lower, text)
	}

	result := core.AnalysisResult{
		LegalReferences:  a.legalReferences(text),
		BehavioralScores: scores,
	}
	result.Tone = ClassifyTone(
		scores[string(core.IndicatorToneAggressive)],
		scores[string(core.IndicatorTonePassive)],
		scores[string(core.IndicatorToneProfessional)],
	)
	result.ManipulationIndex = math.Min(1, math.Round(float64(scores[string(core.IndicatorManipulation)])/4*100)/100)

	a.logger.Debug("Analyzed message",
		zap.String("message_id", record.MessageID),
		zap.Strings("legal_references", result.LegalReferences),
		zap.String("tone", string(result.Tone)))

	return result
}

// ClassifyTone picks a tone from the three tone counts. Aggressive is
// evaluated first and wins ties with passive.
func ClassifyTone(aggressive, passive, professional int) core.Tone {
	switch {
	case aggressive > professional && aggressive >= passive:
		return core.ToneAggressive
	case passive > professional:
		return core.TonePassive
	case professional > 0:
		return core.ToneProfessional
	default:
		return core.ToneNeutral
	}
}

type span struct {
	start, end int
}

// legalReferences returns matches in order of first appearance, without
// duplicates and without matches nested inside an earlier one
func (a *Analyzer) legalReferences(text string) []string {
	var spans []span
	for _, re := range a.legal {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1]})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	refs := []string{}
	seen := map[string]struct{}{}
	coveredTo := -1
	for _, s := range spans {
		if s.end <= coveredTo {
			continue
		}
		ref := strings.TrimSpace(whitespace.ReplaceAllString(text[s.start:s.end], " "))
		coveredTo = s.end
		key := strings.ToLower(ref)
		if _, ok := seen[key]; ok || ref == "" {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
