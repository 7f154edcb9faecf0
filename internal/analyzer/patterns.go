package analyzer

import (
	"fmt"
	"os"

	"github.com/mikey/forensic-intel/internal/core"
	"gopkg.in/yaml.v3"
)

// Kind selects how a group's patterns are matched
type Kind string

const (
	KindKeyword Kind = "keyword"
	KindRegex   Kind = "regex"
)

// Group is a named indicator: a list of case-insensitive substrings or expressions
type Group struct {
	Name     string   `yaml:"name"`
	Kind     Kind     `yaml:"kind"`
	Patterns []string `yaml:"patterns"`
}

// Patterns is the full analyzer configuration
type Patterns struct {
	Groups          []Group  `yaml:"groups"`
	LegalReferences []string `yaml:"legal_references"`
}

// DefaultPatterns returns the built-in indicator set
func DefaultPatterns() Patterns {
	return Patterns{
		Groups: []Group{
			{Name: string(core.IndicatorUrgency), Kind: KindKeyword, Patterns: []string{
				"urgent", "immediate", "asap", "emergency", "critical",
			}},
			{Name: string(core.IndicatorAuthorityAssertion), Kind: KindKeyword, Patterns: []string{
				"you must", "required to", "obligation", "failure to comply",
			}},
			{Name: string(core.IndicatorNegativeTone), Kind: KindKeyword, Patterns: []string{
				"breach", "violation", "failure", "non-compliance", "termination",
			}},
			{Name: string(core.IndicatorPressure), Kind: KindKeyword, Patterns: []string{
				"final notice", "last chance", "no choice", "consequences", "or else",
			}},
			{Name: string(core.IndicatorDeadlinePressure), Kind: KindRegex, Patterns: []string{
				`\bwithin\s+\d+\s+(?:business\s+)?(?:days?|hours?)\b`,
				`\bby\s+(?:close of business|cob|end of day|eod)\b`,
				`\bdeadline\b`,
				`\bno later than\b`,
				`\bdue\s+(?:by|on)\b`,
			}},
			{Name: string(core.IndicatorRetaliation), Kind: KindKeyword, Patterns: []string{
				"retaliat", "since you complained", "after your complaint",
				"in response to your complaint", "rent increase",
			}},
			{Name: string(core.IndicatorProceduralViolation), Kind: KindKeyword, Patterns: []string{
				"without notice", "no notice was", "failed to provide", "did not receive",
				"not given the opportunity",
			}},
			{Name: string(core.IndicatorManipulation), Kind: KindKeyword, Patterns: []string{
				"for your own good", "everyone knows", "trust me", "you leave us no",
				"if you really cared",
			}},
			{Name: string(core.IndicatorToneAggressive), Kind: KindKeyword, Patterns: []string{
				"must", "require", "demand", "immediately", "failure to",
			}},
			{Name: string(core.IndicatorTonePassive), Kind: KindKeyword, Patterns: []string{
				"please", "kindly", "would appreciate", "if possible",
			}},
			{Name: string(core.IndicatorToneProfessional), Kind: KindKeyword, Patterns: []string{
				"pursuant to", "in accordance with", "please find", "reference",
			}},
		},
		LegalReferences: []string{
			`\bSection\s+\d+[A-Z]*`,
			`\bs\s*\.\s*\d+[A-Z]*`,
			`\b\d+ZZ[A-Z]\b`,
			`\bResidential Tenancies Act(?:\s+\d{4})?`,
			`\bVCAT\b`,
			`\bnotice to vacate\b`,
			`\bbreach of duty\b`,
		},
	}
}

// LoadPatterns reads a YAML pattern file and merges it over the defaults.
// A group with a default's name replaces it; other groups are appended.
func LoadPatterns(path string) (Patterns, error) {
	base := DefaultPatterns()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Patterns{}, fmt.Errorf("failed to read pattern file: %w", err)
	}
	var file Patterns
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Patterns{}, fmt.Errorf("failed to parse pattern file %s: %w", path, err)
	}
	return base.Merge(file), nil
}

// Merge overlays other on p
func (p Patterns) Merge(other Patterns) Patterns {
	out := Patterns{
		Groups:          append([]Group(nil), p.Groups...),
		LegalReferences: p.LegalReferences,
	}
	index := make(map[string]int, len(out.Groups))
	for i, g := range out.Groups {
		index[g.Name] = i
	}
	for _, g := range other.Groups {
		if g.Kind == "" {
			g.Kind = KindKeyword
		}
		if i, ok := index[g.Name]; ok {
			out.Groups[i] = g
			continue
		}
		index[g.Name] = len(out.Groups)
		out.Groups = append(out.Groups, g)
	}
	if len(other.LegalReferences) > 0 {
		out.LegalReferences = other.LegalReferences
	}
	return out
}
