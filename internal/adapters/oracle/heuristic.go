package oracle

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

var (
	citationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z][a-zA-Z\s&]+v\s+[A-Z][a-zA-Z\s&]+\s*\(\d{4}\)`),
		regexp.MustCompile(`[A-Z][a-zA-Z\s&]+v\s+[A-Z][a-zA-Z\s&]+\s*\[\d{4}\]`),
		regexp.MustCompile(`\[\d{4}\]\s+[A-Z]+\s+\d+`),
		regexp.MustCompile(`\(\d{4}\)\s+\d+\s+[A-Z]+\s+\d+`),
	}

	statutePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z][a-zA-Z\s]+Act\s+\d{4}\s*\([A-Za-z]+\)`),
		regexp.MustCompile(`[A-Z][a-zA-Z\s]+Act\s+\d{4}`),
		regexp.MustCompile(`s\s*\d+[A-Z]*\s+[A-Z][a-zA-Z\s]+Act`),
		regexp.MustCompile(`(?i)\bsection\s+\d+[A-Z]*\b`),
	}

	redFlags = []*regexp.Regexp{
		regexp.MustCompile(`(?i)approximately\s+decided`),
		regexp.MustCompile(`(?i)similar\s+cases\s+suggest`),
		regexp.MustCompile(`(?i)it\s+is\s+likely\s+that`),
		regexp.MustCompile(`(?i)courts\s+generally\s+hold`),
		regexp.MustCompile(`(?i)the\s+law\s+typically`),
	}

	spaces = regexp.MustCompile(`\s+`)
)

// Heuristic verifies references offline against a list of known authorities
type Heuristic struct {
	authorities []string
	logger      *zap.Logger
}

// NewHeuristic creates a heuristic oracle
func NewHeuristic(knownAuthorities []string, logger *zap.Logger) *Heuristic {
	authorities := make([]string, 0, len(knownAuthorities))
	for _, a := range knownAuthorities {
		if n := normalize(a); n != "" {
			authorities = append(authorities, n)
		}
	}
	return &Heuristic{authorities: authorities, logger: logger}
}

// References returns the distinct citations and statute references found in text, sorted
func References(text string) []string {
	seen := make(map[string]struct{})
	refs := []string{}
	for _, group := range [][]*regexp.Regexp{citationPatterns, statutePatterns} {
		for _, re := range group {
			for _, m := range re.FindAllString(text, -1) {
				m = strings.TrimSpace(spaces.ReplaceAllString(m, " "))
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				refs = append(refs, m)
			}
		}
	}
	sort.Strings(refs)
	return refs
}

// Verify implements core.VerificationOracle
func (h *Heuristic) Verify(ctx context.Context, span string) (*core.Verification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refs := References(span)
	warnings := []string{}
	verified := 0
	for _, ref := range refs {
		if h.known(ref) {
			verified++
			continue
		}
		warnings = append(warnings, fmt.Sprintf("unverified reference: %s", ref))
	}
	for _, flag := range redFlags {
		if flag.MatchString(span) {
			warnings = append(warnings, fmt.Sprintf("potential hallucination: %s", flag.String()))
		}
	}

	confidence := 0.0
	if len(refs) > 0 {
		confidence = float64(verified) / float64(len(refs)) * 100
	}

	h.logger.Debug("Heuristic verification",
		zap.Int("references", len(refs)),
		zap.Int("verified", verified),
		zap.Float64("confidence", confidence))

	return &core.Verification{
		Verified:   len(refs) > 0 && verified == len(refs),
		Confidence: confidence,
		Warnings:   warnings,
	}, nil
}

func (h *Heuristic) known(ref string) bool {
	n := normalize(ref)
	for _, a := range h.authorities {
		if strings.Contains(n, a) && boundary(n, a) {
			return true
		}
	}
	return false
}

// boundary reports whether some occurrence of a in n is not followed by an alphanumeric,
// so "section 8" does not match inside "section 86"
func boundary(n, a string) bool {
	for i := 0; ; {
		j := strings.Index(n[i:], a)
		if j < 0 {
			return false
		}
		end := i + j + len(a)
		if end == len(n) || !isAlnum(n[end]) {
			return true
		}
		i += j + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(spaces.ReplaceAllString(s, " ")))
}
