package roles

import (
	"strings"

	"github.com/mikey/forensic-intel/internal/config"
	"go.uber.org/zap"
)

const (
	// RoleGovernmentAgency is assigned to addresses on a government domain
	RoleGovernmentAgency = "government_agency"
	// RoleUnknown is the default when no rule matches
	RoleUnknown = "unknown"
)

// Classifier maps correspondents to actor roles from configured rules
type Classifier struct {
	rules      []config.RoleRule
	govDomains []string
	logger     *zap.Logger
}

// NewClassifier creates a new role classifier
func NewClassifier(cfg config.RolesConfig, logger *zap.Logger) *Classifier {
	rules := make([]config.RoleRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		match := strings.ToLower(strings.TrimSpace(r.Match))
		if match == "" || r.Role == "" {
			continue
		}
		rules = append(rules, config.RoleRule{Match: match, Role: r.Role})
	}

	domains := make([]string, 0, len(cfg.GovernmentDomains))
	for _, d := range cfg.GovernmentDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}

	if logger != nil {
		logger.Debug("Initialized role classifier",
			zap.Int("rules", len(rules)),
			zap.Strings("government_domains", domains))
	}

	return &Classifier{rules: rules, govDomains: domains, logger: logger}
}

// Role returns the first matching rule's role, then government, then unknown.
// Rules match against the address and the display name.
func (c *Classifier) Role(address, name string) string {
	addr := strings.ToLower(address)
	display := strings.ToLower(name)
	for _, r := range c.rules {
		if strings.Contains(addr, r.Match) || (display != "" && strings.Contains(display, r.Match)) {
			return r.Role
		}
	}
	if c.IsGovernment(address) {
		return RoleGovernmentAgency
	}
	return RoleUnknown
}

// IsGovernment checks if the address's domain is a configured government domain
func (c *Classifier) IsGovernment(address string) bool {
	parts := strings.Split(strings.ToLower(address), "@")
	if len(parts) != 2 || parts[1] == "" {
		return false
	}
	domain := parts[1]

	for _, gov := range c.govDomains {
		suffix := gov
		if !strings.HasPrefix(suffix, ".") {
			if domain == suffix {
				return true
			}
			suffix = "." + suffix
		}
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}
