package services

import (
	"strings"

	"github.com/dfliao/redmine-report/internal/config"
)

// RoleClassifier maps an assignee to the role bucket the statistics table
// groups by. Implementations are best-effort; an error means the caller
// should fall back to the generic role for that one issue.
type RoleClassifier interface {
	Classify(name string, groups []string) (string, error)
}

// lexiconClassifier is the default strategy: explicit group membership
// wins when the tracker exposes it, otherwise keywords from the
// configured lexicon are matched against the display name.
type lexiconClassifier struct {
	spec config.RoleSpec
}

func NewRoleClassifier(spec config.RoleSpec) RoleClassifier {
	return &lexiconClassifier{spec: spec}
}

func (c *lexiconClassifier) Classify(name string, groups []string) (string, error) {
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			return g, nil
		}
	}
	lower := strings.ToLower(name)
	for _, rule := range c.spec.Rules {
		for _, kw := range rule.Keywords {
			if kw == "" { continue }
			if strings.Contains(lower, strings.ToLower(kw)) {
				return rule.Role, nil
			}
		}
	}
	return c.spec.Default, nil
}
