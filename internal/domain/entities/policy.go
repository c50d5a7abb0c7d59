package entities

import "strings"

// PolicySource identifies where a ruleset came from.
type PolicySource string

const (
	PolicySourceBaseline PolicySource = "baseline"
	PolicySourceUploaded PolicySource = "uploaded"
)

// FallbackCategory is the catch-all category every ruleset must carry so that
// every bill line item resolves to some rule.
const FallbackCategory = "Miscellaneous"

// PolicyRule is a category-level reimbursement rule.
type PolicyRule struct {
	Category        string   `json:"category"`
	CoveragePercent float64  `json:"coverage_percent"`
	CapAmount       *float64 `json:"cap_amount,omitempty"`
	Excluded        bool     `json:"excluded"`
	Keywords        []string `json:"keywords"`
}

// PolicyRuleset is an ordered set of category rules. Built once per run from
// the baseline table or a parsed upload; never mutated afterwards.
type PolicyRuleset struct {
	Name   string       `json:"name"`
	Source PolicySource `json:"source"`
	Rules  []PolicyRule `json:"rules"`

	// Warnings carries non-fatal policy parse notes for display.
	Warnings []string `json:"warnings,omitempty"`

	// UsedFallback is set when an uploaded policy yielded zero parsable rules
	// and the baseline was substituted.
	UsedFallback bool `json:"used_fallback,omitempty"`
}

// RuleByCategory returns the rule with the given category name,
// case-insensitively.
func (rs *PolicyRuleset) RuleByCategory(name string) (*PolicyRule, bool) {
	for i := range rs.Rules {
		if strings.EqualFold(rs.Rules[i].Category, name) {
			return &rs.Rules[i], true
		}
	}
	return nil, false
}

// FallbackRule returns the catch-all rule. Rulesets produced by the policy
// service always carry one; a conservative zero-coverage rule is returned if
// a hand-built ruleset lacks it.
func (rs *PolicyRuleset) FallbackRule() *PolicyRule {
	if rule, ok := rs.RuleByCategory(FallbackCategory); ok {
		return rule
	}
	return &PolicyRule{Category: FallbackCategory, CoveragePercent: 0}
}
