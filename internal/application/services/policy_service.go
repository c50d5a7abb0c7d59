package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/mediaudit/backend/internal/domain/providers"
	"github.com/mediaudit/backend/internal/infrastructure/observability"
)

// PolicyService builds the policy ruleset an audit runs against. Without an
// upload it hands out the generalised baseline; with one it transcribes the
// document, parses coverage rules line by line, and falls back to the
// baseline when nothing parsable comes out.
type PolicyService struct {
	extractor providers.BillExtractor
}

// NewPolicyService creates a new policy service. The extractor may be nil
// when only baseline and plain-text parsing are needed.
func NewPolicyService(extractor providers.BillExtractor) *PolicyService {
	return &PolicyService{extractor: extractor}
}

// Baseline returns a fresh copy of the generalised baseline ruleset.
func (s *PolicyService) Baseline() *entities.PolicyRuleset {
	return entities.BaselineRuleset()
}

// FromDocument transcribes a policy document image and parses it into a
// ruleset. Transcription failures are terminal; an unparsable transcription
// is not, it degrades to the baseline with a warning.
func (s *PolicyService) FromDocument(ctx context.Context, document []byte, mediaType string) (*entities.PolicyRuleset, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("no document extractor configured")
	}

	text, err := s.extractor.ExtractDocumentText(ctx, document, mediaType)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy document: %w", err)
	}

	ruleset := s.ParseText(text)
	if ruleset.UsedFallback {
		observability.LoggerFromContext(ctx).Warn().
			Msg("uploaded policy yielded no parsable rules, using baseline")
	}
	return ruleset, nil
}

var (
	percentPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	capPattern       = regexp.MustCompile(`(?i)(?:up\s*to|cap(?:ped)?(?:\s*at)?|limit(?:ed)?(?:\s*to)?|max(?:imum)?(?:\s*of)?|sub-?limit(?:\s*of)?)\s*(?:rs\.?|inr|₹|\$)?\s*([\d,]+(?:\.\d+)?)`)
	exclusionPattern = regexp.MustCompile(`(?i)\bnot\s+(?:covered|payable|reimbursable)\b|\bexcluded?\b|\bexclusions?\b|\bno\s+coverage\b`)
)

var keywordStopwords = map[string]struct{}{
	"a": {}, "and": {}, "are": {}, "at": {}, "charges": {}, "cover": {},
	"coverage": {}, "covered": {}, "expenses": {}, "fees": {}, "for": {},
	"is": {}, "of": {}, "or": {}, "per": {}, "the": {}, "to": {}, "up": {},
}

// ParseText parses a plain-text policy into a ruleset. Each line that names a
// category with a percentage, a cap, or an exclusion becomes one rule; lines
// that look like rules but cannot be read become warnings. Zero parsed rules
// means the whole upload is unusable and the baseline is substituted.
func (s *PolicyService) ParseText(text string) *entities.PolicyRuleset {
	ruleset := &entities.PolicyRuleset{
		Name:   "Uploaded Policy",
		Source: entities.PolicySourceUploaded,
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*• \t"))
		if line == "" {
			continue
		}

		rule, warning := parsePolicyLine(line)
		if warning != "" {
			ruleset.Warnings = append(ruleset.Warnings, warning)
		}
		if rule == nil {
			continue
		}
		if _, exists := ruleset.RuleByCategory(rule.Category); exists {
			ruleset.Warnings = append(ruleset.Warnings, fmt.Sprintf("duplicate rule for %q ignored", rule.Category))
			continue
		}
		rule.Keywords = enrichKeywords(rule.Category, rule.Keywords)
		ruleset.Rules = append(ruleset.Rules, *rule)
	}

	if len(ruleset.Rules) == 0 {
		baseline := entities.BaselineRuleset()
		baseline.Warnings = append(ruleset.Warnings,
			"uploaded policy could not be parsed; generalised baseline applied instead")
		baseline.UsedFallback = true
		return baseline
	}

	// Every ruleset carries the catch-all so the matcher is total.
	if _, ok := ruleset.RuleByCategory(entities.FallbackCategory); !ok {
		ruleset.Rules = append(ruleset.Rules, entities.PolicyRule{
			Category:        entities.FallbackCategory,
			CoveragePercent: 0,
			Keywords:        []string{"miscellaneous", "other", "misc"},
		})
	}

	return ruleset
}

// parsePolicyLine reads one policy line. Returns (nil, "") for lines that do
// not look like rules, and (nil, warning) for lines that do but cannot be
// parsed into one.
func parsePolicyLine(line string) (*entities.PolicyRule, string) {
	excluded := exclusionPattern.MatchString(line)
	percentMatch := percentPattern.FindStringSubmatch(line)
	capMatch := capPattern.FindStringSubmatch(line)

	if !excluded && percentMatch == nil && capMatch == nil {
		return nil, ""
	}

	category := categoryFromLine(line)
	if category == "" {
		return nil, fmt.Sprintf("could not determine the category for rule line %q", line)
	}

	rule := &entities.PolicyRule{
		Category: category,
		Excluded: excluded,
		Keywords: keywordsForCategory(category),
	}

	if excluded {
		return rule, ""
	}

	if percentMatch != nil {
		pct, err := strconv.ParseFloat(percentMatch[1], 64)
		if err != nil || pct < 0 || pct > 100 {
			return nil, fmt.Sprintf("unreadable coverage percentage in %q", line)
		}
		rule.CoveragePercent = pct
	} else {
		// A cap without a percentage means full coverage up to the cap.
		rule.CoveragePercent = 100
	}

	if capMatch != nil {
		capValue, err := strconv.ParseFloat(strings.ReplaceAll(capMatch[1], ",", ""), 64)
		if err != nil || capValue < 0 {
			return nil, fmt.Sprintf("unreadable cap amount in %q", line)
		}
		rule.CapAmount = &capValue
	}

	return rule, ""
}

// categoryFromLine takes the text before the first colon or dash separator,
// or failing that the leading words up to the first digit.
func categoryFromLine(line string) string {
	for _, sep := range []string{":", " - ", " – "} {
		if idx := strings.Index(line, sep); idx > 0 {
			return strings.TrimSpace(line[:idx])
		}
	}
	if idx := strings.IndexFunc(line, func(r rune) bool { return r >= '0' && r <= '9' }); idx > 0 {
		candidate := strings.TrimSpace(strings.TrimRight(line[:idx], " (-–"))
		candidate = strings.TrimSuffix(candidate, " up to")
		candidate = strings.TrimSuffix(candidate, " covered at")
		candidate = strings.TrimSuffix(candidate, " covered")
		if candidate != "" {
			return candidate
		}
	}
	if exclusionPattern.MatchString(line) {
		candidate := exclusionPattern.Split(line, 2)[0]
		candidate = strings.TrimSpace(strings.TrimRight(candidate, " :-–("))
		candidate = strings.TrimSuffix(candidate, " is")
		candidate = strings.TrimSuffix(candidate, " are")
		return strings.TrimSpace(candidate)
	}
	return ""
}

// enrichKeywords merges the baseline keyword list into an uploaded rule whose
// category the baseline also knows. A policy that says "Diagnostics: 50%"
// still has to catch "MRI Brain".
func enrichKeywords(category string, keywords []string) []string {
	baselineRule, ok := entities.BaselineRuleset().RuleByCategory(category)
	if !ok {
		return keywords
	}

	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		seen[k] = struct{}{}
	}
	for _, k := range baselineRule.Keywords {
		if _, dup := seen[k]; !dup {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func keywordsForCategory(category string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(category)) {
		token = strings.Trim(token, ".,()")
		if token == "" {
			continue
		}
		if _, skip := keywordStopwords[token]; skip {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}
