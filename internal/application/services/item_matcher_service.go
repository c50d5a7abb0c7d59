package services

import (
	"regexp"
	"strings"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// fuzzyMatchThreshold is the minimum keyword overlap score for a fuzzy match
// to count. Below it the item falls through to the catch-all category.
const fuzzyMatchThreshold = 0.2

// ItemMatcherService assigns every bill line item to exactly one policy
// category: an exact category hint from the bill wins, keyword overlap
// against the item description comes next, and the catch-all category absorbs
// whatever is left. The matcher is total; no item is ever left unmatched.
type ItemMatcherService struct{}

// NewItemMatcherService creates a new item matcher.
func NewItemMatcherService() *ItemMatcherService {
	return &ItemMatcherService{}
}

var nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Match resolves all line items of a bill against the ruleset. Results come
// back in line item order, one per item.
func (s *ItemMatcherService) Match(bill *entities.BillRecord, ruleset *entities.PolicyRuleset) []entities.MatchResult {
	results := make([]entities.MatchResult, 0, len(bill.LineItems))
	for i := range bill.LineItems {
		results = append(results, s.matchItem(&bill.LineItems[i], i, ruleset))
	}
	return results
}

func (s *ItemMatcherService) matchItem(item *entities.BillLineItem, index int, ruleset *entities.PolicyRuleset) entities.MatchResult {
	if item.Category != "" {
		if rule, ok := ruleset.RuleByCategory(item.Category); ok {
			return entities.MatchResult{
				ItemIndex:  index,
				Category:   rule.Category,
				Confidence: 1.0,
				Method:     entities.MatchMethodExact,
			}
		}
	}

	tokens := tokenize(item.Description)
	bestScore := 0.0
	bestCategory := ""
	for _, rule := range ruleset.Rules {
		if strings.EqualFold(rule.Category, entities.FallbackCategory) {
			continue
		}
		score := keywordOverlap(rule.Keywords, tokens)
		// Strictly greater keeps the earliest rule on ties, so ruleset
		// order decides.
		if score > bestScore {
			bestScore = score
			bestCategory = rule.Category
		}
	}

	if bestScore >= fuzzyMatchThreshold {
		return entities.MatchResult{
			ItemIndex:  index,
			Category:   bestCategory,
			Confidence: bestScore,
			Method:     entities.MatchMethodFuzzy,
		}
	}

	return entities.MatchResult{
		ItemIndex:  index,
		Category:   ruleset.FallbackRule().Category,
		Confidence: 0,
		Method:     entities.MatchMethodFallback,
	}
}

// keywordOverlap scores how much of the smaller side (keywords or description
// tokens) is covered by matches, in [0,1].
func keywordOverlap(keywords []string, tokens []string) float64 {
	if len(keywords) == 0 || len(tokens) == 0 {
		return 0
	}

	matched := 0
	for _, keyword := range keywords {
		for _, token := range tokens {
			if tokensEqual(keyword, token) {
				matched++
				break
			}
		}
	}

	denominator := len(keywords)
	if len(tokens) < denominator {
		denominator = len(tokens)
	}
	if denominator < 1 {
		denominator = 1
	}
	return float64(matched) / float64(denominator)
}

// tokensEqual compares a keyword against a description token, forgiving a
// trailing plural s on either side.
func tokensEqual(keyword, token string) bool {
	if keyword == token {
		return true
	}
	if strings.TrimSuffix(keyword, "s") == token || strings.TrimSuffix(token, "s") == keyword {
		return true
	}
	return false
}

func tokenize(text string) []string {
	var tokens []string
	for _, token := range nonWordChars.Split(strings.ToLower(text), -1) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
