package services

import (
	"fmt"
	"math"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// lowConfidenceThreshold marks non-exact matches too weak to trust on their own.
// Items below it never come back fully Eligible; a reviewer note is attached.
const lowConfidenceThreshold = 0.5

// CrossCheckService applies the policy ruleset to matched line items and
// produces one verdict per item. The permitted amount is always within
// [0, billed amount]; exclusions zero it, caps and coverage percentages bound
// it from above.
type CrossCheckService struct{}

// NewCrossCheckService creates a new cross-check engine.
func NewCrossCheckService() *CrossCheckService {
	return &CrossCheckService{}
}

// Check evaluates every matched item against its policy rule. Verdicts come
// back in line item order.
func (s *CrossCheckService) Check(bill *entities.BillRecord, matches []entities.MatchResult, ruleset *entities.PolicyRuleset) []entities.ItemVerdict {
	verdicts := make([]entities.ItemVerdict, 0, len(matches))
	for _, match := range matches {
		item := &bill.LineItems[match.ItemIndex]
		verdicts = append(verdicts, s.checkItem(item, match, ruleset))
	}
	return verdicts
}

func (s *CrossCheckService) checkItem(item *entities.BillLineItem, match entities.MatchResult, ruleset *entities.PolicyRuleset) entities.ItemVerdict {
	rule, ok := ruleset.RuleByCategory(match.Category)
	if !ok {
		rule = ruleset.FallbackRule()
	}

	verdict := entities.ItemVerdict{
		Description:     item.Description,
		Quantity:        item.Quantity,
		BilledAmount:    item.TotalCost,
		MatchedCategory: rule.Category,
		MatchConfidence: match.Confidence,
	}

	switch {
	case rule.Excluded:
		verdict.PermittedAmount = 0
		verdict.Verdict = entities.VerdictNotEligible
		verdict.Reason = fmt.Sprintf("%s is excluded from coverage", rule.Category)

	case item.TotalCost <= amountTolerance:
		verdict.PermittedAmount = 0
		verdict.Verdict = entities.VerdictEligible
		verdict.Reason = "no amount billed"

	case rule.CoveragePercent <= 0:
		verdict.PermittedAmount = 0
		verdict.Verdict = entities.VerdictNotEligible
		if match.Method == entities.MatchMethodFallback {
			verdict.Reason = "no matching policy category; not covered"
		} else {
			verdict.Reason = fmt.Sprintf("%s is not covered by the policy", rule.Category)
		}

	default:
		covered := item.TotalCost * rule.CoveragePercent / 100
		permitted := covered
		cappedByLimit := false
		if rule.CapAmount != nil && permitted > *rule.CapAmount {
			permitted = *rule.CapAmount
			cappedByLimit = true
		}
		permitted = math.Min(permitted, item.TotalCost)
		verdict.PermittedAmount = roundMoney(permitted)
		shortfall := roundMoney(item.TotalCost - verdict.PermittedAmount)

		switch {
		case permitted >= item.TotalCost-amountTolerance:
			verdict.Verdict = entities.VerdictEligible
			verdict.Reason = fmt.Sprintf("fully covered under %s", rule.Category)
		case cappedByLimit:
			verdict.Verdict = entities.VerdictPartiallyEligible
			verdict.Reason = fmt.Sprintf("%s coverage is capped at %.2f; %.2f of the billed amount is not covered", rule.Category, *rule.CapAmount, shortfall)
		default:
			verdict.Verdict = entities.VerdictPartiallyEligible
			verdict.Reason = fmt.Sprintf("%s is covered at %.0f%%; %.2f of the billed amount is not covered", rule.Category, rule.CoveragePercent, shortfall)
		}
	}

	if match.Confidence < lowConfidenceThreshold && match.Method != entities.MatchMethodExact && item.TotalCost > amountTolerance {
		// Keep the permitted amount; only the verdict weakens.
		if verdict.Verdict == entities.VerdictEligible {
			verdict.Verdict = entities.VerdictPartiallyEligible
		}
		verdict.Reason += "; category uncertain, manual review recommended"
	}

	return verdict
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
