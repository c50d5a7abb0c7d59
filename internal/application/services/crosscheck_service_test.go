package services

import (
	"testing"

	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkOne(t *testing.T, item entities.BillLineItem, match entities.MatchResult, ruleset *entities.PolicyRuleset) entities.ItemVerdict {
	t.Helper()
	bill := &entities.BillRecord{LineItems: []entities.BillLineItem{item}}
	verdicts := NewCrossCheckService().Check(bill, []entities.MatchResult{match}, ruleset)
	require.Len(t, verdicts, 1)
	return verdicts[0]
}

func TestCheckFullyCoveredItem(t *testing.T) {
	verdict := checkOne(t,
		entities.BillLineItem{Description: "General Consultation", Quantity: 1, TotalCost: 800},
		entities.MatchResult{ItemIndex: 0, Category: "Consultation", Confidence: 1.0, Method: entities.MatchMethodExact},
		entities.BaselineRuleset(),
	)

	assert.Equal(t, entities.VerdictEligible, verdict.Verdict)
	assert.Equal(t, 800.0, verdict.PermittedAmount)
	assert.Contains(t, verdict.Reason, "fully covered")
}

func TestCheckCapBindsAndIsCited(t *testing.T) {
	// MRI at 9500 against Diagnostics 80% capped at 8000: 80% is 7600, under
	// the cap, so the percentage binds. At 15000 the cap binds instead.
	verdict := checkOne(t,
		entities.BillLineItem{Description: "MRI Full Body", Quantity: 1, TotalCost: 15000},
		entities.MatchResult{ItemIndex: 0, Category: "Diagnostics", Confidence: 0.8, Method: entities.MatchMethodFuzzy},
		entities.BaselineRuleset(),
	)

	assert.Equal(t, entities.VerdictPartiallyEligible, verdict.Verdict)
	assert.Equal(t, 8000.0, verdict.PermittedAmount)
	assert.Contains(t, verdict.Reason, "capped at")
	assert.Contains(t, verdict.Reason, "7000.00")
}

func TestCheckPercentagePartial(t *testing.T) {
	verdict := checkOne(t,
		entities.BillLineItem{Description: "MRI Brain", Quantity: 1, TotalCost: 9500},
		entities.MatchResult{ItemIndex: 0, Category: "Diagnostics", Confidence: 0.8, Method: entities.MatchMethodFuzzy},
		entities.BaselineRuleset(),
	)

	assert.Equal(t, entities.VerdictPartiallyEligible, verdict.Verdict)
	assert.InDelta(t, 7600.0, verdict.PermittedAmount, 0.001)
	assert.Contains(t, verdict.Reason, "80%")
	assert.Contains(t, verdict.Reason, "1900.00")
}

func TestCheckExcludedCategory(t *testing.T) {
	verdict := checkOne(t,
		entities.BillLineItem{Description: "Rhinoplasty", Quantity: 1, TotalCost: 50000},
		entities.MatchResult{ItemIndex: 0, Category: "Cosmetic", Confidence: 0.9, Method: entities.MatchMethodFuzzy},
		entities.BaselineRuleset(),
	)

	assert.Equal(t, entities.VerdictNotEligible, verdict.Verdict)
	assert.Equal(t, 0.0, verdict.PermittedAmount)
	assert.Contains(t, verdict.Reason, "excluded")
}

func TestCheckFallbackItemNotCovered(t *testing.T) {
	verdict := checkOne(t,
		entities.BillLineItem{Description: "Convenience fee", Quantity: 1, TotalCost: 250},
		entities.MatchResult{ItemIndex: 0, Category: entities.FallbackCategory, Confidence: 0, Method: entities.MatchMethodFallback},
		entities.BaselineRuleset(),
	)

	assert.Equal(t, entities.VerdictNotEligible, verdict.Verdict)
	assert.Equal(t, 0.0, verdict.PermittedAmount)
	assert.Contains(t, verdict.Reason, "no matching policy category")
}

func TestCheckLowConfidenceDowngradesEligible(t *testing.T) {
	verdict := checkOne(t,
		entities.BillLineItem{Description: "Ward stay", Quantity: 1, TotalCost: 3000},
		entities.MatchResult{ItemIndex: 0, Category: "Room Rent", Confidence: 0.3, Method: entities.MatchMethodFuzzy},
		entities.BaselineRuleset(),
	)

	// Room Rent covers this fully, but the weak match downgrades the verdict
	// without touching the permitted amount.
	assert.Equal(t, entities.VerdictPartiallyEligible, verdict.Verdict)
	assert.Equal(t, 3000.0, verdict.PermittedAmount)
	assert.Contains(t, verdict.Reason, "manual review")
}

func TestCheckFallbackNeverFullyEligible(t *testing.T) {
	// An uploaded policy may define its own covering catch-all. A catch-all
	// match carries zero confidence, so the item must not come back plain
	// Eligible even though the rule pays it in full.
	ruleset := &entities.PolicyRuleset{
		Source: entities.PolicySourceUploaded,
		Rules: []entities.PolicyRule{
			{Category: "Consultation", CoveragePercent: 100},
			{Category: entities.FallbackCategory, CoveragePercent: 100},
		},
	}

	verdict := checkOne(t,
		entities.BillLineItem{Description: "Zzyzx Qqq", Quantity: 1, TotalCost: 5000},
		entities.MatchResult{ItemIndex: 0, Category: entities.FallbackCategory, Confidence: 0, Method: entities.MatchMethodFallback},
		ruleset,
	)

	assert.Equal(t, entities.VerdictPartiallyEligible, verdict.Verdict)
	assert.Equal(t, 5000.0, verdict.PermittedAmount)
	assert.Contains(t, verdict.Reason, "manual review")
}

func TestCheckZeroAmountItem(t *testing.T) {
	verdict := checkOne(t,
		entities.BillLineItem{Description: "Complimentary water", Quantity: 1, TotalCost: 0},
		entities.MatchResult{ItemIndex: 0, Category: entities.FallbackCategory, Confidence: 0, Method: entities.MatchMethodFallback},
		entities.BaselineRuleset(),
	)

	assert.Equal(t, entities.VerdictEligible, verdict.Verdict)
	assert.Equal(t, 0.0, verdict.PermittedAmount)
}

func TestCheckPermittedNeverExceedsBilled(t *testing.T) {
	cases := []entities.BillLineItem{
		{Description: "Consultation", TotalCost: 100},
		{Description: "Consultation", TotalCost: 2500},
		{Description: "MRI", TotalCost: 50000},
		{Description: "Room", TotalCost: 4999.99},
	}
	ruleset := entities.BaselineRuleset()
	matcher := NewItemMatcherService()
	checker := NewCrossCheckService()

	for _, item := range cases {
		bill := &entities.BillRecord{LineItems: []entities.BillLineItem{item}}
		matches := matcher.Match(bill, ruleset)
		verdicts := checker.Check(bill, matches, ruleset)
		require.Len(t, verdicts, 1)
		assert.GreaterOrEqual(t, verdicts[0].PermittedAmount, 0.0)
		assert.LessOrEqual(t, verdicts[0].PermittedAmount, item.TotalCost)
	}
}
