package services

import (
	"testing"

	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateAllEligible(t *testing.T) {
	svc := NewRiskService()

	result := svc.Aggregate([]entities.ItemVerdict{
		{Description: "Consultation", BilledAmount: 800, PermittedAmount: 800, MatchConfidence: 1.0, Verdict: entities.VerdictEligible},
		{Description: "Ambulance", BilledAmount: 1500, PermittedAmount: 1500, MatchConfidence: 1.0, Verdict: entities.VerdictEligible},
	}, nil)

	assert.Equal(t, entities.VerdictEligible, result.OverallVerdict)
	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, entities.RiskLevelLow, result.RiskLevel)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "no follow-up")
}

func TestAggregateAllRejected(t *testing.T) {
	svc := NewRiskService()

	result := svc.Aggregate([]entities.ItemVerdict{
		{Description: "Botox", BilledAmount: 30000, PermittedAmount: 0, MatchConfidence: 0.9, Verdict: entities.VerdictNotEligible, Reason: "Cosmetic is excluded from coverage", MatchedCategory: "Cosmetic"},
	}, nil)

	assert.Equal(t, entities.VerdictNotEligible, result.OverallVerdict)
	// Full shortfall plus full rejection: 45 + 30 = 75.
	assert.Equal(t, 75, result.RiskScore)
	assert.Equal(t, entities.RiskLevelHigh, result.RiskLevel)
}

func TestAggregateMixedVerdicts(t *testing.T) {
	svc := NewRiskService()

	result := svc.Aggregate([]entities.ItemVerdict{
		{BilledAmount: 1000, PermittedAmount: 1000, MatchConfidence: 1.0, Verdict: entities.VerdictEligible},
		{BilledAmount: 1000, PermittedAmount: 500, MatchConfidence: 0.8, Verdict: entities.VerdictPartiallyEligible},
	}, nil)

	assert.Equal(t, entities.VerdictPartiallyEligible, result.OverallVerdict)
	// Shortfall 500/2000 = 0.25 -> 11.25; verdict mix 0.5/2 -> 7.5; total 19.
	assert.Equal(t, 19, result.RiskScore)
	assert.Equal(t, entities.RiskLevelLow, result.RiskLevel)
}

func TestAggregateWarningsRaiseScore(t *testing.T) {
	svc := NewRiskService()
	verdicts := []entities.ItemVerdict{
		{BilledAmount: 1000, PermittedAmount: 1000, MatchConfidence: 1.0, Verdict: entities.VerdictEligible},
	}

	clean := svc.Aggregate(verdicts, nil)
	warned := svc.Aggregate(verdicts, []string{"amount mismatch on line 1"})

	assert.Equal(t, clean.RiskScore+10, warned.RiskScore)
	assert.NotEmpty(t, warned.Warnings)
}

func TestAggregateEmptyBill(t *testing.T) {
	svc := NewRiskService()

	result := svc.Aggregate(nil, []string{"no usable line items were extracted from the bill"})

	assert.Equal(t, entities.VerdictNotEligible, result.OverallVerdict)
	assert.Contains(t, result.Summary, "nothing to audit")
	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, entities.RiskLevelLow, result.RiskLevel)
	require.NotEmpty(t, result.Recommendations)
}

func TestAggregateScoreMonotoneInVerdictDowngrade(t *testing.T) {
	svc := NewRiskService()

	before := svc.Aggregate([]entities.ItemVerdict{
		{BilledAmount: 1000, PermittedAmount: 1000, MatchConfidence: 0.9, Verdict: entities.VerdictEligible},
		{BilledAmount: 500, PermittedAmount: 250, MatchConfidence: 0.9, Verdict: entities.VerdictPartiallyEligible},
	}, nil)

	// Same amounts, one verdict downgraded: the score must not drop.
	after := svc.Aggregate([]entities.ItemVerdict{
		{BilledAmount: 1000, PermittedAmount: 1000, MatchConfidence: 0.9, Verdict: entities.VerdictPartiallyEligible},
		{BilledAmount: 500, PermittedAmount: 250, MatchConfidence: 0.9, Verdict: entities.VerdictPartiallyEligible},
	}, nil)

	assert.GreaterOrEqual(t, after.RiskScore, before.RiskScore)
}

func TestAggregateIsDeterministic(t *testing.T) {
	svc := NewRiskService()
	verdicts := []entities.ItemVerdict{
		{Description: "MRI Brain", BilledAmount: 9500, PermittedAmount: 7600, MatchConfidence: 0.5, Verdict: entities.VerdictPartiallyEligible, Reason: "Diagnostics is covered at 80%", MatchedCategory: "Diagnostics"},
		{Description: "Botox", BilledAmount: 30000, PermittedAmount: 0, MatchConfidence: 0.9, Verdict: entities.VerdictNotEligible, Reason: "Cosmetic is excluded from coverage", MatchedCategory: "Cosmetic"},
	}
	warnings := []string{"a warning"}

	first := svc.Aggregate(verdicts, warnings)
	second := svc.Aggregate(verdicts, warnings)

	assert.Equal(t, first, second)
}

func TestAggregateRecommendationsReflectFindings(t *testing.T) {
	svc := NewRiskService()

	result := svc.Aggregate([]entities.ItemVerdict{
		{BilledAmount: 15000, PermittedAmount: 8000, MatchConfidence: 0.8, Verdict: entities.VerdictPartiallyEligible, Reason: "Diagnostics coverage is capped at 8000.00", MatchedCategory: "Diagnostics"},
		{BilledAmount: 5000, PermittedAmount: 0, MatchConfidence: 0.9, Verdict: entities.VerdictNotEligible, Reason: "Dental is excluded from coverage", MatchedCategory: "Dental"},
		{BilledAmount: 700, PermittedAmount: 700, MatchConfidence: 0.3, Verdict: entities.VerdictPartiallyEligible, Reason: "fully covered under Pharmacy; category uncertain, manual review recommended", MatchedCategory: "Pharmacy"},
	}, nil)

	joined := ""
	for _, rec := range result.Recommendations {
		joined += rec + "\n"
	}
	assert.Contains(t, joined, "outside coverage")
	assert.Contains(t, joined, "Dental")
	assert.Contains(t, joined, "cap")
	assert.Contains(t, joined, "reviewer")
}
