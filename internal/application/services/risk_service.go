package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// Risk score component weights. Shortfall share carries the most weight
// because money denied is what the patient actually feels; the verdict mix,
// match confidence, and pipeline warnings refine it.
const (
	riskWeightShortfall     = 45.0
	riskWeightVerdictMix    = 30.0
	riskWeightLowConfidence = 15.0
	riskWeightWarnings      = 10.0
)

// RiskService aggregates per-item verdicts into the final audit result: an
// overall verdict, a 0-100 risk score with its level, a human summary, and
// recommendations. Aggregation is deterministic; the same verdicts and
// warnings always produce the same result.
type RiskService struct{}

// NewRiskService creates a new risk aggregator.
func NewRiskService() *RiskService {
	return &RiskService{}
}

// Aggregate builds the audit result from item verdicts and pipeline warnings.
// The result carries no ID or timestamp; the orchestrator stamps those.
func (s *RiskService) Aggregate(verdicts []entities.ItemVerdict, warnings []string) *entities.AuditResult {
	result := &entities.AuditResult{
		Items:    verdicts,
		Warnings: warnings,
	}

	if len(verdicts) == 0 {
		result.OverallVerdict = entities.VerdictNotEligible
		result.Summary = "nothing to audit: no line items were extracted from the bill"
		result.RiskScore = 0
		result.RiskLevel = entities.RiskLevelForScore(0)
		result.Recommendations = []string{
			"Retake the photo with the full bill visible and good lighting, then run the audit again.",
		}
		return result
	}

	var totalBilled, totalPermitted float64
	var eligible, partial, notEligible, lowConfidence int
	for _, v := range verdicts {
		totalBilled += v.BilledAmount
		totalPermitted += v.PermittedAmount
		switch v.Verdict {
		case entities.VerdictEligible:
			eligible++
		case entities.VerdictPartiallyEligible:
			partial++
		case entities.VerdictNotEligible:
			notEligible++
		}
		if v.MatchConfidence < lowConfidenceThreshold {
			lowConfidence++
		}
	}

	result.OverallVerdict = overallVerdict(eligible, partial, notEligible, len(verdicts))
	result.RiskScore = riskScore(totalBilled, totalPermitted, partial, notEligible, lowConfidence, len(verdicts), len(warnings) > 0)
	result.RiskLevel = entities.RiskLevelForScore(result.RiskScore)
	result.Summary = fmt.Sprintf(
		"%d of %d items fully eligible; permitted %.2f of %.2f billed (%s risk)",
		eligible, len(verdicts), totalPermitted, totalBilled, strings.ToLower(string(result.RiskLevel)))
	result.Recommendations = s.recommendations(verdicts, warnings, totalBilled, totalPermitted)

	return result
}

func overallVerdict(eligible, partial, notEligible, total int) entities.Verdict {
	switch {
	case eligible == total:
		return entities.VerdictEligible
	case notEligible == total:
		return entities.VerdictNotEligible
	default:
		return entities.VerdictPartiallyEligible
	}
}

// riskScore blends four shares into [0,100]: how much of the billed amount
// falls outside coverage, how many verdicts went against the claim, how many
// matches were weak, and whether the pipeline raised warnings.
func riskScore(totalBilled, totalPermitted float64, partial, notEligible, lowConfidence, itemCount int, hasWarnings bool) int {
	shortfallShare := 0.0
	if totalBilled > amountTolerance {
		shortfallShare = (totalBilled - totalPermitted) / totalBilled
		shortfallShare = math.Max(0, math.Min(1, shortfallShare))
	}

	verdictMixShare := (float64(notEligible) + 0.5*float64(partial)) / float64(itemCount)
	lowConfidenceShare := float64(lowConfidence) / float64(itemCount)

	warningsFlag := 0.0
	if hasWarnings {
		warningsFlag = 1.0
	}

	score := riskWeightShortfall*shortfallShare +
		riskWeightVerdictMix*verdictMixShare +
		riskWeightLowConfidence*lowConfidenceShare +
		riskWeightWarnings*warningsFlag

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func (s *RiskService) recommendations(verdicts []entities.ItemVerdict, warnings []string, totalBilled, totalPermitted float64) []string {
	var recs []string

	var excludedCategories []string
	capBound := false
	needsReview := false
	for _, v := range verdicts {
		if strings.Contains(v.Reason, "excluded") {
			excludedCategories = appendUnique(excludedCategories, v.MatchedCategory)
		}
		if strings.Contains(v.Reason, "capped at") {
			capBound = true
		}
		if strings.Contains(v.Reason, "manual review") {
			needsReview = true
		}
	}

	if shortfall := totalBilled - totalPermitted; shortfall > amountTolerance {
		recs = append(recs, fmt.Sprintf(
			"Expect %.2f of the %.2f billed to fall outside coverage; budget for the difference or contest it with the insurer.",
			shortfall, totalBilled))
	}
	if len(excludedCategories) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Charges under %s are policy exclusions and will not be reimbursed; confirm they were medically necessary before paying.",
			strings.Join(excludedCategories, ", ")))
	}
	if capBound {
		recs = append(recs, "One or more items hit a category cap; check whether your policy offers higher sub-limits or a rider.")
	}
	if needsReview {
		recs = append(recs, "Some items could not be confidently categorized; have a human reviewer verify them against the original bill.")
	}
	if len(warnings) > 0 {
		recs = append(recs, "The extraction raised warnings; double-check the flagged amounts against the printed bill.")
	}
	if len(recs) == 0 {
		recs = append(recs, "The bill is consistent with the policy; no follow-up needed.")
	}

	return recs
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
