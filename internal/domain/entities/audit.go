package entities

import "time"

// Verdict is the eligibility outcome for a line item or a whole claim.
type Verdict string

const (
	VerdictEligible          Verdict = "Eligible"
	VerdictPartiallyEligible Verdict = "Partially Eligible"
	VerdictNotEligible       Verdict = "Not Eligible"
)

// IsValid checks if the verdict value is one of the defined constants.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictEligible, VerdictPartiallyEligible, VerdictNotEligible:
		return true
	}
	return false
}

// MatchMethod records how a line item was matched to a policy category.
type MatchMethod string

const (
	MatchMethodExact    MatchMethod = "exact"
	MatchMethodFuzzy    MatchMethod = "fuzzy"
	MatchMethodFallback MatchMethod = "fallback"
)

// MatchResult links one bill line item (by index) to its best policy category.
// Created by the item matcher, consumed by the cross-check engine; not
// persisted beyond one run.
type MatchResult struct {
	ItemIndex  int         `json:"item_index"`
	Category   string      `json:"category"`
	Confidence float64     `json:"confidence"`
	Method     MatchMethod `json:"method"`
}

// RiskLevel buckets a 0-100 risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

// RiskLevelForScore maps a score to its bucket: Low [0,25), Medium [25,60),
// High [60,85), Critical [85,100].
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score < 25:
		return RiskLevelLow
	case score < 60:
		return RiskLevelMedium
	case score < 85:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// ItemVerdict is the cross-check outcome for one bill line item. Order in
// AuditResult.Items matches the bill's line item order.
type ItemVerdict struct {
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	BilledAmount    float64 `json:"billed_amount"`
	MatchedCategory string  `json:"matched_category"`
	MatchConfidence float64 `json:"match_confidence"`
	PermittedAmount float64 `json:"permitted_amount"`
	Verdict         Verdict `json:"verdict"`
	Reason          string  `json:"reason"`
}

// AuditResult is the final, immutable output of one audit run.
type AuditResult struct {
	ID              string        `json:"id,omitempty"`
	OverallVerdict  Verdict       `json:"overall_verdict"`
	Summary         string        `json:"summary"`
	RiskScore       int           `json:"risk_score"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	Items           []ItemVerdict `json:"items"`
	Recommendations []string      `json:"recommendations"`
	Warnings        []string      `json:"warnings,omitempty"`
	CreatedAt       time.Time     `json:"created_at,omitempty"`
}
