package evaluation

import (
	"encoding/json"
	"time"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// ExpectedItem is the labeled outcome for one bill line item.
type ExpectedItem struct {
	Category string           `json:"category"`
	Verdict  entities.Verdict `json:"verdict"`
}

// GoldenClaim is one labeled audit scenario: a raw extraction fixture, an
// optional policy text, and the outcomes a correct audit must produce. Bills
// are stored as raw extraction JSON so the whole pipeline downstream of the
// vision model is exercised.
type GoldenClaim struct {
	ID                string             `json:"id"`
	Description       string             `json:"description"`
	BillJSON          json.RawMessage    `json:"bill_json"`
	PolicyText        string             `json:"policy_text,omitempty"`
	ExpectedItems     []ExpectedItem     `json:"expected_items"`
	ExpectedOverall   entities.Verdict   `json:"expected_overall"`
	ExpectedRiskLevel entities.RiskLevel `json:"expected_risk_level,omitempty"`
	Difficulty        string             `json:"difficulty"`
}

// ClaimResult holds the evaluation outcome for a single claim.
type ClaimResult struct {
	ClaimID          string
	CategoryAccuracy float64
	VerdictAccuracy  float64
	OverallCorrect   bool
	RiskLevelCorrect bool
	ItemCount        int
	Latency          time.Duration
	Err              error
}

// Summary holds aggregate metrics across all golden claims.
type Summary struct {
	TotalClaims         int
	Failures            int
	AvgCategoryAccuracy float64
	AvgVerdictAccuracy  float64
	OverallAccuracy     float64
	RiskLevelAccuracy   float64
	AvgLatency          time.Duration
	ByDifficulty        map[string]*DifficultySummary
}

// DifficultySummary holds metrics grouped by claim difficulty.
type DifficultySummary struct {
	Count               int
	AvgCategoryAccuracy float64
	AvgVerdictAccuracy  float64
}
