package evaluation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGoldenClaims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.json")
	content := `[
		{
			"id": "simple-consult",
			"description": "single fully covered consultation",
			"bill_json": {"line_items": [{"description": "Consultation", "total_cost": 500, "category": "Consultation"}]},
			"expected_items": [{"category": "Consultation", "verdict": "Eligible"}],
			"expected_overall": "Eligible",
			"difficulty": "easy"
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	claims, err := LoadGoldenClaims(path)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "simple-consult", claims[0].ID)
	require.NoError(t, ValidateGoldenClaims(claims))
}

func TestValidateGoldenClaimsRejectsBadData(t *testing.T) {
	base := GoldenClaim{
		ID:              "c1",
		BillJSON:        json.RawMessage(`{}`),
		ExpectedOverall: entities.VerdictEligible,
		Difficulty:      "easy",
	}

	missingID := base
	missingID.ID = ""
	assert.Error(t, ValidateGoldenClaims([]GoldenClaim{missingID}))

	badVerdict := base
	badVerdict.ExpectedOverall = "Maybe"
	assert.Error(t, ValidateGoldenClaims([]GoldenClaim{badVerdict}))

	badDifficulty := base
	badDifficulty.Difficulty = "impossible"
	assert.Error(t, ValidateGoldenClaims([]GoldenClaim{badDifficulty}))

	dup := base
	assert.Error(t, ValidateGoldenClaims([]GoldenClaim{base, dup}))
}

func TestCategoryAndVerdictAccuracy(t *testing.T) {
	expected := []ExpectedItem{
		{Category: "Consultation", Verdict: entities.VerdictEligible},
		{Category: "Diagnostics", Verdict: entities.VerdictPartiallyEligible},
	}
	actual := []entities.ItemVerdict{
		{MatchedCategory: "consultation", Verdict: entities.VerdictEligible},
		{MatchedCategory: "Miscellaneous", Verdict: entities.VerdictPartiallyEligible},
	}

	assert.Equal(t, 0.5, CategoryAccuracy(expected, actual))
	assert.Equal(t, 1.0, VerdictAccuracy(expected, actual))
}

func TestAccuracyLengthMismatchPenalized(t *testing.T) {
	expected := []ExpectedItem{
		{Category: "Consultation", Verdict: entities.VerdictEligible},
		{Category: "Pharmacy", Verdict: entities.VerdictEligible},
	}
	actual := []entities.ItemVerdict{
		{MatchedCategory: "Consultation", Verdict: entities.VerdictEligible},
	}

	assert.Equal(t, 0.5, CategoryAccuracy(expected, actual))
}

type stubPipeline struct {
	results map[string]*entities.AuditResult
	err     error
}

func (p *stubPipeline) RunExtracted(_ context.Context, raw json.RawMessage, _ string) (*entities.AuditResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	var doc struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &doc)
	return p.results[doc.ID], nil
}

func TestRunnerAggregatesAcrossClaims(t *testing.T) {
	pipeline := &stubPipeline{results: map[string]*entities.AuditResult{
		"a": {
			OverallVerdict: entities.VerdictEligible,
			RiskLevel:      entities.RiskLevelLow,
			Items: []entities.ItemVerdict{
				{MatchedCategory: "Consultation", Verdict: entities.VerdictEligible},
			},
		},
		"b": {
			OverallVerdict: entities.VerdictNotEligible,
			RiskLevel:      entities.RiskLevelHigh,
			Items: []entities.ItemVerdict{
				{MatchedCategory: "Cosmetic", Verdict: entities.VerdictNotEligible},
			},
		},
	}}

	claims := []GoldenClaim{
		{
			ID:              "a",
			BillJSON:        json.RawMessage(`{"id": "a"}`),
			ExpectedItems:   []ExpectedItem{{Category: "Consultation", Verdict: entities.VerdictEligible}},
			ExpectedOverall: entities.VerdictEligible,
			Difficulty:      "easy",
		},
		{
			ID:              "b",
			BillJSON:        json.RawMessage(`{"id": "b"}`),
			ExpectedItems:   []ExpectedItem{{Category: "Dental", Verdict: entities.VerdictNotEligible}},
			ExpectedOverall: entities.VerdictNotEligible,
			Difficulty:      "hard",
		},
	}

	summary, err := NewRunner(pipeline).Run(context.Background(), claims)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalClaims)
	assert.Equal(t, 0, summary.Failures)
	assert.Equal(t, 0.75, summary.AvgCategoryAccuracy)
	assert.Equal(t, 1.0, summary.AvgVerdictAccuracy)
	assert.Equal(t, 1.0, summary.OverallAccuracy)
	assert.Equal(t, 2, len(summary.ByDifficulty))
	assert.Equal(t, 1, summary.ByDifficulty["easy"].Count)
}

func TestRunnerCountsFailures(t *testing.T) {
	pipeline := &stubPipeline{err: assert.AnError}
	claims := []GoldenClaim{{ID: "a", BillJSON: json.RawMessage(`{}`), ExpectedOverall: entities.VerdictEligible, Difficulty: "easy"}}

	summary, err := NewRunner(pipeline).Run(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failures)
}
