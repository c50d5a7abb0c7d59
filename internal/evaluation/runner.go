package evaluation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// AuditPipeline runs the deterministic audit pipeline over already-extracted
// bill JSON.
type AuditPipeline interface {
	RunExtracted(ctx context.Context, raw json.RawMessage, policyText string) (*entities.AuditResult, error)
}

// Runner runs evaluation across a set of golden claims.
type Runner struct {
	pipeline AuditPipeline
}

func NewRunner(pipeline AuditPipeline) *Runner {
	return &Runner{pipeline: pipeline}
}

// Run audits every golden claim and aggregates accuracy metrics. Individual
// claim failures are counted, not fatal.
func (r *Runner) Run(ctx context.Context, claims []GoldenClaim) (*Summary, error) {
	summary := &Summary{
		TotalClaims:  len(claims),
		ByDifficulty: make(map[string]*DifficultySummary),
	}

	scored := 0
	for _, claim := range claims {
		start := time.Now()
		result, err := r.pipeline.RunExtracted(ctx, claim.BillJSON, claim.PolicyText)
		latency := time.Since(start)

		if err != nil {
			summary.Failures++
			continue
		}

		cr := ClaimResult{
			ClaimID:          claim.ID,
			CategoryAccuracy: CategoryAccuracy(claim.ExpectedItems, result.Items),
			VerdictAccuracy:  VerdictAccuracy(claim.ExpectedItems, result.Items),
			OverallCorrect:   result.OverallVerdict == claim.ExpectedOverall,
			RiskLevelCorrect: claim.ExpectedRiskLevel == "" || result.RiskLevel == claim.ExpectedRiskLevel,
			ItemCount:        len(result.Items),
			Latency:          latency,
		}
		r.updateSummary(summary, claim, cr)
		scored++
	}

	r.finalizeSummary(summary, scored)
	return summary, nil
}

func (r *Runner) updateSummary(s *Summary, claim GoldenClaim, cr ClaimResult) {
	s.AvgCategoryAccuracy += cr.CategoryAccuracy
	s.AvgVerdictAccuracy += cr.VerdictAccuracy
	s.AvgLatency += cr.Latency
	if cr.OverallCorrect {
		s.OverallAccuracy++
	}
	if cr.RiskLevelCorrect {
		s.RiskLevelAccuracy++
	}

	if _, ok := s.ByDifficulty[claim.Difficulty]; !ok {
		s.ByDifficulty[claim.Difficulty] = &DifficultySummary{}
	}
	ds := s.ByDifficulty[claim.Difficulty]
	ds.Count++
	ds.AvgCategoryAccuracy += cr.CategoryAccuracy
	ds.AvgVerdictAccuracy += cr.VerdictAccuracy
}

func (r *Runner) finalizeSummary(s *Summary, scored int) {
	if scored > 0 {
		n := float64(scored)
		s.AvgCategoryAccuracy /= n
		s.AvgVerdictAccuracy /= n
		s.OverallAccuracy /= n
		s.RiskLevelAccuracy /= n
		s.AvgLatency /= time.Duration(scored)
	}

	for _, ds := range s.ByDifficulty {
		if ds.Count > 0 {
			n := float64(ds.Count)
			ds.AvgCategoryAccuracy /= n
			ds.AvgVerdictAccuracy /= n
		}
	}
}
