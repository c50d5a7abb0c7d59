package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mediaudit/backend/internal/application/services"
	"github.com/mediaudit/backend/internal/evaluation"
	"github.com/mediaudit/backend/internal/infrastructure/observability"
	"github.com/mediaudit/backend/pkg/config"
)

// Evaluates the deterministic audit pipeline against a labeled claim set.
// No vision calls are made; golden claims carry pre-extracted bill JSON.
func main() {
	claimsPath := flag.String("claims", "config/golden_claims.json", "path to the golden claims file")
	jsonOut := flag.Bool("json", false, "print the summary as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	claims, err := evaluation.LoadGoldenClaims(*claimsPath)
	if err != nil {
		log.Fatalf("Failed to load golden claims: %v", err)
	}
	if err := evaluation.ValidateGoldenClaims(claims); err != nil {
		log.Fatalf("Invalid golden claims: %v", err)
	}

	policyService := services.NewPolicyService(nil)
	auditService := services.NewAuditService(nil, nil, policyService, nil)

	runner := evaluation.NewRunner(auditService)
	summary, err := runner.Run(context.Background(), claims)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}

	if *jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(summary); err != nil {
			log.Fatalf("Failed to print summary: %v", err)
		}
		return
	}

	fmt.Printf("claims:             %d (%d failed to run)\n", summary.TotalClaims, summary.Failures)
	fmt.Printf("category accuracy:  %.3f\n", summary.AvgCategoryAccuracy)
	fmt.Printf("verdict accuracy:   %.3f\n", summary.AvgVerdictAccuracy)
	fmt.Printf("overall accuracy:   %.3f\n", summary.OverallAccuracy)
	fmt.Printf("risk level accuracy: %.3f\n", summary.RiskLevelAccuracy)
	fmt.Printf("avg latency:        %s\n", summary.AvgLatency)
	for difficulty, ds := range summary.ByDifficulty {
		fmt.Printf("  [%s] n=%d category=%.3f verdict=%.3f\n",
			difficulty, ds.Count, ds.AvgCategoryAccuracy, ds.AvgVerdictAccuracy)
	}
}
