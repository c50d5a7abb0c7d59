package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mediaudit/backend/internal/adapters/report"
	"github.com/mediaudit/backend/internal/application/services"
	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/mediaudit/backend/internal/infrastructure/clients/groq"
	"github.com/mediaudit/backend/internal/infrastructure/observability"
	"github.com/mediaudit/backend/pkg/config"
	"github.com/mediaudit/backend/pkg/secrets"
)

// One-shot audit from the command line: photograph in, verdicts out. Meant
// for local runs and batch scripting; the API server covers everything else.
func main() {
	billPath := flag.String("bill", "", "path to the bill image (required)")
	policyPath := flag.String("policy", "", "path to a policy document image")
	policyTextPath := flag.String("policy-text", "", "path to a plain-text policy file")
	reportPath := flag.String("report", "", "write a report file (.csv or .xlsx) next to the JSON output")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	if *billPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	vaultCfg := secrets.LoadVaultConfigFromEnv("")
	if vaultCfg.Enabled {
		vaultCtx, vaultCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := secrets.ApplyVaultSecrets(vaultCtx, vaultCfg); err != nil {
			log.Printf("Warning: Failed to load Vault secrets: %v", err)
		}
		vaultCancel()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	groqClient, err := groq.NewClient(&cfg.Groq)
	if err != nil {
		log.Fatalf("Failed to initialize Groq client: %v", err)
	}

	policyService := services.NewPolicyService(groqClient)
	auditService := services.NewAuditService(groqClient, nil, policyService, nil)

	req := services.AuditRequest{}
	req.BillImage, err = os.ReadFile(*billPath)
	if err != nil {
		log.Fatalf("Failed to read bill image: %v", err)
	}
	req.BillMediaType = mediaTypeForPath(*billPath)

	if *policyPath != "" {
		req.PolicyDocument, err = os.ReadFile(*policyPath)
		if err != nil {
			log.Fatalf("Failed to read policy document: %v", err)
		}
		req.PolicyMediaType = mediaTypeForPath(*policyPath)
	} else if *policyTextPath != "" {
		text, err := os.ReadFile(*policyTextPath)
		if err != nil {
			log.Fatalf("Failed to read policy text: %v", err)
		}
		req.PolicyText = string(text)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := auditService.Run(ctx, req)
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatalf("Failed to print result: %v", err)
	}

	if *reportPath != "" {
		if err := writeReport(*reportPath, result); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", *reportPath)
	}
}

func writeReport(path string, result *entities.AuditResult) error {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		data, err := report.NewXLSXWriter().Write(result)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		return report.NewCSVWriter().Write(file, result)
	default:
		return fmt.Errorf("report path must end in .csv or .xlsx")
	}
}

func mediaTypeForPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
