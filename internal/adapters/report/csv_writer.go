package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mediaudit/backend/internal/domain/entities"
)

// itemHeader is the per-item column layout shared by the CSV and XLSX
// writers.
var itemHeader = []string{
	"description",
	"quantity",
	"billed_amount",
	"matched_category",
	"match_confidence",
	"permitted_amount",
	"verdict",
	"reason",
}

// CSVWriter renders an audit result as a flat CSV: one row per line item,
// followed by a blank row and a summary block.
type CSVWriter struct{}

// NewCSVWriter creates a new CSV report writer.
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Write streams the report to w.
func (c *CSVWriter) Write(w io.Writer, result *entities.AuditResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(itemHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, item := range result.Items {
		if err := writer.Write(itemRow(item)); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	for _, row := range summaryRows(result) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write report summary: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func itemRow(item entities.ItemVerdict) []string {
	return []string{
		item.Description,
		strconv.FormatFloat(item.Quantity, 'f', -1, 64),
		formatMoney(item.BilledAmount),
		item.MatchedCategory,
		strconv.FormatFloat(item.MatchConfidence, 'f', 2, 64),
		formatMoney(item.PermittedAmount),
		string(item.Verdict),
		item.Reason,
	}
}

func summaryRows(result *entities.AuditResult) [][]string {
	rows := [][]string{
		{},
		{"overall_verdict", string(result.OverallVerdict)},
		{"risk_score", strconv.Itoa(result.RiskScore)},
		{"risk_level", string(result.RiskLevel)},
		{"summary", result.Summary},
	}
	for _, rec := range result.Recommendations {
		rows = append(rows, []string{"recommendation", rec})
	}
	for _, warning := range result.Warnings {
		rows = append(rows, []string{"warning", warning})
	}
	return rows
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
