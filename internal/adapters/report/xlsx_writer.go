package report

import (
	"fmt"

	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/xuri/excelize/v2"
)

// XLSXWriter renders an audit result as a two-sheet workbook: per-item
// verdicts on one sheet, the run summary on the other.
type XLSXWriter struct{}

// NewXLSXWriter creates a new XLSX report writer.
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

// Write returns the workbook as bytes.
func (x *XLSXWriter) Write(result *entities.AuditResult) ([]byte, error) {
	f := excelize.NewFile()

	const itemSheet = "Items"
	const summarySheet = "Summary"

	if err := f.SetSheetName("Sheet1", itemSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet setup: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet setup: %w", err)
	}

	for i, h := range itemHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemSheet, cell, h)
	}

	for rowIdx, item := range result.Items {
		write := func(col int, v interface{}) {
			cell, _ := excelize.CoordinatesToCellName(col, rowIdx+2)
			_ = f.SetCellValue(itemSheet, cell, v)
		}
		write(1, item.Description)
		write(2, item.Quantity)
		write(3, item.BilledAmount)
		write(4, item.MatchedCategory)
		write(5, item.MatchConfidence)
		write(6, item.PermittedAmount)
		write(7, string(item.Verdict))
		write(8, item.Reason)
	}

	_ = f.SetColWidth(itemSheet, "A", "A", 40)
	_ = f.SetColWidth(itemSheet, "B", "F", 16)
	_ = f.SetColWidth(itemSheet, "G", "G", 20)
	_ = f.SetColWidth(itemSheet, "H", "H", 60)

	summary := [][]interface{}{
		{"overall_verdict", string(result.OverallVerdict)},
		{"risk_score", result.RiskScore},
		{"risk_level", string(result.RiskLevel)},
		{"summary", result.Summary},
	}
	for _, rec := range result.Recommendations {
		summary = append(summary, []interface{}{"recommendation", rec})
	}
	for _, warning := range result.Warnings {
		summary = append(summary, []interface{}{"warning", warning})
	}

	for rowIdx, pair := range summary {
		for col, v := range pair {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+1)
			_ = f.SetCellValue(summarySheet, cell, v)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "B", 100)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
