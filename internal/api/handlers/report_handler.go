package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/mediaudit/backend/internal/adapters/report"
	"github.com/mediaudit/backend/internal/domain/entities"
)

// ReportHandler renders audit results as downloadable report files.
type ReportHandler struct {
	csv  *report.CSVWriter
	xlsx *report.XLSXWriter
}

// NewReportHandler creates a new report handler.
func NewReportHandler() *ReportHandler {
	return &ReportHandler{
		csv:  report.NewCSVWriter(),
		xlsx: report.NewXLSXWriter(),
	}
}

// CreateReport handles POST /api/reports. The body is an audit result as
// returned by POST /api/audits; the format query parameter selects csv
// (default) or xlsx.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var result entities.AuditResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid audit result payload")
		return
	}
	if !result.OverallVerdict.IsValid() {
		respondWithError(w, http.StatusBadRequest, "audit result is missing a valid overall verdict")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "csv":
		var buf bytes.Buffer
		if err := h.csv.Write(&buf, &result); err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-report.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())

	case "xlsx":
		data, err := h.xlsx.Write(&result)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-report.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)

	default:
		respondWithError(w, http.StatusBadRequest, "format must be csv or xlsx")
	}
}
