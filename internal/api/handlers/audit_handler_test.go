package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediaudit/backend/internal/application/services"
	"github.com/mediaudit/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	billJSON string
	err      error
}

func (e *fakeExtractor) ExtractBill(_ context.Context, _ []byte, _ string) (json.RawMessage, error) {
	if e.err != nil {
		return nil, e.err
	}
	return json.RawMessage(e.billJSON), nil
}

func (e *fakeExtractor) ExtractDocumentText(_ context.Context, _ []byte, _ string) (string, error) {
	return "", e.err
}

func newTestHandler(extractor *fakeExtractor) *AuditHandler {
	svc := services.NewAuditService(extractor, nil, services.NewPolicyService(extractor), nil)
	return NewAuditHandler(svc, nil)
}

func multipartBill(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("bill", "bill.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestRunAuditReturnsResult(t *testing.T) {
	handler := newTestHandler(&fakeExtractor{billJSON: `{
		"line_items": [
			{"description": "General Consultation", "total_cost": 800, "category": "Consultation"}
		]
	}`})

	body, contentType := multipartBill(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.RunAudit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result entities.AuditResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, entities.VerdictEligible, result.OverallVerdict)
	assert.NotEmpty(t, result.ID)
	require.Len(t, result.Items, 1)
}

func TestRunAuditWithPolicyText(t *testing.T) {
	handler := newTestHandler(&fakeExtractor{billJSON: `{
		"line_items": [
			{"description": "MRI Brain", "total_cost": 9500}
		]
	}`})

	body, contentType := multipartBill(t, map[string]string{
		"policy_text": "Diagnostics: 50% coverage, capped at 4000",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.RunAudit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result entities.AuditResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Items, 1)
	assert.Equal(t, 4000.0, result.Items[0].PermittedAmount)
}

func TestRunAuditRequiresBillFile(t *testing.T) {
	handler := newTestHandler(&fakeExtractor{billJSON: `{}`})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("policy_text", "whatever"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/audits", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.RunAudit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAuditExtractionFailure(t *testing.T) {
	handler := newTestHandler(&fakeExtractor{err: errors.New("vision unavailable")})

	body, contentType := multipartBill(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.RunAudit(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExtractBillReturnsNormalizedRecord(t *testing.T) {
	handler := newTestHandler(&fakeExtractor{billJSON: `{
		"patient_name": "A. Sharma",
		"line_items": [
			{"description": "X-Ray Chest", "total_cost": 600}
		]
	}`})

	body, contentType := multipartBill(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.ExtractBill(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Bill entities.BillRecord `json:"bill"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "A. Sharma", payload.Bill.PatientName)
	require.Len(t, payload.Bill.LineItems, 1)
}

func TestRunAuditRateLimit(t *testing.T) {
	handler := newTestHandler(&fakeExtractor{billJSON: `{"line_items": []}`})

	var lastCode int
	for i := 0; i < auditRateLimit+1; i++ {
		body, contentType := multipartBill(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/audits", body)
		req.Header.Set("Content-Type", contentType)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		handler.RunAudit(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}
