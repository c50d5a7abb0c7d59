package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mediaudit/backend/internal/application/services"
	"github.com/mediaudit/backend/internal/domain/providers"
)

const (
	maxUploadBytes  = 10 << 20
	auditRateLimit  = 20
	auditRateWindow = time.Hour
)

// AuditHandler handles bill extraction and audit requests. Both endpoints
// accept multipart uploads and share one per-client rate limit, since every
// request can cost a vision model call.
type AuditHandler struct {
	service *services.AuditService
	cache   providers.CacheProvider
	local   *localRateLimiter
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(service *services.AuditService, cache providers.CacheProvider) *AuditHandler {
	return &AuditHandler{
		service: service,
		cache:   cache,
		local:   newLocalRateLimiter(),
	}
}

// RunAudit handles POST /api/audits. Form fields: "bill" (required image),
// "policy" (optional document image), "policy_text" (optional plain text).
func (h *AuditHandler) RunAudit(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	req, ok := h.parseAuditRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Run(r.Context(), *req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ExtractBill handles POST /api/extract. It runs extraction and
// normalization only; no policy is applied.
func (h *AuditHandler) ExtractBill(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	image, mediaType, ok := h.readFilePart(w, r, "bill", true)
	if !ok {
		return
	}

	bill, warnings, err := h.service.ExtractBill(r.Context(), image, mediaType)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"bill":     bill,
		"warnings": warnings,
	})
}

func (h *AuditHandler) parseAuditRequest(w http.ResponseWriter, r *http.Request) (*services.AuditRequest, bool) {
	image, mediaType, ok := h.readFilePart(w, r, "bill", true)
	if !ok {
		return nil, false
	}

	req := &services.AuditRequest{
		BillImage:     image,
		BillMediaType: mediaType,
		PolicyText:    strings.TrimSpace(r.FormValue("policy_text")),
	}

	if policy, policyType, found := optionalFilePart(r, "policy"); found {
		req.PolicyDocument = policy
		req.PolicyMediaType = policyType
	}

	return req, true
}

func (h *AuditHandler) readFilePart(w http.ResponseWriter, r *http.Request, field string, required bool) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "expected a multipart form upload")
		return nil, "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if required {
			respondWithError(w, http.StatusBadRequest, "a "+field+" file is required")
		}
		return nil, "", !required
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read the uploaded file")
		return nil, "", false
	}
	if len(data) > maxUploadBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge, "uploaded file is too large")
		return nil, "", false
	}
	if len(data) == 0 {
		respondWithError(w, http.StatusBadRequest, "uploaded file is empty")
		return nil, "", false
	}

	return data, partMediaType(header), true
}

func optionalFilePart(r *http.Request, field string) ([]byte, string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxUploadBytes {
		return nil, "", false
	}
	return data, partMediaType(header), true
}

func partMediaType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		name := strings.ToLower(header.Filename)
		switch {
		case strings.HasSuffix(name, ".png"):
			return "image/png"
		case strings.HasSuffix(name, ".webp"):
			return "image/webp"
		default:
			return "image/jpeg"
		}
	}
	return contentType
}

func (h *AuditHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	key := "audit:rate:" + clientIP(r)
	allowed, retryAfter := h.allowRequest(r.Context(), key)
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

func (h *AuditHandler) allowRequest(ctx context.Context, key string) (bool, time.Duration) {
	if h.cache == nil {
		return h.local.allow(key, auditRateLimit, auditRateWindow)
	}

	state := rateLimitState{}
	if data, err := h.cache.Get(ctx, key); err == nil {
		_ = json.Unmarshal(data, &state)
	}

	if state.Count >= auditRateLimit {
		return false, auditRateWindow
	}

	state.Count++
	data, _ := json.Marshal(state)
	_ = h.cache.Set(ctx, key, data, int(auditRateWindow.Seconds()))
	return true, auditRateWindow
}

type rateLimitState struct {
	Count int `json:"count"`
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		state = &localRateState{count: 0, resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := time.Until(state.resetAt)
		if retryAfter < 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, window
}
