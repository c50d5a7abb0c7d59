package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mediaudit/backend/internal/application/services"
)

// PolicyHandler serves policy ruleset endpoints.
type PolicyHandler struct {
	service *services.PolicyService
}

// NewPolicyHandler creates a new policy handler.
func NewPolicyHandler(service *services.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// GetBaseline handles GET /api/policies/baseline
func (h *PolicyHandler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Baseline())
}

type parsePolicyRequest struct {
	Text string `json:"text"`
}

// ParsePolicy handles POST /api/policies/parse. It previews how a pasted
// policy text would be interpreted without running an audit.
func (h *PolicyHandler) ParsePolicy(w http.ResponseWriter, r *http.Request) {
	var payload parsePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if strings.TrimSpace(payload.Text) == "" {
		respondWithError(w, http.StatusBadRequest, "policy text is required")
		return
	}

	respondWithJSON(w, http.StatusOK, h.service.ParseText(payload.Text))
}
