// Package handler exposes the deviation workflow over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/thevishaljaiswal/dev-approve-flow/internal/deviation"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/errors"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/logger"
	"github.com/thevishaljaiswal/dev-approve-flow/internal/service"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	service *service.DeviationService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc *service.DeviationService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: svc, log: log}
}

// createRequestBody is the JSON body for request creation. The details
// payload is decoded according to type.
type createRequestBody struct {
	Type         deviation.Type     `json:"type"`
	CustomerName string             `json:"customerName"`
	UnitNumber   string             `json:"unitNumber"`
	Description  string             `json:"description"`
	CreatedBy    deviation.Identity `json:"createdBy"`
	Details      json.RawMessage    `json:"details"`
}

// CreateRequest handles POST /api/v1/deviations.
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var details deviation.Details
	if len(body.Details) > 0 {
		var err error
		details, err = deviation.DecodeDetails(body.Type, body.Details)
		if err != nil {
			h.writeError(w, err)
			return
		}
	}

	req, err := h.service.CreateRequest(r.Context(), &service.CreateRequestInput{
		Type:         body.Type,
		CustomerName: body.CustomerName,
		UnitNumber:   body.UnitNumber,
		Description:  body.Description,
		CreatedBy:    body.CreatedBy,
		Details:      details,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, req)
}

// GetRequest handles GET /api/v1/deviations/get?id=.
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

// ListRequests handles GET /api/v1/deviations with optional status and
// type filters.
func (h *HTTPHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	var (
		requests []*deviation.Request
		err      error
	)

	status := r.URL.Query().Get("status")
	typ := r.URL.Query().Get("type")

	switch {
	case status != "" && typ != "":
		http.Error(w, "Filter by either status or type, not both", http.StatusBadRequest)
		return
	case status != "":
		requests, err = h.service.ListByStatus(r.Context(), deviation.Status(status))
	case typ != "":
		requests, err = h.service.ListByType(r.Context(), deviation.Type(typ))
	default:
		requests, err = h.service.ListRequests(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"total":    len(requests),
	})
}

// ListPendingApprovals handles GET /api/v1/deviations/pending with an
// optional approver_id filter.
func (h *HTTPHandler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListPendingApprovals(r.Context(), r.URL.Query().Get("approver_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"total":    len(requests),
	})
}

// actionBody is the JSON body for approve and reject calls.
type actionBody struct {
	ID         string `json:"id"`
	ApproverID string `json:"approverId"`
	Comments   string `json:"comments"`
}

// ApproveRequest handles POST /api/v1/deviations/approve.
func (h *HTTPHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var body actionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Approve(r.Context(), body.ID, body.ApproverID, body.Comments); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// RejectRequest handles POST /api/v1/deviations/reject.
func (h *HTTPHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var body actionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Reject(r.Context(), body.ID, body.ApproverID, body.Comments); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ── response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(errors.CodeOf(err)),
	})
}
