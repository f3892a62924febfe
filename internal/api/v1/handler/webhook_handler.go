package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/repository"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// WebhookHandler exposes the endpoints called by external systems: the
// payment processor and the generation engine.
type WebhookHandler struct {
	stripeSvc     *service.StripeService
	submissionSvc service.SubmissionService
	logger        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(stripeSvc *service.StripeService, submissionSvc service.SubmissionService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{stripeSvc: stripeSvc, submissionSvc: submissionSvc, logger: logger}
}

// RegisterRoutes registers the webhook endpoints.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux, engineAuthMw func(http.Handler) http.Handler) {
	mux.Handle("/webhooks/billing", http.HandlerFunc(h.BillingWebhook))
	mux.Handle("/webhooks/completion", engineAuthMw(http.HandlerFunc(h.CompletionWebhook)))
}

// BillingWebhook godoc
// @Summary Receive payment processor events
// @Description Acknowledges every syntactically valid event with {received:true}.
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {string} string "invalid payload"
// @Router /webhooks/billing [post]
func (h *WebhookHandler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.stripeSvc.HandleWebhook(w, r)
}

// CompletionWebhook godoc
// @Summary Receive a generation engine completion callback
// @Description Advances the submission's state machine. Redelivery for an already-terminal submission is acknowledged without changes.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param callback body dto.CompletionCallbackRequest true "Completion callback"
// @Success 200 {object} dto.CompletionCallbackResponse
// @Failure 400 {object} dto.ErrorResponse "missing submission_id or malformed JSON"
// @Failure 404 {object} dto.ErrorResponse "unknown submission"
// @Failure 500 {object} dto.ErrorResponse
// @Router /webhooks/completion [post]
func (h *WebhookHandler) CompletionWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req dto.CompletionCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.SubmissionID == "" {
		h.writeError(w, http.StatusBadRequest, "submission_id is required")
		return
	}

	updated, err := h.submissionSvc.ApplyCompletion(r.Context(), req.SubmissionID, req.Status, req.VideoURL, req.ErrorMessage)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSubmissionNotFound):
			h.writeError(w, http.StatusNotFound, "Submission not found")
		case errors.Is(err, service.ErrInvalidStatus):
			h.writeError(w, http.StatusBadRequest, "Invalid status value")
		default:
			h.logger.Error().Err(err).Str("submission_id", req.SubmissionID).Msg("failed to reconcile completion callback")
			h.writeError(w, http.StatusInternalServerError, "Failed to update submission")
		}
		return
	}

	resp := dto.CompletionCallbackResponse{
		Success:      true,
		Message:      "Submission status updated successfully",
		SubmissionID: updated.ID,
		Status:       string(updated.Status),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode error response")
	}
}
