package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/watch"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SubmissionHandler handles submission-related endpoints.
type SubmissionHandler struct {
	submissionSvc  service.SubmissionService
	entitlementSvc service.EntitlementService
	profileSvc     service.ProfileService
	submissionRepo repository.SubmissionRepository
	watchInterval  time.Duration
	validate       *validator.Validate
	logger         zerolog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(
	submissionSvc service.SubmissionService,
	entitlementSvc service.EntitlementService,
	profileSvc service.ProfileService,
	submissionRepo repository.SubmissionRepository,
	watchInterval time.Duration,
	v *validator.Validate,
	logger zerolog.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionSvc:  submissionSvc,
		entitlementSvc: entitlementSvc,
		profileSvc:     profileSvc,
		submissionRepo: submissionRepo,
		watchInterval:  watchInterval,
		validate:       v,
		logger:         logger,
	}
}

// RegisterRoutes mounts v1 submission routes.
func (h *SubmissionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/submissions", authMw(http.HandlerFunc(h.handleSubmissions)))
	mux.Handle("/submissions/watch", authMw(http.HandlerFunc(h.watchSubmissions)))
	mux.Handle("/submissions/", authMw(http.HandlerFunc(h.deleteSubmission)))
	mux.Handle("/usage", authMw(http.HandlerFunc(h.getUsage)))
}

func (h *SubmissionHandler) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSubmission(w, r)
	case http.MethodGet:
		h.listSubmissions(w, r)
	default:
		http.NotFound(w, r)
	}
}

// createSubmission godoc
// @Summary Create a video generation request
// @Description Validates the payload, checks the user's remaining quota and creates a pending submission.
// @Tags submissions
// @Accept json
// @Produce json
// @Param submission body dto.SubmissionCreateRequest true "Submission payload"
// @Success 201 {object} model.Submission
// @Failure 400 {string} string "validation failed"
// @Failure 403 {string} string "submission limit reached"
// @Router /submissions [post]
func (h *SubmissionHandler) createSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.SubmissionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	tier, err := h.profileSvc.Tier(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to resolve subscription tier", http.StatusInternalServerError)
		return
	}

	sub := &model.Submission{
		UserID:        userID,
		ProductTitle:  req.ProductTitle,
		UserPrompt:    req.UserPrompt,
		UserEmail:     emailFromContext(r),
		TemplateStyle: req.TemplateStyle,
		ImageBase64:   req.ImageBase64,
	}
	created, err := h.submissionSvc.Create(r.Context(), sub, tier)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionLimitReached):
			http.Error(w, "submission limit reached for your plan", http.StatusForbidden)
		case errors.Is(err, service.ErrProductTitleRequired),
			errors.Is(err, service.ErrUserPromptRequired),
			errors.Is(err, service.ErrImageTooLarge):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error().Err(err).Msg("failed to create submission")
			http.Error(w, "failed to create submission", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// listSubmissions godoc
// @Summary List the user's submissions, most recent first
// @Tags submissions
// @Produce json
// @Success 200 {array} model.Submission
// @Router /submissions [get]
func (h *SubmissionHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	submissions, err := h.submissionSvc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list submissions")
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(submissions); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// deleteSubmission godoc
// @Summary Delete a pending submission
// @Description Deletion is refused once the generation engine has claimed the submission.
// @Tags submissions
// @Param id path string true "Submission ID"
// @Success 204
// @Failure 404 {string} string "submission not found"
// @Failure 412 {string} string "submission already processing"
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/submissions/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	if err := h.submissionSvc.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSubmissionNotFound):
			http.Error(w, "submission not found", http.StatusNotFound)
		case errors.Is(err, repository.ErrSubmissionNotPending):
			http.Error(w, "submission is already processing and can no longer be deleted", http.StatusPreconditionFailed)
		default:
			h.logger.Error().Err(err).Str("submission_id", id).Msg("failed to delete submission")
			http.Error(w, "failed to delete submission", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getUsage godoc
// @Summary Report remaining daily submission quota
// @Tags submissions
// @Produce json
// @Success 200 {object} dto.UsageResponse
// @Router /usage [get]
func (h *SubmissionHandler) getUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tier, err := h.profileSvc.Tier(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to resolve subscription tier", http.StatusInternalServerError)
		return
	}
	ent := h.entitlementSvc.CheckSubmissionAllowed(r.Context(), userID, tier)
	resp := dto.UsageResponse{
		Tier:      string(tier),
		Remaining: ent.Remaining,
		Limit:     h.entitlementSvc.SubmissionLimit(tier),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// watchSubmissions godoc
// @Summary Stream completion notifications for the user's submissions
// @Description Server-sent events; one event per pending/processing -> completed transition.
// @Tags submissions
// @Produce text/event-stream
// @Router /submissions/watch [get]
func (h *SubmissionHandler) watchSubmissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The watcher lives exactly as long as the request: closing the
	// connection cancels the context, which stops the poll loop.
	watcher := watch.NewWatcher(h.submissionRepo, userID, h.watchInterval, h.logger)
	go watcher.Run(r.Context())

	for ev := range watcher.Events() {
		data, err := json.Marshal(map[string]string{
			"submission_id": ev.SubmissionID,
			"product_title": ev.ProductTitle,
			"status":        string(ev.Submission.Status),
		})
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: completion\ndata: %s\n\n", data)
		flusher.Flush()
	}
}

// emailFromContext pulls the email claim the auth middleware stored, if any.
func emailFromContext(r *http.Request) string {
	if email, ok := r.Context().Value(middleware.EmailContextKey).(string); ok {
		return email
	}
	return ""
}
