package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription and checkout endpoints.
type SubscriptionHandler struct {
	stripeSvc *service.StripeService
	subSvc    service.SubscriptionService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(stripeSvc *service.StripeService, subSvc service.SubscriptionService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{stripeSvc: stripeSvc, subSvc: subSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the subscription endpoints. Checkout identifies
// its caller through the X-User-Id header rather than the bearer token: the
// processor redirect flow starts before the dashboard session is
// established, matching the way the checkout function has always been
// called.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions/checkout", http.HandlerFunc(h.Checkout))
	mux.Handle("/subscriptions/me", authMiddleware(http.HandlerFunc(h.GetSubscription)))
	mux.Handle("/subscriptions/cancel", authMiddleware(http.HandlerFunc(h.Cancel)))
	mux.Handle("/tiers", http.HandlerFunc(h.GetTiers))
}

// Checkout godoc
// @Summary Initiate a checkout session for a paid tier
// @Description Creates a Stripe Checkout session and returns its URL.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param checkout body dto.CheckoutRequest true "Checkout request"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 400 {string} string "invalid tier"
// @Router /subscriptions/checkout [post]
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req dto.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Missing tier or email", http.StatusBadRequest)
		return
	}
	userID := r.Header.Get("X-User-Id")

	url, sessionID, err := h.stripeSvc.CreateCheckoutSession(r.Context(), userID, req.Email, model.Tier(req.Tier))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCheckoutTier) || errors.Is(err, service.ErrEmailRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("failed to create checkout session")
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.CheckoutResponse{URL: url, SessionID: sessionID}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// GetSubscription godoc
// @Summary Return the user's subscription row
// @Tags subscriptions
// @Produce json
// @Success 200 {object} model.Subscription
// @Failure 404 {string} string "no subscription"
// @Router /subscriptions/me [get]
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sub, err := h.subSvc.GetSubscription(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch subscription")
		http.Error(w, "failed to fetch subscription", http.StatusInternalServerError)
		return
	}
	if sub == nil {
		http.Error(w, "no subscription", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sub); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// Cancel godoc
// @Summary Cancel the user's subscription
// @Description Access already granted through the current period end is kept.
// @Tags subscriptions
// @Success 204
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.subSvc.Cancel(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Msg("failed to cancel subscription")
		http.Error(w, "failed to cancel subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTiers godoc
// @Summary List pricing tiers ordered by price
// @Tags subscriptions
// @Produce json
// @Success 200 {array} model.PricingTier
// @Router /tiers [get]
func (h *SubscriptionHandler) GetTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	tiers, err := h.subSvc.GetTiers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch pricing tiers")
		http.Error(w, "failed to fetch pricing tiers", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tiers); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
