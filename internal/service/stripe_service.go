package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrInvalidCheckoutTier = errors.New("invalid tier")
	ErrEmailRequired       = errors.New("missing tier or email")
)

// StripeService manages the Stripe integration: issuing checkout sessions
// and reconciling webhook events into subscription, profile and payment
// method state.
type StripeService struct {
	cfg               *config.Config
	subscriptionRepo  repository.SubscriptionRepository
	profileRepo       repository.ProfileRepository
	paymentMethodRepo repository.PaymentMethodRepository
	logger            zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a
// scoped logger.
func NewStripeService(
	cfg *config.Config,
	subscriptionRepo repository.SubscriptionRepository,
	profileRepo repository.ProfileRepository,
	paymentMethodRepo repository.PaymentMethodRepository,
	logger zerolog.Logger,
) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{
		cfg:               cfg,
		subscriptionRepo:  subscriptionRepo,
		profileRepo:       profileRepo,
		paymentMethodRepo: paymentMethodRepo,
		logger:            logger.With().Str("service", "StripeService").Logger(),
	}
}

// CreateCheckoutSession creates a Stripe Checkout session for a paid tier,
// binding the user identity into session metadata so the webhook reconciler
// can map processor events back to the user.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, email string, tier model.Tier) (url, sessionID string, err error) {
	var priceID string
	switch tier {
	case model.TierCreator:
		priceID = s.cfg.StripeCreatorPriceID
	case model.TierPro:
		priceID = s.cfg.StripeProPriceID
	default:
		return "", "", ErrInvalidCheckoutTier
	}
	if priceID == "" {
		return "", "", ErrInvalidCheckoutTier
	}
	if email == "" {
		return "", "", ErrEmailRequired
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:         stripe.String(s.cfg.CheckoutSuccessURL),
		CancelURL:          stripe.String(s.cfg.CheckoutCancelURL),
		CustomerEmail:      stripe.String(email),
		Metadata:           map[string]string{"user_id": userID, "tier": string(tier)},
	}
	params.Context = ctx
	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("tier", string(tier)).Msg("Failed to create Stripe checkout session")
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

// Billing event payload shapes. The processor envelope is loosely typed, so
// the handled event kinds are decoded into these explicit structs and
// everything else falls through to the ignored default branch.

type subscriptionEventObject struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Metadata           map[string]string `json:"metadata"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
}

type paymentMethodEventObject struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Card     *struct {
		Last4    string `json:"last4"`
		ExpMonth int    `json:"exp_month"`
		ExpYear  int    `json:"exp_year"`
	} `json:"card"`
}

// HandleWebhook processes Stripe webhook events. The endpoint acknowledges
// every syntactically valid event with 200 {received:true}: the processor
// retries on non-2xx, and an event this system cannot interpret would
// otherwise be redelivered forever. Per-event failures are logged and
// isolated from each other.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}

	var event stripe.Event
	if s.cfg.StripeWebhookSecret != "" {
		sig := r.Header.Get("Stripe-Signature")
		event, err = webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
		if err != nil {
			s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
			http.Error(w, "signature verification failed", http.StatusBadRequest)
			return
		}
	} else if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error().Err(err).Msg("Invalid JSON in Stripe webhook payload")
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		if err := s.handleSubscriptionUpdate(ctx, event.Data.Raw); err != nil {
			s.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to reconcile subscription update")
		}
	case "customer.subscription.deleted":
		if err := s.handleSubscriptionCancelled(ctx, event.Data.Raw); err != nil {
			s.logger.Error().Err(err).Msg("Failed to reconcile subscription cancellation")
		}
	case "payment_method.attached":
		if err := s.handlePaymentMethodAttached(ctx, event.Data.Raw); err != nil {
			s.logger.Error().Err(err).Msg("Failed to store payment method")
		}
	case "payment_method.detached":
		if err := s.handlePaymentMethodDetached(ctx, event.Data.Raw); err != nil {
			s.logger.Error().Err(err).Msg("Failed to remove payment method")
		}
	default:
		s.logger.Debug().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"received": true}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode webhook acknowledgment")
	}
}

// handleSubscriptionUpdate upserts the user's subscription row and syncs the
// profile tier projection. Events without user_id/tier metadata cannot be
// mapped to a user and are dropped after logging; failing them would only
// provoke a redelivery loop for events this system can never interpret.
func (s *StripeService) handleSubscriptionUpdate(ctx context.Context, raw json.RawMessage) error {
	var sub subscriptionEventObject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return err
	}

	userID := sub.Metadata["user_id"]
	tier := model.Tier(sub.Metadata["tier"])
	if userID == "" || tier == "" {
		s.logger.Warn().Str("subscription_id", sub.ID).Msg("Subscription event missing user_id or tier metadata; skipping")
		return nil
	}
	if !tier.IsValid() {
		s.logger.Warn().Str("subscription_id", sub.ID).Str("tier", string(tier)).Msg("Subscription event carries unknown tier; skipping")
		return nil
	}

	status := model.SubscriptionStatusCancelled
	if sub.Status == "active" {
		status = model.SubscriptionStatusActive
	}
	periodStart := time.Unix(sub.CurrentPeriodStart, 0)
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0)

	if err := s.subscriptionRepo.UpsertSubscription(ctx, userID, tier, status, sub.ID, periodStart, periodEnd); err != nil {
		return err
	}
	if err := s.profileRepo.UpdateSubscriptionTier(ctx, userID, tier); err != nil {
		// The subscription row is already written; the profile projection
		// converges on the next event for this user.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to sync profile tier after subscription upsert")
		return err
	}

	s.logger.Info().Str("user_id", userID).Str("tier", string(tier)).Str("status", status).Msg("Subscription reconciled")
	return nil
}

// handleSubscriptionCancelled marks the subscription cancelled and drops the
// profile back to the starter tier, the implicit fallback for "no active
// paid subscription".
func (s *StripeService) handleSubscriptionCancelled(ctx context.Context, raw json.RawMessage) error {
	var sub subscriptionEventObject
	if err := json.Unmarshal(raw, &sub); err != nil {
		return err
	}

	userID := sub.Metadata["user_id"]
	if userID == "" {
		s.logger.Warn().Str("subscription_id", sub.ID).Msg("Subscription deleted event missing user_id metadata; skipping")
		return nil
	}

	if err := s.subscriptionRepo.CancelSubscription(ctx, userID); err != nil {
		return err
	}
	if err := s.profileRepo.UpdateSubscriptionTier(ctx, userID, model.TierStarter); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade profile tier after cancellation")
		return err
	}

	s.logger.Info().Str("user_id", userID).Msg("Subscription cancelled")
	return nil
}

// handlePaymentMethodAttached stores a card reference. Redelivery is
// idempotent through the unique constraint on the Stripe payment method ID.
func (s *StripeService) handlePaymentMethodAttached(ctx context.Context, raw json.RawMessage) error {
	var pm paymentMethodEventObject
	if err := json.Unmarshal(raw, &pm); err != nil {
		return err
	}

	method := &model.PaymentMethod{
		UserID:                pm.Customer,
		StripePaymentMethodID: pm.ID,
		Type:                  "card",
		IsDefault:             false,
	}
	if pm.Card != nil {
		method.LastFour = pm.Card.Last4
		method.ExpiryMonth = pm.Card.ExpMonth
		method.ExpiryYear = pm.Card.ExpYear
	}
	return s.paymentMethodRepo.CreatePaymentMethod(ctx, method)
}

// handlePaymentMethodDetached deletes by the Stripe payment method ID. A
// detach for a card this system never stored is a no-op.
func (s *StripeService) handlePaymentMethodDetached(ctx context.Context, raw json.RawMessage) error {
	var pm paymentMethodEventObject
	if err := json.Unmarshal(raw, &pm); err != nil {
		return err
	}
	return s.paymentMethodRepo.DeleteByStripeID(ctx, pm.ID)
}
