package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	// GetSubscription returns the user's subscription row, or nil when the
	// user has never subscribed (implicitly the starter tier).
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// Cancel flips the user's subscription to cancelled. Access already
	// granted through the current period end is kept.
	Cancel(ctx context.Context, userID string) error
	// GetTiers lists the pricing reference table ordered by price.
	GetTiers(ctx context.Context) ([]model.PricingTier, error)
}

type subscriptionService struct {
	repo     repository.SubscriptionRepository
	tierRepo repository.TierRepository
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, tierRepo repository.TierRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:     repo,
		tierRepo: tierRepo,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

// GetSubscription returns the user's subscription row.
func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

// Cancel flips the user's subscription to cancelled.
func (s *subscriptionService) Cancel(ctx context.Context, userID string) error {
	if err := s.repo.CancelSubscription(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to cancel subscription")
		return err
	}
	return nil
}

// GetTiers lists the pricing reference table.
func (s *subscriptionService) GetTiers(ctx context.Context) ([]model.PricingTier, error) {
	tiers, err := s.tierRepo.GetTiers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch pricing tiers")
		return nil, err
	}
	return tiers, nil
}
