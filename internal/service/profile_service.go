package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileService reads the denormalized user profile.
type ProfileService interface {
	// Get returns the user's profile.
	Get(ctx context.Context, userID string) (*model.Profile, error)
	// Tier returns the user's current tier from the profile projection,
	// falling back to starter when no profile row exists yet.
	Tier(ctx context.Context, userID string) (model.Tier, error)
}

type profileService struct {
	repo   repository.ProfileRepository
	logger zerolog.Logger
}

// NewProfileService creates a new ProfileService with a scoped logger.
func NewProfileService(repo repository.ProfileRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		repo:   repo,
		logger: logger.With().Str("service", "ProfileService").Logger(),
	}
}

// Get returns the user's profile.
func (s *profileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.repo.GetProfileByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile")
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Tier returns the user's current tier from the profile projection.
func (s *profileService) Tier(ctx context.Context, userID string) (model.Tier, error) {
	p, err := s.repo.GetProfileByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to resolve tier from profile")
		return "", err
	}
	if p == nil || !p.SubscriptionTier.IsValid() {
		return model.TierStarter, nil
	}
	return p.SubscriptionTier, nil
}
