package service

import (
	"context"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UnlimitedSubmissions is the sentinel remaining-quota value for tiers with
// no submission cap.
const UnlimitedSubmissions = -1

// Per-tier daily submission limits. The quota window resets at the server's
// local midnight, not per calendar month (the pricing page copy says "per
// month"; the daily boundary is the behavior the product shipped with).
var tierSubmissionLimits = map[model.Tier]int{
	model.TierStarter: 5,
	model.TierCreator: 50,
	model.TierPro:     UnlimitedSubmissions,
}

// Entitlement is the computed permission + remaining-quota state for a user.
type Entitlement struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// EntitlementService computes remaining submission quota from tier and usage.
type EntitlementService interface {
	// SubmissionLimit returns the daily cap for a tier, or
	// UnlimitedSubmissions for uncapped tiers.
	SubmissionLimit(tier model.Tier) int
	// RemainingSubmissions returns how many submissions the user may still
	// create today, clamped to >= 0, or UnlimitedSubmissions. Read-only and
	// safe to call concurrently; used for both gating and display.
	RemainingSubmissions(ctx context.Context, userID string, tier model.Tier) (int, error)
	// CheckSubmissionAllowed wraps RemainingSubmissions and fails closed: any
	// underlying error reports {allowed: false, remaining: 0}.
	CheckSubmissionAllowed(ctx context.Context, userID string, tier model.Tier) Entitlement
}

type entitlementService struct {
	submissionRepo repository.SubmissionRepository
	logger         zerolog.Logger
}

// NewEntitlementService creates a new EntitlementService with a scoped logger.
func NewEntitlementService(submissionRepo repository.SubmissionRepository, logger zerolog.Logger) EntitlementService {
	return &entitlementService{
		submissionRepo: submissionRepo,
		logger:         logger.With().Str("service", "EntitlementService").Logger(),
	}
}

// SubmissionLimit returns the daily cap for a tier. Unknown tiers get the
// starter limit so a corrupt profile row never grants unlimited quota.
func (s *entitlementService) SubmissionLimit(tier model.Tier) int {
	if limit, ok := tierSubmissionLimits[tier]; ok {
		return limit
	}
	return tierSubmissionLimits[model.TierStarter]
}

// RemainingSubmissions returns the remaining daily quota for the user.
func (s *entitlementService) RemainingSubmissions(ctx context.Context, userID string, tier model.Tier) (int, error) {
	limit := s.SubmissionLimit(tier)
	if limit == UnlimitedSubmissions {
		return UnlimitedSubmissions, nil
	}

	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, err := s.submissionRepo.CountSubmissionsSince(ctx, userID, startOfToday)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to count submissions for quota")
		return 0, err
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CheckSubmissionAllowed reports whether the user may create a submission.
func (s *entitlementService) CheckSubmissionAllowed(ctx context.Context, userID string, tier model.Tier) Entitlement {
	remaining, err := s.RemainingSubmissions(ctx, userID, tier)
	if err != nil {
		return Entitlement{Allowed: false, Remaining: 0}
	}
	return Entitlement{Allowed: remaining > 0 || remaining == UnlimitedSubmissions, Remaining: remaining}
}
