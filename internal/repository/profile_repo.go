package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository defines methods for accessing profile data.
type ProfileRepository interface {
	// GetProfileByID returns the profile or nil when absent.
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	// UpdateSubscriptionTier syncs the denormalized tier projection. The
	// billing reconciler is the sole writer of this column.
	UpdateSubscriptionTier(ctx context.Context, id string, tier model.Tier) error
}

type profileRepo struct {
	pool *pgxpool.Pool
}

// NewProfileRepo creates a new ProfileRepository.
func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

// GetProfileByID returns the profile or nil when absent.
func (r *profileRepo) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	const q = `
		SELECT id, display_name, subscription_tier, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p model.Profile
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID,
		&p.DisplayName,
		&p.SubscriptionTier,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}
	return &p, nil
}

// UpdateSubscriptionTier syncs the denormalized tier projection.
func (r *profileRepo) UpdateSubscriptionTier(ctx context.Context, id string, tier model.Tier) error {
	const q = `
		UPDATE profiles
		SET subscription_tier = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, q, id, tier)
	if err != nil {
		return fmt.Errorf("updating subscription tier for profile %s: %w", id, err)
	}
	return nil
}
