package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TierRepository reads the static pricing_tiers reference table.
type TierRepository interface {
	// GetTiers lists all pricing tiers ordered by price.
	GetTiers(ctx context.Context) ([]model.PricingTier, error)
	// GetTierByName returns the pricing row for a tier, or nil when absent.
	GetTierByName(ctx context.Context, tier model.Tier) (*model.PricingTier, error)
}

type tierRepo struct {
	pool *pgxpool.Pool
}

// NewTierRepo creates a new TierRepository.
func NewTierRepo(pool *pgxpool.Pool) TierRepository {
	return &tierRepo{pool: pool}
}

// GetTiers lists all pricing tiers ordered by price.
func (r *tierRepo) GetTiers(ctx context.Context) ([]model.PricingTier, error) {
	const q = `
		SELECT id, tier, price, video_limit, stripe_product_id, stripe_price_id
		FROM pricing_tiers
		ORDER BY price ASC
	`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying pricing tiers: %w", err)
	}
	defer rows.Close()

	var tiers []model.PricingTier
	for rows.Next() {
		var t model.PricingTier
		if err := rows.Scan(&t.ID, &t.Tier, &t.Price, &t.VideoLimit, &t.StripeProductID, &t.StripePriceID); err != nil {
			return nil, fmt.Errorf("scanning pricing tier row: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pricing tier rows: %w", err)
	}
	if len(tiers) == 0 {
		return []model.PricingTier{}, nil
	}
	return tiers, nil
}

// GetTierByName returns the pricing row for a tier.
func (r *tierRepo) GetTierByName(ctx context.Context, tier model.Tier) (*model.PricingTier, error) {
	const q = `
		SELECT id, tier, price, video_limit, stripe_product_id, stripe_price_id
		FROM pricing_tiers
		WHERE tier = $1
	`
	var t model.PricingTier
	err := r.pool.QueryRow(ctx, q, tier).Scan(&t.ID, &t.Tier, &t.Price, &t.VideoLimit, &t.StripeProductID, &t.StripePriceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch pricing tier %s: %w", tier, err)
	}
	return &t, nil
}
