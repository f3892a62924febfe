package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// GetSubscription returns the user's subscription row regardless of
	// status, or nil when the user has never subscribed.
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// UpsertSubscription creates or replaces the user's single subscription
	// row (conflict target user_id) with tier, status, period bounds and the
	// Stripe subscription ID from a billing event.
	UpsertSubscription(ctx context.Context, userID string, tier model.Tier, status, stripeSubscriptionID string, periodStart, periodEnd time.Time) error
	// CancelSubscription flips the user's subscription to cancelled. Access
	// already granted through current_period_end is not revoked. A user with
	// no subscription row is a no-op.
	CancelSubscription(ctx context.Context, userID string) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

// GetSubscription returns the user's subscription regardless of status.
func (r *subscriptionRepo) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
        SELECT id, user_id, tier, status, stripe_subscription_id, current_period_start, current_period_end, created_at, updated_at
        FROM subscriptions
        WHERE user_id = $1
    `
	var sub model.Subscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Tier,
		&sub.Status,
		&sub.StripeSubscriptionID,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return &sub, nil
}

// UpsertSubscription creates or replaces the user's subscription row.
func (r *subscriptionRepo) UpsertSubscription(ctx context.Context, userID string, tier model.Tier, status, stripeSubscriptionID string, periodStart, periodEnd time.Time) error {
	const q = `
		INSERT INTO subscriptions (user_id, tier, status, stripe_subscription_id, current_period_start, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = NOW();
	`
	_, err := r.pool.Exec(ctx, q, userID, tier, status, stripeSubscriptionID, periodStart, periodEnd)
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", userID, err)
	}
	return nil
}

// CancelSubscription flips the user's subscription to cancelled.
func (r *subscriptionRepo) CancelSubscription(ctx context.Context, userID string) error {
	const q = `
		UPDATE subscriptions
		SET status = 'cancelled', updated_at = NOW()
		WHERE user_id = $1
	`
	_, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("cancel subscription for user %s: %w", userID, err)
	}
	return nil
}
