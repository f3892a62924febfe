package model

import "time"

// Tier is a named subscription plan determining quota and feature access.
type Tier string

const (
	TierStarter Tier = "starter"
	TierCreator Tier = "creator"
	TierPro     Tier = "pro"
)

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierStarter, TierCreator, TierPro:
		return true
	}
	return false
}

// Subscription represents a user's billing relationship for a paid tier.
// At most one row exists per user.
type Subscription struct {
	ID                   string    `db:"id" json:"id"`
	UserID               string    `db:"user_id" json:"user_id"`
	Tier                 Tier      `db:"tier" json:"tier"`
	Status               string    `db:"status" json:"status"` // active, cancelled, expired
	StripeSubscriptionID *string   `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	CurrentPeriodStart   time.Time `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     time.Time `db:"current_period_end" json:"current_period_end"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)
