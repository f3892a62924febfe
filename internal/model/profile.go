package model

import "time"

// Profile is the denormalized user-facing projection of the current tier,
// kept in sync with Subscription.Tier by the billing reconciler.
type Profile struct {
	ID               string    `db:"id" json:"id"` // equals the auth user ID
	DisplayName      string    `db:"display_name" json:"display_name"`
	SubscriptionTier Tier      `db:"subscription_tier" json:"subscription_tier"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
