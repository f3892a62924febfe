package model

import "time"

// PaymentMethod is a stored card-like credential reference. A changed card
// is modeled as detach+attach; there is no update path.
type PaymentMethod struct {
	ID                    string    `db:"id" json:"id"`
	UserID                string    `db:"user_id" json:"user_id"`
	StripePaymentMethodID string    `db:"stripe_payment_method_id" json:"stripe_payment_method_id"`
	Type                  string    `db:"type" json:"type"`
	LastFour              string    `db:"last_four" json:"last_four"`
	ExpiryMonth           int       `db:"expiry_month" json:"expiry_month"`
	ExpiryYear            int       `db:"expiry_year" json:"expiry_year"`
	IsDefault             bool      `db:"is_default" json:"is_default"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}
