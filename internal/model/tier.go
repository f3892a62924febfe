package model

// PricingTier is a row of the static pricing_tiers reference table mapping a
// tier to its price, submission limit and Stripe product/price identifiers.
type PricingTier struct {
	ID              string  `db:"id" json:"id"`
	Tier            Tier    `db:"tier" json:"tier"`
	Price           int     `db:"price" json:"price"` // cents per month
	VideoLimit      int     `db:"video_limit" json:"video_limit"`
	StripeProductID *string `db:"stripe_product_id" json:"stripe_product_id,omitempty"`
	StripePriceID   *string `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
}
