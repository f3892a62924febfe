package dto

// CheckoutRequest starts a subscription purchase for a paid tier.
type CheckoutRequest struct {
	Tier  string `json:"tier" validate:"required,oneof=creator pro"`
	Email string `json:"email" validate:"required,email"`
}

// CheckoutResponse carries the processor-hosted checkout URL.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}
