package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentMethodRepository defines methods for accessing stored payment
// method references.
type PaymentMethodRepository interface {
	// CreatePaymentMethod inserts a payment method reference. Redelivery of
	// the same Stripe payment method ID is a no-op, so the attached webhook
	// is idempotent against duplicate delivery.
	CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error
	// DeleteByStripeID removes a payment method by its Stripe ID. Deleting a
	// nonexistent row is a no-op, not an error.
	DeleteByStripeID(ctx context.Context, stripePaymentMethodID string) error
	// GetPaymentMethodsByUserID lists the user's stored payment methods.
	GetPaymentMethodsByUserID(ctx context.Context, userID string) ([]model.PaymentMethod, error)
}

type paymentMethodRepo struct {
	pool *pgxpool.Pool
}

// NewPaymentMethodRepo creates a new PaymentMethodRepository.
func NewPaymentMethodRepo(pool *pgxpool.Pool) PaymentMethodRepository {
	return &paymentMethodRepo{pool: pool}
}

// CreatePaymentMethod inserts a payment method reference.
func (r *paymentMethodRepo) CreatePaymentMethod(ctx context.Context, pm *model.PaymentMethod) error {
	const q = `
		INSERT INTO payment_methods (user_id, stripe_payment_method_id, type, last_four, expiry_month, expiry_year, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stripe_payment_method_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, q,
		pm.UserID, pm.StripePaymentMethodID, pm.Type, pm.LastFour, pm.ExpiryMonth, pm.ExpiryYear, pm.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("creating payment method for user %s: %w", pm.UserID, err)
	}
	return nil
}

// DeleteByStripeID removes a payment method by its Stripe ID.
func (r *paymentMethodRepo) DeleteByStripeID(ctx context.Context, stripePaymentMethodID string) error {
	const q = `DELETE FROM payment_methods WHERE stripe_payment_method_id = $1`
	_, err := r.pool.Exec(ctx, q, stripePaymentMethodID)
	if err != nil {
		return fmt.Errorf("deleting payment method %s: %w", stripePaymentMethodID, err)
	}
	return nil
}

// GetPaymentMethodsByUserID lists the user's stored payment methods.
func (r *paymentMethodRepo) GetPaymentMethodsByUserID(ctx context.Context, userID string) ([]model.PaymentMethod, error) {
	const q = `
		SELECT id, user_id, stripe_payment_method_id, type, last_four, expiry_month, expiry_year, is_default, created_at
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying payment methods for user %s: %w", userID, err)
	}
	defer rows.Close()

	var methods []model.PaymentMethod
	for rows.Next() {
		var pm model.PaymentMethod
		if err := rows.Scan(
			&pm.ID,
			&pm.UserID,
			&pm.StripePaymentMethodID,
			&pm.Type,
			&pm.LastFour,
			&pm.ExpiryMonth,
			&pm.ExpiryYear,
			&pm.IsDefault,
			&pm.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment method row: %w", err)
		}
		methods = append(methods, pm)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment method rows: %w", err)
	}
	if len(methods) == 0 {
		return []model.PaymentMethod{}, nil
	}
	return methods, nil
}
