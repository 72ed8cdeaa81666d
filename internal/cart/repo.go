package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
)

// Repository is the cart collaborator surface the order engine needs. Cart
// mutation APIs live outside this system; payment confirmation only clears.
type Repository interface {
	ClearForBuyer(ctx context.Context, buyerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ClearForBuyer removes every cart row for the buyer. Called best-effort
// after a payment confirmation commits; failures are logged, never
// propagated into the confirmation result.
func (r *repository) ClearForBuyer(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&models.CartItem{}).Error
}
