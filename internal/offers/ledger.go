package offers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
)

// Ledger owns the two primitive stock mutations. Both are single atomic
// UPDATE statements; neither enforces a floor check. The availability check
// happens earlier in order creation against a fresh snapshot, which leaves a
// narrow check-then-deduct race as a documented property of the optimistic
// design rather than something the ledger hides.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, offerID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, offerID uuid.UUID, qty int) error
}

type ledger struct{}

// NewLedger returns the default stock ledger implementation.
func NewLedger() Ledger {
	return ledger{}
}

// Reserve decrements stock by qty. Invoked once per (order, line item) pair,
// either at creation time (COD/wallet) or at confirmation time (gateway).
func (ledger) Reserve(ctx context.Context, tx *gorm.DB, offerID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve qty must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reserve")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE vendor_offers
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, offerID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found").
			WithDetails(map[string]any{"offer_id": offerID})
	}
	return nil
}

// Release increments stock by qty. Invoked on cancellation of a previously
// stock-deducted line item.
func (ledger) Release(ctx context.Context, tx *gorm.DB, offerID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release qty must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE vendor_offers
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, offerID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found").
			WithDetails(map[string]any{"offer_id": offerID})
	}
	return nil
}
