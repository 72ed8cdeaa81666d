package offers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

// Repository reads vendor offers for the order engine. Stock mutation lives
// in Ledger; this surface is read-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSellableByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VendorOffer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorOffer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an offers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindSellableByIDs loads the requested offers in one read, filtered to
// approved and active rows. Callers compare the result against the request
// to learn which offers were missing or unavailable.
func (r *repository) FindSellableByIDs(ctx context.Context, ids []uuid.UUID) ([]models.VendorOffer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var offers []models.VendorOffer
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id IN ?", ids).
		Where("approval_status = ?", enums.OfferApprovalApproved).
		Where("active = ?", true).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorOffer, error) {
	var offer models.VendorOffer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}
