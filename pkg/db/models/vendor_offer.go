package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

// VendorOffer is one vendor's sellable instance of a shared product. Its
// stock column is the stock ledger: mutated only through the atomic
// increment/decrement in internal/offers, never read-modify-write.
type VendorOffer struct {
	ID                 uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_offers_product_vendor"`
	VendorID           uuid.UUID                 `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_offers_product_vendor"`
	SKU                string                    `gorm:"column:sku;uniqueIndex;not null"`
	UnitPriceCents     int                       `gorm:"column:unit_price_cents;not null"`
	ShippingPriceCents int                       `gorm:"column:shipping_price_cents;not null;default:0"`
	Stock              int                       `gorm:"column:stock;not null;default:0"`
	ApprovalStatus     enums.OfferApprovalStatus `gorm:"column:approval_status;not null;default:'pending'"`
	Active             bool                      `gorm:"column:active;not null;default:true"`
	Product            *Product                  `gorm:"foreignKey:ProductID"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// Sellable reports whether the offer may appear in a new order.
func (v VendorOffer) Sellable() bool {
	return v.Active && v.ApprovalStatus == enums.OfferApprovalApproved
}
