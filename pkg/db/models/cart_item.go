package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a buyer's cart row. Cart mutation is handled elsewhere; the
// order engine only clears a buyer's cart after payment confirmation.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	OfferID   uuid.UUID `gorm:"column:offer_id;type:uuid;not null"`
	Qty       int       `gorm:"column:qty;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
