package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	"github.com/mateoquintana/mercaderia-backend/pkg/types"
)

// Order is one checkout transaction by one buyer, possibly spanning several
// vendors. Totals are captured at creation and never recomputed from live
// offer prices.
type Order struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`

	TotalAmountCents   int `gorm:"column:total_amount_cents;not null"`
	ShippingPriceCents int `gorm:"column:shipping_price_cents;not null"`
	GrandTotalCents    int `gorm:"column:grand_total_cents;not null"`

	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;not null;default:'pending'"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null;default:'pending'"`

	GatewayOrderID   *string `gorm:"column:gateway_order_id;uniqueIndex"`
	GatewayPaymentID *string `gorm:"column:gateway_payment_id"`
	GatewaySignature *string `gorm:"column:gateway_signature"`

	ShippingAddress types.Address  `gorm:"column:shipping_address;type:jsonb;not null"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb"`
	Notes           *string        `gorm:"column:notes"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is an embedded order line. Price and shipping are frozen copies
// of the offer values at order time. StockDeducted is the exactly-once
// bookkeeping for the reservation flag: set by whichever path deducts first
// (creation for COD/wallet, gateway confirmation, or vendor confirmation).
type OrderItem struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	OfferID  uuid.UUID `gorm:"column:offer_id;type:uuid;not null"`
	VendorID uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`

	ProductTitle       string `gorm:"column:product_title;not null"`
	SKU                string `gorm:"column:sku;not null"`
	Qty                int    `gorm:"column:qty;not null"`
	UnitPriceCents     int    `gorm:"column:unit_price_cents;not null"`
	ShippingPriceCents int    `gorm:"column:shipping_price_cents;not null"`

	StockDeducted bool `gorm:"column:stock_deducted;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SubtotalCents is the frozen line subtotal excluding shipping.
func (i OrderItem) SubtotalCents() int {
	return i.UnitPriceCents * i.Qty
}

// ShippingSubtotalCents is the frozen per-line shipping contribution.
func (i OrderItem) ShippingSubtotalCents() int {
	return i.ShippingPriceCents * i.Qty
}
