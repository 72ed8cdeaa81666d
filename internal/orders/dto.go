package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	"github.com/mateoquintana/mercaderia-backend/pkg/types"
)

// Actor is the request-scoped identity threaded through every service call.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	VendorID *uuid.UUID
}

// CreateOrderItemInput is one requested (offer, quantity) pair.
type CreateOrderItemInput struct {
	OfferID uuid.UUID `json:"offer_id"`
	Qty     int       `json:"qty"`
}

// CreateOrderInput captures a checkout request.
type CreateOrderInput struct {
	BuyerID         uuid.UUID
	Items           []CreateOrderItemInput
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	BillingAddress  *types.Address
	Notes           *string
}

// StatusUpdateInput carries a requested fulfillment transition.
type StatusUpdateInput struct {
	OrderID uuid.UUID
	Status  enums.FulfillmentStatus
	Actor   Actor
}

// OrderSummary is the aggregated row returned in list endpoints.
type OrderSummary struct {
	ID                uuid.UUID               `json:"id"`
	BuyerID           uuid.UUID               `json:"buyer_id"`
	CreatedAt         time.Time               `json:"created_at"`
	TotalAmountCents  int                     `json:"total_amount_cents"`
	ShippingCents     int                     `json:"shipping_price_cents"`
	GrandTotalCents   int                     `json:"grand_total_cents"`
	ItemCount         int                     `json:"item_count"`
	PaymentMethod     enums.PaymentMethod     `json:"payment_method"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
}

// OrderList wraps a paginated page of summaries plus the next cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
