package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/api/middleware"
	"github.com/mateoquintana/mercaderia-backend/api/responses"
	"github.com/mateoquintana/mercaderia-backend/api/validators"
	ordersvc "github.com/mateoquintana/mercaderia-backend/internal/orders"
	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
	"github.com/mateoquintana/mercaderia-backend/pkg/types"
)

type createOrderRequest struct {
	Items []struct {
		OfferID uuid.UUID `json:"offer_id" validate:"required"`
		Qty     int       `json:"qty" validate:"required,min=1"`
	} `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string         `json:"payment_method" validate:"required,oneof=gateway cod wallet"`
	ShippingAddress types.Address  `json:"shipping_address" validate:"required"`
	BillingAddress  *types.Address `json:"billing_address,omitempty"`
	Notes           *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type orderItemResponse struct {
	ID                 uuid.UUID `json:"id"`
	OfferID            uuid.UUID `json:"offer_id"`
	VendorID           uuid.UUID `json:"vendor_id"`
	ProductTitle       string    `json:"product_title"`
	SKU                string    `json:"sku"`
	Qty                int       `json:"qty"`
	UnitPriceCents     int       `json:"unit_price_cents"`
	ShippingPriceCents int       `json:"shipping_price_cents"`
	SubtotalCents      int       `json:"subtotal_cents"`
}

type orderResponse struct {
	ID                uuid.UUID           `json:"id"`
	BuyerID           uuid.UUID           `json:"buyer_id"`
	TotalAmountCents  int                 `json:"total_amount_cents"`
	ShippingCents     int                 `json:"shipping_price_cents"`
	GrandTotalCents   int                 `json:"grand_total_cents"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	GatewayOrderID    *string             `json:"gateway_order_id,omitempty"`
	ShippingAddress   types.Address       `json:"shipping_address"`
	BillingAddress    *types.Address      `json:"billing_address,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	Items             []orderItemResponse `json:"items"`
	CreatedAt         string              `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:                 item.ID,
			OfferID:            item.OfferID,
			VendorID:           item.VendorID,
			ProductTitle:       item.ProductTitle,
			SKU:                item.SKU,
			Qty:                item.Qty,
			UnitPriceCents:     item.UnitPriceCents,
			ShippingPriceCents: item.ShippingPriceCents,
			SubtotalCents:      item.SubtotalCents(),
		})
	}
	return orderResponse{
		ID:                order.ID,
		BuyerID:           order.BuyerID,
		TotalAmountCents:  order.TotalAmountCents,
		ShippingCents:     order.ShippingPriceCents,
		GrandTotalCents:   order.GrandTotalCents,
		PaymentMethod:     string(order.PaymentMethod),
		PaymentStatus:     string(order.PaymentStatus),
		FulfillmentStatus: string(order.FulfillmentStatus),
		GatewayOrderID:    order.GatewayOrderID,
		ShippingAddress:   order.ShippingAddress,
		BillingAddress:    order.BillingAddress,
		Notes:             order.Notes,
		Items:             items,
		CreatedAt:         order.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// CreateOrder handles buyer checkout.
func CreateOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		items := make([]ordersvc.CreateOrderItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, ordersvc.CreateOrderItemInput{OfferID: item.OfferID, Qty: item.Qty})
		}

		order, err := svc.Create(r.Context(), ordersvc.CreateOrderInput{
			BuyerID:         actor.UserID,
			Items:           items,
			PaymentMethod:   method,
			ShippingAddress: payload.ShippingAddress,
			BillingAddress:  payload.BillingAddress,
			Notes:           payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// ListMyOrders returns the buyer's own orders, newest first.
func ListMyOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForBuyer(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetOrder returns one order subject to role visibility.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForActor(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CancelOrder handles the buyer cancellation endpoint.
func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func orderIDFromURL(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
