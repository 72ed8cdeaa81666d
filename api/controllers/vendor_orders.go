package controllers

import (
	"net/http"

	"github.com/mateoquintana/mercaderia-backend/api/middleware"
	"github.com/mateoquintana/mercaderia-backend/api/responses"
	"github.com/mateoquintana/mercaderia-backend/api/validators"
	ordersvc "github.com/mateoquintana/mercaderia-backend/internal/orders"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
)

type statusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
}

// ListVendorOrders returns orders containing at least one of the vendor's items.
func ListVendorOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		if actor.VendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForVendor(r.Context(), *actor.VendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UpdateVendorOrderStatus applies a one-step fulfillment transition scoped
// to the vendor's own line items.
func UpdateVendorOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return updateOrderStatus(svc, logg)
}

// UpdateAdminOrderStatus applies any fulfillment transition as admin.
func UpdateAdminOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return updateOrderStatus(svc, logg)
}

func updateOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload statusUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseFulfillmentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), ordersvc.StatusUpdateInput{
			OrderID: orderID,
			Status:  status,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListAllOrders returns every order for back-office review.
func ListAllOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
