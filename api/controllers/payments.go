package controllers

import (
	"net/http"

	"github.com/mateoquintana/mercaderia-backend/api/responses"
	"github.com/mateoquintana/mercaderia-backend/api/validators"
	paymentsvc "github.com/mateoquintana/mercaderia-backend/internal/payments"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
)

type paymentCallbackRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required,max=128"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required,max=128"`
	Signature        string `json:"signature" validate:"omitempty,max=256"`
}

func (p paymentCallbackRequest) toInput() paymentsvc.ConfirmInput {
	return paymentsvc.ConfirmInput{
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Signature:        p.Signature,
	}
}

// ConfirmPayment handles the gateway success callback: signature check,
// payment completion and deferred stock deduction.
func ConfirmPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paymentCallbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Confirm(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order":    newOrderResponse(result.Order),
			"replayed": result.Replayed,
		})
	}
}

// FailPayment handles the gateway failure callback.
func FailPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload paymentCallbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkFailed(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
