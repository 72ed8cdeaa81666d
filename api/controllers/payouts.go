package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/api/responses"
	"github.com/mateoquintana/mercaderia-backend/api/validators"
	payoutsvc "github.com/mateoquintana/mercaderia-backend/internal/payouts"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
	"github.com/mateoquintana/mercaderia-backend/pkg/logger"
)

// VendorSalesSummary aggregates a vendor's completed sales over a requested
// period. Admin supplies vendor_id explicitly; defaults cover the trailing
// 30 days.
func VendorSalesSummary(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		vendorID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("vendor_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor_id query parameter is required"))
			return
		}

		end := time.Now().UTC()
		start := end.AddDate(0, 0, -30)
		if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
			if start, err = time.Parse(time.RFC3339, raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "start must be RFC3339"))
				return
			}
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
			if end, err = time.Parse(time.RFC3339, raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "end must be RFC3339"))
				return
			}
		}

		summary, err := svc.SalesSummary(r.Context(), vendorID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type recordPayoutRequest struct {
	VendorID uuid.UUID `json:"vendor_id" validate:"required"`
	Start    time.Time `json:"period_start" validate:"required"`
	End      time.Time `json:"period_end" validate:"required"`
}

// RecordVendorPayout computes and persists one payout bookkeeping row.
func RecordVendorPayout(svc payoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		var payload recordPayoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SalesSummary(r.Context(), payload.VendorID, payload.Start, payload.End)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.RecordPayout(r.Context(), summary)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}
