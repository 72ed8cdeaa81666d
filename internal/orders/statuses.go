package orders

import (
	"github.com/google/uuid"

	"github.com/mateoquintana/mercaderia-backend/pkg/db/models"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
	pkgerrors "github.com/mateoquintana/mercaderia-backend/pkg/errors"
)

// validateTransition enforces the fulfillment state machine per actor role.
//
// Vendors move forward one adjacent step at a time. Cancellation belongs to
// buyers and admins; a vendor cancelling would release every deducted line
// including other vendors' stock. Admins may set any defined status directly.
func validateTransition(order *models.Order, target enums.FulfillmentStatus, role enums.ActorRole) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment status").
			WithDetails(map[string]any{"status": target})
	}

	current := order.FulfillmentStatus
	if current.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is in a terminal state").
			WithDetails(map[string]any{"current": current, "requested": target})
	}
	if current == target {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already in requested state").
			WithDetails(map[string]any{"current": current, "requested": target})
	}

	switch role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleBuyer:
		if target != enums.FulfillmentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "buyers may only cancel orders")
		}
		return nil
	case enums.ActorRoleVendor:
		if target == enums.FulfillmentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeForbidden, "vendors may not cancel orders")
		}
		if !current.NextOf(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transition skips or reverses the fulfillment flow").
				WithDetails(map[string]any{"current": current, "requested": target})
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
}

// validateDeliveredPayment rejects marking a gateway order delivered while
// its payment is still pending. Payment and fulfillment are tracked
// independently but constrained jointly here.
func validateDeliveredPayment(order *models.Order, target enums.FulfillmentStatus) error {
	if target != enums.FulfillmentStatusDelivered {
		return nil
	}
	if order.PaymentMethod == enums.PaymentMethodGateway && order.PaymentStatus == enums.PaymentStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "gateway order cannot be delivered before payment completes").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	return nil
}

// vendorOwnsItems reports whether at least one line item references one of
// the vendor's own offers.
func vendorOwnsItems(order *models.Order, vendorID *uuid.UUID) bool {
	if vendorID == nil {
		return false
	}
	for _, item := range order.Items {
		if item.VendorID == *vendorID {
			return true
		}
	}
	return false
}
