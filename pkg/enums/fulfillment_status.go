package enums

import "fmt"

// FulfillmentStatus is the shipping/delivery progress of an order.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusConfirmed  FulfillmentStatus = "confirmed"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPending,
	FulfillmentStatusConfirmed,
	FulfillmentStatusProcessing,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
	FulfillmentStatusCancelled,
}

// forwardOrder indexes the linear progression used for adjacency checks.
// Terminal and cancelled states carry no successor.
var forwardOrder = map[FulfillmentStatus]int{
	FulfillmentStatusPending:    0,
	FulfillmentStatusConfirmed:  1,
	FulfillmentStatusProcessing: 2,
	FulfillmentStatusShipped:    3,
	FulfillmentStatusDelivered:  4,
}

// IsValid reports whether the value matches the canonical fulfillment status enum.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (f FulfillmentStatus) IsTerminal() bool {
	return f == FulfillmentStatusDelivered || f == FulfillmentStatusCancelled
}

// NextOf reports whether target is the immediate forward successor of f.
func (f FulfillmentStatus) NextOf(target FulfillmentStatus) bool {
	from, ok := forwardOrder[f]
	if !ok {
		return false
	}
	to, ok := forwardOrder[target]
	if !ok {
		return false
	}
	return to == from+1
}

// ParseFulfillmentStatus converts the raw string to FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
