package enums

import "fmt"

// OfferApprovalStatus is the admin curation state of a vendor offer.
type OfferApprovalStatus string

const (
	OfferApprovalPending  OfferApprovalStatus = "pending"
	OfferApprovalApproved OfferApprovalStatus = "approved"
	OfferApprovalRejected OfferApprovalStatus = "rejected"
)

var validOfferApprovalStatuses = []OfferApprovalStatus{
	OfferApprovalPending,
	OfferApprovalApproved,
	OfferApprovalRejected,
}

// IsValid reports whether the value matches the canonical approval enum.
func (o OfferApprovalStatus) IsValid() bool {
	for _, candidate := range validOfferApprovalStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOfferApprovalStatus converts the raw string to OfferApprovalStatus.
func ParseOfferApprovalStatus(value string) (OfferApprovalStatus, error) {
	for _, candidate := range validOfferApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer approval status %q", value)
}
