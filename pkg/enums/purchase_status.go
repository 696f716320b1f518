package enums

import "fmt"

// PurchaseStatus describes the lifecycle of a booking purchase.
type PurchaseStatus string

const (
	PurchaseStatusPending        PurchaseStatus = "pending"
	PurchaseStatusReserved       PurchaseStatus = "reserved"
	PurchaseStatusPaid           PurchaseStatus = "paid"
	PurchaseStatusCancelled      PurchaseStatus = "cancelled"
	PurchaseStatusRefunded       PurchaseStatus = "refunded"
	PurchaseStatusExpired        PurchaseStatus = "expired"
	PurchaseStatusRefundRequired PurchaseStatus = "refund_required"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusPending,
	PurchaseStatusReserved,
	PurchaseStatusPaid,
	PurchaseStatusCancelled,
	PurchaseStatusRefunded,
	PurchaseStatusExpired,
	PurchaseStatusRefundRequired,
}

// IsValid reports whether the value matches the canonical purchase status enum.
func (p PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseStatus converts the raw string to PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
