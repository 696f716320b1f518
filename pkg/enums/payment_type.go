package enums

import "fmt"

// PaymentType distinguishes how a payment contributes to a purchase total.
type PaymentType string

const (
	PaymentTypeDeposit   PaymentType = "deposit"
	PaymentTypeRemaining PaymentType = "remaining"
	PaymentTypeFull      PaymentType = "full"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeDeposit,
	PaymentTypeRemaining,
	PaymentTypeFull,
}

// IsValid reports whether the value matches the canonical payment type enum.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts the raw string to PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
