package checkout

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/pkg/enums"
)

// Metadata keys attached to the Stripe Checkout Session. The webhook
// reconciler reads these back to build the purchase on first delivery, so the
// two sides must agree on the names.
const (
	MetaUserID         = "user_id"
	MetaExcursionID    = "excursion_id"
	MetaPaymentType    = "payment_type"
	MetaTotalAmount    = "total_amount"
	MetaAmountToPay    = "amount_to_pay"
	MetaNumberOfPeople = "number_of_people"
	MetaCurrency       = "currency"
	MetaExpiresAt      = "expires_at"
)

// BookingMetadata is the booking snapshot carried through Stripe.
type BookingMetadata struct {
	UserID         uuid.UUID
	ExcursionID    uuid.UUID
	PaymentType    enums.PaymentType
	TotalAmount    int64
	AmountToPay    int64
	NumberOfPeople int
	Currency       enums.Currency
	ExpiresAt      time.Time
}

// Encode renders the metadata map for the session params.
func (m BookingMetadata) Encode() map[string]string {
	return map[string]string{
		MetaUserID:         m.UserID.String(),
		MetaExcursionID:    m.ExcursionID.String(),
		MetaPaymentType:    string(m.PaymentType),
		MetaTotalAmount:    strconv.FormatInt(m.TotalAmount, 10),
		MetaAmountToPay:    strconv.FormatInt(m.AmountToPay, 10),
		MetaNumberOfPeople: strconv.Itoa(m.NumberOfPeople),
		MetaCurrency:       string(m.Currency),
		MetaExpiresAt:      m.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// ParseBookingMetadata rebuilds the booking snapshot from a webhook event.
func ParseBookingMetadata(meta map[string]string) (BookingMetadata, error) {
	var out BookingMetadata
	if len(meta) == 0 {
		return out, fmt.Errorf("booking metadata missing")
	}

	userID, err := uuid.Parse(meta[MetaUserID])
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaUserID, err)
	}
	excursionID, err := uuid.Parse(meta[MetaExcursionID])
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaExcursionID, err)
	}
	paymentType, err := enums.ParsePaymentType(meta[MetaPaymentType])
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaPaymentType, err)
	}
	totalAmount, err := strconv.ParseInt(meta[MetaTotalAmount], 10, 64)
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaTotalAmount, err)
	}
	amountToPay, err := strconv.ParseInt(meta[MetaAmountToPay], 10, 64)
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaAmountToPay, err)
	}
	people, err := strconv.Atoi(meta[MetaNumberOfPeople])
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaNumberOfPeople, err)
	}
	currency, err := enums.ParseCurrency(meta[MetaCurrency])
	if err != nil {
		return out, fmt.Errorf("invalid %s: %w", MetaCurrency, err)
	}

	out = BookingMetadata{
		UserID:         userID,
		ExcursionID:    excursionID,
		PaymentType:    paymentType,
		TotalAmount:    totalAmount,
		AmountToPay:    amountToPay,
		NumberOfPeople: people,
		Currency:       currency,
	}

	if raw := meta[MetaExpiresAt]; raw != "" {
		expires, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return out, fmt.Errorf("invalid %s: %w", MetaExpiresAt, err)
		}
		out.ExpiresAt = expires
	}

	return out, nil
}
