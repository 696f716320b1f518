package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/pkg/config"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	pkgstripe "github.com/rutasur/rutasur-backend/pkg/stripe"
)

// MsgNoSeats is the customer-facing rejection when an excursion is sold out.
const MsgNoSeats = "No hay lugares disponibles"

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service opens Stripe Checkout Sessions for excursion bookings. No purchase
// row is written here; the webhook reconciler creates it once money settles.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
}

// CreateSessionInput is the booking request, already decoded and field-validated.
type CreateSessionInput struct {
	UserID         uuid.UUID
	ExcursionID    uuid.UUID
	PaymentType    string
	TotalAmount    int64
	AmountToPay    int64
	NumberOfPeople int
}

// Session is the handle the customer is redirected to.
type Session struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type service struct {
	excursions excursions.Repository
	processor  pkgstripe.CheckoutClient
	limiter    rateLimiter
	checkout   config.CheckoutConfig
	stripeCfg  config.StripeConfig
	now        func() time.Time
}

// NewService builds the checkout initiator.
func NewService(
	excursionsRepo excursions.Repository,
	processor pkgstripe.CheckoutClient,
	limiter rateLimiter,
	checkoutCfg config.CheckoutConfig,
	stripeCfg config.StripeConfig,
) (Service, error) {
	if excursionsRepo == nil {
		return nil, fmt.Errorf("excursions repository required")
	}
	if processor == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	return &service{
		excursions: excursionsRepo,
		processor:  processor,
		limiter:    limiter,
		checkout:   checkoutCfg,
		stripeCfg:  stripeCfg,
		now:        time.Now,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ExcursionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "excursion id required")
	}
	if input.NumberOfPeople <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "number of people must be positive")
	}

	paymentType, err := parseCheckoutPaymentType(input.PaymentType)
	if err != nil {
		return nil, err
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx,
		"checkout:"+input.UserID.String(),
		s.checkout.RateLimitMax,
		s.checkout.RateLimitWindow,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout rate limit")
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many checkout attempts")
	}

	excursion, err := s.excursions.FindByID(ctx, input.ExcursionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "excursion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load excursion")
	}

	if excursion.AvailableSeats <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgNoSeats)
	}

	now := s.now()
	cutoff := excursion.StartDate.AddDate(0, 0, -s.checkout.CutoffDays)
	if !now.Before(cutoff) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("bookings close %d days before departure", s.checkout.CutoffDays))
	}

	// Amounts are recomputed server-side from the stored price; client
	// figures are accepted only when they match.
	expectedTotal := excursion.Price * int64(input.NumberOfPeople)
	if input.TotalAmount != expectedTotal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount does not match excursion price")
	}
	expectedToPay := expectedTotal
	if paymentType == enums.PaymentTypeDeposit {
		expectedToPay = depositAmount(expectedTotal, s.checkout.DepositPercent)
	}
	if input.AmountToPay != expectedToPay {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount to pay does not match payment type")
	}

	meta := BookingMetadata{
		UserID:         input.UserID,
		ExcursionID:    excursion.ID,
		PaymentType:    paymentType,
		TotalAmount:    expectedTotal,
		AmountToPay:    expectedToPay,
		NumberOfPeople: input.NumberOfPeople,
		Currency:       excursion.Currency,
		ExpiresAt:      cutoff,
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL: stripeapi.String(s.stripeCfg.SuccessURL),
		CancelURL:  stripeapi.String(s.stripeCfg.CancelURL),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripeapi.String(strings.ToLower(string(excursion.Currency))),
					UnitAmount: stripeapi.Int64(unitsToCents(expectedToPay)),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(excursion.Title),
					},
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		Metadata: meta.Encode(),
	}

	created, err := s.processor.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	return &Session{SessionID: created.ID, URL: created.URL}, nil
}

// Checkout accepts only the two opening payment types; "remaining" rows come
// from later settlements or manual admin entries.
func parseCheckoutPaymentType(raw string) (enums.PaymentType, error) {
	switch raw {
	case string(enums.PaymentTypeDeposit):
		return enums.PaymentTypeDeposit, nil
	case string(enums.PaymentTypeFull):
		return enums.PaymentTypeFull, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment type must be deposit or full")
	}
}

// depositAmount computes the up-front share of the total, rounded to whole
// currency units.
func depositAmount(total int64, percent int) int64 {
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(int64(percent))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// unitsToCents converts whole currency units to the processor's minor units.
func unitsToCents(units int64) int64 {
	return decimal.NewFromInt(units).
		Mul(decimal.NewFromInt(100)).
		IntPart()
}
