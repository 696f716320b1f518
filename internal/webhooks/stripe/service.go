package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/internal/checkout"
	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/internal/purchases"
	"github.com/rutasur/rutasur-backend/pkg/db"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	"github.com/rutasur/rutasur-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// errDuplicateEvent short-circuits a transaction whose event was already
// applied; the delivery is acked without touching state.
var errDuplicateEvent = errors.New("event already processed")

type ServiceParams struct {
	PurchasesRepo     purchases.Repository
	ExcursionsRepo    excursions.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies Stripe events to purchase/payment/inventory state. Every
// event runs in one transaction opened with a processed-event insert, so
// at-least-once delivery collapses to exactly-once application.
type Service struct {
	purchasesRepo  purchases.Repository
	excursionsRepo excursions.Repository
	txRunner       txRunner
	logg           *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.PurchasesRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "purchases repo required")
	}
	if params.ExcursionsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "excursions repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		purchasesRepo:  params.PurchasesRepo,
		excursionsRepo: params.ExcursionsRepo,
		txRunner:       params.TransactionRunner,
		logg:           params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.applyCheckoutCompleted(ctx, event.ID, &session)
	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return s.logPaymentIntent(ctx, &intent)
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
		}
		return s.applyChargeRefunded(ctx, event.ID, &charge)
	default:
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, eventID string, session *stripe.CheckoutSession) error {
	if session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}

	meta, err := checkout.ParseBookingMetadata(session.Metadata)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode booking metadata")
	}

	amountPaid := centsToUnits(session.AmountTotal)
	if amountPaid <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "settled amount must be positive")
	}

	var paymentIntentID string
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchasesRepo.WithTx(tx)
		seats := s.excursionsRepo.WithTx(tx)

		if err := s.recordProcessed(ctx, repo, eventID, string(stripe.EventTypeCheckoutSessionCompleted)); err != nil {
			return err
		}

		purchase, err := repo.FindPurchaseBySessionID(ctx, session.ID)
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase by session")
			}
			purchase, err = s.createPurchaseFromMetadata(ctx, repo, session.ID, paymentIntentID, meta)
			if err != nil {
				return err
			}
		} else if purchase.StripePaymentID == nil && paymentIntentID != "" {
			if err := repo.UpdatePurchase(ctx, purchase.ID, map[string]any{
				"stripe_payment_id": paymentIntentID,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment intent id")
			}
		}

		_, err = purchases.ApplyPayment(ctx, repo, seats, purchases.ApplyPaymentInput{
			PurchaseID:    purchase.ID,
			Amount:        amountPaid,
			PaymentType:   meta.PaymentType,
			StripeEventID: &eventID,
		})
		return err
	})
	if errors.Is(txErr, errDuplicateEvent) {
		s.logg.Info(ctx, "checkout event already applied, skipping")
		return nil
	}
	if txErr == nil {
		s.logg.Info(ctx, "checkout session reconciled")
	}
	return txErr
}

func (s *Service) logPaymentIntent(ctx context.Context, intent *stripe.PaymentIntent) error {
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	purchase, err := s.purchasesRepo.FindPurchaseByStripePaymentID(ctx, intent.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.logg.Warn(ctx, "payment intent succeeded for unknown purchase")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase by payment intent")
	}

	// Funds movement is reconciled off checkout.session.completed; this
	// event is informational only.
	s.logg.Info(s.logg.WithPurchaseID(ctx, purchase.ID.String()), "payment intent succeeded")
	return nil
}

func (s *Service) applyChargeRefunded(ctx context.Context, eventID string, charge *stripe.Charge) error {
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge has no payment intent")
	}
	paymentIntentID := charge.PaymentIntent.ID

	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.purchasesRepo.WithTx(tx)
		seats := s.excursionsRepo.WithTx(tx)

		if err := s.recordProcessed(ctx, repo, eventID, string(stripe.EventTypeChargeRefunded)); err != nil {
			return err
		}

		purchase, err := repo.FindPurchaseByStripePaymentID(ctx, paymentIntentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "no purchase for refunded charge")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase by payment intent")
		}

		if err := repo.UpdatePurchase(ctx, purchase.ID, map[string]any{
			"status":        enums.PurchaseStatusRefunded,
			"refund_status": enums.RefundStatusRefunded,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark purchase refunded")
		}

		if err := repo.MarkSucceededPaymentsRefunded(ctx, purchase.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payments refunded")
		}

		if err := seats.IncrementSeat(ctx, purchase.ExcursionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return seat")
		}
		return nil
	})
	if errors.Is(txErr, errDuplicateEvent) {
		s.logg.Info(ctx, "refund event already applied, skipping")
		return nil
	}
	if txErr == nil {
		s.logg.Info(ctx, "charge refund reconciled")
	}
	return txErr
}

// recordProcessed claims the event inside the open transaction. A unique
// violation means an earlier delivery committed first.
func (s *Service) recordProcessed(ctx context.Context, repo purchases.Repository, eventID, kind string) error {
	err := repo.CreateProcessedEvent(ctx, &models.ProcessedEvent{
		EventID: eventID,
		Kind:    kind,
	})
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "") {
		return errDuplicateEvent
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record processed event")
}

func (s *Service) createPurchaseFromMetadata(ctx context.Context, repo purchases.Repository, sessionID, paymentIntentID string, meta checkout.BookingMetadata) (*models.Purchase, error) {
	purchase := &models.Purchase{
		UserID:         meta.UserID,
		ExcursionID:    meta.ExcursionID,
		NumberOfPeople: meta.NumberOfPeople,
		PaymentType:    meta.PaymentType,
		TotalAmount:    meta.TotalAmount,
		Status:         enums.PurchaseStatusPending,
		RefundStatus:   enums.RefundStatusNone,
	}
	purchase.StripeSessionID = &sessionID
	if paymentIntentID != "" {
		purchase.StripePaymentID = &paymentIntentID
	}
	if !meta.ExpiresAt.IsZero() {
		expires := meta.ExpiresAt
		purchase.ExpiresAt = &expires
	}

	created, err := repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
	}
	return created, nil
}

// centsToUnits converts the processor's minor units to whole currency units.
func centsToUnits(cents int64) int64 {
	return decimal.NewFromInt(cents).
		Div(decimal.NewFromInt(100)).
		IntPart()
}
