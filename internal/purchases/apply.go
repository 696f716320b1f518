package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
)

// ApplyPaymentInput captures a settled amount to reconcile into a purchase.
type ApplyPaymentInput struct {
	PurchaseID    uuid.UUID
	Amount        int64
	PaymentType   enums.PaymentType
	StripeEventID *string
}

// ApplyPayment reconciles money into a purchase. It must run inside an open
// transaction: both repositories are expected to be tx-bound. The flow is a
// clamped amount_paid increment, a status recompute, an appended succeeded
// Payment row, and a guarded seat decrement when this is the first payment on
// the purchase. The clamped UPDATE takes the purchase row lock before prior
// payments are counted: a concurrent settlement blocks on that lock and, once
// it proceeds, its count sees the committed Payment row. Webhook deliveries
// and admin manual payments share this path, so neither can double-take the
// booking's seat.
func ApplyPayment(ctx context.Context, repo Repository, seats excursions.Repository, in ApplyPaymentInput) (*models.Purchase, error) {
	if in.PurchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	if in.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !in.PaymentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type")
	}

	purchase, err := repo.FindPurchaseByID(ctx, in.PurchaseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}

	if err := repo.AddAmountPaidClamped(ctx, purchase.ID, in.Amount); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply amount paid")
	}

	// Counted under the row lock taken by the update above, so a racing
	// settlement on the same purchase is either fully visible here or still
	// blocked behind us.
	prior, err := repo.CountSucceededPayments(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count prior payments")
	}

	updated, err := repo.FindPurchaseByID(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload purchase")
	}

	status := enums.PurchaseStatusReserved
	if updated.AmountPaid >= updated.TotalAmount {
		status = enums.PurchaseStatusPaid
	}
	if updated.Status != status {
		if err := repo.UpdatePurchase(ctx, updated.ID, map[string]any{"status": status}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase status")
		}
		updated.Status = status
	}

	payment := &models.Payment{
		PurchaseID:    updated.ID,
		Amount:        in.Amount,
		PaymentType:   in.PaymentType,
		Status:        enums.PaymentStatusSucceeded,
		StripeEventID: in.StripeEventID,
	}
	if _, err := repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	updated.Payments = append(updated.Payments, *payment)

	// The booking holds exactly one seat, taken on the first settled
	// payment. A sold-out decrement is not an error here: the money is
	// already settled, so the purchase is honored regardless.
	if prior == 0 {
		if _, err := seats.DecrementSeat(ctx, updated.ExcursionID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement seats")
		}
	}

	return updated, nil
}
