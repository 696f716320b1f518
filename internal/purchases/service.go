package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	pkgstripe "github.com/rutasur/rutasur-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the admin-facing purchase operations.
type Service interface {
	List(ctx context.Context) ([]models.Purchase, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Purchase, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddManualPayment(ctx context.Context, purchaseID uuid.UUID, input ManualPaymentInput) (*models.Purchase, error)
	DeletePayment(ctx context.Context, paymentID uuid.UUID) error
	RequestRefund(ctx context.Context, purchaseID uuid.UUID) error
}

// UpdateInput carries the corrections an admin may apply to a purchase.
type UpdateInput struct {
	Status    *enums.PurchaseStatus
	ExpiresAt *time.Time
}

// ManualPaymentInput records money collected outside the processor.
type ManualPaymentInput struct {
	Amount      int64
	PaymentType enums.PaymentType
}

type service struct {
	repo      Repository
	seats     excursions.Repository
	tx        txRunner
	processor pkgstripe.CheckoutClient
}

// NewService builds the admin purchase service with the required dependencies.
func NewService(repo Repository, seats excursions.Repository, tx txRunner, processor pkgstripe.CheckoutClient) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases repository required")
	}
	if seats == nil {
		return nil, fmt.Errorf("excursions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if processor == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{repo: repo, seats: seats, tx: tx, processor: processor}, nil
}

func (s *service) List(ctx context.Context) ([]models.Purchase, error) {
	purchases, err := s.repo.ListPurchases(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	return purchases, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	purchase, err := s.repo.FindPurchaseByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	return purchase, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Purchase, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	updates := map[string]any{}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase status")
		}
		updates["status"] = *input.Status
	}
	if input.ExpiresAt != nil {
		updates["expires_at"] = *input.ExpiresAt
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePurchase(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchase, err := repo.FindPurchaseByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}
		if len(purchase.Payments) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "purchase has recorded payments")
		}
		if err := repo.DeletePurchase(ctx, purchase.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase")
		}
		return nil
	})
}

func (s *service) AddManualPayment(ctx context.Context, purchaseID uuid.UUID, input ManualPaymentInput) (*models.Purchase, error) {
	var applied *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var applyErr error
		applied, applyErr = ApplyPayment(ctx, s.repo.WithTx(tx), s.seats.WithTx(tx), ApplyPaymentInput{
			PurchaseID:  purchaseID,
			Amount:      input.Amount,
			PaymentType: input.PaymentType,
		})
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (s *service) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	if paymentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindPaymentByID(ctx, paymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "only pending payments can be deleted")
		}
		if err := repo.DeletePayment(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}
		return nil
	})
}

func (s *service) RequestRefund(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := s.Get(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase.StripePaymentID == nil || *purchase.StripePaymentID == "" {
		return pkgerrors.New(pkgerrors.CodeConflict, "purchase has no settled processor payment")
	}
	if purchase.RefundStatus != enums.RefundStatusNone {
		return pkgerrors.New(pkgerrors.CodeConflict, "refund already requested")
	}

	params := &stripeapi.RefundParams{
		PaymentIntent: stripeapi.String(*purchase.StripePaymentID),
	}
	if _, err := s.processor.CreateRefund(ctx, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request stripe refund")
	}

	// The refunded terminal state lands via the charge.refunded webhook;
	// here we only record that the request went out.
	if err := s.repo.UpdatePurchase(ctx, purchase.ID, map[string]any{
		"refund_status": enums.RefundStatusRequested,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refund requested")
	}
	return nil
}
