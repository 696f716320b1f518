package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/pkg/db/models"
)

// Repository defines persistence operations for purchase/payment tables and
// the processed-event idempotency ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	FindPurchaseByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindPurchaseBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error)
	FindPurchaseByStripePaymentID(ctx context.Context, paymentID string) (*models.Purchase, error)
	ListPurchases(ctx context.Context) ([]models.Purchase, error)
	UpdatePurchase(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeletePurchase(ctx context.Context, id uuid.UUID) error
	AddAmountPaidClamped(ctx context.Context, id uuid.UUID, amount int64) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	CountSucceededPayments(ctx context.Context, purchaseID uuid.UUID) (int64, error)
	MarkSucceededPaymentsRefunded(ctx context.Context, purchaseID uuid.UUID) error
	CreateProcessedEvent(ctx context.Context, event *models.ProcessedEvent) error
}
