package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/pkg/enums"
)

// Payment is an append-only record of money applied to a purchase, one row
// per processor event or manual admin entry.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseID    uuid.UUID           `gorm:"column:purchase_id;type:uuid;not null;index"`
	Amount        int64               `gorm:"column:amount;not null"`
	PaymentType   enums.PaymentType   `gorm:"column:payment_type;type:text;not null;default:'full'"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StripeEventID *string             `gorm:"column:stripe_event_id"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
