package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/pkg/enums"
)

// Purchase tracks a booking reconciled from Stripe checkout events.
// Amounts are whole currency units; AmountPaid never exceeds TotalAmount
// (enforced by a clamped atomic update).
type Purchase struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	ExcursionID     uuid.UUID            `gorm:"column:excursion_id;type:uuid;not null"`
	NumberOfPeople  int                  `gorm:"column:number_of_people;not null;default:1"`
	PaymentType     enums.PaymentType    `gorm:"column:payment_type;type:text;not null;default:'full'"`
	TotalAmount     int64                `gorm:"column:total_amount;not null"`
	AmountPaid      int64                `gorm:"column:amount_paid;not null;default:0"`
	Status          enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	RefundStatus    enums.RefundStatus   `gorm:"column:refund_status;type:text;not null;default:'none'"`
	StripeSessionID *string              `gorm:"column:stripe_session_id;uniqueIndex"`
	StripePaymentID *string              `gorm:"column:stripe_payment_id;index"`
	ExpiresAt       *time.Time           `gorm:"column:expires_at"`
	Payments        []Payment            `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
