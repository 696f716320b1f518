package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/pkg/enums"
)

// Excursion is a bookable trip in the catalog. AvailableSeats is only
// mutated through guarded SQL updates, never read-modify-write.
type Excursion struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title          string         `gorm:"column:title;not null"`
	Description    string         `gorm:"column:description;not null;default:''"`
	Price          int64          `gorm:"column:price;not null"`
	Currency       enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	StartDate      time.Time      `gorm:"column:start_date;not null"`
	AvailableSeats int            `gorm:"column:available_seats;not null;default:0"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
