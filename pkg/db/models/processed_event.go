package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedEvent marks a webhook event as applied. The unique EventID makes
// the insert the authoritative idempotency check: a duplicate insert inside
// the event transaction means the whole event was already handled.
type ProcessedEvent struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     string    `gorm:"column:event_id;not null;uniqueIndex"`
	Kind        string    `gorm:"column:kind;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
