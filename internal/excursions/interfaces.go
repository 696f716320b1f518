package excursions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/pkg/db/models"
)

// Repository defines persistence operations for the excursion catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, excursion *models.Excursion) (*models.Excursion, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Excursion, error)
	ListUpcoming(ctx context.Context, after time.Time) ([]models.Excursion, error)
	DecrementSeat(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementSeat(ctx context.Context, id uuid.UUID) error
}
