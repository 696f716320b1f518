package excursions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an excursions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, excursion *models.Excursion) (*models.Excursion, error) {
	if err := r.db.WithContext(ctx).Create(excursion).Error; err != nil {
		return nil, err
	}
	return excursion, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Excursion{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Excursion{}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Excursion, error) {
	var excursion models.Excursion
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&excursion).Error
	if err != nil {
		return nil, err
	}
	return &excursion, nil
}

func (r *repository) ListUpcoming(ctx context.Context, after time.Time) ([]models.Excursion, error) {
	var excursions []models.Excursion
	err := r.db.WithContext(ctx).
		Where("start_date > ?", after).
		Order("start_date ASC").
		Find(&excursions).Error
	if err != nil {
		return nil, err
	}
	return excursions, nil
}

// DecrementSeat takes one seat when any remain. The guard in the WHERE clause
// makes the decrement safe under concurrent webhooks; the boolean reports
// whether a seat was actually taken.
func (r *repository) DecrementSeat(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE excursions
		SET available_seats = available_seats - 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_seats > 0
	`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) IncrementSeat(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE excursions
		SET available_seats = available_seats + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id).Error
}
