package excursions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
)

// Service defines catalog operations for excursions.
type Service interface {
	List(ctx context.Context) ([]models.Excursion, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Excursion, error)
	Create(ctx context.Context, input CreateInput) (*models.Excursion, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Excursion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput captures the fields required to publish an excursion.
type CreateInput struct {
	Title          string
	Description    string
	Price          int64
	Currency       enums.Currency
	StartDate      time.Time
	AvailableSeats int
}

// UpdateInput carries optional corrections an admin may apply.
type UpdateInput struct {
	Title          *string
	Description    *string
	Price          *int64
	StartDate      *time.Time
	AvailableSeats *int
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the excursion catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("excursions repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context) ([]models.Excursion, error) {
	excursions, err := s.repo.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list excursions")
	}
	return excursions, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Excursion, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "excursion id required")
	}
	excursion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "excursion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load excursion")
	}
	return excursion, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Excursion, error) {
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.AvailableSeats < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available seats must be non-negative")
	}
	if input.StartDate.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must be in the future")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	excursion := &models.Excursion{
		Title:          input.Title,
		Description:    input.Description,
		Price:          input.Price,
		Currency:       currency,
		StartDate:      input.StartDate,
		AvailableSeats: input.AvailableSeats,
	}
	created, err := s.repo.Create(ctx, excursion)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create excursion")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Excursion, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "excursion id required")
	}

	updates := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		updates["price"] = *input.Price
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.AvailableSeats != nil {
		if *input.AvailableSeats < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available seats must be non-negative")
		}
		updates["available_seats"] = *input.AvailableSeats
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update excursion")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "excursion id required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete excursion")
	}
	return nil
}
