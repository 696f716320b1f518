package controllers

import (
	"net/http"
	"time"

	"github.com/rutasur/rutasur-backend/api/responses"
	"github.com/rutasur/rutasur-backend/api/validators"
	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	"github.com/rutasur/rutasur-backend/pkg/logger"
)

type excursionCreateRequest struct {
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description"`
	Price          int64     `json:"price" validate:"required,min=0"`
	Currency       string    `json:"currency" validate:"omitempty,oneof=USD ARS UYU"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	AvailableSeats int       `json:"available_seats" validate:"min=0"`
}

type excursionUpdateRequest struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Price          *int64     `json:"price,omitempty" validate:"omitempty,min=0"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	AvailableSeats *int       `json:"available_seats,omitempty" validate:"omitempty,min=0"`
}

// AdminExcursionCreate publishes a new excursion.
func AdminExcursionCreate(svc excursions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "excursions service unavailable"))
			return
		}

		var payload excursionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), excursions.CreateInput{
			Title:          payload.Title,
			Description:    payload.Description,
			Price:          payload.Price,
			Currency:       enums.Currency(payload.Currency),
			StartDate:      payload.StartDate,
			AvailableSeats: payload.AvailableSeats,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newExcursionResponse(created))
	}
}

// AdminExcursionUpdate applies partial corrections to an excursion.
func AdminExcursionUpdate(svc excursions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "excursions service unavailable"))
			return
		}

		id, err := parseIDParam(r, "excursionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload excursionUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, excursions.UpdateInput{
			Title:          payload.Title,
			Description:    payload.Description,
			Price:          payload.Price,
			StartDate:      payload.StartDate,
			AvailableSeats: payload.AvailableSeats,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newExcursionResponse(updated))
	}
}

// AdminExcursionDelete removes an excursion from the catalog.
func AdminExcursionDelete(svc excursions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "excursions service unavailable"))
			return
		}

		id, err := parseIDParam(r, "excursionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
