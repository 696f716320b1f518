package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/api/responses"
	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	"github.com/rutasur/rutasur-backend/pkg/logger"
)

type excursionResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Price          int64     `json:"price"`
	Currency       string    `json:"currency"`
	StartDate      time.Time `json:"start_date"`
	AvailableSeats int       `json:"available_seats"`
}

func newExcursionResponse(excursion *models.Excursion) excursionResponse {
	return excursionResponse{
		ID:             excursion.ID,
		Title:          excursion.Title,
		Description:    excursion.Description,
		Price:          excursion.Price,
		Currency:       string(excursion.Currency),
		StartDate:      excursion.StartDate,
		AvailableSeats: excursion.AvailableSeats,
	}
}

// ExcursionList returns upcoming excursions for the public catalog.
func ExcursionList(svc excursions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "excursions service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]excursionResponse, 0, len(list))
		for i := range list {
			out = append(out, newExcursionResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// ExcursionDetail returns one excursion by id.
func ExcursionDetail(svc excursions.Service, logg *logger.Logger) http.HandlerFunc {
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

		excursion, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newExcursionResponse(excursion))
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
