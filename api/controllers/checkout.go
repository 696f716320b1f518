package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/api/middleware"
	"github.com/rutasur/rutasur-backend/api/responses"
	"github.com/rutasur/rutasur-backend/api/validators"
	checkoutsvc "github.com/rutasur/rutasur-backend/internal/checkout"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	"github.com/rutasur/rutasur-backend/pkg/logger"
)

type checkoutRequest struct {
	ExcursionID    uuid.UUID `json:"excursion_id" validate:"required"`
	PaymentType    string    `json:"payment_type" validate:"required,oneof=deposit full"`
	TotalAmount    int64     `json:"total_amount" validate:"required,min=1"`
	AmountToPay    int64     `json:"amount_to_pay" validate:"required,min=1"`
	NumberOfPeople int       `json:"number_of_people" validate:"required,min=1"`
}

// Checkout opens a Stripe Checkout Session for the authenticated customer.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateSession(r.Context(), checkoutsvc.CreateSessionInput{
			UserID:         userID,
			ExcursionID:    payload.ExcursionID,
			PaymentType:    payload.PaymentType,
			TotalAmount:    payload.TotalAmount,
			AmountToPay:    payload.AmountToPay,
			NumberOfPeople: payload.NumberOfPeople,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}
