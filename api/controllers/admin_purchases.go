package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rutasur/rutasur-backend/api/responses"
	"github.com/rutasur/rutasur-backend/api/validators"
	"github.com/rutasur/rutasur-backend/internal/purchases"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	"github.com/rutasur/rutasur-backend/pkg/logger"
)

type purchaseResponse struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	ExcursionID     uuid.UUID         `json:"excursion_id"`
	NumberOfPeople  int               `json:"number_of_people"`
	PaymentType     string            `json:"payment_type"`
	TotalAmount     int64             `json:"total_amount"`
	AmountPaid      int64             `json:"amount_paid"`
	Status          string            `json:"status"`
	RefundStatus    string            `json:"refund_status"`
	StripeSessionID *string           `json:"stripe_session_id,omitempty"`
	StripePaymentID *string           `json:"stripe_payment_id,omitempty"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	Payments        []paymentResponse `json:"payments"`
}

type paymentResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      int64     `json:"amount"`
	PaymentType string    `json:"payment_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPurchaseResponse(purchase *models.Purchase) purchaseResponse {
	payments := make([]paymentResponse, 0, len(purchase.Payments))
	for _, payment := range purchase.Payments {
		payments = append(payments, paymentResponse{
			ID:          payment.ID,
			Amount:      payment.Amount,
			PaymentType: string(payment.PaymentType),
			Status:      string(payment.Status),
			CreatedAt:   payment.CreatedAt,
		})
	}
	return purchaseResponse{
		ID:              purchase.ID,
		UserID:          purchase.UserID,
		ExcursionID:     purchase.ExcursionID,
		NumberOfPeople:  purchase.NumberOfPeople,
		PaymentType:     string(purchase.PaymentType),
		TotalAmount:     purchase.TotalAmount,
		AmountPaid:      purchase.AmountPaid,
		Status:          string(purchase.Status),
		RefundStatus:    string(purchase.RefundStatus),
		StripeSessionID: purchase.StripeSessionID,
		StripePaymentID: purchase.StripePaymentID,
		ExpiresAt:       purchase.ExpiresAt,
		Payments:        payments,
	}
}

// AdminPurchaseList returns every purchase with its payments.
func AdminPurchaseList(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]purchaseResponse, 0, len(list))
		for i := range list {
			out = append(out, newPurchaseResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminPurchaseDetail returns one purchase with its payment history.
func AdminPurchaseDetail(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := parseIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchase, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPurchaseResponse(purchase))
	}
}

type purchaseUpdateRequest struct {
	Status    *string    `json:"status,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AdminPurchaseUpdate applies status or expiry corrections.
func AdminPurchaseUpdate(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := parseIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload purchaseUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := purchases.UpdateInput{ExpiresAt: payload.ExpiresAt}
		if payload.Status != nil {
			status := enums.PurchaseStatus(*payload.Status)
			input.Status = &status
		}

		updated, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPurchaseResponse(updated))
	}
}

// AdminPurchaseDelete removes a purchase with no recorded payments.
func AdminPurchaseDelete(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := parseIDParam(r, "purchaseId")
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

type manualPaymentRequest struct {
	Amount      int64  `json:"amount" validate:"required,min=1"`
	PaymentType string `json:"payment_type" validate:"required,oneof=deposit remaining full"`
}

// AdminPurchaseAddPayment records money collected outside the processor.
func AdminPurchaseAddPayment(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := parseIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload manualPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied, err := svc.AddManualPayment(r.Context(), id, purchases.ManualPaymentInput{
			Amount:      payload.Amount,
			PaymentType: enums.PaymentType(payload.PaymentType),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPurchaseResponse(applied))
	}
}

// AdminPaymentDelete removes a pending payment row.
func AdminPaymentDelete(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := parseIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePayment(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminPurchaseRefund asks the processor to refund the settled payment. The
// refunded terminal state lands via the charge.refunded webhook.
func AdminPurchaseRefund(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchases service unavailable"))
			return
		}

		id, err := parseIDParam(r, "purchaseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RequestRefund(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"refund_status": string(enums.RefundStatusRequested)})
	}
}
