package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rutasur/rutasur-backend/api/middleware"
	checkoutsvc "github.com/rutasur/rutasur-backend/internal/checkout"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
	"github.com/rutasur/rutasur-backend/pkg/types"
)

type stubCheckoutService struct {
	lastInput checkoutsvc.CreateSessionInput
	session   *checkoutsvc.Session
	err       error
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, input checkoutsvc.CreateSessionInput) (*checkoutsvc.Session, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func checkoutBody(t *testing.T, excursionID uuid.UUID) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"excursion_id":     excursionID,
		"payment_type":     "full",
		"total_amount":     1000,
		"amount_to_pay":    1000,
		"number_of_people": 2,
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestCheckoutCreatesSession(t *testing.T) {
	svc := &stubCheckoutService{
		session: &checkoutsvc.Session{SessionID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"},
	}
	handler := Checkout(svc, nil)

	userID := uuid.New()
	excursionID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody(t, excursionID))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, userID, svc.lastInput.UserID)
	assert.Equal(t, excursionID, svc.lastInput.ExcursionID)
	assert.Equal(t, int64(1000), svc.lastInput.TotalAmount)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cs_test_123", data["session_id"])
}

func TestCheckoutRequiresAuthenticatedUser(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody(t, uuid.New()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutRejectsBadBody(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	cases := map[string]string{
		"not json":        "{",
		"unknown field":   `{"excursion_id":"` + uuid.NewString() + `","payment_type":"full","total_amount":1000,"amount_to_pay":1000,"number_of_people":2,"extra":true}`,
		"bad payment":     fmt.Sprintf(`{"excursion_id":%q,"payment_type":"maybe","total_amount":1000,"amount_to_pay":1000,"number_of_people":2}`, uuid.NewString()),
		"zero people":     fmt.Sprintf(`{"excursion_id":%q,"payment_type":"full","total_amount":1000,"amount_to_pay":1000,"number_of_people":0}`, uuid.NewString()),
		"missing amounts": fmt.Sprintf(`{"excursion_id":%q,"payment_type":"full","number_of_people":2}`, uuid.NewString()),
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader([]byte(body)))
			req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCheckoutSoldOutMessageSurfaces(t *testing.T) {
	svc := &stubCheckoutService{
		err: pkgerrors.New(pkgerrors.CodeValidation, checkoutsvc.MsgNoSeats),
	}
	handler := Checkout(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", checkoutBody(t, uuid.New()))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, checkoutsvc.MsgNoSeats, envelope.Error.Message)
}
