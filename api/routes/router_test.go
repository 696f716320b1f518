package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/rutasur/rutasur-backend/internal/checkout"
	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/internal/purchases"
	pkgauth "github.com/rutasur/rutasur-backend/pkg/auth"
	"github.com/rutasur/rutasur-backend/pkg/config"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
)

type fixedExcursionsService struct{}

func (fixedExcursionsService) List(ctx context.Context) ([]models.Excursion, error) {
	return []models.Excursion{}, nil
}

func (fixedExcursionsService) Get(ctx context.Context, id uuid.UUID) (*models.Excursion, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "excursion not found")
}

func (fixedExcursionsService) Create(ctx context.Context, input excursions.CreateInput) (*models.Excursion, error) {
	return &models.Excursion{ID: uuid.New(), Title: input.Title}, nil
}

func (fixedExcursionsService) Update(ctx context.Context, id uuid.UUID, input excursions.UpdateInput) (*models.Excursion, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "excursion not found")
}

func (fixedExcursionsService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

type fixedCheckoutService struct{}

func (fixedCheckoutService) CreateSession(ctx context.Context, input checkoutsvc.CreateSessionInput) (*checkoutsvc.Session, error) {
	return &checkoutsvc.Session{SessionID: "cs_test_1", URL: "https://example.test"}, nil
}

type fixedPurchasesService struct{}

func (fixedPurchasesService) List(ctx context.Context) ([]models.Purchase, error) {
	return []models.Purchase{}, nil
}

func (fixedPurchasesService) Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
}

func (fixedPurchasesService) Update(ctx context.Context, id uuid.UUID, input purchases.UpdateInput) (*models.Purchase, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
}

func (fixedPurchasesService) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (fixedPurchasesService) AddManualPayment(ctx context.Context, purchaseID uuid.UUID, input purchases.ManualPaymentInput) (*models.Purchase, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
}

func (fixedPurchasesService) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	return nil
}

func (fixedPurchasesService) RequestRefund(ctx context.Context, purchaseID uuid.UUID) error {
	return nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{
		Secret:            "router-secret",
		Issuer:            "rutasur-test",
		ExpirationMinutes: 15,
	}
	return NewRouter(RouterParams{
		Config:            cfg,
		ExcursionsService: fixedExcursionsService{},
		CheckoutService:   fixedCheckoutService{},
		PurchasesService:  fixedPurchasesService{},
	})
}

func bearerFor(t *testing.T, cfg config.JWTConfig, role enums.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterPublicCatalog(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/excursions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterCheckoutRequiresToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminRequiresAdminRole(t *testing.T) {
	router := testRouter(t)
	cfg := config.JWTConfig{
		Secret:            "router-secret",
		Issuer:            "rutasur-test",
		ExpirationMinutes: 15,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/purchases", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, enums.RoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/purchases", nil)
	req.Header.Set("Authorization", bearerFor(t, cfg, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
