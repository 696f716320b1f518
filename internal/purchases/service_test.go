package purchases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rutasur/rutasur-backend/internal/excursions"
	"github.com/rutasur/rutasur-backend/pkg/db/models"
	"github.com/rutasur/rutasur-backend/pkg/enums"
	pkgerrors "github.com/rutasur/rutasur-backend/pkg/errors"
)

type stubPurchasesRepo struct {
	purchases map[uuid.UUID]*models.Purchase
	payments  map[uuid.UUID]*models.Payment
	events    map[string]bool
}

func newStubPurchasesRepo() *stubPurchasesRepo {
	return &stubPurchasesRepo{
		purchases: map[uuid.UUID]*models.Purchase{},
		payments:  map[uuid.UUID]*models.Payment{},
		events:    map[string]bool{},
	}
}

func (s *stubPurchasesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPurchasesRepo) CreatePurchase(ctx context.Context, p *models.Purchase) (*models.Purchase, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.purchases[p.ID] = p
	return p, nil
}

func (s *stubPurchasesRepo) FindPurchaseByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	p, ok := s.purchases[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	clone.Payments = nil
	for _, payment := range s.payments {
		if payment.PurchaseID == id {
			clone.Payments = append(clone.Payments, *payment)
		}
	}
	return &clone, nil
}

func (s *stubPurchasesRepo) FindPurchaseBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error) {
	for _, p := range s.purchases {
		if p.StripeSessionID != nil && *p.StripeSessionID == sessionID {
			return s.FindPurchaseByID(ctx, p.ID)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPurchasesRepo) FindPurchaseByStripePaymentID(ctx context.Context, paymentID string) (*models.Purchase, error) {
	for _, p := range s.purchases {
		if p.StripePaymentID != nil && *p.StripePaymentID == paymentID {
			return s.FindPurchaseByID(ctx, p.ID)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPurchasesRepo) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	var out []models.Purchase
	for id := range s.purchases {
		p, _ := s.FindPurchaseByID(ctx, id)
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubPurchasesRepo) UpdatePurchase(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	p, ok := s.purchases[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			if v, ok := value.(enums.PurchaseStatus); ok {
				p.Status = v
			}
		case "refund_status":
			if v, ok := value.(enums.RefundStatus); ok {
				p.RefundStatus = v
			}
		}
	}
	return nil
}

func (s *stubPurchasesRepo) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	delete(s.purchases, id)
	return nil
}

func (s *stubPurchasesRepo) AddAmountPaidClamped(ctx context.Context, id uuid.UUID, amount int64) error {
	p, ok := s.purchases[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.AmountPaid += amount
	if p.AmountPaid > p.TotalAmount {
		p.AmountPaid = p.TotalAmount
	}
	return nil
}

func (s *stubPurchasesRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments[payment.ID] = payment
	return payment, nil
}

func (s *stubPurchasesRepo) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := s.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (s *stubPurchasesRepo) DeletePayment(ctx context.Context, id uuid.UUID) error {
	delete(s.payments, id)
	return nil
}

func (s *stubPurchasesRepo) CountSucceededPayments(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	var count int64
	for _, payment := range s.payments {
		if payment.PurchaseID == purchaseID && payment.Status == enums.PaymentStatusSucceeded {
			count++
		}
	}
	return count, nil
}

func (s *stubPurchasesRepo) MarkSucceededPaymentsRefunded(ctx context.Context, purchaseID uuid.UUID) error {
	for _, payment := range s.payments {
		if payment.PurchaseID == purchaseID && payment.Status == enums.PaymentStatusSucceeded {
			payment.Status = enums.PaymentStatusRefunded
		}
	}
	return nil
}

func (s *stubPurchasesRepo) CreateProcessedEvent(ctx context.Context, event *models.ProcessedEvent) error {
	if s.events[event.EventID] {
		return errors.New(`duplicate key value violates unique constraint "idx_processed_events_event_id"`)
	}
	s.events[event.EventID] = true
	return nil
}

type stubSeatsRepo struct {
	seats      map[uuid.UUID]int
	decrements int
	increments int
}

func newStubSeatsRepo() *stubSeatsRepo {
	return &stubSeatsRepo{seats: map[uuid.UUID]int{}}
}

func (s *stubSeatsRepo) WithTx(tx *gorm.DB) excursions.Repository { return s }

func (s *stubSeatsRepo) Create(ctx context.Context, e *models.Excursion) (*models.Excursion, error) {
	panic("not implemented")
}

func (s *stubSeatsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubSeatsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubSeatsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Excursion, error) {
	seats, ok := s.seats[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Excursion{ID: id, AvailableSeats: seats}, nil
}

func (s *stubSeatsRepo) ListUpcoming(ctx context.Context, after time.Time) ([]models.Excursion, error) {
	panic("not implemented")
}

func (s *stubSeatsRepo) DecrementSeat(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.seats[id] <= 0 {
		return false, nil
	}
	s.seats[id]--
	s.decrements++
	return true, nil
}

func (s *stubSeatsRepo) IncrementSeat(ctx context.Context, id uuid.UUID) error {
	s.seats[id]++
	s.increments++
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProcessor struct {
	refunds  []string
	sessions int
	err      error
}

func (s *stubProcessor) CreateCheckoutSession(ctx context.Context, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sessions++
	return &stripeapi.CheckoutSession{ID: "cs_test_stub", URL: "https://stripe.test/session"}, nil
}

func (s *stubProcessor) CreateRefund(ctx context.Context, params *stripeapi.RefundParams) (*stripeapi.Refund, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.refunds = append(s.refunds, stripeapi.StringValue(params.PaymentIntent))
	return &stripeapi.Refund{ID: "re_test_stub"}, nil
}

func newTestService(t *testing.T, repo Repository, seats excursions.Repository, processor *stubProcessor) Service {
	t.Helper()
	svc, err := NewService(repo, seats, stubTxRunner{}, processor)
	require.NoError(t, err)
	return svc
}

func seedPurchase(repo *stubPurchasesRepo, seats *stubSeatsRepo, total int64, availableSeats int) *models.Purchase {
	excursionID := uuid.New()
	seats.seats[excursionID] = availableSeats
	sessionID := "cs_test_" + uuid.NewString()
	paymentID := "pi_test_" + uuid.NewString()
	purchase := &models.Purchase{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		ExcursionID:     excursionID,
		NumberOfPeople:  2,
		PaymentType:     enums.PaymentTypeFull,
		TotalAmount:     total,
		Status:          enums.PurchaseStatusPending,
		RefundStatus:    enums.RefundStatusNone,
		StripeSessionID: &sessionID,
		StripePaymentID: &paymentID,
	}
	repo.purchases[purchase.ID] = purchase
	return purchase
}

func assertServiceCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	var coded *pkgerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, code, coded.Code())
}

func TestApplyPaymentFullSettlement(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	purchase := seedPurchase(repo, seats, 1000, 3)
	ctx := context.Background()

	eventID := "evt_1"
	applied, err := ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:    purchase.ID,
		Amount:        1000,
		PaymentType:   enums.PaymentTypeFull,
		StripeEventID: &eventID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PurchaseStatusPaid, applied.Status)
	assert.Equal(t, int64(1000), applied.AmountPaid)
	assert.Len(t, applied.Payments, 1)
	assert.Equal(t, 2, seats.seats[purchase.ExcursionID], "first payment takes one seat")
}

func TestApplyPaymentDepositReserves(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	purchase := seedPurchase(repo, seats, 1000, 3)
	ctx := context.Background()

	applied, err := ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:  purchase.ID,
		Amount:      300,
		PaymentType: enums.PaymentTypeDeposit,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PurchaseStatusReserved, applied.Status)
	assert.Equal(t, int64(300), applied.AmountPaid)
	assert.Equal(t, 2, seats.seats[purchase.ExcursionID])

	// The remaining balance settles without touching inventory again.
	applied, err = ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:  purchase.ID,
		Amount:      700,
		PaymentType: enums.PaymentTypeRemaining,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PurchaseStatusPaid, applied.Status)
	assert.Equal(t, int64(1000), applied.AmountPaid)
	assert.Equal(t, 2, seats.seats[purchase.ExcursionID], "second payment must not take a seat")
}

func TestApplyPaymentClampsOverpayment(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	purchase := seedPurchase(repo, seats, 1000, 3)
	ctx := context.Background()

	applied, err := ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:  purchase.ID,
		Amount:      2500,
		PaymentType: enums.PaymentTypeFull,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), applied.AmountPaid, "amount_paid never exceeds total_amount")
	assert.Equal(t, enums.PurchaseStatusPaid, applied.Status)
}

// racingSettlementRepo commits a concurrent settlement at the moment the
// clamped amount_paid update acquires the purchase row lock, the interleaving
// an admin manual payment and a webhook delivery can produce on the same
// purchase.
type racingSettlementRepo struct {
	*stubPurchasesRepo
	seats *stubSeatsRepo
	raced bool
}

func (r *racingSettlementRepo) AddAmountPaidClamped(ctx context.Context, id uuid.UUID, amount int64) error {
	if !r.raced {
		r.raced = true
		other := &models.Payment{
			ID:          uuid.New(),
			PurchaseID:  id,
			Amount:      300,
			PaymentType: enums.PaymentTypeDeposit,
			Status:      enums.PaymentStatusSucceeded,
		}
		r.stubPurchasesRepo.payments[other.ID] = other
		if err := r.stubPurchasesRepo.AddAmountPaidClamped(ctx, id, other.Amount); err != nil {
			return err
		}
		if _, err := r.seats.DecrementSeat(ctx, r.stubPurchasesRepo.purchases[id].ExcursionID); err != nil {
			return err
		}
	}
	return r.stubPurchasesRepo.AddAmountPaidClamped(ctx, id, amount)
}

func TestApplyPaymentConcurrentSettlementTakesOneSeat(t *testing.T) {
	base := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	purchase := seedPurchase(base, seats, 1000, 3)
	repo := &racingSettlementRepo{stubPurchasesRepo: base, seats: seats}
	ctx := context.Background()

	applied, err := ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:  purchase.ID,
		Amount:      700,
		PaymentType: enums.PaymentTypeRemaining,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PurchaseStatusPaid, applied.Status)
	assert.Equal(t, int64(1000), applied.AmountPaid)
	assert.Equal(t, 1, seats.decrements, "one booking consumes exactly one seat")
	assert.Equal(t, 2, seats.seats[purchase.ExcursionID])
}

func TestApplyPaymentValidation(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	ctx := context.Background()

	_, err := ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:  uuid.New(),
		Amount:      0,
		PaymentType: enums.PaymentTypeFull,
	})
	assertServiceCode(t, err, pkgerrors.CodeValidation)

	_, err = ApplyPayment(ctx, repo, seats, ApplyPaymentInput{
		PurchaseID:  uuid.New(),
		Amount:      100,
		PaymentType: enums.PaymentTypeFull,
	})
	assertServiceCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceDeleteGuardsPayments(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	processor := &stubProcessor{}
	svc := newTestService(t, repo, seats, processor)
	ctx := context.Background()

	purchase := seedPurchase(repo, seats, 1000, 3)
	_, err := repo.CreatePayment(ctx, &models.Payment{
		PurchaseID: purchase.ID,
		Amount:     300,
		Status:     enums.PaymentStatusSucceeded,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, purchase.ID)
	assertServiceCode(t, err, pkgerrors.CodeConflict)
	_, stillThere := repo.purchases[purchase.ID]
	assert.True(t, stillThere, "purchase row must stay intact")

	empty := seedPurchase(repo, seats, 500, 3)
	require.NoError(t, svc.Delete(ctx, empty.ID))
}

func TestServiceDeletePaymentOnlyPending(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	svc := newTestService(t, repo, seats, &stubProcessor{})
	ctx := context.Background()

	purchase := seedPurchase(repo, seats, 1000, 3)
	pending, err := repo.CreatePayment(ctx, &models.Payment{
		PurchaseID: purchase.ID,
		Amount:     100,
		Status:     enums.PaymentStatusPending,
	})
	require.NoError(t, err)
	settled, err := repo.CreatePayment(ctx, &models.Payment{
		PurchaseID: purchase.ID,
		Amount:     100,
		Status:     enums.PaymentStatusSucceeded,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePayment(ctx, pending.ID))

	err = svc.DeletePayment(ctx, settled.ID)
	assertServiceCode(t, err, pkgerrors.CodeConflict)
}

func TestServiceAddManualPaymentSharesApplyPath(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	svc := newTestService(t, repo, seats, &stubProcessor{})
	ctx := context.Background()

	purchase := seedPurchase(repo, seats, 1000, 3)

	applied, err := svc.AddManualPayment(ctx, purchase.ID, ManualPaymentInput{
		Amount:      1000,
		PaymentType: enums.PaymentTypeFull,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusPaid, applied.Status)
	assert.Equal(t, 2, seats.seats[purchase.ExcursionID])
}

func TestServiceRequestRefund(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	processor := &stubProcessor{}
	svc := newTestService(t, repo, seats, processor)
	ctx := context.Background()

	purchase := seedPurchase(repo, seats, 1000, 3)

	require.NoError(t, svc.RequestRefund(ctx, purchase.ID))
	require.Len(t, processor.refunds, 1)
	assert.Equal(t, *purchase.StripePaymentID, processor.refunds[0])
	assert.Equal(t, enums.RefundStatusRequested, repo.purchases[purchase.ID].RefundStatus)

	err := svc.RequestRefund(ctx, purchase.ID)
	assertServiceCode(t, err, pkgerrors.CodeConflict)
}

func TestServiceUpdateValidatesStatus(t *testing.T) {
	repo := newStubPurchasesRepo()
	seats := newStubSeatsRepo()
	svc := newTestService(t, repo, seats, &stubProcessor{})
	ctx := context.Background()

	purchase := seedPurchase(repo, seats, 1000, 3)

	bad := enums.PurchaseStatus("unknown")
	_, err := svc.Update(ctx, purchase.ID, UpdateInput{Status: &bad})
	assertServiceCode(t, err, pkgerrors.CodeValidation)

	cancelled := enums.PurchaseStatusCancelled
	updated, err := svc.Update(ctx, purchase.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseStatusCancelled, updated.Status)
}
