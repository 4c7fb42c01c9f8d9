package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikramrao-dev/tiffinbox-backend/internal/subscriptions"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/metrics"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/razorpay"
)

type fakeLedger struct {
	rows      map[uuid.UUID]*models.Subscription
	hasActive bool
	createErr error
	markCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[uuid.UUID]*models.Subscription)}
}

func (f *fakeLedger) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.hasActive, nil
}

func (f *fakeLedger) CreateDraft(ctx context.Context, input subscriptions.DraftInput) (*models.Subscription, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	subscription := &models.Subscription{
		ID:            uuid.New(),
		UserID:        input.OwnerID,
		Contact:       input.Contact,
		MealPlan:      input.MealPlan,
		Frequency:     input.Frequency,
		Quantity:      input.Quantity,
		StartDate:     input.StartDate,
		TotalDays:     input.TotalDays,
		TotalItems:    input.TotalItems,
		PricePerMeal:  input.PricePerMeal,
		Subtotal:      input.Subtotal,
		Discount:      input.Discount,
		TotalAmount:   input.TotalAmount,
		Status:        enums.SubscriptionStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
	}
	f.rows[subscription.ID] = subscription
	return subscription, nil
}

func (f *fakeLedger) MarkPaymentResult(ctx context.Context, id uuid.UUID, outcome enums.PaymentStatus, orderID, paymentID string) (*models.Subscription, bool, error) {
	f.markCalls++
	row, ok := f.rows[id]
	if !ok {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if row.PaymentStatus != enums.PaymentStatusPending {
		if row.PaymentStatus == outcome {
			return row, false, nil
		}
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "payment already settled with a different outcome")
	}
	row.PaymentStatus = outcome
	row.OrderID = &orderID
	row.PaymentID = &paymentID
	if outcome == enums.PaymentStatusCompleted {
		row.Status = enums.SubscriptionStatusActive
	}
	return row, true, nil
}

type fakeGateway struct {
	orderErr    error
	lastAmount  int64
	lastReceipt string
	validSig    string
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*razorpay.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.lastAmount = amountPaise
	f.lastReceipt = receipt
	return &razorpay.Order{ID: "order_test123", Amount: amountPaise, Currency: currency, Receipt: receipt}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == f.validSig
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

type fakeAddressBook struct {
	entries map[uuid.UUID]*models.DeliveryDetail
}

func (f *fakeAddressBook) Get(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.DeliveryDetail, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery details not found")
	}
	if entry.UserID != nil && *entry.UserID != actorID && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery details belong to another user")
	}
	return entry, nil
}

func newOrchestrator(t *testing.T) (Service, *fakeLedger, *fakeGateway, *fakeAddressBook) {
	t.Helper()
	ledger := newFakeLedger()
	gw := &fakeGateway{validSig: "good-signature"}
	book := &fakeAddressBook{entries: make(map[uuid.UUID]*models.DeliveryDetail)}
	svc, err := NewService(ServiceParams{
		Ledger:      ledger,
		Gateway:     gw,
		AddressBook: book,
		Metrics:     metrics.NewPaymentMetrics(nil),
		Logger:      logger.New(logger.Options{Level: logger.ParseLevel("error")}),
	})
	require.NoError(t, err)
	return svc, ledger, gw, book
}

func checkoutInput(owner *uuid.UUID) CreatePaymentInput {
	return CreatePaymentInput{
		OwnerID:      owner,
		Name:         "asha",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		Address:      "14 MG Road, Pune",
		MealPlan:     "veg-lunch",
		Frequency:    "Monday to Friday",
		Quantity:     1,
		StartDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		TotalDays:    30,
		TotalItems:   22,
		PricePerMeal: 120,
		Subtotal:     2640,
		Discount:     240,
		TotalAmount:  2400,
	}
}

func TestCreatePayment_Success(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(t)
	owner := uuid.New()

	result, err := svc.CreatePayment(context.Background(), checkoutInput(&owner))
	require.NoError(t, err)
	assert.Equal(t, "order_test123", result.OrderID)
	assert.Equal(t, "rzp_test_key", result.KeyID)
	assert.Equal(t, "INR", result.Currency)
	assert.Equal(t, int64(240000), result.Amount)
	assert.Equal(t, result.Subscription.ID.String(), gw.lastReceipt)
	assert.Equal(t, enums.FrequencyMonFri, result.Subscription.Frequency)
	assert.Equal(t, enums.SubscriptionStatusPending, result.Subscription.Status)
}

func TestCreatePayment_RoundsFractionalPaise(t *testing.T) {
	svc, _, gw, _ := newOrchestrator(t)

	input := checkoutInput(nil)
	input.Subtotal = 1099.99
	input.Discount = 0
	input.TotalAmount = 1099.99
	_, err := svc.CreatePayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(109999), gw.lastAmount)
}

func TestCreatePayment_UnsupportedFrequency(t *testing.T) {
	svc, _, _, _ := newOrchestrator(t)

	input := checkoutInput(nil)
	input.Frequency = "Weekends"
	_, err := svc.CreatePayment(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreatePayment_TotalMismatch(t *testing.T) {
	svc, _, _, _ := newOrchestrator(t)

	input := checkoutInput(nil)
	input.TotalAmount = 2300
	_, err := svc.CreatePayment(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreatePayment_TotalWithinTolerance(t *testing.T) {
	svc, _, _, _ := newOrchestrator(t)

	input := checkoutInput(nil)
	input.TotalAmount = 2400.01
	_, err := svc.CreatePayment(context.Background(), input)
	require.NoError(t, err)
}

func TestCreatePayment_ActiveOwnerBlocked(t *testing.T) {
	svc, ledger, _, _ := newOrchestrator(t)
	ledger.hasActive = true
	owner := uuid.New()

	_, err := svc.CreatePayment(context.Background(), checkoutInput(&owner))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCreatePayment_ActiveGuestNotBlocked(t *testing.T) {
	svc, ledger, _, _ := newOrchestrator(t)
	ledger.hasActive = true

	_, err := svc.CreatePayment(context.Background(), checkoutInput(nil))
	require.NoError(t, err)
}

func TestCreatePayment_GatewayFailureKeepsDraft(t *testing.T) {
	svc, ledger, gw, _ := newOrchestrator(t)
	gw.orderErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway unavailable")
	owner := uuid.New()

	_, err := svc.CreatePayment(context.Background(), checkoutInput(&owner))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	require.Len(t, ledger.rows, 1)
	for _, row := range ledger.rows {
		assert.Equal(t, enums.SubscriptionStatusPending, row.Status)
		assert.Equal(t, enums.PaymentStatusPending, row.PaymentStatus)
	}
}

func TestCreatePayment_StrangersDeliveryDetailsRejected(t *testing.T) {
	svc, _, _, book := newOrchestrator(t)
	owner := uuid.New()
	stranger := uuid.New()

	entryID := uuid.New()
	book.entries[entryID] = &models.DeliveryDetail{ID: entryID, UserID: &stranger}

	input := checkoutInput(&owner)
	input.DeliveryDetailsID = &entryID
	_, err := svc.CreatePayment(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestVerifyPayment_RequiresAllFields(t *testing.T) {
	svc, ledger, _, _ := newOrchestrator(t)

	_, err := svc.VerifyPayment(context.Background(), VerifyPaymentInput{
		SubscriptionID: uuid.New(),
		OrderID:        "order_1",
		PaymentID:      "pay_1",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, ledger.markCalls)
}

func TestVerifyPayment_ValidSignatureActivates(t *testing.T) {
	svc, _, _, _ := newOrchestrator(t)
	ctx := context.Background()
	owner := uuid.New()

	result, err := svc.CreatePayment(ctx, checkoutInput(&owner))
	require.NoError(t, err)

	subscription, err := svc.VerifyPayment(ctx, VerifyPaymentInput{
		SubscriptionID: result.Subscription.ID,
		OrderID:        result.OrderID,
		PaymentID:      "pay_1",
		Signature:      "good-signature",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, subscription.Status)
	assert.Equal(t, enums.PaymentStatusCompleted, subscription.PaymentStatus)
}

func TestVerifyPayment_BadSignatureMarksFailed(t *testing.T) {
	svc, ledger, _, _ := newOrchestrator(t)
	ctx := context.Background()
	owner := uuid.New()

	result, err := svc.CreatePayment(ctx, checkoutInput(&owner))
	require.NoError(t, err)

	_, err = svc.VerifyPayment(ctx, VerifyPaymentInput{
		SubscriptionID: result.Subscription.ID,
		OrderID:        result.OrderID,
		PaymentID:      "pay_1",
		Signature:      "forged",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePayment, pkgerrors.As(err).Code())

	stored := ledger.rows[result.Subscription.ID]
	assert.Equal(t, enums.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, enums.SubscriptionStatusPending, stored.Status)
}

func TestVerifyPayment_ReplayIsIdempotent(t *testing.T) {
	svc, ledger, _, _ := newOrchestrator(t)
	ctx := context.Background()
	owner := uuid.New()

	result, err := svc.CreatePayment(ctx, checkoutInput(&owner))
	require.NoError(t, err)

	callback := VerifyPaymentInput{
		SubscriptionID: result.Subscription.ID,
		OrderID:        result.OrderID,
		PaymentID:      "pay_1",
		Signature:      "good-signature",
	}
	first, err := svc.VerifyPayment(ctx, callback)
	require.NoError(t, err)
	replay, err := svc.VerifyPayment(ctx, callback)
	require.NoError(t, err)

	assert.Equal(t, first.Status, replay.Status)
	assert.Equal(t, first.PaymentStatus, replay.PaymentStatus)
	assert.Equal(t, 2, ledger.markCalls)
}

func TestVerifyPayment_FailedReplayIsIdempotent(t *testing.T) {
	svc, _, _, _ := newOrchestrator(t)
	ctx := context.Background()

	result, err := svc.CreatePayment(ctx, checkoutInput(nil))
	require.NoError(t, err)

	callback := VerifyPaymentInput{
		SubscriptionID: result.Subscription.ID,
		OrderID:        result.OrderID,
		PaymentID:      "pay_1",
		Signature:      "forged",
	}
	_, err = svc.VerifyPayment(ctx, callback)
	require.Error(t, err)
	firstCode := pkgerrors.As(err).Code()

	_, err = svc.VerifyPayment(ctx, callback)
	require.Error(t, err)
	assert.Equal(t, firstCode, pkgerrors.As(err).Code())
}
