package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vikramrao-dev/tiffinbox-backend/internal/subscriptions"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/metrics"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/razorpay"
)

// amountTolerance is the largest accepted drift between the submitted total
// and subtotal minus discount, in rupees.
var amountTolerance = decimal.NewFromFloat(0.01)

type ledger interface {
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateDraft(ctx context.Context, input subscriptions.DraftInput) (*models.Subscription, error)
	MarkPaymentResult(ctx context.Context, id uuid.UUID, outcome enums.PaymentStatus, orderID, paymentID string) (*models.Subscription, bool, error)
}

type gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type addressBook interface {
	Get(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.DeliveryDetail, error)
}

// Service coordinates purchase and verification between the ledger and the
// payment gateway. It never settles a payment on anything but a verified
// gateway signature.
type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*CheckoutResult, error)
	VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Subscription, error)
}

// ServiceParams groups dependencies for the payment orchestrator.
type ServiceParams struct {
	Ledger      ledger
	Gateway     gateway
	AddressBook addressBook
	Metrics     *metrics.PaymentMetrics
	Logger      *logger.Logger
}

// CreatePaymentInput is a purchase request. OwnerID is nil for guests, whose
// contact bundle then doubles as the owner identity snapshot.
type CreatePaymentInput struct {
	OwnerID           *uuid.UUID
	Name              string
	Email             string
	Phone             string
	Address           string
	DeliveryDetailsID *uuid.UUID

	MealPlan     string
	Frequency    string
	Quantity     int
	StartDate    time.Time
	TotalDays    int
	TotalItems   int
	PricePerMeal float64
	Subtotal     float64
	Discount     float64
	TotalAmount  float64
}

// CheckoutResult carries everything the client needs to open the gateway's
// checkout widget.
type CheckoutResult struct {
	Subscription *models.Subscription `json:"subscription"`
	OrderID      string               `json:"orderId"`
	Amount       int64                `json:"amount"`
	Currency     string               `json:"currency"`
	KeyID        string               `json:"keyId"`
}

// VerifyPaymentInput is the gateway callback relayed by the client. All four
// fields are required before any state is touched.
type VerifyPaymentInput struct {
	SubscriptionID uuid.UUID
	OrderID        string
	PaymentID      string
	Signature      string
}

type service struct {
	ledger      ledger
	gateway     gateway
	addressBook addressBook
	metrics     *metrics.PaymentMetrics
	logg        *logger.Logger
}

// NewService builds the payment orchestrator with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if params.AddressBook == nil {
		return nil, fmt.Errorf("address book required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		ledger:      params.Ledger,
		gateway:     params.Gateway,
		addressBook: params.AddressBook,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// CreatePayment validates the purchase, writes the draft, and opens a gateway
// order whose receipt is the subscription id. A gateway failure leaves the
// draft pending; retrying the purchase is safe.
func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CheckoutResult, error) {
	frequency, err := enums.ParseFrequency(input.Frequency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported frequency").
			WithDetails(map[string]string{"frequency": input.Frequency})
	}
	if err := validateAmounts(input); err != nil {
		return nil, err
	}

	if input.OwnerID != nil {
		active, err := s.ledger.HasActiveSubscription(ctx, *input.OwnerID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists")
		}
	}

	if input.DeliveryDetailsID != nil {
		if err := s.checkDeliveryDetails(ctx, input); err != nil {
			return nil, err
		}
	}

	draft, err := s.ledger.CreateDraft(ctx, subscriptions.DraftInput{
		OwnerID: input.OwnerID,
		Contact: models.GuestContact{
			Name:    strings.TrimSpace(input.Name),
			Email:   strings.TrimSpace(input.Email),
			Phone:   strings.TrimSpace(input.Phone),
			Address: strings.TrimSpace(input.Address),
		},
		DeliveryDetailsID: input.DeliveryDetailsID,
		MealPlan:          input.MealPlan,
		Frequency:         frequency,
		Quantity:          input.Quantity,
		StartDate:         input.StartDate,
		TotalDays:         input.TotalDays,
		TotalItems:        input.TotalItems,
		PricePerMeal:      input.PricePerMeal,
		Subtotal:          input.Subtotal,
		Discount:          input.Discount,
		TotalAmount:       input.TotalAmount,
	})
	if err != nil {
		return nil, err
	}

	paise := decimal.NewFromFloat(input.TotalAmount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	order, err := s.gateway.CreateOrder(ctx, paise, "INR", draft.ID.String())
	if err != nil {
		s.metrics.IncOrder("error")
		logCtx := s.logg.WithField(ctx, "subscription_id", draft.ID.String())
		s.logg.Error(logCtx, "gateway order creation failed", err)
		return nil, err
	}
	s.metrics.IncOrder("created")

	return &CheckoutResult{
		Subscription: draft,
		OrderID:      order.ID,
		Amount:       order.Amount,
		Currency:     order.Currency,
		KeyID:        s.gateway.KeyID(),
	}, nil
}

// VerifyPayment settles the draft from the gateway callback. The HMAC
// signature is the only accepted proof; a mismatch records a failed payment
// and returns a payment error. Both branches tolerate replays.
func (s *service) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*models.Subscription, error) {
	orderID := strings.TrimSpace(input.OrderID)
	paymentID := strings.TrimSpace(input.PaymentID)
	signature := strings.TrimSpace(input.Signature)
	if input.SubscriptionID == uuid.Nil || orderID == "" || paymentID == "" || signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId, paymentId, signature and subscriptionId are required")
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		subscription, transitioned, err := s.ledger.MarkPaymentResult(ctx, input.SubscriptionID, enums.PaymentStatusFailed, orderID, paymentID)
		if err != nil {
			return nil, err
		}
		if transitioned {
			s.metrics.IncVerification("failed")
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"subscription_id": input.SubscriptionID.String(),
				"order_id":        orderID,
			})
			s.logg.Warn(logCtx, "payment signature mismatch")
		}
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment verification failed").
			WithDetails(map[string]string{"subscriptionId": subscription.ID.String()})
	}

	subscription, transitioned, err := s.ledger.MarkPaymentResult(ctx, input.SubscriptionID, enums.PaymentStatusCompleted, orderID, paymentID)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.metrics.IncVerification("completed")
		s.metrics.IncActivation()
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"subscription_id": subscription.ID.String(),
			"order_id":        orderID,
		})
		s.logg.Info(logCtx, "subscription activated")
	}
	return subscription, nil
}

func (s *service) checkDeliveryDetails(ctx context.Context, input CreatePaymentInput) error {
	actorID := uuid.Nil
	role := enums.UserRoleCustomer
	if input.OwnerID != nil {
		actorID = *input.OwnerID
	}
	entry, err := s.addressBook.Get(ctx, *input.DeliveryDetailsID, actorID, role)
	if err != nil {
		return err
	}
	if input.OwnerID == nil && entry.UserID != nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery details belong to another user")
	}
	return nil
}

func validateAmounts(input CreatePaymentInput) error {
	if input.Quantity <= 0 || input.TotalDays <= 0 || input.TotalItems <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity, totalDays and totalItems must be positive")
	}
	if input.PricePerMeal <= 0 || input.Subtotal <= 0 || input.TotalAmount <= 0 || input.Discount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must be positive")
	}

	total := decimal.NewFromFloat(input.TotalAmount)
	expected := decimal.NewFromFloat(input.Subtotal).Sub(decimal.NewFromFloat(input.Discount))
	if total.Sub(expected).Abs().GreaterThan(amountTolerance) {
		return pkgerrors.New(pkgerrors.CodeValidation, "totalAmount does not match subtotal minus discount").
			WithDetails(map[string]string{
				"totalAmount": total.StringFixed(2),
				"expected":    expected.StringFixed(2),
			})
	}
	return nil
}
