package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/pagination"
)

// activeSubscriptionIndex is the partial unique index backing the
// one-active-subscription rule for registered owners.
const activeSubscriptionIndex = "uniq_active_subscription_per_user"

// Service is the subscription ledger: the single owner of lifecycle and
// payment-state transitions.
type Service interface {
	CreateDraft(ctx context.Context, input DraftInput) (*models.Subscription, error)
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
	MarkPaymentResult(ctx context.Context, id uuid.UUID, outcome enums.PaymentStatus, orderID, paymentID string) (*models.Subscription, bool, error)
	Get(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Subscription, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Subscription, error)
	Complete(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Subscription, error)
	ListAll(ctx context.Context, params ListParams) ([]models.Subscription, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo Repository
}

// DraftInput captures a purchase request before any money moves. OwnerID is
// nil for guest checkouts; Contact is always the snapshot submitted with the
// purchase.
type DraftInput struct {
	OwnerID           *uuid.UUID
	Contact           models.GuestContact
	DeliveryDetailsID *uuid.UUID

	MealPlan     string
	Frequency    enums.Frequency
	Quantity     int
	StartDate    time.Time
	TotalDays    int
	TotalItems   int
	PricePerMeal float64
	Subtotal     float64
	Discount     float64
	TotalAmount  float64
}

type service struct {
	repo Repository
}

// NewService builds the ledger service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repo required")
	}
	return &service{repo: params.Repo}, nil
}

// CreateDraft persists a Pending/pending row. For registered owners the
// active-subscription check here is advisory; the activation write is the
// authoritative guard.
func (s *service) CreateDraft(ctx context.Context, input DraftInput) (*models.Subscription, error) {
	if err := validateDraft(input); err != nil {
		return nil, err
	}

	if input.OwnerID != nil {
		active, err := s.repo.CountActiveByUser(ctx, *input.OwnerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active subscriptions")
		}
		if active > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists")
		}
	}

	subscription := &models.Subscription{
		UserID:            input.OwnerID,
		Contact:           input.Contact,
		DeliveryDetailsID: input.DeliveryDetailsID,
		MealPlan:          strings.TrimSpace(input.MealPlan),
		Frequency:         input.Frequency,
		Quantity:          input.Quantity,
		StartDate:         input.StartDate,
		TotalDays:         input.TotalDays,
		TotalItems:        input.TotalItems,
		PricePerMeal:      input.PricePerMeal,
		Subtotal:          input.Subtotal,
		Discount:          input.Discount,
		TotalAmount:       input.TotalAmount,
		Status:            enums.SubscriptionStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, subscription); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create subscription draft")
	}
	return subscription, nil
}

func (s *service) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	count, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active subscriptions")
	}
	return count > 0, nil
}

// MarkPaymentResult settles a pending payment with a terminal outcome. The
// returned bool reports whether this call performed the transition; a repeat
// of an already-applied outcome returns the stored row with false, so
// callbacks replay safely without duplicating side effects.
func (s *service) MarkPaymentResult(ctx context.Context, id uuid.UUID, outcome enums.PaymentStatus, orderID, paymentID string) (*models.Subscription, bool, error) {
	if !outcome.IsTerminal() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "payment outcome must be terminal")
	}

	affected, err := s.repo.MarkPaymentResult(ctx, id, outcome, orderID, paymentID)
	if err != nil {
		if db.IsUniqueViolation(err, activeSubscriptionIndex) {
			return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
	}

	subscription, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	if subscription == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if affected > 0 {
		return subscription, true, nil
	}

	// The guarded update matched nothing: the payment was already settled.
	// The same outcome is a replay; a different one is a real conflict.
	if subscription.PaymentStatus == outcome {
		return subscription, false, nil
	}
	return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "payment already settled with a different outcome").
		WithDetails(map[string]string{"paymentStatus": subscription.PaymentStatus.String()})
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Subscription, error) {
	subscription, err := s.loadExpanded(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(subscription, actorID, role); err != nil {
		return nil, err
	}
	return subscription, nil
}

// Cancel moves a Pending or Active subscription to Cancelled. Terminal rows
// are immutable.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.Subscription, error) {
	subscription, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(subscription, actorID, role); err != nil {
		return nil, err
	}

	affected, err := s.repo.UpdateStatus(ctx, id, enums.SubscriptionStatusCancelled, []enums.SubscriptionStatus{
		enums.SubscriptionStatusPending,
		enums.SubscriptionStatusActive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel subscription")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not cancellable").
			WithDetails(map[string]string{"status": subscription.Status.String()})
	}
	return s.load(ctx, id)
}

// Complete moves an Active subscription to Completed. Admin surface only.
func (s *service) Complete(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	subscription, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	affected, err := s.repo.UpdateStatus(ctx, id, enums.SubscriptionStatusCompleted, []enums.SubscriptionStatus{
		enums.SubscriptionStatusActive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete subscription")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only active subscriptions can be completed").
			WithDetails(map[string]string{"status": subscription.Status.String()})
	}
	return s.load(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Subscription, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	subscriptions, err := s.repo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	return subscriptions, nil
}

func (s *service) ListAll(ctx context.Context, params ListParams) ([]models.Subscription, *pagination.Cursor, error) {
	subscriptions, next, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list subscriptions")
	}
	return subscriptions, next, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete subscription")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	subscription, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return subscription, nil
}

func (s *service) loadExpanded(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	subscription, err := s.repo.GetByIDExpanded(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load subscription")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return subscription, nil
}

// authorize lets admins read and manage everything; owners only their own
// rows. Guest rows have no owner, so only admins reach them by ID.
func authorize(subscription *models.Subscription, actorID uuid.UUID, role enums.UserRole) error {
	if role == enums.UserRoleAdmin {
		return nil
	}
	if subscription.UserID != nil && actorID != uuid.Nil && *subscription.UserID == actorID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "subscription belongs to another user")
}

func validateDraft(input DraftInput) error {
	missing := []string{}
	if strings.TrimSpace(input.MealPlan) == "" {
		missing = append(missing, "mealPlan")
	}
	if !input.Frequency.IsValid() {
		missing = append(missing, "frequency")
	}
	if input.StartDate.IsZero() {
		missing = append(missing, "startDate")
	}
	if strings.TrimSpace(input.Contact.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Contact.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(input.Contact.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(input.Contact.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string][]string{"missing": missing})
	}

	if input.Quantity <= 0 || input.TotalDays <= 0 || input.TotalItems <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity, totalDays and totalItems must be positive")
	}
	if input.PricePerMeal <= 0 || input.TotalAmount <= 0 || input.Subtotal <= 0 || input.Discount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must be positive")
	}
	return nil
}
