package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vikramrao-dev/tiffinbox-backend/api/responses"
	"github.com/vikramrao-dev/tiffinbox-backend/api/validators"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/payments"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/subscriptions"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
)

type createPaymentRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`

	MealPlan     string    `json:"mealPlan" validate:"required"`
	Frequency    string    `json:"frequency" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
	StartDate    time.Time `json:"startDate" validate:"required"`
	TotalDays    int       `json:"totalDays" validate:"required,gt=0"`
	TotalItems   int       `json:"totalItems" validate:"required,gt=0"`
	PricePerMeal float64   `json:"pricePerMeal" validate:"required,gt=0"`
	Subtotal     float64   `json:"subtotal" validate:"required,gt=0"`
	Discount     float64   `json:"discount" validate:"gte=0"`
	TotalAmount  float64   `json:"totalAmount" validate:"required,gt=0"`

	DeliveryDetailsID *uuid.UUID `json:"deliveryDetailsId,omitempty"`
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	SubscriptionID    string `json:"subscriptionId" validate:"required,uuid"`
}

// CreatePayment starts a purchase for a registered or guest buyer and returns
// the gateway checkout bundle.
func CreatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var ownerID *uuid.UUID
		if actorID, _ := actorFromContext(r.Context()); actorID != uuid.Nil {
			ownerID = &actorID
		}

		result, err := svc.CreatePayment(r.Context(), payments.CreatePaymentInput{
			OwnerID:           ownerID,
			Name:              body.Name,
			Email:             body.Email,
			Phone:             body.Phone,
			Address:           body.Address,
			DeliveryDetailsID: body.DeliveryDetailsID,
			MealPlan:          body.MealPlan,
			Frequency:         body.Frequency,
			Quantity:          body.Quantity,
			StartDate:         body.StartDate,
			TotalDays:         body.TotalDays,
			TotalItems:        body.TotalItems,
			PricePerMeal:      body.PricePerMeal,
			Subtotal:          body.Subtotal,
			Discount:          body.Discount,
			TotalAmount:       body.TotalAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// VerifyPayment settles a purchase from the gateway callback fields.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var body verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriptionID, err := uuid.Parse(body.SubscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscriptionId"))
			return
		}

		subscription, err := svc.VerifyPayment(r.Context(), payments.VerifyPaymentInput{
			SubscriptionID: subscriptionID,
			OrderID:        body.RazorpayOrderID,
			PaymentID:      body.RazorpayPaymentID,
			Signature:      body.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscription)
	}
}

// ListMySubscriptions returns the authenticated owner's subscriptions.
func ListMySubscriptions(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		actorID, _, err := requireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByOwner(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetSubscription returns a single subscription for its owner or an admin.
func GetSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, role, err := requireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscription, err := svc.Get(r.Context(), id, actorID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscription)
	}
}

// CancelSubscription cancels a pending or active subscription.
func CancelSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, role, err := requireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscription, err := svc.Cancel(r.Context(), id, actorID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscription)
	}
}
