package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vikramrao-dev/tiffinbox-backend/api/responses"
	"github.com/vikramrao-dev/tiffinbox-backend/internal/subscriptions"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/logger"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/pagination"
)

type adminSubscriptionsPage struct {
	Items      []subscriptions.AdminSubscription `json:"items"`
	NextCursor string                            `json:"nextCursor,omitempty"`
}

// AdminListSubscriptions returns the expanded dashboard listing with owner
// and delivery info, cursor paginated.
func AdminListSubscriptions(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		params := subscriptions.ListParams{}

		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}

		if cursorStr := strings.TrimSpace(r.URL.Query().Get("cursor")); cursorStr != "" {
			cursor, err := pagination.ParseCursor(cursorStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
				return
			}
			params.Cursor = cursor
		}

		if statusStr := strings.TrimSpace(r.URL.Query().Get("status")); statusStr != "" {
			status, err := enums.ParseSubscriptionStatus(statusStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		if paymentStr := strings.TrimSpace(r.URL.Query().Get("paymentStatus")); paymentStr != "" {
			paymentStatus, err := enums.ParsePaymentStatus(paymentStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paymentStatus"))
				return
			}
			params.PaymentStatus = &paymentStatus
		}

		items, next, err := svc.ListAll(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := adminSubscriptionsPage{Items: subscriptions.ToAdminSubscriptions(items)}
		if next != nil {
			page.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminCompleteSubscription marks an active subscription as completed.
func AdminCompleteSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
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

		subscription, err := svc.Complete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscription)
	}
}

// AdminDeleteSubscription removes a subscription record entirely.
func AdminDeleteSubscription(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
