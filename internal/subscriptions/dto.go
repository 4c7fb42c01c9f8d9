package subscriptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
)

// AdminOwner is the owner summary shown on the dashboard. Guest rows surface
// the purchase-time contact snapshot instead.
type AdminOwner struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Phone string     `json:"phone"`
	Guest bool       `json:"guest"`
}

// AdminSubscription is the expanded dashboard row: the stored subscription
// plus derived schedule fields and the resolved owner and delivery address.
type AdminSubscription struct {
	models.Subscription

	OwnerSummary  AdminOwner `json:"ownerSummary"`
	EndDate       time.Time  `json:"endDate"`
	RemainingDays int        `json:"remainingDays"`
	Address       string     `json:"deliveryAddress"`
}

// ToAdminSubscription derives the dashboard shape for one row.
func ToAdminSubscription(s models.Subscription, now time.Time) AdminSubscription {
	owner := AdminOwner{
		Name:  s.Contact.Name,
		Email: s.Contact.Email,
		Phone: s.Contact.Phone,
		Guest: s.IsGuest(),
	}
	if s.Owner != nil {
		id := s.Owner.ID
		owner.ID = &id
		owner.Name = s.Owner.Name
		owner.Email = s.Owner.Email
		owner.Phone = s.Owner.Phone
	}

	address := s.Contact.Address
	if s.DeliveryDetail != nil {
		address = s.DeliveryDetail.Address
	}

	return AdminSubscription{
		Subscription:  s,
		OwnerSummary:  owner,
		EndDate:       s.EndDate(),
		RemainingDays: s.RemainingDays(now),
		Address:       address,
	}
}

// ToAdminSubscriptions maps a page of rows.
func ToAdminSubscriptions(items []models.Subscription) []AdminSubscription {
	now := time.Now().UTC()
	out := make([]AdminSubscription, 0, len(items))
	for _, item := range items {
		out = append(out, ToAdminSubscription(item, now))
	}
	return out
}
