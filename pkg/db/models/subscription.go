package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
)

// GuestContact is the contact snapshot stored for guest checkouts. For
// registered owners it is an audit copy of the details submitted at purchase.
type GuestContact struct {
	Name    string `gorm:"column:contact_name" json:"name"`
	Email   string `gorm:"column:contact_email" json:"email"`
	Phone   string `gorm:"column:contact_phone" json:"phone"`
	Address string `gorm:"column:contact_address" json:"address"`
}

// Subscription is the aggregate root of the meal-subscription lifecycle.
// Exactly one of UserID or the guest contact identifies the owner at creation.
type Subscription struct {
	ID      uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID  *uuid.UUID   `gorm:"column:user_id;type:uuid;index" json:"userId,omitempty"`
	Contact GuestContact `gorm:"embedded" json:"contact"`

	MealPlan     string          `gorm:"column:meal_plan;not null" json:"mealPlan"`
	Frequency    enums.Frequency `gorm:"column:frequency;type:frequency;not null" json:"frequency"`
	Quantity     int             `gorm:"column:quantity;not null" json:"quantity"`
	StartDate    time.Time       `gorm:"column:start_date;not null" json:"startDate"`
	TotalDays    int             `gorm:"column:total_days;not null" json:"totalDays"`
	TotalItems   int             `gorm:"column:total_items;not null" json:"totalItems"`
	PricePerMeal float64         `gorm:"column:price_per_meal;not null" json:"pricePerMeal"`
	Subtotal     float64         `gorm:"column:subtotal;not null" json:"subtotal"`
	Discount     float64         `gorm:"column:discount;not null" json:"discount"`
	TotalAmount  float64         `gorm:"column:total_amount;not null" json:"totalAmount"`

	Status        enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'Pending'" json:"status"`
	PaymentStatus enums.PaymentStatus      `gorm:"column:payment_status;type:payment_status;not null;default:'pending'" json:"paymentStatus"`
	OrderID       *string                  `gorm:"column:order_id" json:"orderId,omitempty"`
	PaymentID     *string                  `gorm:"column:payment_id" json:"paymentId,omitempty"`

	DeliveryDetailsID *uuid.UUID `gorm:"column:delivery_details_id;type:uuid" json:"deliveryDetailsId,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Owner          *User           `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	DeliveryDetail *DeliveryDetail `gorm:"foreignKey:DeliveryDetailsID" json:"deliveryDetail,omitempty"`
}

// IsGuest reports whether the subscription has no registered owner.
func (s *Subscription) IsGuest() bool {
	return s.UserID == nil
}

// EndDate is derived from the start date and plan length; it is never stored.
func (s *Subscription) EndDate() time.Time {
	return s.StartDate.AddDate(0, 0, s.TotalDays)
}

// RemainingDays counts whole days left until the subscription ends, floored at zero.
func (s *Subscription) RemainingDays(now time.Time) int {
	remaining := int(s.EndDate().Sub(now).Hours() / 24)
	if remaining < 0 {
		return 0
	}
	return remaining
}
