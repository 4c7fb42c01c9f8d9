package subscriptions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/pagination"
)

// Repository exposes persistence helpers for subscriptions. Lifecycle writes
// are conditional updates so concurrent callbacks and admin actions serialize
// on the row's current state instead of on application locks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	GetByIDExpanded(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkPaymentResult(ctx context.Context, id uuid.UUID, outcome enums.PaymentStatus, orderID, paymentID string) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to enums.SubscriptionStatus, allowedFrom []enums.SubscriptionStatus) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	ListAll(ctx context.Context, params ListParams) ([]models.Subscription, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// ListParams filters the admin listing.
type ListParams struct {
	Status        *enums.SubscriptionStatus
	PaymentStatus *enums.PaymentStatus
	Limit         int
	Cursor        *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, subscription *models.Subscription) error {
	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).First(&subscription, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetByIDExpanded loads the subscription together with its owner and the
// referenced delivery-detail row.
func (r *repositoryImpl) GetByIDExpanded(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var subscription models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("DeliveryDetail").
		First(&subscription, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repositoryImpl) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, enums.SubscriptionStatusActive).
		Count(&count).Error
	return count, err
}

// MarkPaymentResult settles a pending payment exactly once. The update is
// guarded on payment_status = 'pending'; zero affected rows means the row was
// already settled (or never existed) and the caller decides which.
func (r *repositoryImpl) MarkPaymentResult(ctx context.Context, id uuid.UUID, outcome enums.PaymentStatus, orderID, paymentID string) (int64, error) {
	updates := map[string]any{
		"payment_status": outcome,
		"order_id":       orderID,
		"payment_id":     paymentID,
	}
	if outcome == enums.PaymentStatusCompleted {
		updates["status"] = enums.SubscriptionStatusActive
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateStatus transitions the lifecycle status only when the current status
// is in allowedFrom. Zero affected rows means the precondition did not hold.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, to enums.SubscriptionStatus, allowedFrom []enums.SubscriptionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status IN ?", id, allowedFrom).
		Update("status", to)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repositoryImpl) ListAll(ctx context.Context, params ListParams) ([]models.Subscription, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Preload("Owner").
		Preload("DeliveryDetail")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var subscriptions []models.Subscription
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&subscriptions).Error; err != nil {
		return nil, nil, err
	}

	if len(subscriptions) > normalized {
		subscriptions = subscriptions[:normalized]
		last := subscriptions[normalized-1]
		return subscriptions, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return subscriptions, nil, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Subscription{}, "id = ?", id)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
