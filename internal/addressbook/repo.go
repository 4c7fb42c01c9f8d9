package addressbook

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
)

// Repository exposes persistence helpers for delivery-detail records. The
// default-flag invariants run inside repository transactions so a concurrent
// reader never observes zero or two defaults for the same owner.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.DeliveryDetail) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DeliveryDetail, error)
	Update(ctx context.Context, entry *models.DeliveryDetail) error
	Delete(ctx context.Context, entry *models.DeliveryDetail) error
	SetDefault(ctx context.Context, ownerID, entryID uuid.UUID) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DeliveryDetail, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an address-book repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// defaultDeliveryIndex guards the one-default-per-owner invariant at the
// database level; racing first inserts resolve through it.
const defaultDeliveryIndex = "uniq_default_delivery_detail_per_user"

// Create persists the entry. The owner's first entry becomes the default.
// Two clients can both see an empty address book and flag their insert as
// default, so the insert runs under a savepoint and falls back to non-default
// when the partial unique index rejects the second winner.
func (r *repositoryImpl) Create(ctx context.Context, entry *models.DeliveryDetail) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry.UserID != nil {
			var count int64
			if err := tx.Model(&models.DeliveryDetail{}).
				Where("user_id = ?", *entry.UserID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				entry.IsDefault = true
			}
		}
		if !entry.IsDefault || entry.UserID == nil {
			return tx.Create(entry).Error
		}
		err := tx.Transaction(func(inner *gorm.DB) error {
			return inner.Create(entry).Error
		})
		if db.IsUniqueViolation(err, defaultDeliveryIndex) {
			entry.IsDefault = false
			return tx.Create(entry).Error
		}
		return err
	})
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.DeliveryDetail, error) {
	var entry models.DeliveryDetail
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repositoryImpl) Update(ctx context.Context, entry *models.DeliveryDetail) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// Delete removes the entry and, when it was the owner's default, promotes the
// oldest remaining entry (lowest created_at, then id) to default.
func (r *repositoryImpl) Delete(ctx context.Context, entry *models.DeliveryDetail) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DeliveryDetail{}, "id = ?", entry.ID).Error; err != nil {
			return err
		}
		if !entry.IsDefault || entry.UserID == nil {
			return nil
		}

		var next models.DeliveryDetail
		err := tx.Where("user_id = ?", *entry.UserID).
			Order("created_at ASC, id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&models.DeliveryDetail{}).
			Where("id = ?", next.ID).
			UpdateColumn("is_default", true).Error
	})
}

var errSetDefaultTargetMissing = errors.New("set default target not found")

// SetDefault clears every default for the owner and sets the target in one
// transaction. It reports whether the target row was found. When the target
// does not exist the transaction rolls back so the current default survives.
func (r *repositoryImpl) SetDefault(ctx context.Context, ownerID, entryID uuid.UUID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DeliveryDetail{}).
			Where("user_id = ? AND is_default = ?", ownerID, true).
			UpdateColumn("is_default", false).Error; err != nil {
			return err
		}
		result := tx.Model(&models.DeliveryDetail{}).
			Where("id = ? AND user_id = ?", entryID, ownerID).
			UpdateColumn("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errSetDefaultTargetMissing
		}
		return nil
	})
	if errors.Is(err, errSetDefaultTargetMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DeliveryDetail, error) {
	var entries []models.DeliveryDetail
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_guest = ?", ownerID, false).
		Order("is_default DESC, created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
