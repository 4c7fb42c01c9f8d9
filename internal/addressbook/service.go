package addressbook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
)

// Service defines the address-book surface.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.DeliveryDetail, error)
	Get(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.DeliveryDetail, error)
	Update(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole, input UpdateInput) (*models.DeliveryDetail, error)
	Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) error
	SetDefault(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.DeliveryDetail, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DeliveryDetail, error)
}

// ServiceParams groups dependencies for the address-book service.
type ServiceParams struct {
	Repo Repository
}

// CreateInput captures a new delivery-detail entry. OwnerID is nil for guest
// checkout snapshots, which never join a registered user's address book.
type CreateInput struct {
	OwnerID *uuid.UUID
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type service struct {
	repo Repository
}

// NewService builds an address-book service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("addressbook repo required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.DeliveryDetail, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	address := strings.TrimSpace(input.Address)
	if name == "" || email == "" || phone == "" || address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, phone and address are required")
	}

	entry := &models.DeliveryDetail{
		UserID:  input.OwnerID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Address: address,
		IsGuest: input.OwnerID == nil,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create delivery details")
	}
	return entry, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.DeliveryDetail, error) {
	return s.load(ctx, id, actorID, role)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole, input UpdateInput) (*models.DeliveryDetail, error) {
	entry, err := s.load(ctx, id, actorID, role)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string, field string) error {
		if src == nil {
			return nil
		}
		value := strings.TrimSpace(*src)
		if value == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" cannot be empty")
		}
		*dst = value
		return nil
	}
	if err := apply(&entry.Name, input.Name, "name"); err != nil {
		return nil, err
	}
	if err := apply(&entry.Email, input.Email, "email"); err != nil {
		return nil, err
	}
	if err := apply(&entry.Phone, input.Phone, "phone"); err != nil {
		return nil, err
	}
	if err := apply(&entry.Address, input.Address, "address"); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery details")
	}
	return entry, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) error {
	entry, err := s.load(ctx, id, actorID, role)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete delivery details")
	}
	return nil
}

// SetDefault promotes an owned entry to the single default. Guest snapshots
// have no address book, so only the owner path exists.
func (s *service) SetDefault(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*models.DeliveryDetail, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	found, err := s.repo.SetDefault(ctx, actorID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default delivery details")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery details not found")
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery details")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery details not found")
	}
	return entry, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.DeliveryDetail, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	entries, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list delivery details")
	}
	return entries, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID, actorID uuid.UUID, role enums.UserRole) (*models.DeliveryDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery details id is required")
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load delivery details")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery details not found")
	}
	if entry.UserID != nil && *entry.UserID != actorID && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery details belong to another user")
	}
	return entry, nil
}
