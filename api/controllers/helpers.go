package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vikramrao-dev/tiffinbox-backend/api/middleware"
	"github.com/vikramrao-dev/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/vikramrao-dev/tiffinbox-backend/pkg/errors"
)

// actorFromContext returns the authenticated user id and role, or uuid.Nil and
// the customer role for guest requests.
func actorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole) {
	role := enums.UserRoleCustomer
	if raw := middleware.RoleFromContext(ctx); raw != "" {
		if parsed, err := enums.ParseUserRole(raw); err == nil {
			role = parsed
		}
	}
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, role
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, role
	}
	return id, role
}

// requireActor resolves the authenticated user or fails with UNAUTHORIZED.
func requireActor(ctx context.Context) (uuid.UUID, enums.UserRole, error) {
	id, role := actorFromContext(ctx)
	if id == uuid.Nil {
		return uuid.Nil, role, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, role, nil
}

// pathUUID parses a uuid route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
