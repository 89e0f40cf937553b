package ports

import (
	"context"

	"github.com/contaleve/identity-service/internal/core/domain"
)

// Directory is the port to the external identity directory. Lookups and
// creation are separate round-trips; the backend offers no transaction
// spanning them. Adapters translate backend-specific failures into the
// domain error taxonomy: key collisions on Create become
// domain.ErrDuplicateIdentifier, absent records become domain.ErrUserNotFound,
// credential mismatches become domain.ErrUnauthorized, and anything
// unclassified becomes domain.ErrDirectoryUnavailable with the cause wrapped.
type Directory interface {
	// Exists reports whether an identity with the given key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// FindByKey returns the identity stored under key, or
	// domain.ErrUserNotFound when absent.
	FindByKey(ctx context.Context, key string) (*domain.Identity, error)

	// FindByEmail looks an identity up by its email attribute, or
	// domain.ErrUserNotFound when absent. The backend enforces no
	// uniqueness on this attribute.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)

	// Create persists a new identity guarded by a temporary credential and
	// returns the backend's record identifier.
	Create(ctx context.Context, identity *domain.Identity, temporaryCredential string) (string, error)

	// FinalizeCredential promotes the temporary credential to a permanent
	// one. Returns domain.ErrUserNotFound if the identity vanished between
	// Create and this call.
	FinalizeCredential(ctx context.Context, key, permanentCredential string) error

	// Authenticate exchanges the credential for session tokens.
	Authenticate(ctx context.Context, key, credential string) (*domain.AuthTokens, error)
}
