package ports

import (
	"context"

	"github.com/contaleve/identity-service/internal/core/domain"
)

// IdentityService is the registration and login surface exposed to the
// entry point.
type IdentityService interface {
	// Register provisions a new authenticated identity and returns its
	// user id (the normalized CPF).
	Register(ctx context.Context, name, nationalID, email string) (string, error)

	// Login authenticates either an existing identified user (nationalID
	// set) or a fresh anonymous user (name set). Exactly one of the two
	// must be provided.
	Login(ctx context.Context, nationalID, name string) (*domain.LoginResult, error)
}
