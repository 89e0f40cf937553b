package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contaleve/identity-service/internal/core/domain"
	"github.com/contaleve/identity-service/internal/core/ports"
	"github.com/contaleve/identity-service/internal/core/validate"
	"github.com/contaleve/identity-service/internal/metrics"
)

// IdentityService implements registration and login against the identity
// directory. It holds no per-request state and is safe for concurrent use;
// the only shared mutable state is the directory itself.
type IdentityService struct {
	dir ports.Directory
	// journal records identities mid-provisioning so a crash between
	// Create and FinalizeCredential is detectable out-of-band. Best
	// effort: journal failures are logged, never surfaced.
	journal ports.ProvisionJournal
	// sharedCredential is the pool-wide provisioning password, used both
	// as the temporary credential at creation and as the permanent one.
	sharedCredential string
	log              zerolog.Logger
}

func NewIdentityService(dir ports.Directory, journal ports.ProvisionJournal, sharedCredential string, log zerolog.Logger) *IdentityService {
	return &IdentityService{dir: dir, journal: journal, sharedCredential: sharedCredential, log: log}
}

// Register provisions a new authenticated identity keyed by the normalized
// CPF. Uniqueness is enforced in two layers: optimistic pre-checks for fast
// feedback, then the directory's own key-collision error as the final
// arbiter. Both layers converge on domain.ErrDuplicateIdentifier, so callers
// see one taxonomy regardless of which side of the race they land on. Email
// has no backing constraint in the directory; its pre-check remains racy.
func (s *IdentityService) Register(ctx context.Context, name, nationalID, email string) (string, error) {
	if err := validate.Name(name); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	if err := validate.NationalID(nationalID); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}
	if err := validate.Email(email); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return "", err
	}

	name = validate.NormalizeName(name)
	cpf := validate.NormalizeNationalID(nationalID)
	email = validate.NormalizeEmail(email)

	if _, err := s.dir.FindByKey(ctx, cpf); err == nil {
		s.log.Info().Str("cpf", domain.MaskIdentifier(cpf)).Msg("registration rejected: CPF already registered")
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		metrics.DuplicatesTotal.WithLabelValues("cpf").Inc()
		return "", domain.ErrDuplicateIdentifier
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	if _, err := s.dir.FindByEmail(ctx, email); err == nil {
		s.log.Info().Str("email", domain.MaskEmail(email)).Msg("registration rejected: email already registered")
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		metrics.DuplicatesTotal.WithLabelValues("email").Inc()
		return "", domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	identity := &domain.Identity{
		Key:         cpf,
		DisplayName: name,
		Email:       email,
		Class:       domain.ClassAuthenticated,
	}

	if err := s.provision(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentifier) {
			// Lost the race between the pre-check and Create; the
			// directory's native constraint caught it.
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			metrics.DuplicatesTotal.WithLabelValues("cpf").Inc()
			return "", domain.ErrDuplicateIdentifier
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	s.log.Info().
		Str("cpf", domain.MaskIdentifier(cpf)).
		Str("email", domain.MaskEmail(email)).
		Msg("user registered")
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return cpf, nil
}

// Login dispatches on the request shape: a CPF logs an existing identified
// user in, a bare name provisions and logs in a fresh anonymous user.
func (s *IdentityService) Login(ctx context.Context, nationalID, name string) (*domain.LoginResult, error) {
	class, err := ClassifyLogin(nationalID, name)
	if err != nil {
		return nil, err
	}
	if class == domain.ClassAuthenticated {
		return s.loginAuthenticated(ctx, nationalID)
	}
	return s.loginAnonymous(ctx, name)
}

// ClassifyLogin decides the identity class of a login request. Exactly one
// of nationalID and name must be present.
func ClassifyLogin(nationalID, name string) (domain.IdentityClass, error) {
	switch {
	case nationalID != "" && name != "":
		return "", domain.ErrAmbiguousRequest
	case nationalID == "" && name == "":
		return "", domain.ErrMissingIdentifier
	case nationalID != "":
		return domain.ClassAuthenticated, nil
	default:
		return domain.ClassAnonymous, nil
	}
}

func (s *IdentityService) loginAuthenticated(ctx context.Context, nationalID string) (*domain.LoginResult, error) {
	if err := validate.NationalID(nationalID); err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ClassAuthenticated), "invalid").Inc()
		return nil, err
	}
	cpf := validate.NormalizeNationalID(nationalID)

	user, err := s.dir.FindByKey(ctx, cpf)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues(string(domain.ClassAuthenticated), "not_found").Inc()
			return nil, domain.NewError(domain.KindUserNotFound, "user not found with provided CPF")
		}
		metrics.LoginsTotal.WithLabelValues(string(domain.ClassAuthenticated), "error").Inc()
		return nil, err
	}

	tokens, err := s.dir.Authenticate(ctx, user.Key, s.sharedCredential)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ClassAuthenticated), "error").Inc()
		return nil, err
	}

	s.log.Info().Str("cpf", domain.MaskIdentifier(cpf)).Msg("registered user logged in")
	metrics.LoginsTotal.WithLabelValues(string(domain.ClassAuthenticated), "success").Inc()

	return &domain.LoginResult{
		Tokens: *tokens,
		User: domain.LoginUser{
			ID:    cpf,
			Name:  user.DisplayName,
			Class: domain.ClassAuthenticated,
		},
	}, nil
}

// loginAnonymous creates a fresh identity on every call. The generated key
// is a UUID; no existence check is performed, collision probability is
// treated as negligible.
func (s *IdentityService) loginAnonymous(ctx context.Context, name string) (*domain.LoginResult, error) {
	if err := validate.Name(name); err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ClassAnonymous), "invalid").Inc()
		return nil, err
	}
	name = validate.NormalizeName(name)

	identity := &domain.Identity{
		Key:         uuid.NewString(),
		DisplayName: name,
		Class:       domain.ClassAnonymous,
	}

	if err := s.provision(ctx, identity); err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ClassAnonymous), "error").Inc()
		return nil, err
	}

	tokens, err := s.dir.Authenticate(ctx, identity.Key, s.sharedCredential)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(domain.ClassAnonymous), "error").Inc()
		return nil, err
	}

	s.log.Info().Str("id", identity.Key).Msg("anonymous user logged in")
	metrics.LoginsTotal.WithLabelValues(string(domain.ClassAnonymous), "success").Inc()

	return &domain.LoginResult{
		Tokens: *tokens,
		User: domain.LoginUser{
			ID:    identity.Key,
			Name:  name,
			Class: domain.ClassAnonymous,
		},
	}, nil
}

// provision runs the two-phase creation sequence: Create with the temporary
// credential, then FinalizeCredential to make it permanent. Neither step is
// retried; a crash between them leaves the identity pending, which the
// journal records for out-of-band detection.
func (s *IdentityService) provision(ctx context.Context, identity *domain.Identity) error {
	start := time.Now()

	s.markPending(ctx, identity.Key)

	if _, err := s.dir.Create(ctx, identity, s.sharedCredential); err != nil {
		// Nothing was created, so nothing is pending. The mark must
		// outlive the request only when Create succeeded and the
		// credential was never finalized.
		s.clearPending(ctx, identity.Key)
		if !errors.Is(err, domain.ErrDuplicateIdentifier) {
			metrics.DirectoryErrorsTotal.WithLabelValues("create").Inc()
		}
		return err
	}

	if err := s.dir.FinalizeCredential(ctx, identity.Key, s.sharedCredential); err != nil {
		metrics.DirectoryErrorsTotal.WithLabelValues("finalize_credential").Inc()
		return err
	}

	s.clearPending(ctx, identity.Key)
	metrics.ProvisioningDuration.WithLabelValues(string(identity.Class)).Observe(time.Since(start).Seconds())
	return nil
}

func (s *IdentityService) markPending(ctx context.Context, key string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.MarkPending(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", domain.MaskIdentifier(key)).Msg("provision journal mark failed")
	}
}

func (s *IdentityService) clearPending(ctx context.Context, key string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.ClearPending(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", domain.MaskIdentifier(key)).Msg("provision journal clear failed")
	}
}
