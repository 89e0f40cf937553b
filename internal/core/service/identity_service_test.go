package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/contaleve/identity-service/internal/core/domain"
)

const (
	validCPF     = "111.444.777-35"
	validCPFNorm = "11144477735"
)

// stubDirectory is an in-memory Directory with hooks for failure injection.
type stubDirectory struct {
	identities map[string]*domain.Identity
	finalized  map[string]bool

	createErr   error
	createHook  func()
	finalizeErr error
	authErr     error
	findByKeyFn func(key string) (*domain.Identity, error)
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		identities: make(map[string]*domain.Identity),
		finalized:  make(map[string]bool),
	}
}

func (d *stubDirectory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := d.identities[key]
	return ok, nil
}

func (d *stubDirectory) FindByKey(_ context.Context, key string) (*domain.Identity, error) {
	if d.findByKeyFn != nil {
		return d.findByKeyFn(key)
	}
	id, ok := d.identities[key]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *id
	return &clone, nil
}

func (d *stubDirectory) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	for _, id := range d.identities {
		if id.Email == email {
			clone := *id
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (d *stubDirectory) Create(_ context.Context, identity *domain.Identity, _ string) (string, error) {
	if d.createHook != nil {
		d.createHook()
	}
	if d.createErr != nil {
		return "", d.createErr
	}
	if _, exists := d.identities[identity.Key]; exists {
		return "", domain.ErrDuplicateIdentifier
	}
	clone := *identity
	d.identities[identity.Key] = &clone
	return identity.Key, nil
}

func (d *stubDirectory) FinalizeCredential(_ context.Context, key, _ string) error {
	if d.finalizeErr != nil {
		return d.finalizeErr
	}
	if _, ok := d.identities[key]; !ok {
		return domain.ErrUserNotFound
	}
	d.finalized[key] = true
	return nil
}

func (d *stubDirectory) Authenticate(_ context.Context, key, _ string) (*domain.AuthTokens, error) {
	if d.authErr != nil {
		return nil, d.authErr
	}
	if _, ok := d.identities[key]; !ok {
		return nil, domain.ErrUserNotFound
	}
	return &domain.AuthTokens{IDToken: "id-" + key, RefreshToken: "refresh-" + key}, nil
}

// stubJournal records mark/clear calls.
type stubJournal struct {
	marked  []string
	cleared []string
}

func (j *stubJournal) MarkPending(_ context.Context, key string) error {
	j.marked = append(j.marked, key)
	return nil
}

func (j *stubJournal) ClearPending(_ context.Context, key string) error {
	j.cleared = append(j.cleared, key)
	return nil
}

func (j *stubJournal) StalePending(context.Context) ([]string, error) { return nil, nil }

func newTestService(dir *stubDirectory) (*IdentityService, *stubJournal) {
	journal := &stubJournal{}
	return NewIdentityService(dir, journal, "shared-secret", zerolog.Nop()), journal
}

func TestRegister_Success(t *testing.T) {
	dir := newStubDirectory()
	svc, journal := newTestService(dir)

	userID, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if userID != validCPFNorm {
		t.Fatalf("expected user id %q, got %q", validCPFNorm, userID)
	}

	created := dir.identities[validCPFNorm]
	if created == nil {
		t.Fatalf("identity not created in directory")
	}
	if created.Class != domain.ClassAuthenticated {
		t.Fatalf("expected authenticated class, got %s", created.Class)
	}
	if created.Email != "joao@example.com" {
		t.Fatalf("unexpected email: %s", created.Email)
	}
	if !dir.finalized[validCPFNorm] {
		t.Fatalf("credential was not finalized")
	}
	if len(journal.marked) != 1 || len(journal.cleared) != 1 {
		t.Fatalf("journal not exercised: marked=%v cleared=%v", journal.marked, journal.cleared)
	}
}

func TestRegister_NormalizesAttributes(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	if _, err := svc.Register(context.Background(), "  João   da   Silva  ", validCPF, "JOAO@EXAMPLE.COM"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	created := dir.identities[validCPFNorm]
	if created.DisplayName != "João da Silva" {
		t.Fatalf("name not normalized: %q", created.DisplayName)
	}
	if created.Email != "joao@example.com" {
		t.Fatalf("email not normalized: %q", created.Email)
	}
}

func TestRegister_PaddedEmailRejected(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	// Validation runs on the raw input; surrounding whitespace is not
	// forgiven before the format check.
	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "  joao@example.com  "); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail for padded email, got %v", err)
	}
	if len(dir.identities) != 0 {
		t.Fatalf("directory contacted despite validation failure")
	}
}

func TestRegister_ValidationFailures(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	cases := []struct {
		name, cpf, email string
		wantErr          error
	}{
		{"J", validCPF, "a@b.com", domain.ErrInvalidName},
		{"João", "12345678901", "a@b.com", domain.ErrInvalidNationalID},
		{"João", "11111111111", "a@b.com", domain.ErrInvalidNationalID},
		{"João", validCPF, "not-an-email", domain.ErrInvalidEmail},
	}
	for _, tc := range cases {
		if _, err := svc.Register(context.Background(), tc.name, tc.cpf, tc.email); !errors.Is(err, tc.wantErr) {
			t.Fatalf("Register(%q,%q,%q): expected %v, got %v", tc.name, tc.cpf, tc.email, tc.wantErr, err)
		}
	}
	if len(dir.identities) != 0 {
		t.Fatalf("directory contacted despite validation failure")
	}
}

func TestRegister_DuplicateCPF_PreCheck(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), "Outro Nome", validCPF, "outro@example.com"); !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
}

func TestRegister_DuplicateCPF_CreateRace(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	// Concurrent writer sneaks in after the pre-check but before Create:
	// the directory's native collision must surface as the same error kind.
	raced := false
	dir.createHook = func() {
		if !raced {
			raced = true
			dir.identities[validCPFNorm] = &domain.Identity{Key: validCPFNorm, Class: domain.ClassAuthenticated}
		}
	}

	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com"); !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier from create race, got %v", err)
	}
}

func TestProvision_JournalClearedWhenCreateFails(t *testing.T) {
	dir := newStubDirectory()
	svc, journal := newTestService(dir)

	// A registration that loses the create race must not strand a pending
	// journal entry; nothing was created, so nothing can be stale.
	dir.createErr = domain.ErrDuplicateIdentifier
	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com"); !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
	if len(journal.marked) != 1 || len(journal.cleared) != 1 {
		t.Fatalf("journal entry stranded after failed create: marked=%v cleared=%v", journal.marked, journal.cleared)
	}
	if journal.cleared[0] != validCPFNorm {
		t.Fatalf("wrong key cleared: %q", journal.cleared[0])
	}
}

func TestProvision_JournalKeptWhenFinalizeFails(t *testing.T) {
	dir := newStubDirectory()
	svc, journal := newTestService(dir)

	// Finalize failure leaves a real half-provisioned identity behind; the
	// mark must survive so the sweeper can report it.
	dir.finalizeErr = domain.ErrDirectoryUnavailable
	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com"); !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if len(journal.marked) != 1 || len(journal.cleared) != 0 {
		t.Fatalf("journal entry must stay pending: marked=%v cleared=%v", journal.marked, journal.cleared)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), "Maria Souza", "529.982.247-25", "joao@example.com"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLogin_Authenticated_Success(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	if _, err := svc.Register(context.Background(), "João Silva", validCPF, "joao@example.com"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result, err := svc.Login(context.Background(), validCPFNorm, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Tokens.IDToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", result.Tokens)
	}
	if result.User.Class != domain.ClassAuthenticated {
		t.Fatalf("expected authenticated user, got %s", result.User.Class)
	}
	if result.User.ID != validCPFNorm || result.User.Name != "João Silva" {
		t.Fatalf("unexpected user: %+v", result.User)
	}
}

func TestLogin_Authenticated_NotFound(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	if _, err := svc.Login(context.Background(), validCPF, ""); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLogin_Anonymous_Success(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	result, err := svc.Login(context.Background(), "", "Guest")
	if err != nil {
		t.Fatalf("anonymous login failed: %v", err)
	}
	if result.User.Class != domain.ClassAnonymous {
		t.Fatalf("expected anonymous user, got %s", result.User.Class)
	}
	if len(result.User.ID) == 11 {
		t.Fatalf("anonymous id must not look like a CPF: %s", result.User.ID)
	}
	created := dir.identities[result.User.ID]
	if created == nil {
		t.Fatalf("anonymous identity not created")
	}
	if created.Email != "" {
		t.Fatalf("anonymous identity must not carry an email")
	}
	if !dir.finalized[result.User.ID] {
		t.Fatalf("anonymous credential was not finalized")
	}
}

func TestLogin_Anonymous_FreshIdentifierPerCall(t *testing.T) {
	dir := newStubDirectory()
	svc, _ := newTestService(dir)

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		result, err := svc.Login(context.Background(), "", "Guest")
		if err != nil {
			t.Fatalf("anonymous login %d failed: %v", i, err)
		}
		if seen[result.User.ID] {
			t.Fatalf("identifier reused: %s", result.User.ID)
		}
		seen[result.User.ID] = true
	}
}

func TestClassifyLogin(t *testing.T) {
	cases := []struct {
		cpf, name string
		wantClass domain.IdentityClass
		wantErr   error
	}{
		{validCPFNorm, "", domain.ClassAuthenticated, nil},
		{"", "Guest", domain.ClassAnonymous, nil},
		{validCPFNorm, "Guest", "", domain.ErrAmbiguousRequest},
		{"", "", "", domain.ErrMissingIdentifier},
	}
	for _, tc := range cases {
		class, err := ClassifyLogin(tc.cpf, tc.name)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ClassifyLogin(%q,%q): expected %v, got %v", tc.cpf, tc.name, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ClassifyLogin(%q,%q): unexpected error %v", tc.cpf, tc.name, err)
		}
		if class != tc.wantClass {
			t.Fatalf("ClassifyLogin(%q,%q): expected %s, got %s", tc.cpf, tc.name, tc.wantClass, class)
		}
	}
}

func TestLogin_DirectoryUnavailable(t *testing.T) {
	dir := newStubDirectory()
	dir.findByKeyFn = func(string) (*domain.Identity, error) {
		return nil, domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", context.DeadlineExceeded)
	}
	svc, _ := newTestService(dir)

	if _, err := svc.Login(context.Background(), validCPF, ""); !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
}

