package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/contaleve/identity-service/internal/core/domain"
	"github.com/contaleve/identity-service/internal/core/service"
)

// memoryDirectory is a minimal in-memory Directory for end-to-end routing
// tests: register against an empty directory, then log in through the full
// echo stack.
type memoryDirectory struct {
	identities map[string]*domain.Identity
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{identities: make(map[string]*domain.Identity)}
}

func (d *memoryDirectory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := d.identities[key]
	return ok, nil
}

func (d *memoryDirectory) FindByKey(_ context.Context, key string) (*domain.Identity, error) {
	id, ok := d.identities[key]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return id, nil
}

func (d *memoryDirectory) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	for _, id := range d.identities {
		if id.Email == email {
			return id, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (d *memoryDirectory) Create(_ context.Context, identity *domain.Identity, _ string) (string, error) {
	if _, ok := d.identities[identity.Key]; ok {
		return "", domain.ErrDuplicateIdentifier
	}
	clone := *identity
	d.identities[identity.Key] = &clone
	return identity.Key, nil
}

func (d *memoryDirectory) FinalizeCredential(_ context.Context, key, _ string) error {
	if _, ok := d.identities[key]; !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func (d *memoryDirectory) Authenticate(_ context.Context, key, _ string) (*domain.AuthTokens, error) {
	if _, ok := d.identities[key]; !ok {
		return nil, domain.ErrUserNotFound
	}
	return &domain.AuthTokens{IDToken: "id-" + key, RefreshToken: "refresh-" + key}, nil
}

func do(t *testing.T, e http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RegisterThenLogin(t *testing.T) {
	svc := service.NewIdentityService(newMemoryDirectory(), nil, "shared-secret", zerolog.Nop())
	e := NewRouter(svc, nil, nil, prometheus.NewRegistry(), zerolog.Nop())

	rec := do(t, e, "/auth/register", `{"name":"João Silva","cpf":"111.444.777-35","email":"joao@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var reg map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("register: invalid json: %v", err)
	}
	if reg["userId"] != "11144477735" {
		t.Fatalf("register: unexpected userId %v", reg["userId"])
	}

	rec = do(t, e, "/auth/login", `{"cpf":"11144477735"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var login map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("login: invalid json: %v", err)
	}
	user := login["user"].(map[string]any)
	if user["type"] != "authenticated" || user["id"] != "11144477735" {
		t.Fatalf("login: unexpected user %v", user)
	}

	// Same CPF again must conflict with the canonical envelope.
	rec = do(t, e, "/auth/register", `{"name":"João Silva","cpf":"111.444.777-35","email":"joao2@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}
	var dup map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &dup); err != nil {
		t.Fatalf("duplicate register: invalid json: %v", err)
	}
	if dup["code"] != "DUPLICATE_CPF" {
		t.Fatalf("duplicate register: unexpected code %v", dup["code"])
	}
}

func TestRouter_AnonymousLogin(t *testing.T) {
	svc := service.NewIdentityService(newMemoryDirectory(), nil, "shared-secret", zerolog.Nop())
	e := NewRouter(svc, nil, nil, prometheus.NewRegistry(), zerolog.Nop())

	rec := do(t, e, "/auth/login", `{"name":"Guest"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var login map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user := login["user"].(map[string]any)
	if user["type"] != "anonymous" {
		t.Fatalf("unexpected user class: %v", user["type"])
	}
	if id, _ := user["id"].(string); len(id) == 11 {
		t.Fatalf("anonymous id must not be CPF-shaped: %s", id)
	}
}

func TestRouter_ConstructedTwice(t *testing.T) {
	// Each router owns its metrics registry; building a second one must not
	// collide with the first's collectors.
	svc := service.NewIdentityService(newMemoryDirectory(), nil, "shared-secret", zerolog.Nop())
	for i := 0; i < 2; i++ {
		e := NewRouter(svc, nil, nil, prometheus.NewRegistry(), zerolog.Nop())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("router %d: health returned %d", i, rec.Code)
		}
	}
}

func TestRouter_LoginClassificationErrors(t *testing.T) {
	svc := service.NewIdentityService(newMemoryDirectory(), nil, "shared-secret", zerolog.Nop())
	e := NewRouter(svc, nil, nil, prometheus.NewRegistry(), zerolog.Nop())

	rec := do(t, e, "/auth/login", `{"cpf":"11144477735","name":"Guest"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("both fields: expected 400, got %d", rec.Code)
	}

	rec = do(t, e, "/auth/login", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no fields: expected 400, got %d", rec.Code)
	}
}
