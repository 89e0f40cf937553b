package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := NewError(KindDuplicateIdentifier, "caught by the directory constraint")
	if !errors.Is(err, ErrDuplicateIdentifier) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("kinds must not cross-match")
	}
}

func TestErrorIs_ThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("register: %w", WrapError(KindDirectoryUnavailable, "identity directory unavailable", cause))
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected kind match through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to stay reachable for diagnostics")
	}
}

func TestMaskIdentifier(t *testing.T) {
	if got := MaskIdentifier("11144477735"); got != "***7735" {
		t.Fatalf("MaskIdentifier: got %q", got)
	}
	if got := MaskIdentifier("123"); got != "***" {
		t.Fatalf("MaskIdentifier short: got %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail("joao@example.com"); got != "***@example.com" {
		t.Fatalf("MaskEmail: got %q", got)
	}
	if got := MaskEmail("not-an-email"); got != "***" {
		t.Fatalf("MaskEmail malformed: got %q", got)
	}
}
