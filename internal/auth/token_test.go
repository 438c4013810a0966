package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gekina/medichat/internal/domain"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(domain.Principal{Username: "budi", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Username != "budi" || p.Role != domain.RoleUser {
		t.Errorf("principal = %+v", p)
	}
}

func TestVerify_Expired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Issue(domain.Principal{Username: "budi", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(domain.Principal{Username: "budi"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewTokenIssuer("secret-b", time.Hour).Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for foreign signature, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	if _, err := issuer.Verify("not.a.jwt"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPrincipalContext(t *testing.T) {
	want := domain.Principal{Username: "budi", Role: domain.RoleAdmin}
	ctx := ContextWithPrincipal(context.Background(), want)

	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("principal = %+v, want %+v", got, want)
	}

	if _, err := FromContext(context.Background()); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("expected ErrNoPrincipal, got %v", err)
	}
}
