package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gekina/medichat/internal/auth"
	"github.com/gekina/medichat/internal/domain"
)

type stubVerifier struct {
	principal domain.Principal
	err       error
}

func (s *stubVerifier) Verify(string) (domain.Principal, error) {
	return s.principal, s.err
}

type stubAccounts struct {
	accounts map[string]domain.Account
}

func (s *stubAccounts) Get(_ context.Context, username string) (domain.Account, error) {
	acct, ok := s.accounts[username]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %q: %w", username, domain.ErrNotFound)
	}
	return acct, nil
}

func serveAuthed(t *testing.T, mw func(http.Handler) http.Handler, header string) *httptest.ResponseRecorder {
	t.Helper()
	var gotPrincipal *domain.Principal
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := auth.FromContext(r.Context()); err == nil {
			gotPrincipal = &p
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && gotPrincipal == nil {
		t.Fatal("handler ran without a principal in context")
	}
	return rec
}

func TestRequireUser(t *testing.T) {
	verifier := &stubVerifier{principal: domain.Principal{Username: "budi", Role: domain.RoleUser}}

	tests := []struct {
		name     string
		verifier TokenVerifier
		header   string
		wantCode int
	}{
		{"valid token", verifier, "Bearer good", http.StatusOK},
		{"missing header", verifier, "", http.StatusUnauthorized},
		{"wrong scheme", verifier, "Basic dXNlcjpwdw==", http.StatusUnauthorized},
		{"rejected token", &stubVerifier{err: domain.ErrUnauthorized}, "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAuthed(t, RequireUser(tt.verifier), tt.header)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Code != http.StatusOK {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("error body is not JSON: %v", err)
				}
				if body["detail"] == "" {
					t.Error("error body has no detail field")
				}
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	accounts := &stubAccounts{accounts: map[string]domain.Account{
		"budi":               {Username: "budi", Role: domain.RoleUser},
		"ani":                {Username: "ani", Role: domain.RoleAdmin},
		domain.AdminUsername: {Username: domain.AdminUsername, Role: domain.RoleUser},
	}}

	tests := []struct {
		name     string
		username string
		wantCode int
	}{
		{"stored admin passes", "ani", http.StatusOK},
		{"plain user rejected", "budi", http.StatusForbidden},
		{"reserved admin passes despite stored role", domain.AdminUsername, http.StatusOK},
		{"deleted account rejected", "ghost", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			ctx := auth.ContextWithPrincipal(req.Context(), domain.Principal{
				Username: tt.username,
				// the token may still carry admin; only the stored role counts
				Role: domain.RoleAdmin,
			})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req.WithContext(ctx))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRequireAdmin_NoPrincipal(t *testing.T) {
	handler := RequireAdmin(&stubAccounts{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
