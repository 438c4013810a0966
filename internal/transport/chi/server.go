// Package chi wires the HTTP API: account routes, the chat endpoint, health,
// and the SPA fallback for the built frontend.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/auth"
	"github.com/gekina/medichat/internal/domain"
	accountuc "github.com/gekina/medichat/internal/usecase/account"
	chatuc "github.com/gekina/medichat/internal/usecase/chat"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	accounts     *accountuc.Service
	accountsRead AccountReader
	chat         *chatuc.Service
	tokens       TokenVerifier
	corpusReady  bool
	buildDir     string
	logger       *zap.Logger
}

// NewServer creates the API server.
func NewServer(
	accounts *accountuc.Service,
	accountsRead AccountReader,
	chat *chatuc.Service,
	tokens TokenVerifier,
	corpusReady bool,
	buildDir string,
	logger *zap.Logger,
) *Server {
	return &Server{
		accounts:     accounts,
		accountsRead: accountsRead,
		chat:         chat,
		tokens:       tokens,
		corpusReady:  corpusReady,
		buildDir:     buildDir,
		logger:       logger,
	}
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/api/register", s.Register)
	r.Post("/api/token", s.Token)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser(s.tokens))
		r.Put("/api/users/me", s.UpdateMe)
		r.Post("/api/chat", s.Chat)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(s.accountsRead))
			r.Get("/api/admin/users", s.AdminListUsers)
			r.Put("/api/admin/users/{username}", s.AdminUpdateUser)
			r.Delete("/api/admin/users/{username}", s.AdminDeleteUser)
		})
	})

	if s.buildDir != "" {
		r.NotFound(s.SPA)
	}
}

// Health reports process liveness and corpus state.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	corpus := "ready"
	if !s.corpusReady {
		corpus = "offline"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "corpus": corpus})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Register handles POST /api/register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.Register(r.Context(), req.Username, req.Password, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "Username sudah dipakai")
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Registrasi berhasil"})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	Email       string `json:"email"`
}

// Token handles POST /api/token. The body is form-encoded for OAuth2
// password-flow compatibility with the frontend.
func (s *Server) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	acct, token, err := s.accounts.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Username atau Password salah")
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		FullName:    acct.FullName,
		Role:        acct.Role,
		Email:       acct.Email,
	})
}

type selfUpdateRequest struct {
	FullName    *string `json:"full_name"`
	NewPassword *string `json:"new_password"`
}

// UpdateMe handles PUT /api/users/me for the authenticated caller.
func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token invalid")
		return
	}

	var req selfUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.accounts.UpdateSelf(r.Context(), principal.Username, req.FullName, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User tidak ditemukan")
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Profil berhasil diperbarui"})
}

type userView struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// AdminListUsers handles GET /api/admin/users.
func (s *Server) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	views := make([]userView, len(accounts))
	for i, a := range accounts {
		views[i] = userView{
			Username: a.Username,
			FullName: a.FullName,
			Role:     a.EffectiveRole(),
			Email:    a.Email,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

type adminUpdateRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// AdminUpdateUser handles PUT /api/admin/users/{username}.
func (s *Server) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req adminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.accounts.AdminUpdate(r.Context(), username, req.FullName, req.Password); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Update berhasil"})
}

// AdminDeleteUser handles DELETE /api/admin/users/{username}.
func (s *Server) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := s.accounts.AdminDelete(r.Context(), username); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Tidak bisa hapus Super Admin")
			return
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("User %s dihapus", username)})
}

type chatRequest struct {
	Message string                    `json:"message"`
	History []domain.ConversationTurn `json:"history"`
}

// Chat handles POST /api/chat: one full pipeline execution per request.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token invalid")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	answer, err := s.chat.Ask(r.Context(), req.Message, req.History)
	if err != nil {
		// Generation failure is the one pipeline error with no safe
		// in-band fallback; surface the underlying detail.
		s.logger.Error("Chat generation failed",
			zap.String("username", principal.Username),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// handleDomainError maps remaining sentinel errors to statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError uses the {"detail": ...} shape the frontend already consumes.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
