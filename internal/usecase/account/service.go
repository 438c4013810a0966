// Package account implements registration, login and user management on top
// of the account repository.
package account

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/gekina/medichat/internal/domain"
)

// Service handles account operations.
type Service struct {
	repo   Repository
	tokens TokenIssuer
}

// New creates an account service.
func New(repo Repository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// HashPassword bcrypt-hashes a plaintext password. Passwords beyond bcrypt's
// 72-byte input limit are rejected instead of silently truncated.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("password longer than 72 bytes: %w", domain.ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a new user account. All fields are required.
func (s *Service) Register(ctx context.Context, username, password, fullName, email string) error {
	if username == "" || password == "" || fullName == "" || email == "" {
		return fmt.Errorf("username, password, full_name and email are required: %w", domain.ErrValidation)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	return s.repo.Create(ctx, domain.Account{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleUser,
		Email:        email,
	})
}

// Login verifies credentials and issues an access token. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (domain.Account, string, error) {
	acct, err := s.repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, "", fmt.Errorf("bad credentials: %w", domain.ErrUnauthorized)
		}
		return domain.Account{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return domain.Account{}, "", fmt.Errorf("bad credentials: %w", domain.ErrUnauthorized)
	}

	acct.Role = acct.EffectiveRole()

	token, err := s.tokens.Issue(domain.Principal{Username: acct.Username, Role: acct.Role})
	if err != nil {
		return domain.Account{}, "", fmt.Errorf("issue token: %w", err)
	}
	return acct, token, nil
}

// UpdateSelf updates the caller's own profile. Nil fields are left unchanged.
func (s *Service) UpdateSelf(ctx context.Context, username string, fullName, newPassword *string) error {
	// The account must still exist; tokens outlive deletions.
	if _, err := s.repo.Get(ctx, username); err != nil {
		return err
	}

	if fullName != nil && *fullName != "" {
		if err := s.repo.UpdateFullName(ctx, username, *fullName); err != nil {
			return err
		}
	}
	if newPassword != nil && *newPassword != "" {
		hash, err := HashPassword(*newPassword)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePasswordHash(ctx, username, hash); err != nil {
			return err
		}
	}
	return nil
}

// List returns all accounts for the admin view.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.repo.List(ctx)
}

// AdminUpdate edits another user's profile. Nil fields are left unchanged.
func (s *Service) AdminUpdate(ctx context.Context, username string, fullName, password *string) error {
	if fullName != nil && *fullName != "" {
		if err := s.repo.UpdateFullName(ctx, username, *fullName); err != nil {
			return err
		}
	}
	if password != nil && *password != "" {
		hash, err := HashPassword(*password)
		if err != nil {
			return err
		}
		if err := s.repo.UpdatePasswordHash(ctx, username, hash); err != nil {
			return err
		}
	}
	return nil
}

// AdminDelete removes a user account. The reserved admin account cannot be
// deleted.
func (s *Service) AdminDelete(ctx context.Context, username string) error {
	if username == domain.AdminUsername {
		return fmt.Errorf("cannot delete the reserved admin account: %w", domain.ErrValidation)
	}
	return s.repo.Delete(ctx, username)
}
