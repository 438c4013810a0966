package account

import (
	"context"

	"github.com/gekina/medichat/internal/domain"
)

// Repository defines the storage contract for account operations.
type Repository interface {
	Create(ctx context.Context, acct domain.Account) error
	Get(ctx context.Context, username string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	UpdateFullName(ctx context.Context, username, fullName string) error
	UpdatePasswordHash(ctx context.Context, username, hash string) error
	Delete(ctx context.Context, username string) error
}

// TokenIssuer signs access tokens for authenticated principals.
type TokenIssuer interface {
	Issue(p domain.Principal) (string, error)
}
