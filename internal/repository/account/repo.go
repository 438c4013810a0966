// Package account persists user accounts in a SQLite table keyed by username.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gekina/medichat/internal/domain"
)

// Repo is the SQLite-backed account repository.
type Repo struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the account database. WAL mode keeps
// concurrent short statements from tripping over each other.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	r := &Repo{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

// Close closes the database connection.
func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) migrate() error {
	const schema = `CREATE TABLE IF NOT EXISTS users (
		username  TEXT PRIMARY KEY,
		password  TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		role      TEXT NOT NULL DEFAULT 'user',
		email     TEXT NOT NULL DEFAULT ''
	)`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

// EnsureAdmin seeds the reserved admin account on first startup and repairs
// its role if a previous deployment stored something else.
func (r *Repo) EnsureAdmin(ctx context.Context, passwordHash, email string) error {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE username = ?`, domain.AdminUsername,
	).Scan(&role)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO users (username, password, full_name, role, email) VALUES (?, ?, ?, ?, ?)`,
			domain.AdminUsername, passwordHash, "Super Admin", domain.RoleAdmin, email,
		)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	case err != nil:
		return fmt.Errorf("check admin: %w", err)
	case role != domain.RoleAdmin:
		_, err = r.db.ExecContext(ctx,
			`UPDATE users SET role = ? WHERE username = ?`, domain.RoleAdmin, domain.AdminUsername,
		)
		if err != nil {
			return fmt.Errorf("repair admin role: %w", err)
		}
	}
	return nil
}

// Create inserts a new account. Duplicate usernames map to ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, acct domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password, full_name, role, email) VALUES (?, ?, ?, ?, ?)`,
		acct.Username, acct.PasswordHash, acct.FullName, acct.Role, acct.Email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", acct.Username, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Get returns the account for a username.
func (r *Repo) Get(ctx context.Context, username string) (domain.Account, error) {
	var acct domain.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password, full_name, role, email FROM users WHERE username = ?`, username,
	).Scan(&acct.Username, &acct.PasswordHash, &acct.FullName, &acct.Role, &acct.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("account %q: %w", username, domain.ErrNotFound)
		}
		return domain.Account{}, fmt.Errorf("select account: %w", err)
	}
	return acct, nil
}

// List returns all accounts ordered by username.
func (r *Repo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, password, full_name, role, email FROM users ORDER BY username`,
	)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var acct domain.Account
		if err := rows.Scan(
			&acct.Username, &acct.PasswordHash, &acct.FullName, &acct.Role, &acct.Email,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// UpdateFullName sets the display name.
func (r *Repo) UpdateFullName(ctx context.Context, username, fullName string) error {
	return r.updateField(ctx, username, "full_name", fullName)
}

// UpdatePasswordHash sets a new password hash.
func (r *Repo) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	return r.updateField(ctx, username, "password", hash)
}

func (r *Repo) updateField(ctx context.Context, username, column, value string) error {
	// column comes from the two exported wrappers only, never from input
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ? WHERE username = ?`, column), value, username,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %q: %w", username, domain.ErrNotFound)
	}
	return nil
}

// Delete removes an account.
func (r *Repo) Delete(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %q: %w", username, domain.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
