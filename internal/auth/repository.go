package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository provides access to user and login-code storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertUser creates the user on first sign-in and returns the stored row.
func (r *Repository) UpsertUser(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO users (id, email)
VALUES (gen_random_uuid(), $1)
ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
RETURNING id, email, created_at;`

	var user User
	if err := r.pool.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// StoreLoginCode replaces any pending code for the address.
func (r *Repository) StoreLoginCode(ctx context.Context, code LoginCode) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO login_codes (email, code_hash, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at;`

	if _, err := r.pool.Exec(ctx, query, code.Email, code.CodeHash, code.ExpiresAt); err != nil {
		return fmt.Errorf("store login code: %w", err)
	}
	return nil
}

// GetLoginCode fetches the pending code for the address.
func (r *Repository) GetLoginCode(ctx context.Context, email string) (LoginCode, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var code LoginCode
	err := r.pool.QueryRow(ctx,
		`SELECT email, code_hash, expires_at FROM login_codes WHERE email = $1;`, email).
		Scan(&code.Email, &code.CodeHash, &code.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return LoginCode{}, ErrInvalidCode
		}
		return LoginCode{}, fmt.Errorf("get login code: %w", err)
	}
	return code, nil
}

// DeleteLoginCode removes a consumed or expired code. Idempotent.
func (r *Repository) DeleteLoginCode(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, `DELETE FROM login_codes WHERE email = $1;`, email); err != nil {
		return fmt.Errorf("delete login code: %w", err)
	}
	return nil
}
