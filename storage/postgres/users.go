package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// UserStore implements storage.UserStore for PostgreSQL.
type UserStore struct {
	db *pgxpool.Pool
}

// Create inserts a new user. Email is normalized to lower-case so
// uniqueness is effectively case-insensitive (spec §3).
func (s *UserStore) Create(ctx context.Context, u *storage.User) error {
	query := `
		INSERT INTO users (user_id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query,
		u.UserID, strings.ToLower(u.Email), u.DisplayName, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("create user: %w", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByEmail looks a user up by case-insensitive email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*storage.User, error) {
	query := `
		SELECT id, user_id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	return s.scanOne(ctx, query, strings.ToLower(email))
}

// GetByID looks a user up by internal id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*storage.User, error) {
	query := `
		SELECT id, user_id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`
	return s.scanOne(ctx, query, id)
}

// GetByUserID looks a user up by its public opaque id.
func (s *UserStore) GetByUserID(ctx context.Context, userID string) (*storage.User, error) {
	query := `
		SELECT id, user_id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE user_id = $1
	`
	return s.scanOne(ctx, query, userID)
}

func (s *UserStore) scanOne(ctx context.Context, query string, arg any) (*storage.User, error) {
	var u storage.User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.UserID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
