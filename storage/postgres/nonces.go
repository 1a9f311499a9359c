package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// NonceStore implements storage.NonceStore for PostgreSQL. Replay
// detection relies entirely on the (session_id, nonce) primary key: a
// duplicate INSERT fails the unique constraint, so detection is
// race-free across concurrent workers (spec §5).
type NonceStore struct {
	db *pgxpool.Pool
}

// Insert records a nonce for a session exactly once.
func (s *NonceStore) Insert(ctx context.Context, sessionID, nonceHex string) error {
	query := `INSERT INTO nonces (session_id, nonce) VALUES ($1, $2)`
	_, err := s.db.Exec(ctx, query, sessionID, nonceHex)
	if isUniqueViolation(err) {
		return storage.ErrNonceReused
	}
	if err != nil {
		return fmt.Errorf("insert nonce: %w", err)
	}
	return nil
}

// DeleteForSession removes all nonce rows for a session (called when
// the session is expired or explicitly destroyed, though the FK
// cascade on sessions already makes this a no-op in the common path).
func (s *NonceStore) DeleteForSession(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM nonces WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete nonces: %w", err)
	}
	return nil
}
