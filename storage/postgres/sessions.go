package postgres

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// SessionStore implements storage.SessionStore for PostgreSQL.
type SessionStore struct {
	db *pgxpool.Pool
}

// Create inserts a new session row bound to remote_addr, user unset.
func (s *SessionStore) Create(ctx context.Context, sess *storage.Session) error {
	query := `
		INSERT INTO sessions (session_id, session_key, remote_addr)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, last_active_at
	`
	err := s.db.QueryRow(ctx, query,
		sess.SessionID, hex.EncodeToString(sess.SessionKey), sess.RemoteAddr,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.LastActiveAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("create session: %w", storage.ErrSessionExists)
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get retrieves a session by its public id.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*storage.Session, error) {
	query := `
		SELECT id, session_id, user_id, session_key, remote_addr, created_at, last_active_at
		FROM sessions WHERE session_id = $1
	`
	var sess storage.Session
	var keyHex string
	var userID *int64
	err := s.db.QueryRow(ctx, query, sessionID).Scan(
		&sess.ID, &sess.SessionID, &userID, &keyHex, &sess.RemoteAddr, &sess.CreatedAt, &sess.LastActiveAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode session key: %w", err)
	}
	sess.SessionKey = key
	sess.UserID = userID
	return &sess, nil
}

// BindUser binds a session to a user (LOGIN, or session merge target).
func (s *SessionStore) BindUser(ctx context.Context, sessionID string, userID int64) error {
	query := `UPDATE sessions SET user_id = $1 WHERE session_id = $2`
	tag, err := s.db.Exec(ctx, query, userID, sessionID)
	if err != nil {
		return fmt.Errorf("bind user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateActivity refreshes last_active_at and, if the source address
// changed, the stored remote_addr (sessions are address-mobile).
func (s *SessionStore) UpdateActivity(ctx context.Context, sessionID, remoteAddr string, at time.Time) error {
	query := `UPDATE sessions SET last_active_at = $1, remote_addr = $2 WHERE session_id = $3`
	tag, err := s.db.Exec(ctx, query, at, remoteAddr, sessionID)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a session row; nonces cascade via FK.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions idle since before idleCutoff and
// returns how many rows were deleted; it does not return their ids.
func (s *SessionStore) DeleteExpired(ctx context.Context, idleCutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE last_active_at < $1`, idleCutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountActive returns the number of live sessions.
func (s *SessionStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// CountAuthenticated returns the number of sessions bound to a user.
func (s *SessionStore) CountAuthenticated(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count authenticated sessions: %w", err)
	}
	return n, nil
}
