package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// MemberStore implements storage.MemberStore for PostgreSQL.
type MemberStore struct {
	db *pgxpool.Pool
}

// Add inserts a membership row if one doesn't already exist (spec
// §4.6: re-joining is an idempotent no-op). Returns added=false when
// the membership already existed.
func (s *MemberStore) Add(ctx context.Context, roomID, userID int64, isAdmin bool) (bool, error) {
	query := `
		INSERT INTO members (room_id, user_id, is_admin)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, roomID, userID, isAdmin)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes a membership row. Returns removed=false if the user
// wasn't a member (spec §4.6: leaving a room one isn't in is a no-op).
func (s *MemberStore) Remove(ctx context.Context, roomID, userID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM members WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get retrieves a single membership row.
func (s *MemberStore) Get(ctx context.Context, roomID, userID int64) (*storage.Member, error) {
	var m storage.Member
	err := s.db.QueryRow(ctx, `
		SELECT room_id, user_id, is_admin, joined_at
		FROM members WHERE room_id = $1 AND user_id = $2
	`, roomID, userID).Scan(&m.RoomID, &m.UserID, &m.IsAdmin, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return &m, nil
}

// ListByRoom returns all members of a room, oldest first.
func (s *MemberStore) ListByRoom(ctx context.Context, roomID int64) ([]*storage.Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT room_id, user_id, is_admin, joined_at
		FROM members WHERE room_id = $1 ORDER BY joined_at ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// ListByUser returns all rooms a user belongs to.
func (s *MemberStore) ListByUser(ctx context.Context, userID int64) ([]*storage.Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT room_id, user_id, is_admin, joined_at
		FROM members WHERE user_id = $1 ORDER BY joined_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func scanMembers(rows pgx.Rows) ([]*storage.Member, error) {
	var out []*storage.Member
	for rows.Next() {
		var m storage.Member
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// PromoteNextJoined makes the earliest-joined remaining member admin.
// A no-op if the room has no members left.
func (s *MemberStore) PromoteNextJoined(ctx context.Context, roomID int64) error {
	query := `
		UPDATE members SET is_admin = true
		WHERE (room_id, user_id) = (
			SELECT room_id, user_id FROM members
			WHERE room_id = $1
			ORDER BY joined_at ASC
			LIMIT 1
		)
	`
	_, err := s.db.Exec(ctx, query, roomID)
	if err != nil {
		return fmt.Errorf("promote next member: %w", err)
	}
	return nil
}

// CountAdmins returns how many admins a room currently has.
func (s *MemberStore) CountAdmins(ctx context.Context, roomID int64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM members WHERE room_id = $1 AND is_admin`, roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
