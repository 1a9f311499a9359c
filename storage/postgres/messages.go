package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// MessageStore implements storage.MessageStore for PostgreSQL.
type MessageStore struct {
	db *pgxpool.Pool
}

// Append inserts a new message, filling in its assigned id and server
// timestamp (spec §4.6).
func (s *MessageStore) Append(ctx context.Context, m *storage.Message) error {
	query := `
		INSERT INTO messages (room_id, user_id, content, is_announcement)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query, m.RoomID, m.UserID, m.Content, m.IsAnnouncement).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListByRoom returns up to limit messages for a room in total order
// (created_at, id) ascending (spec §3). limit <= 0 means unbounded.
func (s *MessageStore) ListByRoom(ctx context.Context, roomID int64, limit int) ([]*storage.Message, error) {
	query := `
		SELECT id, room_id, user_id, content, is_announcement, created_at
		FROM messages WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`
	args := []any{roomID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentTail returns the most recent n messages in a room, ascending,
// for AI prompt composition (spec §4.7).
func (s *MessageStore) RecentTail(ctx context.Context, roomID int64, n int) ([]*storage.Message, error) {
	query := `
		SELECT id, room_id, user_id, content, is_announcement, created_at FROM (
			SELECT id, room_id, user_id, content, is_announcement, created_at
			FROM messages WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.Query(ctx, query, roomID, n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]*storage.Message, error) {
	var out []*storage.Message
	for rows.Next() {
		var m storage.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.IsAnnouncement, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
