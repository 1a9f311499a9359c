package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// RoomStore implements storage.RoomStore for PostgreSQL.
type RoomStore struct {
	db *pgxpool.Pool
}

// Create inserts a new room.
func (s *RoomStore) Create(ctx context.Context, r *storage.Room) error {
	query := `
		INSERT INTO rooms (room_id, name, is_private)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(ctx, query, r.RoomID, r.Name, r.IsPrivate).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("create room: %w", storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// GetByRoomID looks a room up by its public id.
func (s *RoomStore) GetByRoomID(ctx context.Context, roomID string) (*storage.Room, error) {
	return s.scanOne(ctx, `
		SELECT id, room_id, name, is_private, created_at, updated_at
		FROM rooms WHERE room_id = $1
	`, roomID)
}

// GetByName looks a room up by its unique display name.
func (s *RoomStore) GetByName(ctx context.Context, name string) (*storage.Room, error) {
	return s.scanOne(ctx, `
		SELECT id, room_id, name, is_private, created_at, updated_at
		FROM rooms WHERE name = $1
	`, name)
}

func (s *RoomStore) scanOne(ctx context.Context, query string, arg any) (*storage.Room, error) {
	var r storage.Room
	err := s.db.QueryRow(ctx, query, arg).Scan(&r.ID, &r.RoomID, &r.Name, &r.IsPrivate, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &r, nil
}

// List returns all rooms.
func (s *RoomStore) List(ctx context.Context) ([]*storage.Room, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, room_id, name, is_private, created_at, updated_at
		FROM rooms ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []*storage.Room
	for rows.Next() {
		var r storage.Room
		if err := rows.Scan(&r.ID, &r.RoomID, &r.Name, &r.IsPrivate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
