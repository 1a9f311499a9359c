// Package postgres implements storage.Repository against PostgreSQL
// via jackc/pgx and raw SQL — no ORM, matching the teacher codebase's
// storage layer. Every statement runs on its own; no transactions are
// opened.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/chatcore/storage"
)

// Store implements storage.Repository for PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	users    *UserStore
	sessions *SessionStore
	nonces   *NonceStore
	rooms    *RoomStore
	members  *MemberStore
	messages *MessageStore
}

var _ storage.Repository = (*Store)(nil)

// NewStore opens a connection pool against dbURL and verifies it.
func NewStore(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	s.users = &UserStore{db: pool}
	s.sessions = &SessionStore{db: pool}
	s.nonces = &NonceStore{db: pool}
	s.rooms = &RoomStore{db: pool}
	s.members = &MemberStore{db: pool}
	s.messages = &MessageStore{db: pool}
	return s, nil
}

func (s *Store) Users() storage.UserStore       { return s.users }
func (s *Store) Sessions() storage.SessionStore { return s.sessions }
func (s *Store) Nonces() storage.NonceStore     { return s.nonces }
func (s *Store) Rooms() storage.RoomStore       { return s.rooms }
func (s *Store) Members() storage.MemberStore   { return s.members }
func (s *Store) Messages() storage.MessageStore { return s.messages }

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks database connectivity, used by the health checker.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
