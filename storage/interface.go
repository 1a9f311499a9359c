package storage

import (
	"context"
	"time"
)

// UserStore persists User entities.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUserID(ctx context.Context, userID string) (*User, error)
}

// SessionStore persists Session entities.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	BindUser(ctx context.Context, sessionID string, userID int64) error
	UpdateActivity(ctx context.Context, sessionID string, remoteAddr string, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, idleCutoff time.Time) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountAuthenticated(ctx context.Context) (int64, error)
}

// NonceStore persists the replay window of spec §3/§4.3.
type NonceStore interface {
	// Insert records (sessionID, nonce) exactly once. Returns
	// ErrNonceReused if the pair was already accepted.
	Insert(ctx context.Context, sessionID, nonceHex string) error
	DeleteForSession(ctx context.Context, sessionID string) error
}

// RoomStore persists Room entities.
type RoomStore interface {
	Create(ctx context.Context, r *Room) error
	GetByRoomID(ctx context.Context, roomID string) (*Room, error)
	GetByName(ctx context.Context, name string) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
}

// MemberStore persists Member (room, user) rows.
type MemberStore interface {
	Add(ctx context.Context, roomID, userID int64, isAdmin bool) (added bool, err error)
	Remove(ctx context.Context, roomID, userID int64) (removed bool, err error)
	Get(ctx context.Context, roomID, userID int64) (*Member, error)
	ListByRoom(ctx context.Context, roomID int64) ([]*Member, error)
	ListByUser(ctx context.Context, userID int64) ([]*Member, error)
	// PromoteNextJoined makes the earliest-joined remaining member the
	// room's admin (spec §4.6: admin transfer on creator departure).
	PromoteNextJoined(ctx context.Context, roomID int64) error
	CountAdmins(ctx context.Context, roomID int64) (int64, error)
}

// MessageStore persists append-only Message rows.
type MessageStore interface {
	Append(ctx context.Context, m *Message) error
	ListByRoom(ctx context.Context, roomID int64, limit int) ([]*Message, error)
	// RecentTail returns up to n of the most recent messages in a
	// room, ascending, for AI prompt composition (spec §4.7).
	RecentTail(ctx context.Context, roomID int64, n int) ([]*Message, error)
}

// Repository is the aggregate persistence boundary consumed by the
// rest of the server; the server never talks to a driver directly.
type Repository interface {
	Users() UserStore
	Sessions() SessionStore
	Nonces() NonceStore
	Rooms() RoomStore
	Members() MemberStore
	Messages() MessageStore
	Close() error
}
