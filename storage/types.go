// Package storage defines the persisted entities of the chat backend
// (spec §3) and the repository interfaces implemented by the
// PostgreSQL-backed store (storage/postgres) and the in-memory store
// (storage/memory).
package storage

import "time"

// User is a registered (or anonymously-bound) chat participant.
type User struct {
	ID           int64
	UserID       string // public opaque id
	Email        string // stored lower-cased; unique
	DisplayName  string
	PasswordHash string // empty => passwordless account
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account requires a password to log in.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Session is a server-side secure channel bound to a remote address.
type Session struct {
	ID           int64
	SessionID    string // public id
	UserID       *int64 // nil until LOGIN binds a user
	SessionKey   []byte // 32-byte AES key
	RemoteAddr   string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Nonce records a single accepted AEAD nonce for a session, enforcing
// the replay window of spec §3/§4.3.
type Nonce struct {
	SessionID string
	Nonce     string // hex
	CreatedAt time.Time
}

// Room is a chat room.
type Room struct {
	ID        int64
	RoomID    string // public id
	Name      string // unique
	IsPrivate bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is a (room, user) membership row.
type Member struct {
	RoomID   int64
	UserID   int64
	IsAdmin  bool
	JoinedAt time.Time
}

// Message is a single append-only chat message.
type Message struct {
	ID             int64
	RoomID         int64
	UserID         int64
	Content        string
	IsAnnouncement bool
	CreatedAt      time.Time
}
