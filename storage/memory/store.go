// Package memory implements storage.Repository with in-memory maps,
// for unit tests and for running the server without a database.
package memory

import (
	"sync"

	"github.com/sage-x-project/chatcore/storage"
)

// Store implements storage.Repository entirely in memory, guarded by
// a single RWMutex (the teacher's memory store uses one mutex per
// entity map; we use one shared lock since rooms/members/messages are
// frequently mutated together within a single logical operation).
type Store struct {
	mu sync.RWMutex

	usersByID    map[int64]*storage.User
	usersByEmail map[string]*storage.User
	nextUserID   int64

	sessions   map[string]*storage.Session
	nextSessID int64

	nonces map[string]map[string]struct{} // sessionID -> set of nonce hex

	roomsByID   map[int64]*storage.Room
	roomsByName map[string]*storage.Room
	nextRoomID  int64

	members map[int64]map[int64]*storage.Member // roomID -> userID -> member

	messagesByRoom map[int64][]*storage.Message
	nextMessageID  int64

	users    *UserStore
	sessStr  *SessionStore
	nonceStr *NonceStore
	rooms    *RoomStore
	members_ *MemberStore
	messages *MessageStore
}

var _ storage.Repository = (*Store)(nil)

// NewStore creates an empty in-memory repository.
func NewStore() *Store {
	s := &Store{
		usersByID:      make(map[int64]*storage.User),
		usersByEmail:   make(map[string]*storage.User),
		sessions:       make(map[string]*storage.Session),
		nonces:         make(map[string]map[string]struct{}),
		roomsByID:      make(map[int64]*storage.Room),
		roomsByName:    make(map[string]*storage.Room),
		members:        make(map[int64]map[int64]*storage.Member),
		messagesByRoom: make(map[int64][]*storage.Message),
	}
	s.users = &UserStore{s: s}
	s.sessStr = &SessionStore{s: s}
	s.nonceStr = &NonceStore{s: s}
	s.rooms = &RoomStore{s: s}
	s.members_ = &MemberStore{s: s}
	s.messages = &MessageStore{s: s}
	return s
}

func (s *Store) Users() storage.UserStore       { return s.users }
func (s *Store) Sessions() storage.SessionStore { return s.sessStr }
func (s *Store) Nonces() storage.NonceStore     { return s.nonceStr }
func (s *Store) Rooms() storage.RoomStore       { return s.rooms }
func (s *Store) Members() storage.MemberStore   { return s.members_ }
func (s *Store) Messages() storage.MessageStore { return s.messages }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }
