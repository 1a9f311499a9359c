package memory

import (
	"context"
	"strings"
	"time"

	"github.com/sage-x-project/chatcore/storage"
)

// UserStore implements storage.UserStore in memory.
type UserStore struct{ s *Store }

func (u *UserStore) Create(ctx context.Context, user *storage.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := u.s.usersByEmail[key]; exists {
		return storage.ErrConflict
	}

	u.s.nextUserID++
	user.ID = u.s.nextUserID
	user.Email = key
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now

	cp := *user
	u.s.usersByID[user.ID] = &cp
	u.s.usersByEmail[key] = &cp
	return nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*storage.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *UserStore) GetByID(ctx context.Context, id int64) (*storage.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.usersByID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *UserStore) GetByUserID(ctx context.Context, userID string) (*storage.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, user := range u.s.usersByID {
		if user.UserID == userID {
			cp := *user
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}
