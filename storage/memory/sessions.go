package memory

import (
	"context"
	"time"

	"github.com/sage-x-project/chatcore/storage"
)

// SessionStore implements storage.SessionStore in memory.
type SessionStore struct{ s *Store }

func (st *SessionStore) Create(ctx context.Context, sess *storage.Session) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	for _, existing := range st.s.sessions {
		if string(existing.SessionKey) == string(sess.SessionKey) {
			return storage.ErrSessionExists
		}
	}
	if _, exists := st.s.sessions[sess.SessionID]; exists {
		return storage.ErrConflict
	}

	st.s.nextSessID++
	sess.ID = st.s.nextSessID
	now := time.Now()
	sess.CreatedAt, sess.LastActiveAt = now, now

	cp := *sess
	st.s.sessions[sess.SessionID] = &cp
	return nil
}

func (st *SessionStore) Get(ctx context.Context, sessionID string) (*storage.Session, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	sess, ok := st.s.sessions[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (st *SessionStore) BindUser(ctx context.Context, sessionID string, userID int64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	sess, ok := st.s.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	sess.UserID = &userID
	return nil
}

func (st *SessionStore) UpdateActivity(ctx context.Context, sessionID, remoteAddr string, at time.Time) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	sess, ok := st.s.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	sess.LastActiveAt = at
	sess.RemoteAddr = remoteAddr
	return nil
}

func (st *SessionStore) Delete(ctx context.Context, sessionID string) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	delete(st.s.sessions, sessionID)
	delete(st.s.nonces, sessionID)
	return nil
}

func (st *SessionStore) DeleteExpired(ctx context.Context, idleCutoff time.Time) (int64, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	var n int64
	for id, sess := range st.s.sessions {
		if sess.LastActiveAt.Before(idleCutoff) {
			delete(st.s.sessions, id)
			delete(st.s.nonces, id)
			n++
		}
	}
	return n, nil
}

func (st *SessionStore) CountActive(ctx context.Context) (int64, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	return int64(len(st.s.sessions)), nil
}

func (st *SessionStore) CountAuthenticated(ctx context.Context) (int64, error) {
	st.s.mu.RLock()
	defer st.s.mu.RUnlock()
	var n int64
	for _, sess := range st.s.sessions {
		if sess.UserID != nil {
			n++
		}
	}
	return n, nil
}
