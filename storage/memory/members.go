package memory

import (
	"context"
	"time"

	"github.com/sage-x-project/chatcore/storage"
)

// MemberStore implements storage.MemberStore in memory.
type MemberStore struct{ s *Store }

func (m *MemberStore) Add(ctx context.Context, roomID, userID int64, isAdmin bool) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	byUser, ok := m.s.members[roomID]
	if !ok {
		byUser = make(map[int64]*storage.Member)
		m.s.members[roomID] = byUser
	}
	if _, exists := byUser[userID]; exists {
		return false, nil
	}
	byUser[userID] = &storage.Member{
		RoomID: roomID, UserID: userID, IsAdmin: isAdmin, JoinedAt: time.Now(),
	}
	return true, nil
}

func (m *MemberStore) Remove(ctx context.Context, roomID, userID int64) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	byUser, ok := m.s.members[roomID]
	if !ok {
		return false, nil
	}
	if _, exists := byUser[userID]; !exists {
		return false, nil
	}
	delete(byUser, userID)
	return true, nil
}

func (m *MemberStore) Get(ctx context.Context, roomID, userID int64) (*storage.Member, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	byUser, ok := m.s.members[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	mem, ok := byUser[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *MemberStore) ListByRoom(ctx context.Context, roomID int64) ([]*storage.Member, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	byUser := m.s.members[roomID]
	out := make([]*storage.Member, 0, len(byUser))
	for _, mem := range byUser {
		cp := *mem
		out = append(out, &cp)
	}
	sortMembersByJoinedAt(out)
	return out, nil
}

func (m *MemberStore) ListByUser(ctx context.Context, userID int64) ([]*storage.Member, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*storage.Member
	for _, byUser := range m.s.members {
		if mem, ok := byUser[userID]; ok {
			cp := *mem
			out = append(out, &cp)
		}
	}
	sortMembersByJoinedAt(out)
	return out, nil
}

func (m *MemberStore) PromoteNextJoined(ctx context.Context, roomID int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	byUser, ok := m.s.members[roomID]
	if !ok || len(byUser) == 0 {
		return nil
	}
	var earliest *storage.Member
	for _, mem := range byUser {
		if earliest == nil || mem.JoinedAt.Before(earliest.JoinedAt) {
			earliest = mem
		}
	}
	earliest.IsAdmin = true
	return nil
}

func (m *MemberStore) CountAdmins(ctx context.Context, roomID int64) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var n int64
	for _, mem := range m.s.members[roomID] {
		if mem.IsAdmin {
			n++
		}
	}
	return n, nil
}

func sortMembersByJoinedAt(members []*storage.Member) {
	for i := 1; i < len(members); i++ {
		for j := i; j > 0 && members[j].JoinedAt.Before(members[j-1].JoinedAt); j-- {
			members[j], members[j-1] = members[j-1], members[j]
		}
	}
}
