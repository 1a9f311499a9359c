package memory

import (
	"context"
	"time"

	"github.com/sage-x-project/chatcore/storage"
)

// MessageStore implements storage.MessageStore in memory.
type MessageStore struct{ s *Store }

func (m *MessageStore) Append(ctx context.Context, msg *storage.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.nextMessageID++
	msg.ID = m.s.nextMessageID
	msg.CreatedAt = time.Now()

	cp := *msg
	m.s.messagesByRoom[msg.RoomID] = append(m.s.messagesByRoom[msg.RoomID], &cp)
	return nil
}

func (m *MessageStore) ListByRoom(ctx context.Context, roomID int64, limit int) ([]*storage.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	all := m.s.messagesByRoom[roomID]
	out := make([]*storage.Message, len(all))
	for i, msg := range all {
		cp := *msg
		out[i] = &cp
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecentTail returns the last n messages of the room in chronological
// order, for composing AI prompt context.
func (m *MessageStore) RecentTail(ctx context.Context, roomID int64, n int) ([]*storage.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	all := m.s.messagesByRoom[roomID]
	start := 0
	if len(all) > n {
		start = len(all) - n
	}
	tail := all[start:]
	out := make([]*storage.Message, len(tail))
	for i, msg := range tail {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}
