package memory

import (
	"context"
	"time"

	"github.com/sage-x-project/chatcore/storage"
)

// RoomStore implements storage.RoomStore in memory.
type RoomStore struct{ s *Store }

func (r *RoomStore) Create(ctx context.Context, room *storage.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.roomsByName[room.Name]; exists {
		return storage.ErrConflict
	}

	r.s.nextRoomID++
	room.ID = r.s.nextRoomID
	now := time.Now()
	room.CreatedAt, room.UpdatedAt = now, now

	cp := *room
	r.s.roomsByID[room.ID] = &cp
	r.s.roomsByName[room.Name] = &cp
	return nil
}

func (r *RoomStore) GetByRoomID(ctx context.Context, roomID string) (*storage.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, room := range r.s.roomsByID {
		if room.RoomID == roomID {
			cp := *room
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *RoomStore) GetByName(ctx context.Context, name string) (*storage.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	room, ok := r.s.roomsByName[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (r *RoomStore) List(ctx context.Context) ([]*storage.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*storage.Room, 0, len(r.s.roomsByID))
	for _, room := range r.s.roomsByID {
		cp := *room
		out = append(out, &cp)
	}
	// Ids are assigned in creation order, so sorting by id lists rooms
	// oldest first, as the postgres store does.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}
