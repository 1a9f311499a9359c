// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/storage"
)

// ListRooms returns every room, in creation order.
func (s *Service) ListRooms(ctx context.Context) ([]*storage.Room, error) {
	return s.repo.Rooms().List(ctx)
}

// CreateRoom inserts a room and joins its creator as admin (spec
// §4.6). Name collisions surface as ErrNameTaken.
func (s *Service) CreateRoom(ctx context.Context, creatorUserID int64, name string, isPrivate bool) (*storage.Room, error) {
	room := &storage.Room{
		RoomID:    uuid.NewString(),
		Name:      name,
		IsPrivate: isPrivate,
	}
	if err := s.repo.Rooms().Create(ctx, room); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("chat: create room: %w", err)
	}
	if _, err := s.repo.Members().Add(ctx, room.ID, creatorUserID, true); err != nil {
		return nil, fmt.Errorf("chat: add creator membership: %w", err)
	}
	s.refreshGauges(ctx)
	return room, nil
}

// JoinResult reports whether Join actually changed membership, used
// to decide if MEMBER_JOINED should be broadcast.
type JoinResult struct {
	Room    *storage.Room
	Added   bool
}

// JoinRoom adds userID to roomID. Re-joining is an idempotent no-op
// (spec §4.6); Added reports whether a new row was inserted.
func (s *Service) JoinRoom(ctx context.Context, userID int64, roomID string) (*JoinResult, error) {
	room, err := s.repo.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: join room: %w", err)
	}
	added, err := s.repo.Members().Add(ctx, room.ID, userID, false)
	if err != nil {
		return nil, fmt.Errorf("chat: join room: add member: %w", err)
	}
	if added {
		s.refreshGauges(ctx)
	}
	return &JoinResult{Room: room, Added: added}, nil
}

// LeaveResult reports whether Leave actually removed a membership,
// used to decide if MEMBER_LEFT should be broadcast. It does not report
// whether admin was transferred.
type LeaveResult struct {
	Room    *storage.Room
	Removed bool
}

// LeaveRoom removes userID from roomID. Leaving a room one isn't in is
// a no-op (spec §4.6). If the departing member was the sole admin,
// admin transfers to the next-joined remaining member.
func (s *Service) LeaveRoom(ctx context.Context, userID int64, roomID string) (*LeaveResult, error) {
	room, err := s.repo.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: leave room: %w", err)
	}
	member, err := s.repo.Members().Get(ctx, room.ID, userID)
	wasAdmin := err == nil && member.IsAdmin

	removed, err := s.repo.Members().Remove(ctx, room.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("chat: leave room: remove member: %w", err)
	}
	if removed && wasAdmin {
		admins, err := s.repo.Members().CountAdmins(ctx, room.ID)
		if err == nil && admins == 0 {
			if err := s.repo.Members().PromoteNextJoined(ctx, room.ID); err != nil {
				s.log.Warn("chat: admin transfer failed", logger.Error(err))
			}
		}
	}
	if removed {
		s.refreshGauges(ctx)
	}
	return &LeaveResult{Room: room, Removed: removed}, nil
}

// ListMembers returns roomID's members, oldest-joined first.
func (s *Service) ListMembers(ctx context.Context, roomID string) ([]*storage.Member, error) {
	room, err := s.repo.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: list members: %w", err)
	}
	return s.repo.Members().ListByRoom(ctx, room.ID)
}

// IsMember reports whether userID belongs to the room identified by its internal id.
func (s *Service) IsMember(ctx context.Context, roomInternalID, userID int64) bool {
	_, err := s.repo.Members().Get(ctx, roomInternalID, userID)
	return err == nil
}

// RoomByPublicID resolves a room's public id to its stored row.
func (s *Service) RoomByPublicID(ctx context.Context, roomID string) (*storage.Room, error) {
	return s.repo.Rooms().GetByRoomID(ctx, roomID)
}
