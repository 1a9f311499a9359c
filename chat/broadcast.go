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

	"github.com/sage-x-project/chatcore/storage"
)

type memberEvent struct {
	RoomID string `json:"room_id"`
	UserID int64  `json:"user_id"`
}

// BroadcastMemberEvent fans a MEMBER_JOINED/MEMBER_LEFT payload out to
// every current member of room's live sessions (spec §4.5).
func (s *Service) BroadcastMemberEvent(ctx context.Context, room *storage.Room, kind string, subjectUserID int64) {
	members, err := s.repo.Members().ListByRoom(ctx, room.ID)
	if err != nil {
		s.log.Warn("chat: broadcast member event: list members failed", errField(err))
		return
	}

	payload := memberEvent{RoomID: room.RoomID, UserID: subjectUserID}
	for _, member := range members {
		for _, sessionID := range s.sessions.SessionsForUser(member.UserID) {
			if _, err := s.dispatcher.Enqueue(ctx, sessionID, kind, payload); err != nil {
				s.log.Warn("chat: broadcast member event enqueue failed", errField(err))
			}
		}
	}
}
