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
	"fmt"

	"github.com/sage-x-project/chatcore/storage"
)

// defaultHistoryLimit bounds LIST_MESSAGES when the caller asks for
// everything.
const defaultHistoryLimit = 200

// ListMessages returns up to limit messages of roomID, ascending (spec §4.5).
func (s *Service) ListMessages(ctx context.Context, roomID string, limit int) ([]*storage.Message, error) {
	room, err := s.repo.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: list messages: %w", err)
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	return s.repo.Messages().ListByRoom(ctx, room.ID, limit)
}

// messageBroadcast is the inner MESSAGE payload fanned out to members.
type messageBroadcast struct {
	RoomID         string `json:"room_id"`
	MessageID      int64  `json:"message_id"`
	UserID         int64  `json:"user_id"`
	Content        string `json:"content"`
	IsAnnouncement bool   `json:"is_announcement"`
	CreatedAt      string `json:"created_at"`
}

// PostMessage appends a message and broadcasts it to every current
// member's live session, including the author for echo (spec §4.6).
func (s *Service) PostMessage(ctx context.Context, authorUserID int64, roomPublicID, content string, isAnnouncement bool) (*storage.Message, error) {
	room, err := s.repo.Rooms().GetByRoomID(ctx, roomPublicID)
	if err != nil {
		return nil, fmt.Errorf("chat: post message: %w", err)
	}

	msg := &storage.Message{
		RoomID:         room.ID,
		UserID:         authorUserID,
		Content:        content,
		IsAnnouncement: isAnnouncement,
	}
	if err := s.repo.Messages().Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("chat: post message: append: %w", err)
	}

	s.broadcastMessage(ctx, room, msg)
	return msg, nil
}

// broadcastMessage resolves roomID's members to live sessions and
// submits one reliable enqueue per target (spec §4.6 broadcast dispatcher).
func (s *Service) broadcastMessage(ctx context.Context, room *storage.Room, msg *storage.Message) {
	members, err := s.repo.Members().ListByRoom(ctx, room.ID)
	if err != nil {
		s.log.Warn("chat: broadcast: list members failed", errField(err))
		return
	}

	payload := messageBroadcast{
		RoomID:         room.RoomID,
		MessageID:      msg.ID,
		UserID:         msg.UserID,
		Content:        msg.Content,
		IsAnnouncement: msg.IsAnnouncement,
		CreatedAt:      msg.CreatedAt.Format(rfc3339),
	}

	for _, member := range members {
		for _, sessionID := range s.sessions.SessionsForUser(member.UserID) {
			if _, err := s.dispatcher.Enqueue(ctx, sessionID, "MESSAGE", payload); err != nil {
				s.log.Warn("chat: broadcast enqueue failed", errField(err))
			}
		}
	}
}
