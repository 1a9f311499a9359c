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
	"github.com/sage-x-project/chatcore/storage"
)

// RecentTail returns up to n of the most recent messages in roomID,
// ascending, for AI prompt composition (spec §4.7).
func (s *Service) RecentTail(ctx context.Context, roomID string, n int) ([]*storage.Message, error) {
	room, err := s.repo.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: recent tail: %w", err)
	}
	return s.repo.Messages().RecentTail(ctx, room.ID, n)
}

// EnsureAIUser returns the designated AI user, creating it (passwordless)
// on first use, and joins it to roomID if not already a member (spec §4.7).
func (s *Service) EnsureAIUser(ctx context.Context, email, displayName, roomID string) (*storage.User, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		user = &storage.User{UserID: uuid.NewString(), Email: email, DisplayName: displayName}
		if err := s.repo.Users().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("chat: create ai user: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("chat: lookup ai user: %w", err)
	}

	room, err := s.repo.Rooms().GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("chat: ensure ai user: %w", err)
	}
	if _, err := s.repo.Members().Add(ctx, room.ID, user.ID, false); err != nil {
		return nil, fmt.Errorf("chat: join ai user: %w", err)
	}
	return user, nil
}
