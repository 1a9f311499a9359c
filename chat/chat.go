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

// Package chat implements the room and chat state machine of spec
// §4.6: login, room membership, message history, and the broadcast
// dispatcher that fans a posted message out to every member's live
// session via the reliable dispatcher.
package chat

import (
	"context"

	"github.com/sage-x-project/chatcore/dispatch"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/storage"
)

// sessionIndex is the slice of sessionmgr.Manager that Service needs;
// kept narrow so tests can substitute a fake.
type sessionIndex interface {
	SessionsForUser(userID int64) []string
}

// enqueuer is the slice of dispatch.Dispatcher that Service needs.
type enqueuer interface {
	Enqueue(ctx context.Context, sessionID, kind string, data any) (string, error)
}

// Service implements the room/message operations of spec §4.6 over a
// Repository, broadcasting through the reliable dispatcher.
type Service struct {
	repo       storage.Repository
	sessions   sessionIndex
	dispatcher enqueuer
	log        logger.Logger
}

// New constructs a Service.
func New(repo storage.Repository, sessions *sessionmgr.Manager, dispatcher *dispatch.Dispatcher, log logger.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, dispatcher: dispatcher, log: log}
}

// ErrNameTaken is returned by CreateRoom when the room name is already in use.
var ErrNameTaken = roomNameTakenError{}

type roomNameTakenError struct{}

func (roomNameTakenError) Error() string { return "chat: room name already in use" }

// refreshGauges keeps the rooms/members gauges roughly in sync;
// called after mutations rather than on every read.
func (s *Service) refreshGauges(ctx context.Context) {
	rooms, err := s.repo.Rooms().List(ctx)
	if err != nil {
		return
	}
	metrics.Rooms.Set(float64(len(rooms)))

	var members int
	for _, r := range rooms {
		m, err := s.repo.Members().ListByRoom(ctx, r.ID)
		if err != nil {
			continue
		}
		members += len(m)
	}
	metrics.Members.Set(float64(members))
}
