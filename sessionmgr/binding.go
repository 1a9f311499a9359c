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

package sessionmgr

import (
	"context"
	"fmt"
)

// BindUser binds sessionID to userID (LOGIN success), updating both
// the persisted row and the in-memory index.
func (m *Manager) BindUser(ctx context.Context, sessionID string, userID int64) error {
	if err := m.repo.Sessions().BindUser(ctx, sessionID, userID); err != nil {
		return fmt.Errorf("sessionmgr: bind user: %w", err)
	}
	m.mu.Lock()
	if e, ok := m.byID[sessionID]; ok {
		e.userID = &userID
	}
	m.setGauges()
	m.mu.Unlock()
	return nil
}

// ClearUser removes sessionID's user binding (LOGOUT). The persisted
// session row keeps its last user reference; only the in-memory index,
// which governs routing and auth checks, is cleared — a fresh LOGIN
// rebinds it.
func (m *Manager) ClearUser(sessionID string) {
	m.mu.Lock()
	if e, ok := m.byID[sessionID]; ok {
		e.userID = nil
	}
	m.setGauges()
	m.mu.Unlock()
}
