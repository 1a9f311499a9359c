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
	"bytes"
	"context"
	"encoding/hex"
	"errors"

	"github.com/sage-x-project/chatcore/chaterr"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/storage"
)

// Merge implements MERGE_SESSION (spec §4.3): it verifies that
// oldSessionID exists and its stored key matches oldSessionKeyHex,
// transfers the user binding to currentSessionID, and deletes the old
// session. On any failure state is left unchanged.
func (m *Manager) Merge(ctx context.Context, currentSessionID, oldSessionID, oldSessionKeyHex string) error {
	oldKey, err := hex.DecodeString(oldSessionKeyHex)
	if err != nil {
		return chaterr.New(chaterr.KindProtocol, "bad old_session_key", err)
	}

	var oldSess *storage.Session
	lookupErr := chaterr.Retry(ctx, func(err error) bool { return !errors.Is(err, storage.ErrNotFound) }, func() error {
		var getErr error
		oldSess, getErr = m.repo.Sessions().Get(ctx, oldSessionID)
		return getErr
	})
	if lookupErr != nil {
		if errors.Is(lookupErr, storage.ErrNotFound) {
			return chaterr.New(chaterr.KindNotFound, "old session not found", lookupErr)
		}
		return chaterr.New(chaterr.KindTransient, "lookup old session failed", lookupErr)
	}
	if !bytes.Equal(oldSess.SessionKey, oldKey) {
		return chaterr.New(chaterr.KindAuth, "old session key mismatch", nil)
	}
	if oldSess.UserID == nil {
		return chaterr.New(chaterr.KindAuth, "old session has no user bound", nil)
	}

	bindErr := chaterr.Retry(ctx, chaterr.Always, func() error {
		return m.BindUser(ctx, currentSessionID, *oldSess.UserID)
	})
	if bindErr != nil {
		return chaterr.New(chaterr.KindTransient, "bind merged user failed", bindErr)
	}
	deleteErr := chaterr.Retry(ctx, chaterr.Always, func() error {
		return m.repo.Sessions().Delete(ctx, oldSessionID)
	})
	if deleteErr != nil {
		return chaterr.New(chaterr.KindTransient, "delete old session failed", deleteErr)
	}

	m.mu.Lock()
	delete(m.byID, oldSessionID)
	m.setGauges()
	m.mu.Unlock()

	metrics.SessionsMerged.Inc()
	return nil
}
