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
	"time"

	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
)

// runCleanup sweeps idle-expired sessions at a coarse interval until
// Close is called.
func (m *Manager) runCleanup() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.sweepExpired(context.Background())
		case <-m.stopCleanup:
			return
		}
	}
}

// sweepExpired purges sessions idle longer than idleTimeout from both
// the repository and the in-memory index (spec §4.3).
func (m *Manager) sweepExpired(ctx context.Context) {
	cutoff := time.Now().Add(-m.idleTimeout)
	n, err := m.repo.Sessions().DeleteExpired(ctx, cutoff)
	if err != nil {
		m.log.Error("idle session sweep failed", logger.Error(err))
		return
	}
	if n == 0 {
		return
	}

	m.mu.Lock()
	for id, e := range m.byID {
		if e.lastActiveAt.Before(cutoff) {
			delete(m.byID, id)
		}
	}
	m.setGauges()
	m.mu.Unlock()

	metrics.SessionsExpired.Add(float64(n))
	m.log.Info("swept idle sessions", logger.Int("count", int(n)))
}
