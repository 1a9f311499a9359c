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

package chaterr

import (
	"context"
	"math/rand"
	"time"
)

// maxAttempts bounds a transient retry loop at 3 tries total (spec §6:
// retryable repository failures are retried up to 3 times with jitter
// before surfacing as ERROR{message:"internal"}).
const maxAttempts = 3

// retryBaseDelay is the backoff before the second attempt; it doubles
// before the third.
const retryBaseDelay = 20 * time.Millisecond

// Always is an isRetryable predicate for callers where every failure
// of fn is worth retrying.
func Always(error) bool { return true }

// Retry runs fn up to 3 times total, continuing only while isRetryable
// reports true for the error fn returned, and sleeping a jittered
// backoff between attempts. The final attempt's error (if any) is
// returned as-is for the caller to classify.
func Retry(ctx context.Context, isRetryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryable(err) || attempt == maxAttempts {
			return err
		}
		delay := retryBaseDelay * time.Duration(1<<(attempt-1))
		jittered := delay/2 + time.Duration(rand.Int63n(int64(delay)))
		select {
		case <-time.After(jittered):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
