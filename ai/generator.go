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

// Package ai implements the AI bridge of spec §4.7: a bounded
// worker pool that turns AI_MESSAGE requests into prompts, invokes a
// pluggable text generator, and re-enters the result as a normal
// chat message.
package ai

import (
	"context"
	"errors"
)

// Generator turns a composed prompt into a reply. Implementations may
// be slow and must respect ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoGenerator is returned by the none backend, used when AI_BACKEND
// is unset or in tests that must not reach a real network.
var ErrNoGenerator = errors.New("ai: no generator backend configured")

// NoneGenerator always fails; selected by AI_BACKEND=none.
type NoneGenerator struct{}

func (NoneGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrNoGenerator
}
