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

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultHistoryDepth is the number of recent messages composed
	// into the generation prompt (spec §4.7).
	DefaultHistoryDepth = 20
	aiUserEmail         = "ai-assistant@chatcore.local"
	aiUserDisplayName   = "AI Assistant"
)

// Bridge runs AI_MESSAGE requests off the request path, bounded by a
// worker pool so a slow or stuck generator cannot exhaust server
// goroutines (spec §4.7).
type Bridge struct {
	chat      *chat.Service
	generator Generator
	sem       *semaphore.Weighted
	history   int
	log       logger.Logger
}

// New constructs a Bridge with maxConcurrent simultaneous generations in flight.
func New(chatSvc *chat.Service, generator Generator, maxConcurrent int64, log logger.Logger) *Bridge {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Bridge{
		chat:      chatSvc,
		generator: generator,
		sem:       semaphore.NewWeighted(maxConcurrent),
		history:   DefaultHistoryDepth,
		log:       log,
	}
}

// Request schedules a generation for roomID on behalf of requesterUserID.
// It returns immediately; saturation is rejected and logged rather than
// queued, since AI_MESSAGE's only direct reply is the router's ACK.
func (b *Bridge) Request(roomID string, requesterUserID int64, extraContent string) {
	if !b.sem.TryAcquire(1) {
		metrics.AIRequests.WithLabelValues("rejected_saturated").Inc()
		b.log.Warn("ai: worker pool saturated, dropping request", logger.RoomID(roomID))
		return
	}

	go func() {
		defer b.sem.Release(1)
		b.run(roomID, requesterUserID, extraContent)
	}()
}

func (b *Bridge) run(roomID string, requesterUserID int64, extraContent string) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	prompt, err := b.composePrompt(ctx, roomID, extraContent)
	if err != nil {
		metrics.AIRequests.WithLabelValues("prompt_error").Inc()
		b.log.Warn("ai: compose prompt failed", logger.Error(err))
		return
	}

	reply, err := b.generator.Generate(ctx, prompt)
	metrics.AIRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AIRequests.WithLabelValues("generator_error").Inc()
		b.log.Warn("ai: generation failed, swallowing", logger.Error(err))
		return
	}

	aiUser, err := b.chat.EnsureAIUser(ctx, aiUserEmail, aiUserDisplayName, roomID)
	if err != nil {
		metrics.AIRequests.WithLabelValues("join_error").Inc()
		b.log.Warn("ai: ensure ai user failed", logger.Error(err))
		return
	}

	if _, err := b.chat.PostMessage(ctx, aiUser.ID, roomID, reply, false); err != nil {
		metrics.AIRequests.WithLabelValues("post_error").Inc()
		b.log.Warn("ai: post reply failed", logger.Error(err))
		return
	}
	metrics.AIRequests.WithLabelValues("success").Inc()
}

func (b *Bridge) composePrompt(ctx context.Context, roomID, extraContent string) (string, error) {
	recent, err := b.chat.RecentTail(ctx, roomID, b.history)
	if err != nil {
		return "", fmt.Errorf("ai: recent tail: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful participant in a group chat. Continue the conversation naturally.\n\n")
	for _, m := range recent {
		sb.WriteString(fmt.Sprintf("user %d: %s\n", m.UserID, m.Content))
	}
	if extraContent != "" {
		sb.WriteString("\nrequest: " + extraContent + "\n")
	}
	return sb.String(), nil
}
