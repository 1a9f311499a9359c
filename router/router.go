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

// Package router implements the packet router of spec §4.5: it
// dispatches an admitted inner payload by its type to a handler,
// enforcing each handler's declared authentication requirement and
// acknowledging inbound payloads that carry a msg_id before processing.
package router

import (
	"context"
	"fmt"

	"github.com/sage-x-project/chatcore/ai"
	"github.com/sage-x-project/chatcore/chaterr"
	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/dispatch"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/wirecodec"
)

// AuthLevel is a handler's minimum authentication requirement.
type AuthLevel int

const (
	// AuthNone requires nothing beyond a parsed inner payload.
	AuthNone AuthLevel = iota
	// AuthSession requires a live session (guaranteed by admission itself).
	AuthSession
	// AuthUser requires the session to have a user bound (post-LOGIN).
	AuthUser
)

// Request is one admitted inner payload handed to a handler.
type Request struct {
	SessionID string
	UserID    *int64
	Inner     *wirecodec.InnerPayload
}

// HandlerFunc implements one inner payload type.
type HandlerFunc func(ctx context.Context, r *Router, req *Request) error

type registration struct {
	auth    AuthLevel
	handler HandlerFunc
}

// sessionManager is the slice of sessionmgr.Manager the router needs:
// sealing direct replies, resolving the bound user, and the
// session-lifecycle operations driven by LOGIN/LOGOUT/MERGE_SESSION.
type sessionManager interface {
	Seal(sessionID string, plaintext []byte) (nonce, ciphertext []byte, err error)
	RemoteAddr(sessionID string) (string, bool)
	UserID(sessionID string) (int64, bool)
	BindUser(ctx context.Context, sessionID string, userID int64) error
	ClearUser(sessionID string)
	Merge(ctx context.Context, currentSessionID, oldSessionID, oldSessionKeyHex string) error
}

// Router dispatches admitted inner payloads to registered handlers.
type Router struct {
	sessions   sessionManager
	dispatcher *dispatch.Dispatcher
	sender     dispatch.Sender
	chat       *chat.Service
	ai         *ai.Bridge
	log        logger.Logger

	routes map[string]registration
}

// New constructs a Router wired to its collaborators and registers the
// full dispatch table of spec §4.5.
func New(sessions sessionManager, dispatcher *dispatch.Dispatcher, sender dispatch.Sender, chatSvc *chat.Service, aiBridge *ai.Bridge, log logger.Logger) *Router {
	r := &Router{
		sessions:   sessions,
		dispatcher: dispatcher,
		sender:     sender,
		chat:       chatSvc,
		ai:         aiBridge,
		log:        log,
		routes:     make(map[string]registration),
	}
	r.registerRoutes()
	return r
}

func (r *Router) register(kind string, auth AuthLevel, h HandlerFunc) {
	r.routes[kind] = registration{auth: auth, handler: h}
}

// Route dispatches one admitted payload. Inbound payloads bearing a
// msg_id are ACKed immediately, before the handler runs (spec §4.4).
func (r *Router) Route(ctx context.Context, admitted *sessionmgr.Admitted) {
	req := &Request{SessionID: admitted.SessionID, UserID: admitted.UserID, Inner: admitted.Inner}

	if admitted.Inner.MsgID != "" && admitted.Inner.Type != "ACK" {
		if err := r.sendImmediate(ctx, admitted.SessionID, "ACK", ackPayload{MsgID: admitted.Inner.MsgID}); err != nil {
			r.log.Warn("router: send ack failed", logger.Error(err))
		}
	}

	reg, ok := r.routes[admitted.Inner.Type]
	if !ok {
		r.replyError(ctx, req, "unknown message type: "+admitted.Inner.Type)
		return
	}

	if reg.auth >= AuthUser && req.UserID == nil {
		r.sendReliable(ctx, req.SessionID, "UNAUTHORISED", nil)
		return
	}

	if err := reg.handler(ctx, r, req); err != nil {
		r.handleError(ctx, req, err)
	}
}

type ackPayload struct {
	MsgID string `json:"msg_id"`
}

func (r *Router) handleError(ctx context.Context, req *Request, err error) {
	kind := chaterr.KindOf(err)
	switch kind {
	case chaterr.KindAuth:
		r.sendReliable(ctx, req.SessionID, "UNAUTHORISED", nil)
	case chaterr.KindTransient:
		r.replyError(ctx, req, "internal")
	default:
		r.replyError(ctx, req, err.Error())
	}
	r.log.Warn("router: handler error",
		logger.PayloadType(req.Inner.Type),
		logger.Error(err))
}

func (r *Router) replyError(ctx context.Context, req *Request, message string) {
	r.sendReliable(ctx, req.SessionID, "ERROR", errorPayload{Message: message})
}

type errorPayload struct {
	Message string `json:"message"`
}

// sendReliable submits a direct reply through the reliable dispatcher
// (spec §4.4: every outbound payload except ACK and STATUS).
func (r *Router) sendReliable(ctx context.Context, sessionID, kind string, data any) {
	if _, err := r.dispatcher.Enqueue(ctx, sessionID, kind, data); err != nil {
		r.log.Warn("router: reliable send failed", logger.Error(err))
	}
}

// sendImmediate seals and transmits kind/data directly, bypassing the
// retry queue, for ACK and STATUS (spec §4.4).
func (r *Router) sendImmediate(ctx context.Context, sessionID, kind string, data any) error {
	plaintext, err := wirecodec.EncodeInnerPayload(kind, data, "")
	if err != nil {
		return fmt.Errorf("router: encode %s: %w", kind, err)
	}
	nonce, ciphertext, err := r.sessions.Seal(sessionID, plaintext)
	if err != nil {
		return fmt.Errorf("router: seal %s: %w", kind, err)
	}
	frame, err := wirecodec.EncodeSecureEnvelope(sessionID, nonce, ciphertext)
	if err != nil {
		return fmt.Errorf("router: envelope %s: %w", kind, err)
	}
	addr, ok := r.sessions.RemoteAddr(sessionID)
	if !ok {
		return fmt.Errorf("router: no address for session")
	}
	return r.sender.Send(ctx, addr, frame)
}
