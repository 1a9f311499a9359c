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

package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/storage"
)

// registerRoutes wires the dispatch table of spec §4.5.
func (r *Router) registerRoutes() {
	r.register("HELLO", AuthNone, handleHello)
	r.register("LOGIN", AuthSession, handleLogin)
	r.register("LOGOUT", AuthUser, handleLogout)
	r.register("STATUS", AuthSession, handleStatus)
	r.register("MERGE_SESSION", AuthSession, handleMergeSession)
	r.register("LIST_ROOMS", AuthUser, handleListRooms)
	r.register("CREATE_ROOM", AuthUser, handleCreateRoom)
	r.register("JOIN_ROOM", AuthUser, handleJoinRoom)
	r.register("LEAVE_ROOM", AuthUser, handleLeaveRoom)
	r.register("LIST_MEMBERS", AuthUser, handleListMembers)
	r.register("LIST_MESSAGES", AuthUser, handleListMessages)
	r.register("MESSAGE", AuthUser, handleMessage)
	r.register("AI_MESSAGE", AuthUser, handleAIMessage)
	r.register("ACK", AuthSession, handleAck)
}

type statusPayload struct {
	User *welcomePayload `json:"user"`
}

// buildStatusPayload resolves the user currently bound to sessionID
// (spec §8 scenarios 2 and 6), leaving User nil if the session has no
// bound user or the lookup itself fails.
func buildStatusPayload(ctx context.Context, r *Router, sessionID string) statusPayload {
	uid, ok := r.sessions.UserID(sessionID)
	if !ok {
		return statusPayload{}
	}
	user, err := r.chat.UserByID(ctx, uid)
	if err != nil || user == nil {
		return statusPayload{}
	}
	return statusPayload{User: &welcomePayload{UserID: user.UserID, Email: user.Email, DisplayName: user.DisplayName}}
}

func handleHello(ctx context.Context, r *Router, req *Request) error {
	return r.sendImmediate(ctx, req.SessionID, "STATUS", buildStatusPayload(ctx, r, req.SessionID))
}

func handleStatus(ctx context.Context, r *Router, req *Request) error {
	return r.sendImmediate(ctx, req.SessionID, "STATUS", buildStatusPayload(ctx, r, req.SessionID))
}

type loginRequest struct {
	Email    string  `json:"email"`
	Password *string `json:"password"`
}

type welcomePayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type pleaseLoginPayload struct {
	Email string `json:"email"`
}

func handleLogin(ctx context.Context, r *Router, req *Request) error {
	var body loginRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed LOGIN payload: %w", err)
	}

	result, err := r.chat.Login(ctx, body.Email, body.Password)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case chat.LoginWelcome:
		if err := r.sessions.BindUser(ctx, req.SessionID, result.User.ID); err != nil {
			return err
		}
		r.sendReliable(ctx, req.SessionID, "WELCOME", welcomePayload{
			UserID: result.User.UserID, Email: result.User.Email, DisplayName: result.User.DisplayName,
		})
	case chat.LoginNeedsPassword:
		r.sendReliable(ctx, req.SessionID, "PLEASE_LOGIN", pleaseLoginPayload{Email: body.Email})
	case chat.LoginUnauthorised:
		r.sendReliable(ctx, req.SessionID, "UNAUTHORISED", nil)
	}
	return nil
}

func handleLogout(ctx context.Context, r *Router, req *Request) error {
	r.sessions.ClearUser(req.SessionID)
	return r.sendImmediate(ctx, req.SessionID, "STATUS", buildStatusPayload(ctx, r, req.SessionID))
}

type mergeSessionRequest struct {
	OldSessionID string `json:"old_session_id"`
	OldSessionKey string `json:"old_session_key"`
}

type mergeFailedPayload struct {
	Reason string `json:"reason"`
}

func handleMergeSession(ctx context.Context, r *Router, req *Request) error {
	var body mergeSessionRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed MERGE_SESSION payload: %w", err)
	}
	if err := r.sessions.Merge(ctx, req.SessionID, body.OldSessionID, body.OldSessionKey); err != nil {
		r.sendReliable(ctx, req.SessionID, "MERGE_SESSION_FAILED", mergeFailedPayload{Reason: err.Error()})
		return nil
	}
	return r.sendImmediate(ctx, req.SessionID, "STATUS", buildStatusPayload(ctx, r, req.SessionID))
}

type roomListPayload struct {
	Rooms []*storage.Room `json:"rooms"`
}

func handleListRooms(ctx context.Context, r *Router, req *Request) error {
	rooms, err := r.chat.ListRooms(ctx)
	if err != nil {
		return err
	}
	r.sendReliable(ctx, req.SessionID, "ROOM_LIST", roomListPayload{Rooms: rooms})
	return nil
}

type createRoomRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

type roomPayload struct {
	Room *storage.Room `json:"room"`
}

type nameTakenPayload struct {
	Error string `json:"error"`
}

func handleCreateRoom(ctx context.Context, r *Router, req *Request) error {
	var body createRoomRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed CREATE_ROOM payload: %w", err)
	}

	room, err := r.chat.CreateRoom(ctx, *req.UserID, body.Name, body.IsPrivate)
	if errors.Is(err, chat.ErrNameTaken) {
		r.sendReliable(ctx, req.SessionID, "ERROR", nameTakenPayload{Error: "name_taken"})
		return nil
	}
	if err != nil {
		return err
	}

	r.sendReliable(ctx, req.SessionID, "ROOM_CREATED", roomPayload{Room: room})
	r.chat.BroadcastMemberEvent(ctx, room, "MEMBER_JOINED", *req.UserID)
	return nil
}

type roomIDRequest struct {
	RoomID string `json:"room_id"`
}

func handleJoinRoom(ctx context.Context, r *Router, req *Request) error {
	var body roomIDRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed JOIN_ROOM payload: %w", err)
	}

	result, err := r.chat.JoinRoom(ctx, *req.UserID, body.RoomID)
	if err != nil {
		return err
	}
	r.sendReliable(ctx, req.SessionID, "ROOM_JOINED", roomPayload{Room: result.Room})
	if result.Added {
		r.chat.BroadcastMemberEvent(ctx, result.Room, "MEMBER_JOINED", *req.UserID)
	}
	return nil
}

func handleLeaveRoom(ctx context.Context, r *Router, req *Request) error {
	var body roomIDRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed LEAVE_ROOM payload: %w", err)
	}

	result, err := r.chat.LeaveRoom(ctx, *req.UserID, body.RoomID)
	if err != nil {
		return err
	}
	r.sendReliable(ctx, req.SessionID, "ROOM_LEFT", roomPayload{Room: result.Room})
	if result.Removed {
		r.chat.BroadcastMemberEvent(ctx, result.Room, "MEMBER_LEFT", *req.UserID)
	}
	return nil
}

type roomMembersPayload struct {
	Members []*storage.Member `json:"members"`
}

// requireMember resolves room_id to its row and verifies req.UserID
// belongs to it, replying UNAUTHORISED and returning false otherwise
// (spec §4.5: "user + member" auth level).
func requireMember(ctx context.Context, r *Router, req *Request, roomID string) (*storage.Room, bool) {
	room, err := r.chat.RoomByPublicID(ctx, roomID)
	if err != nil || !r.chat.IsMember(ctx, room.ID, *req.UserID) {
		r.sendReliable(ctx, req.SessionID, "UNAUTHORISED", nil)
		return nil, false
	}
	return room, true
}

func handleListMembers(ctx context.Context, r *Router, req *Request) error {
	var body roomIDRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed LIST_MEMBERS payload: %w", err)
	}
	if _, ok := requireMember(ctx, r, req, body.RoomID); !ok {
		return nil
	}

	members, err := r.chat.ListMembers(ctx, body.RoomID)
	if err != nil {
		return err
	}
	r.sendReliable(ctx, req.SessionID, "ROOM_MEMBERS", roomMembersPayload{Members: members})
	return nil
}

type listMessagesRequest struct {
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit"`
}

type roomHistoryPayload struct {
	Messages []*storage.Message `json:"messages"`
}

func handleListMessages(ctx context.Context, r *Router, req *Request) error {
	var body listMessagesRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed LIST_MESSAGES payload: %w", err)
	}
	if _, ok := requireMember(ctx, r, req, body.RoomID); !ok {
		return nil
	}

	messages, err := r.chat.ListMessages(ctx, body.RoomID, body.Limit)
	if err != nil {
		return err
	}
	r.sendReliable(ctx, req.SessionID, "ROOM_HISTORY", roomHistoryPayload{Messages: messages})
	return nil
}

type messageRequest struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
}

func handleMessage(ctx context.Context, r *Router, req *Request) error {
	var body messageRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed MESSAGE payload: %w", err)
	}
	if _, ok := requireMember(ctx, r, req, body.RoomID); !ok {
		return nil
	}

	_, err := r.chat.PostMessage(ctx, *req.UserID, body.RoomID, body.Content, false)
	return err
}

type aiMessageRequest struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
}

func handleAIMessage(ctx context.Context, r *Router, req *Request) error {
	var body aiMessageRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed AI_MESSAGE payload: %w", err)
	}
	if _, ok := requireMember(ctx, r, req, body.RoomID); !ok {
		return nil
	}
	if r.ai != nil {
		r.ai.Request(body.RoomID, *req.UserID, body.Content)
	}
	return nil
}

type ackRequest struct {
	MsgID string `json:"msg_id"`
}

func handleAck(ctx context.Context, r *Router, req *Request) error {
	var body ackRequest
	if err := json.Unmarshal(req.Inner.Data, &body); err != nil {
		return fmt.Errorf("router: malformed ACK payload: %w", err)
	}
	r.dispatcher.Ack(req.SessionID, body.MsgID)
	return nil
}
