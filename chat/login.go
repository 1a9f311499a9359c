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
	"golang.org/x/crypto/bcrypt"
)

// LoginOutcome classifies the result of a LOGIN attempt (spec §4.6).
type LoginOutcome int

const (
	// LoginWelcome: the user is bound to the session; reply WELCOME{user}.
	LoginWelcome LoginOutcome = iota
	// LoginNeedsPassword: the account has a password but none was supplied; reply PLEASE_LOGIN{email}.
	LoginNeedsPassword
	// LoginUnauthorised: a password was supplied but didn't match; reply UNAUTHORISED.
	LoginUnauthorised
)

// LoginResult is the outcome of Login.
type LoginResult struct {
	Outcome LoginOutcome
	User    *storage.User
}

// Login implements LOGIN (spec §4.6): passwordless or new accounts
// bind immediately; accounts with a password require one that matches.
func (s *Service) Login(ctx context.Context, email string, password *string) (*LoginResult, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		user = &storage.User{UserID: uuid.NewString(), Email: email, DisplayName: email}
		if password != nil && *password != "" {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
			if hashErr != nil {
				return nil, fmt.Errorf("chat: hash password: %w", hashErr)
			}
			user.PasswordHash = string(hash)
		}
		if err := s.repo.Users().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("chat: login: create user: %w", err)
		}
		return &LoginResult{Outcome: LoginWelcome, User: user}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: login: lookup user: %w", err)
	}

	if !user.HasPassword() {
		return &LoginResult{Outcome: LoginWelcome, User: user}, nil
	}
	if password == nil {
		return &LoginResult{Outcome: LoginNeedsPassword, User: user}, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*password)) != nil {
		return &LoginResult{Outcome: LoginUnauthorised, User: user}, nil
	}
	return &LoginResult{Outcome: LoginWelcome, User: user}, nil
}

// UserByID resolves a session's bound user id to its User row, for
// STATUS replies (spec §8 scenarios 2 and 6). Returns nil, nil if the
// id names no user.
func (s *Service) UserByID(ctx context.Context, id int64) (*storage.User, error) {
	user, err := s.repo.Users().GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: user by id: %w", err)
	}
	return user, nil
}
