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

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sage-x-project/chatcore/internal/logger"
)

// Server exposes the checker over HTTP: /health for the full report,
// /health/live and /health/ready for orchestrator probes.
type Server struct {
	checker *Checker
	log     logger.Logger
	addr    string
	server  *http.Server
}

// NewServer builds a health Server bound to addr (e.g. ":8090").
func NewServer(addr string, checker *Checker, log logger.Logger) *Server {
	s := &Server{checker: checker, log: log, addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleReport)
	mux.HandleFunc("/health/live", s.handleLive)
	mux.HandleFunc("/health/ready", s.handleReady)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the HTTP server until Stop is called. It returns
// http.ErrServerClosed on a clean shutdown.
func (s *Server) Start() error {
	s.log.Info("health: listening", logger.String("addr", s.addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	report := s.checker.Check(ctx)

	status := http.StatusOK
	if report.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.checker.Live(r.Context()) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_live"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if s.checker.Ready(ctx) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
