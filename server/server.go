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

// Package server owns the UDP socket (spec §5): it runs the receive
// loop, routes each datagram to the handshake or the packet router
// through a bounded worker pool, and implements dispatch.Sender for
// outbound frames. The reliable dispatcher's and session manager's
// lifecycles are driven by the caller that wires them together.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sage-x-project/chatcore/chaterr"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/router"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/wirecodec"
	"golang.org/x/sync/errgroup"
)

// maxDatagramSize bounds a single read, matching the outbound frame cap.
const maxDatagramSize = wirecodec.MaxFrameSize

// sessionHandshaker is the slice of sessionmgr.Manager the server
// needs directly, beyond what it hands to the Router.
type sessionHandshaker interface {
	Handshake(ctx context.Context, remoteAddr string, clientKeyDER []byte) ([]byte, error)
	Admit(ctx context.Context, raw []byte, remoteAddr string) (*sessionmgr.Admitted, error)
	Seal(sessionID string, plaintext []byte) (nonce, ciphertext []byte, err error)
}

// Server owns the UDP listener and dispatches inbound frames.
type Server struct {
	conn     net.PacketConn
	sessions sessionHandshaker
	router   *router.Router
	log      logger.Logger

	workers int

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New binds addr and wires a Server around the given collaborators.
// workers bounds the number of datagrams processed concurrently.
func New(addr string, sessions sessionHandshaker, r *router.Router, workers int, log logger.Logger) (*Server, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 64
	}
	return &Server{
		conn:     conn,
		sessions: sessions,
		router:   r,
		log:      log,
		workers:  workers,
		closeCh:  make(chan struct{}),
	}, nil
}

// LocalAddr returns the address the UDP socket is bound to.
func (s *Server) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// SetRouter wires the packet router after construction, breaking the
// construction cycle between the socket (a dispatch.Sender) and the
// router (which needs a dispatcher built from that same Sender).
func (s *Server) SetRouter(r *router.Router) { s.router = r }

// Send implements dispatch.Sender by writing frame to remoteAddr.
func (s *Server) Send(ctx context.Context, remoteAddr string, frame []byte) error {
	addr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return err
	}
	_, err = s.conn.WriteTo(frame, addr)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("send_error").Inc()
	}
	return err
}

// Serve runs the receive loop until ctx is canceled or Close is
// called. Each datagram is handed to a bounded pool of goroutines via
// errgroup so a slow handshake or crypto operation cannot stall the
// socket reader.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, s.workers)

	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			s.worker(gctx, jobs)
			return nil
		})
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(jobs)
		s.readLoop(ctx, jobs)
	}()

	<-ctx.Done()
	s.wg.Wait()
	return g.Wait()
}

type job struct {
	raw  []byte
	addr string
}

func (s *Server) readLoop(ctx context.Context, jobs chan<- job) {
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-s.closeCh:
				return
			default:
				s.log.Warn("server: read error", logger.Error(err))
				continue
			}
		}
		if n == 0 {
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		select {
		case jobs <- job{raw: raw, addr: addr.String()}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) worker(ctx context.Context, jobs <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			s.handle(ctx, j)
		}
	}
}

func (s *Server) handle(ctx context.Context, j job) {
	frameType, err := wirecodec.PeekType(j.raw)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("malformed").Inc()
		return
	}

	switch frameType {
	case wirecodec.TypeSessionInit:
		s.handleSessionInit(ctx, j)
	case wirecodec.TypeSecureMsg:
		s.handleSecureMsg(ctx, j)
	default:
		metrics.FramesDropped.WithLabelValues("unknown_type").Inc()
	}
}

func (s *Server) handleSessionInit(ctx context.Context, j job) {
	clientKeyDER, err := wirecodec.ParseClientHello(j.raw)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("malformed_hello").Inc()
		return
	}
	reply, err := s.sessions.Handshake(ctx, j.addr, clientKeyDER)
	if err != nil {
		s.log.Warn("server: handshake failed", logger.Error(err))
		return
	}
	if err := s.Send(ctx, j.addr, reply); err != nil {
		s.log.Warn("server: send handshake reply failed", logger.Error(err))
	}
}

func (s *Server) handleSecureMsg(ctx context.Context, j job) {
	admitted, err := s.sessions.Admit(ctx, j.raw, j.addr)
	if err != nil {
		s.handleAdmitError(ctx, j, err)
		return
	}
	s.router.Route(ctx, admitted)
}

// handleAdmitError implements the NO_SESSION policy of spec §4.3 and
// the known-session ERROR policy of spec §7: a session_id naming no
// live session gets a cleartext NO_SESSION reply only when another
// live session exists for the same address (so the client can recover
// by resuming it), and is otherwise silently dropped to avoid
// answering unsolicited traffic. A KindProtocol failure on a session
// that Admit did find gets an encrypted ERROR reply instead, since the
// peer can be addressed safely. KindCrypto and KindReplay failures are
// dropped without a reply.
func (s *Server) handleAdmitError(ctx context.Context, j job, err error) {
	var noSession *sessionmgr.NoSessionError
	if errors.As(err, &noSession) {
		if noSession.AltSessionID == "" {
			metrics.FramesDropped.WithLabelValues("no_session").Inc()
			return
		}
		frame, encErr := wirecodec.EncodeInnerPayload("ERROR", map[string]string{"code": "NO_SESSION", "alt_session_id": noSession.AltSessionID}, "")
		if encErr != nil {
			s.log.Warn("server: encode no_session reply failed", logger.Error(encErr))
			return
		}
		if sendErr := s.Send(ctx, j.addr, frame); sendErr != nil {
			s.log.Warn("server: send no_session reply failed", logger.Error(sendErr))
		}
		return
	}

	switch chaterr.KindOf(err) {
	case chaterr.KindProtocol:
		s.replyEncryptedError(ctx, j, err)
	default:
		s.log.Debug("server: admit rejected", logger.Error(err))
	}
}

// replyEncryptedError seals and sends an ERROR inner payload back to
// the session named by j.raw's envelope. Silently drops on any
// failure to identify or reach that session, matching the rest of the
// admission path's fail-closed posture.
func (s *Server) replyEncryptedError(ctx context.Context, j job, cause error) {
	sessionID, _, _, parseErr := wirecodec.ParseSecureEnvelope(j.raw)
	if parseErr != nil {
		s.log.Debug("server: admit rejected", logger.Error(cause))
		return
	}
	plaintext, encErr := wirecodec.EncodeInnerPayload("ERROR", map[string]string{"message": "internal"}, "")
	if encErr != nil {
		s.log.Warn("server: encode admit error reply failed", logger.Error(encErr))
		return
	}
	nonce, ciphertext, sealErr := s.sessions.Seal(sessionID, plaintext)
	if sealErr != nil {
		s.log.Warn("server: seal admit error reply failed", logger.Error(sealErr))
		return
	}
	frame, envErr := wirecodec.EncodeSecureEnvelope(sessionID, nonce, ciphertext)
	if envErr != nil {
		s.log.Warn("server: envelope admit error reply failed", logger.Error(envErr))
		return
	}
	if sendErr := s.Send(ctx, j.addr, frame); sendErr != nil {
		s.log.Warn("server: send admit error reply failed", logger.Error(sendErr))
	}
}

// Close stops the receive loop and closes the UDP socket.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.closeCh)
	return s.conn.Close()
}
