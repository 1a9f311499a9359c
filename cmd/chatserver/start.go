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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sage-x-project/chatcore/ai"
	"github.com/sage-x-project/chatcore/chat"
	"github.com/sage-x-project/chatcore/cryptoprim"
	"github.com/sage-x-project/chatcore/dispatch"
	"github.com/sage-x-project/chatcore/internal/config"
	"github.com/sage-x-project/chatcore/internal/health"
	"github.com/sage-x-project/chatcore/internal/logger"
	"github.com/sage-x-project/chatcore/internal/metrics"
	"github.com/sage-x-project/chatcore/router"
	"github.com/sage-x-project/chatcore/server"
	"github.com/sage-x-project/chatcore/sessionmgr"
	"github.com/sage-x-project/chatcore/storage/postgres"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the chat server",
	Long:  "Starts the UDP listener, metrics endpoint, and health endpoint, and blocks until interrupted.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	log := logger.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	keys, err := cryptoprim.LoadOrGenerateKeyPair(cfg.KeyDir)
	if err != nil {
		return fmt.Errorf("load server keys: %w", err)
	}

	sessions, err := sessionmgr.NewManager(store, keys, cfg.IdleTimeout, log)
	if err != nil {
		return fmt.Errorf("build session manager: %w", err)
	}
	sessions.Start()
	defer sessions.Close()

	srv, err := server.New(cfg.BindAddr, sessions, nil, 0, log)
	if err != nil {
		return fmt.Errorf("bind udp socket: %w", err)
	}

	disp := dispatch.New(dispatch.Config{BaseRTO: cfg.RTOBase, MaxRTO: cfg.RTOMax, MaxAttempts: cfg.MaxAttempts}, srv, sessions, log)
	disp.Start()
	defer disp.Close()

	chatSvc := chat.New(store, sessions, disp, log)
	bridge := buildAIBridge(cfg, chatSvc, log)
	r := router.New(sessions, disp, srv, chatSvc, bridge, log)
	srv.SetRouter(r)

	checker := health.NewChecker(store, sessions, disp)
	healthSrv := health.NewServer(cfg.HealthAddr, checker, log)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsHandler()}

	errCh := make(chan error, 3)
	go func() { errCh <- srv.Serve(ctx) }()
	go func() { errCh <- healthSrv.Start() }()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("chatserver: started",
		logger.String("bind_addr", cfg.BindAddr),
		logger.String("metrics_addr", cfg.MetricsAddr),
		logger.String("health_addr", cfg.HealthAddr))

	select {
	case <-ctx.Done():
		log.Info("chatserver: shutting down")
	case err := <-errCh:
		log.Error("chatserver: fatal error", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Stop(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = srv.Close()

	return nil
}

func buildAIBridge(cfg *config.Config, chatSvc *chat.Service, log logger.Logger) *ai.Bridge {
	var generator ai.Generator
	switch cfg.AIBackend {
	case config.AIBackendOpenAI:
		generator = ai.NewOpenAIGenerator(cfg.OpenAIURL, cfg.OpenAIKey, cfg.OpenAIModel, 30*time.Second)
	case config.AIBackendOllama:
		generator = ai.NewOllamaGenerator(cfg.OllamaHost, cfg.OllamaModel, 30*time.Second)
	default:
		generator = ai.NoneGenerator{}
	}
	return ai.New(chatSvc, generator, 4, log)
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
