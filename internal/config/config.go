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

// Package config reads the chat server's process configuration from
// environment variables. There is no file-based layer: every knob the
// server needs is a single env var with a sane default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AIBackend selects which ai.Generator the server wires up.
type AIBackend string

const (
	AIBackendNone   AIBackend = "none"
	AIBackendOpenAI AIBackend = "openai"
	AIBackendOllama AIBackend = "ollama"
)

// Config is the complete set of knobs chatserver reads at startup.
type Config struct {
	BindAddr    string
	MetricsAddr string
	HealthAddr  string
	DatabaseURL string
	KeyDir      string

	IdleTimeout time.Duration
	RTOBase     time.Duration
	RTOMax      time.Duration
	MaxAttempts int

	AIBackend  AIBackend
	OpenAIKey  string
	OpenAIURL  string
	OpenAIModel string
	OllamaHost string
	OllamaModel string
}

// Load reads Config from the environment, applying the defaults a
// developer running the server locally would expect.
func Load() (*Config, error) {
	cfg := &Config{
		BindAddr:    getenv("BIND_ADDR", "0.0.0.0:9999"),
		MetricsAddr: getenv("METRICS_ADDR", "0.0.0.0:8080"),
		HealthAddr:  getenv("HEALTH_ADDR", ":9200"),
		DatabaseURL: getenv("DB_URL", ""),
		KeyDir:      getenv("KEY_DIR", "./storage/keys"),

		AIBackend:   AIBackend(getenv("AI_BACKEND", string(AIBackendNone))),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIURL:   getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel: getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OllamaHost:  getenv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getenv("OLLAMA_MODEL", "llama3"),
	}

	var err error
	if cfg.IdleTimeout, err = getenvDuration("IDLE_TIMEOUT_SEC", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RTOBase, err = getenvDuration("RTO_BASE_MS", 1000*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RTOMax, err = getenvDuration("RTO_MAX_MS", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = getenvInt("MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DB_URL is required")
	}
	switch cfg.AIBackend {
	case AIBackendNone, AIBackendOpenAI, AIBackendOllama:
	default:
		return nil, fmt.Errorf("config: unknown AI_BACKEND %q", cfg.AIBackend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvDuration reads key as a count of seconds or milliseconds
// according to the suffix baked into the var name (_SEC vs _MS),
// falling back to fallback when unset.
func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	if len(key) >= 3 && key[len(key)-3:] == "_MS" {
		return time.Duration(n) * time.Millisecond, nil
	}
	return time.Duration(n) * time.Second, nil
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}
