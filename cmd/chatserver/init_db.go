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
	"fmt"

	"github.com/sage-x-project/chatcore/internal/config"
	"github.com/sage-x-project/chatcore/storage/postgres"
	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init_db",
	Short: "Create the database schema",
	Long:  "Connects to DB_URL and creates every table the server needs, idempotently.",
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	if err := postgres.InitSchema(ctx, store); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
	return nil
}
