// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wardkeep Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the wardkeep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wardkeep",
		Short: "Wardkeep - a block protection service",
		Long: `Wardkeep tracks ownership and access control for world blocks,
persisting protections to PostgreSQL with write-behind saving and an
in-memory record cache.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
