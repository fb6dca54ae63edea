// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcodagnone/poibench/bench"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored reports over HTTP (local only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openRepository(viper.GetString("db-path"), false)
		if err != nil {
			return err
		}
		defer db.Close()

		categories, err := loadCategories(viper.GetViper())
		if err != nil {
			return err
		}

		server := bench.NewServer(repo, categories, logger.With().Str("component", "server").Logger())

		return server.Run(cmd.Context(), viper.GetString("addr"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", bench.DefaultServerAddr, "listen address")
}
