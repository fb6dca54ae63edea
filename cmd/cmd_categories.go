// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the place types and their provider codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		categories, err := loadCategories(viper.GetViper())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LABEL\tGOOGLE\tHERE")

		for _, c := range categories.All() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Label, c.ProviderA, c.ProviderB)
		}

		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
