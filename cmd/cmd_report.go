// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcodagnone/poibench/bench"
	"github.com/jcodagnone/poibench/places"
)

const dbFile = "poibench.duckdb"

// openRepository opens <dbPath>/poibench.duckdb. With create unset a missing
// database is an error instead of an empty one.
func openRepository(dbPath string, create bool) (*sql.DB, bench.ReportRepository, error) {
	path := filepath.Join(dbPath, dbFile)

	if create {
		if err := os.MkdirAll(dbPath, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating db directory: %w", err)
		}
	} else if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("database not found at %s - run 'poibench run' first", path)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := bench.NewReportRepository(db)
	if err := repo.CreateSchema(); err != nil {
		_ = db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, repo, nil
}

func loadCategories(v *viper.Viper) (*places.CategoryTable, error) {
	if path := v.GetString("categories-file"); path != "" {
		return places.LoadCategoryTable(path)
	}

	return places.DefaultCategoryTable(), nil
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openRepository(viper.GetString("db-path"), false)
		if err != nil {
			return err
		}
		defer db.Close()

		summaries, err := repo.ListReports()
		if err != nil {
			return err
		}

		return writeSummaries(cmd.OutOrStdout(), summaries)
	},
}

func writeSummaries(w io.Writer, summaries []bench.ReportSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLACE\tCREATED\tGRID\tCATEGORY\tPOINTS\tMATCHES\tNON MATCHES\tFAILED\tRATE")

	for _, s := range summaries {
		id := s.ID
		if s.Partial {
			id += "*"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\n",
			id, s.PlaceName, s.CreatedAt.Format(consoleTimeFmt), s.Grid, s.Category,
			s.Points, s.Matches, s.NonMatches, s.FailedQueries, 100*s.MatchRate)
	}

	return tw.Flush()
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report as JSON",
	Long: `Prints the report with the given id. With --by-place the argument is a place
name and the latest report for it is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(viper.GetString("db-path"), false)
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := findReport(repo, args[0], viper.GetBool("by-place"))
		if err != nil {
			return err
		}

		return report.WriteJSON(cmd.OutOrStdout())
	},
}

var reportCellsCmd = &cobra.Command{
	Use:   "cells <id>",
	Short: "Print per-cell match rates of a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(viper.GetString("db-path"), false)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := repo.CellStats(args[0])
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CELL\tPOINTS\tH3 CELLS\tREFERENCES\tMATCHES\tNAME\tSTREET\tDISTANCE\tRATE")

		for _, s := range stats {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f%%\n",
				s.CellIndex, s.Points, s.H3Cells, s.References, s.Matches,
				s.NeededName, s.NeededStreet, s.NeededDistance, 100*s.MatchRate)
		}

		return tw.Flush()
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a stored report as GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(viper.GetString("db-path"), false)
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := findReport(repo, args[0], viper.GetBool("by-place"))
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(bench.ReportGeoJSON(report), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding geojson: %w", err)
		}

		if out := viper.GetString("out"); out != "" {
			return os.WriteFile(out, data, 0o644)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return err
	},
}

func findReport(repo bench.ReportRepository, key string, byPlace bool) (*bench.Report, error) {
	if byPlace {
		return repo.LatestForPlace(key)
	}

	return repo.GetReport(key)
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportCellsCmd)
	reportCmd.AddCommand(reportExportCmd)

	for _, c := range []*cobra.Command{reportShowCmd, reportExportCmd} {
		c.Flags().Bool("by-place", false, "treat the argument as a place name and use its latest report")
	}

	reportExportCmd.Flags().String("out", "", "write to this file instead of stdout")
}
