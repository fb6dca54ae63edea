// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
	"github.com/jcodagnone/poibench/utils/textutils"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Show how names and addresses are normalized for matching",
	Long: `Reads one string per line and prints it followed by its normalized form and
tokens.

$ echo "Joe's Pizza, 7 Carmine St." | poibench debug normalize
Joe's Pizza, 7 Carmine St.	joes pizza 7 carmine st	["joes","pizza","7","carmine","st"]
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter strings to normalize, one per line…")
		}

		return normalizeLines(input, cmd.OutOrStdout())
	},
}

func normalizeLines(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		tokens, err := json.Marshal(textutils.Tokens(line))
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", line, textutils.Normalize(line), tokens)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var debugReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one reference record against candidates read from stdin",
	Long: `Reads candidate place records, one JSON object per line, and prints the match
result for the reference given by flags. --lat and --lng are the sample point the
candidates were found around; the distance fallback is measured from there.

$ echo '{"name":"Joe'"'"'s Pizza","street":"Carmine St","house_number":"7","lat":40.7305,"lng":-74.0021}' |
    poibench debug reconcile --name "Joe's Pizza" --address "7 Carmine St, New York" --lat 40.7306 --lng -74.0022
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter candidate records as JSON, one per line…")
		}

		v := viper.GetViper()
		ref := places.PlaceRecord{
			Provider:         "reference",
			Name:             v.GetString("name"),
			FormattedAddress: v.GetString("address"),
		}
		at := spatial.Point{Lat: v.GetFloat64("lat"), Lng: v.GetFloat64("lng")}

		thresholds := reconcile.DefaultThresholds()
		setFloat(v, "distance", &thresholds.DistanceFallbackMeters)
		setFloat(v, "street-similarity", &thresholds.StreetSimilarity)

		if err := thresholds.Validate(); err != nil {
			return err
		}

		return reconcileLines(input, cmd.OutOrStdout(), ref, at, reconcile.NewEngine(thresholds))
	},
}

func reconcileLines(r io.Reader, w io.Writer, ref places.PlaceRecord, at spatial.Point, engine *reconcile.Engine) error {
	var candidates []places.PlaceRecord

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var candidate places.PlaceRecord
		if err := json.Unmarshal([]byte(line), &candidate); err != nil {
			return fmt.Errorf("parsing candidate %q: %w", line, err)
		}

		candidates = append(candidates, candidate)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result := engine.Reconcile(ref, candidates, at)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugNormalizeCmd)
	debugCmd.AddCommand(debugReconcileCmd)

	flags := debugReconcileCmd.Flags()
	flags.String("name", "", "reference name")
	flags.String("address", "", "reference formatted address")
	flags.Float64("lat", 0, "sample point latitude")
	flags.Float64("lng", 0, "sample point longitude")
	flags.Float64("distance", reconcile.DefaultThresholds().DistanceFallbackMeters, "distance fallback threshold in meters")
	flags.Float64("street-similarity", reconcile.DefaultThresholds().StreetSimilarity, "minimum street token similarity")
}
