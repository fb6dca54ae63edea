// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "POIBENCH"
	configName     = "poibench"
	consoleTimeFmt = "2006-01-02 15:04:05"
)

var (
	configFile string
	logger     = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "poibench",
	Short: "benchmark point-of-interest coverage between two places providers",
	Long: `
poibench samples random points inside a region, asks two places providers for
what they know around every point and reconciles each provider's records against
the other one, reporting how often (and how loosely) they agree.
`,
	SilenceUsage:      true,
	PersistentPreRunE: setupCommand,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is ./poibench.yaml)")
	flags.String("log-level", "info", "trace, debug, info, warn or error")
	flags.String("log-format", "console", "console or json")
	flags.String("db-path", "db", "directory holding poibench.duckdb")
	flags.String("categories-file", "", "YAML category table replacing the embedded one")
}

// setupCommand loads .env, the config file and the environment into viper, binds
// the flags of the running command and configures the logger.
func setupCommand(cmd *cobra.Command, _ []string) error {
	// A missing .env is the common case.
	_ = godotenv.Load()

	if err := initConfig(viper.GetViper()); err != nil {
		return err
	}

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	l, err := newLogger(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format"))
	if err != nil {
		return err
	}

	logger = l
	if path := viper.ConfigFileUsed(); path != "" {
		logger.Debug().Str("path", path).Msg("Using config file")
	}

	return nil
}

func initConfig(v *viper.Viper) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Provider keys keep their conventional unprefixed names.
	for key, env := range map[string]string{
		googleKeyName: "GOOGLE_MAPS_API_KEY",
		hereKeyName:   "HERE_API_KEY",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	return nil
}

// newLogger builds the process logger: human readable lines by default, one JSON
// object per event with format "json".
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFmt, NoColor: !isTerminal(os.Stderr)}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q: want console or json", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
