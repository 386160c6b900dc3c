package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/config"
	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/logging"
)

var version = "dev"

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "match-odds",
	Short: "Estimate how many compatible matches live in a city",
	Long: `match-odds narrows a city's population through a funnel of filters
(gender, age, education, dating intent, looks, self-rated attractiveness and
social skills) to estimate how many residents are realistic matches.

Configuration comes from the environment (and an optional .env file), then
the saved settings file, then defaults. Flags override all of them.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("data-dir", "", "directory for sessions and the city database")
	pf.Bool("offline", false, "use only the local city database, never the census API")
	pf.String("stage-table", "", "YAML stage table to use instead of the built-in one")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (json or console)")
}

// loadConfig resolves configuration and installs the global logger before
// any subcommand runs.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}

	pf := cmd.Flags()
	if pf.Changed("data-dir") {
		loaded.DataDir, _ = pf.GetString("data-dir")
		if os.Getenv("PROFILE_DB") == "" {
			loaded.ProfileDB = config.DefaultProfileDB(loaded.DataDir)
		}
	}
	if pf.Changed("offline") {
		loaded.Offline, _ = pf.GetBool("offline")
	}
	if pf.Changed("stage-table") {
		loaded.StageTablePath, _ = pf.GetString("stage-table")
	}
	if pf.Changed("log-level") {
		loaded.LogLevel, _ = pf.GetString("log-level")
	}
	if pf.Changed("log-format") {
		loaded.LogFormat, _ = pf.GetString("log-format")
	}
	loaded.Version = version

	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := logging.New(loaded.LogLevel, loaded.LogFormat)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)

	cfg = loaded
	logger = l
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the built-in stage table version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "match-odds v%s (stage table %s)\n", version, funnel.DefaultTableVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
