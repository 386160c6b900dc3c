package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/profiles"
	"github.com/kartoza/match-odds/internal/server"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Search, inspect and import city demographic profiles",
}

var citiesSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List city names matching a query (no query lists the defaults)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		providers, err := server.OpenProviders(ctx, *cfg, zap.L())
		if err != nil {
			return eris.Wrap(err, "cities: open city data")
		}
		defer providers.Close()

		query := strings.Join(args, " ")
		names, err := providers.Provider.Search(ctx, query)
		if err != nil {
			return eris.Wrapf(err, "cities: search %q", query)
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var citiesLookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Print a city's demographic profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		providers, err := server.OpenProviders(ctx, *cfg, zap.L())
		if err != nil {
			return eris.Wrap(err, "cities: open city data")
		}
		defer providers.Close()

		profile, err := providers.Provider.Lookup(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "cities: look up %q", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var citiesImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import profiles from JSON or YAML seed files into the local database",
	Long: `Each file holds a list of profiles, either bare or under a "cities" key:

  cities:
    - name: Smallville city, Kansas
      population: 45001
      demographics:
        male: 0.49
        female: 0.51
        ageGroups: {"18-24": 0.1, "25-34": 0.14}
        education: {highschool: 0.27, college: 0.31}

Invalid profiles are skipped and reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCitiesImport,
}

var citiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every city in the local database, largest first",
	Args:  cobra.NoArgs,
	RunE:  runCitiesList,
}

var citiesDeleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Remove cities from the local database",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCitiesDelete,
}

func init() {
	citiesCmd.AddCommand(citiesSearchCmd, citiesLookupCmd, citiesImportCmd, citiesListCmd, citiesDeleteCmd)
	rootCmd.AddCommand(citiesCmd)
}

func runCitiesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("command", "cities import"))

	if err := os.MkdirAll(filepath.Dir(cfg.ProfileDB), 0755); err != nil {
		return eris.Wrap(err, "cities import: create database directory")
	}
	store, err := profiles.Open(cfg.ProfileDB, false, log)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	for _, path := range args {
		res, err := store.ImportFile(ctx, path)
		if err != nil {
			return eris.Wrapf(err, "cities import: %s", path)
		}
		fmt.Fprintf(out, "%s: imported %d, skipped %d\n", path, res.Imported, res.Skipped)
		for _, p := range res.Problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d cities in %s\n", n, cfg.ProfileDB)
	return nil
}

func runCitiesList(cmd *cobra.Command, _ []string) error {
	store, err := profiles.Open(cfg.ProfileDB, true, zap.L().With(zap.String("command", "cities list")))
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range list {
		fmt.Fprintf(out, "%-40s %10d\n", p.Name, p.Population)
	}
	return nil
}

func runCitiesDelete(cmd *cobra.Command, args []string) error {
	store, err := profiles.Open(cfg.ProfileDB, false, zap.L().With(zap.String("command", "cities delete")))
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range args {
		if err := store.Delete(cmd.Context(), name); err != nil {
			return eris.Wrapf(err, "cities delete: %q", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
	}
	return nil
}
