package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-carmarket/config"
	"github.com/goliatone/go-carmarket/pkg/di"
)

// app carries the state shared by every subcommand.
type app struct {
	configFile string
	envPrefix  string
	cfg        config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "carmarket",
		Short:         "Cached query facade for the car marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if a.configFile != "" {
				files = append(files, a.configFile)
			}
			cfg, err := config.NewLoader(a.envPrefix, files...).Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.envPrefix, "env-prefix", config.DefaultEnvPrefix, "environment variable prefix")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newListingsCommand(a),
		newListingCommand(a),
		newFeaturedCommand(a),
		newSearchCommand(a),
	)
	return root
}

// container builds the dependency graph, logging to the command's stderr.
func (a *app) container(cmd *cobra.Command) (*di.Container, error) {
	return di.NewContainer(cmd.Context(), a.cfg, di.WithLogOutput(cmd.ErrOrStderr()))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
