package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-carmarket/remote/bunclient"
)

func newMigrateCommand(a *app) *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and optionally load fixtures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fixtures *bunclient.Fixtures
			if seedFile != "" {
				raw, err := os.ReadFile(seedFile)
				if err != nil {
					return fmt.Errorf("migrate: read seed file: %w", err)
				}
				fixtures = &bunclient.Fixtures{}
				if err := json.Unmarshal(raw, fixtures); err != nil {
					return fmt.Errorf("migrate: parse seed file %s: %w", seedFile, err)
				}
			}

			container, err := a.container(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Migrate(cmd.Context(), fixtures); err != nil {
				return err
			}

			if fixtures != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "schema ready, seeded %d dealers, %d listings, %d reviews\n",
					len(fixtures.Dealers), len(fixtures.Listings), len(fixtures.Reviews))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "JSON fixtures file with dealers, listings and reviews")
	return cmd
}
