package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-carmarket/marketplace"
)

func newListingsCommand(a *app) *cobra.Command {
	var (
		page, limit int
		search      string
	)

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List active listings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := a.container(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			listings, err := container.Service().FetchListings(cmd.Context(), page, limit, search)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), listings)
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&limit, "limit", marketplace.DefaultPageSize, "page size, 1 to 100")
	cmd.Flags().StringVar(&search, "search", "", "text matched against make, model and description")
	return cmd
}

func newListingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listing <id>",
		Short: "Show one listing; prints null when it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := a.container(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			listing, err := container.Service().FetchListingByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), listing)
		},
	}
}

func newFeaturedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "featured",
		Short: "List featured listings by popularity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := a.container(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			listings, err := container.Service().FetchFeatured(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), listings)
		},
	}
}

func newSearchCommand(a *app) *cobra.Command {
	var (
		filters    marketplace.SearchFilters
		sort       string
		minPrice   float64
		maxPrice   float64
		maxMileage int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search listings with structured filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("min-price") {
				filters.MinPrice = &minPrice
			}
			if flags.Changed("max-price") {
				filters.MaxPrice = &maxPrice
			}
			if flags.Changed("max-mileage") {
				filters.MaxMileage = &maxMileage
			}
			filters.Sort = marketplace.SortOrder(sort)

			container, err := a.container(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			listings, err := container.Service().SearchWithFilters(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), listings)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filters.Make, "make", "", "make contains")
	f.StringVar(&filters.Model, "model", "", "model contains")
	f.StringVar(&filters.Location, "location", "", "location contains")
	f.StringVar(&filters.FuelType, "fuel-type", "", "petrol, diesel, electric or hybrid")
	f.StringVar(&filters.Transmission, "transmission", "", "automatic or manual")
	f.StringVar(&filters.BodyType, "body-type", "", "body type")
	f.StringVar(&filters.Condition, "condition", "", "new, used or certified")
	f.IntVar(&filters.MinYear, "min-year", 0, "earliest model year")
	f.IntVar(&filters.MaxYear, "max-year", 0, "latest model year")
	f.Float64Var(&minPrice, "min-price", 0, "minimum price")
	f.Float64Var(&maxPrice, "max-price", 0, "maximum price")
	f.IntVar(&maxMileage, "max-mileage", 0, "maximum mileage")
	f.StringVar(&sort, "sort", string(marketplace.SortNewest), "newest, price_asc, price_desc, mileage_asc or year_desc")
	f.IntVar(&filters.Page, "page", 0, "zero-based page")
	f.IntVar(&filters.Limit, "limit", marketplace.DefaultPageSize, "page size, 1 to 100")
	return cmd
}
