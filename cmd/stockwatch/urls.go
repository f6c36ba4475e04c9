package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockwatch/internal/database"
	"stockwatch/internal/scraper"
)

func newURLsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Manage the curated product URL list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <url>...",
		Short: "Add product URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			categorizer := scraper.NewCategorizer(a.cfg.Scraper.Categories)
			for _, u := range args {
				if _, _, ok := categorizer.Categorize(u); !ok {
					a.log.Warn().Str("url", u).Msg("url matches no storefront and will be ignored by crawls")
				}
				added, err := a.db.AddURL(cmd.Context(), u)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", u)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "exists %s\n", u)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all product URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			urls, err := a.db.ListURLs(cmd.Context())
			if err != nil {
				return err
			}
			return printURLs(cmd, opts, scraper.NewCategorizer(a.cfg.Scraper.Categories), urls)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <term>",
		Short: "Search product URLs by substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			urls, err := a.db.SearchURLs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printURLs(cmd, opts, scraper.NewCategorizer(a.cfg.Scraper.Categories), urls)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <url>",
		Short: "Remove a product URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.RemoveURL(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("url %s is not in the list", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func printURLs(cmd *cobra.Command, opts *rootOptions, categorizer *scraper.Categorizer, urls []string) error {
	return render(cmd.OutOrStdout(), opts.output, urls, func(tw *tabwriter.Writer) {
		row(tw, "COUNTRY", "BRAND", "SKU", "URL")
		for _, u := range urls {
			country, brand, ok := categorizer.Categorize(u)
			if !ok {
				country, brand = "-", "-"
			}
			row(tw, country, brand, scraper.ExtractExternalID(u), u)
		}
	})
}
