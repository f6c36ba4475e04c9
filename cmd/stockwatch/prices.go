package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/models"
)

func newPricesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Price history queries",
	}

	var country string
	var days int
	history := &cobra.Command{
		Use:   "history <sku>",
		Short: "Price rows of one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var since time.Time
			if days > 0 {
				since = a.now().AddDate(0, 0, -days)
			}
			rows, err := a.db.PriceHistory(cmd.Context(), args[0], country, since)
			if err != nil {
				return err
			}
			return printPriceRows(cmd, opts, rows)
		},
	}
	history.Flags().StringVar(&country, "country", "", "only this country")
	history.Flags().IntVar(&days, "days", 0, "only the last N days")
	cmd.AddCommand(history)

	var onCountry string
	on := &cobra.Command{
		Use:   "on <YYYY-MM-DD>",
		Short: "Price rows written on one day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := time.ParseInLocation(time.DateOnly, args[0], a.loc)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			rows, err := a.db.PriceChangesOn(cmd.Context(), day, onCountry)
			if err != nil {
				return err
			}
			return printPriceRows(cmd, opts, rows)
		},
	}
	on.Flags().StringVar(&onCountry, "country", "", "country code")
	_ = on.MarkFlagRequired("country")
	cmd.AddCommand(on)

	cmd.AddCommand(&cobra.Command{
		Use:   "skus <term>",
		Short: "Search known SKUs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			products, err := a.db.SearchSKUs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, products, func(tw *tabwriter.Writer) {
				row(tw, "SKU", "PRODUCT")
				for _, p := range products {
					row(tw, p.SKU, p.Name)
				}
			})
		},
	})

	return cmd
}

func printPriceRows(cmd *cobra.Command, opts *rootOptions, rows []models.PriceHistoryRow) error {
	return render(cmd.OutOrStdout(), opts.output, rows, func(tw *tabwriter.Writer) {
		row(tw, "SKU", "COUNTRY", "DATE", "PRICE", "REASON")
		for _, r := range rows {
			row(tw, r.SKU, r.Country, formatTime(r.ObservedAt), fmt.Sprintf("%.2f", r.Price), string(r.Reason))
		}
	})
}
