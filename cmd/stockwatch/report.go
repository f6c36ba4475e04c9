package main

import (
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockwatch/internal/analytics"
)

type reportFlags struct {
	country string
	brand   string
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	flags := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Out-of-stock reports for one country and brand",
	}
	cmd.PersistentFlags().StringVar(&flags.country, "country", "", "country code, e.g. NL")
	cmd.PersistentFlags().StringVar(&flags.brand, "brand", "", "brand name, e.g. Shark")
	_ = cmd.MarkPersistentFlagRequired("country")
	_ = cmd.MarkPersistentFlagRequired("brand")

	cmd.AddCommand(reportCmd("current", "Products currently out of stock", opts, flags,
		func(cmd *cobra.Command, svc *analytics.Service) error {
			rows, err := svc.CurrentOutOfStock(cmd.Context(), flags.country, flags.brand)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, rows, func(tw *tabwriter.Writer) {
				row(tw, "SKU", "PRODUCT", "OUT SINCE", "DAYS", "PRICE")
				for _, r := range rows {
					row(tw, r.SKU, r.ProductName, formatTime(r.OutSince), strconv.Itoa(r.DaysOut), formatPrice(r.CurrentPrice))
				}
			})
		}))

	cmd.AddCommand(reportCmd("durations", "Closed out-of-stock incidents", opts, flags,
		func(cmd *cobra.Command, svc *analytics.Service) error {
			rows, err := svc.OutOfStockDurations(cmd.Context(), flags.country, flags.brand)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, rows, func(tw *tabwriter.Writer) {
				row(tw, "SKU", "PRODUCT", "OUT", "BACK IN", "DAYS")
				for _, r := range rows {
					row(tw, r.SKU, r.ProductName, formatTime(r.OutDate), formatTime(r.BackInDate), strconv.Itoa(r.DurationDays))
				}
			})
		}))

	cmd.AddCommand(reportCmd("history", "Every out-of-stock run, ongoing or ended", opts, flags,
		func(cmd *cobra.Command, svc *analytics.Service) error {
			rows, err := svc.OutOfStockHistory(cmd.Context(), flags.country, flags.brand)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, rows, func(tw *tabwriter.Writer) {
				row(tw, "SKU", "PRODUCT", "START", "END", "DAYS", "STATUS")
				for _, r := range rows {
					end := "-"
					if r.End != nil {
						end = formatTime(*r.End)
					}
					row(tw, r.SKU, r.ProductName, formatTime(r.Start), end, strconv.Itoa(r.DurationDays), string(r.Label))
				}
			})
		}))

	cmd.AddCommand(reportCmd("latest", "Latest status of every product", opts, flags,
		func(cmd *cobra.Command, svc *analytics.Service) error {
			rows, err := svc.LatestStatus(cmd.Context(), flags.country, flags.brand)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, rows, func(tw *tabwriter.Writer) {
				row(tw, "SKU", "PRODUCT", "OBSERVED", "STATUS", "PRICE")
				for _, r := range rows {
					row(tw, r.SKU, r.ProductName, formatTime(r.ObservedAt), string(r.Status), formatPrice(r.CurrentPrice))
				}
			})
		}))

	cmd.AddCommand(reportCmd("last-out", "Last out-of-stock date of products not back in stock", opts, flags,
		func(cmd *cobra.Command, svc *analytics.Service) error {
			rows, err := svc.LastOutOfStockDates(cmd.Context(), flags.country, flags.brand)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, rows, func(tw *tabwriter.Writer) {
				row(tw, "SKU", "PRODUCT", "LAST OUT", "DAYS")
				for _, r := range rows {
					row(tw, r.SKU, r.ProductName, formatTime(r.LastOut), strconv.Itoa(r.DaysSince))
				}
			})
		}))

	return cmd
}

func reportCmd(use, short string, opts *rootOptions, flags *reportFlags, fn func(*cobra.Command, *analytics.Service) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return fn(cmd, a.analytics())
		},
	}
}
