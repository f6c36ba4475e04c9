package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockwatch/internal/ledger"
	"stockwatch/internal/scraper"
)

// newProbeCmd classifies one URL without touching the database
func newProbeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Fetch and classify a single product page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			url := args[0]

			body, err := a.fetcher().Fetch(cmd.Context(), url)
			if err != nil {
				return err
			}
			obs, err := scraper.ClassifyHTML(body, url, a.now())
			if err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}

			country, brand, ok := scraper.NewCategorizer(a.cfg.Scraper.Categories).Categorize(url)
			if !ok {
				country, brand = "-", "-"
			}
			parsed := "-"
			if p, err := ledger.ParsePrice(obs.Price); err == nil {
				parsed = fmt.Sprintf("%.2f", p)
			}

			return render(cmd.OutOrStdout(), opts.output, obs, func(tw *tabwriter.Writer) {
				row(tw, "url:", obs.URL)
				row(tw, "storefront:", country+" "+brand)
				row(tw, "external id:", obs.ExternalID)
				row(tw, "product:", obs.ProductName)
				row(tw, "type:", obs.ProductType)
				row(tw, "status:", string(obs.Status))
				row(tw, "price:", obs.Price+" ("+parsed+")")
			})
		},
	}
}
