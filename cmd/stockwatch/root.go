package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	output     string
}

// NewRootCmd returns the root command of the stockwatch CLI
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "stockwatch",
		Short:         "Track storefront stock status and price history",
		Long:          "stockwatch crawls curated product pages per country and brand, records availability and price changes, and reports out-of-stock incidents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", getEnv("CONFIG_PATH", "config.yaml"), "config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text|json")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newScheduleCmd(opts))
	rootCmd.AddCommand(newURLsCmd(opts))
	rootCmd.AddCommand(newReportCmd(opts))
	rootCmd.AddCommand(newPricesCmd(opts))
	rootCmd.AddCommand(newProbeCmd(opts))

	return rootCmd
}
