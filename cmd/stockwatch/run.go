package main

import (
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockwatch/internal/scheduler"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one stock check over all curated URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.job().Run(cmd.Context())
			if summary != nil {
				if rerr := printSummary(cmd, opts, summary); rerr != nil {
					return rerr
				}
			}
			return err
		},
	}
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var cronSpec string
	var runFirst bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run stock checks on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Schedule
			cfg.Enabled = true
			if cronSpec != "" {
				cfg.Cron = cronSpec
			}

			s := scheduler.NewScheduler(a.job(), cfg, a.loc, a.log)
			if runFirst {
				if _, err := s.RunNow(ctx); err != nil {
					a.log.Error().Err(err).Msg("initial stock check failed")
				}
			}
			if err := s.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			s.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "", "cron spec overriding schedule.cron")
	cmd.Flags().BoolVar(&runFirst, "run-now", false, "run one check before waiting for the schedule")
	return cmd
}

func printSummary(cmd *cobra.Command, opts *rootOptions, summary *scheduler.RunSummary) error {
	return render(cmd.OutOrStdout(), opts.output, summary, func(tw *tabwriter.Writer) {
		row(tw, "CATEGORY", "IN", "OUT", "SKIPPED", "DUPLICATES", "STATUS ROWS", "PRICE ROWS", "FAILED")
		for _, c := range summary.Categories {
			row(tw,
				c.Category.Key(),
				strconv.Itoa(c.InStock),
				strconv.Itoa(c.OutOfStock),
				strconv.Itoa(len(c.SkippedURLs)),
				strconv.Itoa(c.Duplicates),
				strconv.Itoa(c.Status.Written),
				strconv.Itoa(c.Prices.Written),
				strconv.Itoa(c.Status.Failed+c.Prices.Failed),
			)
		}
		if summary.Budget.Enabled {
			row(tw, "")
			row(tw, "request budget:", strconv.Itoa(summary.Budget.RemainingThisDay)+" of "+strconv.Itoa(summary.Budget.LimitPerDay)+" left")
		}
		for _, c := range summary.Categories {
			if len(c.SkippedURLs) > 0 {
				row(tw, "")
				row(tw, "skipped "+c.Category.Key()+":", strings.Join(c.SkippedURLs, " "))
			}
		}
	})
}
