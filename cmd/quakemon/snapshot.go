package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-monitor-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-monitor-service/internal/config"
	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
)

type snapshotOptions struct {
	timeRange    string
	minMagnitude string
	depth        string
	search       string
	sort         string
	json         bool
}

func newSnapshotCmd() *cobra.Command {
	opts := &snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch the feed once and print the filtered events",
		Long: `Fetch the feed once, apply the filter criteria and print the result.

Examples:
  quakemon snapshot --range week --min-magnitude 4.5
  quakemon snapshot --depth deep --sort magnitude-desc
  quakemon snapshot --search alaska --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runSnapshot(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.timeRange, "range", "r", "", "feed time range (hour, day, week, month, all); defaults to TIME_RANGE")
	cmd.Flags().StringVarP(&opts.minMagnitude, "min-magnitude", "m", "0", "minimum magnitude")
	cmd.Flags().StringVarP(&opts.depth, "depth", "d", string(domain.DepthAll), "depth band (all, shallow, intermediate, deep)")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "case-insensitive place filter")
	cmd.Flags().StringVar(&opts.sort, "sort", string(domain.SortTimeDesc), "sort order, e.g. time-desc or magnitude-desc")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output as JSON")

	return cmd
}

func runSnapshot(cmd *cobra.Command, cfg *config.Config, opts *snapshotOptions) error {
	r := cfg.TimeRange
	if opts.timeRange != "" {
		parsed, err := domain.ParseTimeRange(opts.timeRange)
		if err != nil {
			return err
		}
		r = parsed
	}
	criteria, err := domain.ParseCriteria(opts.minMagnitude, opts.depth, opts.search, opts.sort)
	if err != nil {
		return err
	}

	// Logs go to stderr so the table stays clean on stdout.
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg)
	metrics := observability.NewMetricsForTesting()

	client := usgs.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, newGeocoder(cfg, metrics, logger), metrics, logger)
	quakes, err := client.Fetch(cmd.Context(), r)
	if err != nil {
		return fmt.Errorf("fetch %s feed: %w", r, err)
	}

	selected := domain.Select(quakes, criteria)
	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(selected)
	}
	return writeTable(cmd.OutOrStdout(), selected, len(quakes))
}

func writeTable(out io.Writer, quakes []domain.Quake, total int) error {
	if len(quakes) == 0 {
		_, err := fmt.Fprintln(out, "No earthquakes found")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tMAG\tDEPTH\tPLACE\tTIME (UTC)")
	for _, q := range quakes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			domain.ClassifyMagnitude(q.Magnitude),
			strconv.FormatFloat(q.Magnitude, 'f', 1, 64),
			domain.FormatDepth(q.Depth),
			q.Place,
			q.OccurredAt().Format(time.DateTime),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d of %d earthquakes\n", len(quakes), total)
	return err
}
