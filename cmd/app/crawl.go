package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sitecrawler/internal/pkg/metrics"
	"sitecrawler/internal/pkg/output"
	"sitecrawler/pkg/crawl"
)

func newCrawlCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site breadth-first from a seed URL",
		Long:  "Crawls breadth-first from the seed URL and prints the report, or saves it under --output-dir with --save. A seed without a scheme is treated as https.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, args[0])
		},
	}

	flags := cmd.Flags()
	addCrawlFlags(flags)
	flags.Bool("single", false, "only the page itself and its first five links")
	flags.Bool("save", false, "write the report to a file instead of stdout")
	flags.StringP("output-dir", "o", "output", "directory for saved reports")
	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, seedURL string) error {
	cfg, log, err := a.load(cmd, mergeKeys(fetchFlagKeys, crawlFlagKeys, map[string]string{"output.dir": "output-dir"}))
	if err != nil {
		return err
	}
	defer log.Sync()

	maxDepth, maxLinks := cfg.Crawl.MaxDepth, cfg.Crawl.MaxLinksPerPage
	if single, _ := cmd.Flags().GetBool("single"); single {
		maxDepth, maxLinks = crawl.SingleURLMaxDepth, crawl.SingleURLMaxLinksPerPage
	}

	recorder := metrics.NewRecorder()
	defer flushMetrics(cfg, recorder, log)

	report, err := crawl.Crawl(cmd.Context(), seedURL, maxDepth, maxLinks,
		crawl.WithFetchConfig(cfg.FetcherConfig()),
		crawl.WithLogger(log),
		crawl.WithObserver(recorder),
		crawl.WithConcurrency(cfg.Crawl.Concurrency),
		crawl.WithVisitedLimit(cfg.Crawl.VisitedLimit),
	)
	if report == nil {
		return err
	}
	recorder.SeedFinished(err)

	// A cancelled run still emits what it collected.
	if writeErr := a.emit(cmd, cfg.Output.Dir, report, cfg.OutputFormat()); writeErr != nil {
		return errors.Join(err, writeErr)
	}
	return err
}

func (a *app) emit(cmd *cobra.Command, dir string, report *crawl.Report, format output.Format) error {
	if save, _ := cmd.Flags().GetBool("save"); !save {
		return output.Write(cmd.OutOrStdout(), report, format)
	}
	path, err := output.WriteFile(dir, report, format)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
