package main

import (
	"context"

	"github.com/spf13/cobra"

	"sitecrawler/internal/pkg/administrator"
	"sitecrawler/internal/pkg/fetcher"
	"sitecrawler/internal/pkg/metrics"
	"sitecrawler/internal/pkg/seeder"
	"sitecrawler/pkg/crawl"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Crawl every seed in a file, one report per seed",
		Long:  "Crawls each seed listed in --seeds (one URL per line, # for comments) and saves one report per seed under --output-dir. Progress is saved after each seed so an interrupted batch resumes where it stopped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBatch(cmd)
		},
	}

	flags := cmd.Flags()
	addCrawlFlags(flags)
	flags.String("seeds", "seeds.txt", "file with one seed URL per line")
	flags.String("progress-file", "progress.txt", "file recording how many seeds are done")
	flags.IntP("workers", "w", 2, "seeds crawled in parallel")
	flags.StringP("output-dir", "o", "output", "directory for saved reports")
	return cmd
}

var batchFlagKeys = map[string]string{
	"batch.seeds_file":    "seeds",
	"batch.progress_file": "progress-file",
	"batch.workers":       "workers",
	"output.dir":          "output-dir",
}

func (a *app) runBatch(cmd *cobra.Command) error {
	cfg, log, err := a.load(cmd, mergeKeys(fetchFlagKeys, crawlFlagKeys, batchFlagKeys))
	if err != nil {
		return err
	}
	defer log.Sync()

	recorder := metrics.NewRecorder()
	defer flushMetrics(cfg, recorder, log)

	// One fetcher for all workers so robots rules and per-host pacing are shared.
	f := fetcher.New(cfg.FetcherConfig(), fetcher.WithLogger(log))
	defer f.Close()

	runner := func(ctx context.Context, seed string) (*crawl.Report, error) {
		return crawl.Crawl(ctx, seed, cfg.Crawl.MaxDepth, cfg.Crawl.MaxLinksPerPage,
			crawl.WithPageFetcher(f),
			crawl.WithLogger(log),
			crawl.WithObserver(recorder),
			crawl.WithConcurrency(cfg.Crawl.Concurrency),
			crawl.WithVisitedLimit(cfg.Crawl.VisitedLimit),
		)
	}

	admin := administrator.New(administrator.Config{
		ProgressFile: cfg.Batch.ProgressFile,
		OutputDir:    cfg.Output.Dir,
		Format:       cfg.OutputFormat(),
		Workers:      cfg.Batch.Workers,
	}, seeder.NewFileSeeder(cfg.Batch.SeedsFile), runner,
		administrator.WithLogger(log),
		administrator.WithMetrics(recorder),
	)
	return admin.Run(cmd.Context())
}
