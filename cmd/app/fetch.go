package main

import (
	"github.com/spf13/cobra"

	"sitecrawler/internal/pkg/fetcher"
	"sitecrawler/internal/pkg/metrics"
	"sitecrawler/internal/pkg/output"
	"sitecrawler/internal/pkg/types"
	"sitecrawler/internal/pkg/utils"
)

func newFetchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch and extract a single page without following links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, args[0])
		},
	}
	addFetchFlags(cmd.Flags())
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, rawURL string) error {
	cfg, log, err := a.load(cmd, fetchFlagKeys)
	if err != nil {
		return err
	}
	defer log.Sync()

	pageURL, err := utils.BuildFullUrl(rawURL)
	if err != nil {
		return &types.ConfigurationError{Field: "url", Value: rawURL, Reason: err.Error()}
	}

	f := fetcher.New(cfg.FetcherConfig(), fetcher.WithLogger(log))
	defer f.Close()

	recorder := metrics.NewRecorder()
	defer flushMetrics(cfg, recorder, log)

	result := f.Fetch(cmd.Context(), pageURL)
	if !result.Started() {
		return result.Aborted
	}
	page := result.Page(0)
	recorder.PageCrawled(page, result.LoadTime)

	return output.WritePage(cmd.OutOrStdout(), page, cfg.OutputFormat())
}
