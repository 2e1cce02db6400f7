package main

import (
	"fmt"
	"maps"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sitecrawler/internal/pkg/config"
	"sitecrawler/internal/pkg/fetcher"
	"sitecrawler/internal/pkg/logger"
	"sitecrawler/internal/pkg/metrics"
)

// Shared state of one CLI invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "sitecrawler",
		Short:         "Breadth-first website crawler",
		Long:          "sitecrawler fetches a seed URL, extracts text, metadata and links from HTML, PDF and plain-text pages, and follows links breadth-first up to a bounded depth.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-encoding", "console", "log encoding (console, json)")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file when the command ends")

	rootCmd.AddCommand(newCrawlCmd(a), newFetchCmd(a), newBatchCmd(a))
	return rootCmd
}

// Flags shared by every command, keyed by config key.
var persistentFlagKeys = map[string]string{
	"log.level":        "log-level",
	"log.encoding":     "log-encoding",
	"metrics.textfile": "metrics-textfile",
}

// Binds the given flags of cmd to config keys and loads the configuration.
// Binding happens per command because several commands share keys.
func (a *app) load(cmd *cobra.Command, keys map[string]string) (*config.Config, logger.Interface, error) {
	if err := bindFlags(a.v, cmd.Flags(), persistentFlagKeys); err != nil {
		return nil, nil, err
	}
	if err := bindFlags(a.v, cmd.Flags(), keys); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q for %s", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

// Writes the metrics textfile when one is configured.
func flushMetrics(cfg *config.Config, recorder *metrics.Recorder, log logger.Interface) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Error("Failed to write metrics", "path", cfg.Metrics.Textfile, "error", err)
	}
}

// Registers the crawl limit flags shared by crawl and batch.
func addCrawlFlags(flags *pflag.FlagSet) {
	flags.IntP("depth", "d", 2, "maximum link depth from the seed")
	flags.IntP("max-links", "l", 20, "maximum links followed per page")
	flags.IntP("concurrency", "c", 1, "pages fetched in parallel within a level")
	addFetchFlags(flags)
}

// Registers the fetch flags shared by every command.
func addFetchFlags(flags *pflag.FlagSet) {
	flags.Duration("timeout", fetcher.DefaultTimeout, "per-request timeout")
	flags.Duration("delay", fetcher.DefaultDelay, "minimum delay between requests to one host")
	flags.String("user-agent", fetcher.DefaultUserAgent, "User-Agent header sent with every request")
	flags.Bool("respect-robots", true, "honour robots.txt rules and Crawl-delay")
	flags.Bool("render-js", false, "render pages with headless Chrome when the static HTML has no text")
	flags.StringP("format", "f", "json", "output format (json, yaml)")
}

var fetchFlagKeys = map[string]string{
	"fetch.timeout":           "timeout",
	"fetch.delay":             "delay",
	"fetch.user_agent":        "user-agent",
	"fetch.respect_robots":    "respect-robots",
	"fetch.render_javascript": "render-js",
	"output.format":           "format",
}

var crawlFlagKeys = map[string]string{
	"crawl.max_depth":          "depth",
	"crawl.max_links_per_page": "max-links",
	"crawl.concurrency":        "concurrency",
}

func mergeKeys(keySets ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range keySets {
		maps.Copy(merged, m)
	}
	return merged
}
