package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitecrawler/internal/pkg/fetcher"
	"sitecrawler/internal/pkg/output"
	"sitecrawler/internal/pkg/types"
)

// Runs the test from an empty directory so no stray .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Crawl.MaxDepth)
	assert.Equal(t, 20, cfg.Crawl.MaxLinksPerPage)
	assert.Equal(t, 1, cfg.Crawl.Concurrency)
	assert.Equal(t, 100000, cfg.Crawl.VisitedLimit)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, time.Second, cfg.Fetch.Delay)
	assert.Equal(t, fetcher.DefaultUserAgent, cfg.Fetch.UserAgent)
	assert.True(t, cfg.Fetch.RespectRobots)
	assert.False(t, cfg.Fetch.RenderJavaScript)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, output.FormatJSON, cfg.OutputFormat())
	assert.Equal(t, "output", cfg.Output.Dir)
}

func TestLoadFromFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "crawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
crawl:
  max_depth: 4
  max_links_per_page: 7
fetch:
  timeout: 5s
  delay: 250ms
output:
  format: yaml
`), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Crawl.MaxDepth)
	assert.Equal(t, 7, cfg.Crawl.MaxLinksPerPage)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.Delay)
	assert.Equal(t, output.FormatYAML, cfg.OutputFormat())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "crawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  max_depth: 4\n"), 0o644))
	t.Setenv("SITECRAWLER_CRAWL_MAX_DEPTH", "1")
	t.Setenv("SITECRAWLER_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Crawl.MaxDepth)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITECRAWLER_CRAWL_MAX_LINKS_PER_PAGE=3\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SITECRAWLER_CRAWL_MAX_LINKS_PER_PAGE") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Crawl.MaxLinksPerPage)
}

func TestLoadMissingFile(t *testing.T) {
	inTempDir(t)
	_, err := Load(viper.New(), "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "negative depth", mutate: func(c *Config) { c.Crawl.MaxDepth = -1 }, field: "crawl.max_depth"},
		{name: "negative links", mutate: func(c *Config) { c.Crawl.MaxLinksPerPage = -2 }, field: "crawl.max_links_per_page"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Crawl.Concurrency = 0 }, field: "crawl.concurrency"},
		{name: "zero timeout", mutate: func(c *Config) { c.Fetch.Timeout = 0 }, field: "fetch.timeout"},
		{name: "negative delay", mutate: func(c *Config) { c.Fetch.Delay = -time.Second }, field: "fetch.delay"},
		{name: "zero body limit", mutate: func(c *Config) { c.Fetch.MaxBodyBytes = 0 }, field: "fetch.max_body_bytes"},
		{name: "zero workers", mutate: func(c *Config) { c.Batch.Workers = 0 }, field: "batch.workers"},
		{name: "unknown format", mutate: func(c *Config) { c.Output.Format = "csv" }, field: "output.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inTempDir(t)
			cfg, err := Load(viper.New(), "")
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()

			var configErr *types.ConfigurationError
			require.True(t, errors.As(err, &configErr), "got %v", err)
			assert.Equal(t, tc.field, configErr.Field)
		})
	}
}

func TestFetcherConfig(t *testing.T) {
	inTempDir(t)
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Fetch.RenderJavaScript = true

	fetchCfg := cfg.FetcherConfig()
	assert.Equal(t, cfg.Fetch.Timeout, fetchCfg.Timeout)
	assert.Equal(t, cfg.Fetch.Delay, fetchCfg.Delay)
	assert.True(t, fetchCfg.RespectRobots)
	assert.True(t, fetchCfg.RenderJavaScript)
	assert.Equal(t, "info", cfg.LoggerConfig().Level)
}
