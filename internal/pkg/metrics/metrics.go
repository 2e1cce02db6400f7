package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sitecrawler/internal/pkg/types"
)

const (
	namespace = "sitecrawler"
	subsystem = "crawl"
)

// Recorder counts crawled pages on its own registry. It satisfies
// scheduler.Observer and is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	PagesTotal      *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	LinksDiscovered prometheus.Counter
	SeedsTotal      *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pages_total",
				Help:      "Pages recorded, by media type",
			},
			[]string{"media_type"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent fetching and extracting one page",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"media_type"},
		),
		LinksDiscovered: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "links_discovered_total",
				Help:      "Outbound links found on HTML pages",
			},
		),
		SeedsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "seeds_total",
				Help:      "Seed crawls finished by the batch runner, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (r *Recorder) PageCrawled(page types.CrawledPage, elapsed time.Duration) {
	mediaType := string(page.MediaType)
	r.PagesTotal.WithLabelValues(mediaType).Inc()
	r.FetchDuration.WithLabelValues(mediaType).Observe(elapsed.Seconds())
	r.LinksDiscovered.Add(float64(page.LinkCount))
}

// SeedFinished counts one batch seed, labelled "ok" or "failed".
func (r *Recorder) SeedFinished(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	r.SeedsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
