package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitecrawler/internal/pkg/types"
)

func TestPageCrawled(t *testing.T) {
	recorder := NewRecorder()

	recorder.PageCrawled(types.CrawledPage{MediaType: types.MediaHTML, LinkCount: 4}, 200*time.Millisecond)
	recorder.PageCrawled(types.CrawledPage{MediaType: types.MediaHTML, LinkCount: 1}, 100*time.Millisecond)
	recorder.PageCrawled(types.CrawledPage{MediaType: types.MediaError}, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.PagesTotal.WithLabelValues("html")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.PagesTotal.WithLabelValues("error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(recorder.LinksDiscovered))
	assert.Equal(t, 2, testutil.CollectAndCount(recorder.FetchDuration))
}

func TestSeedFinished(t *testing.T) {
	recorder := NewRecorder()
	recorder.SeedFinished(nil)
	recorder.SeedFinished(nil)
	recorder.SeedFinished(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.SeedsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.SeedsTotal.WithLabelValues("failed")))
}

func TestWriteTextfile(t *testing.T) {
	recorder := NewRecorder()
	recorder.PageCrawled(types.CrawledPage{MediaType: types.MediaPDF}, 50*time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics", "sitecrawler.prom")
	require.NoError(t, recorder.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sitecrawler_crawl_pages_total{media_type="pdf"} 1`)
	assert.Contains(t, string(data), "sitecrawler_crawl_fetch_duration_seconds_bucket")
}

func TestRecordersAreIndependent(t *testing.T) {
	first, second := NewRecorder(), NewRecorder()
	first.PageCrawled(types.CrawledPage{MediaType: types.MediaHTML}, time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(second.PagesTotal.WithLabelValues("html")))
	assert.NotSame(t, first.Registry(), second.Registry())
}
