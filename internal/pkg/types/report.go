package types

import (
	"encoding/json"
	"time"
)

// Aggregate result of one crawl run. Ownership passes to the caller.
type CrawlReport struct {
	SeedURL         string
	MaxDepth        int
	MaxLinksPerPage int
	StartedAt       time.Time
	FinishedAt      time.Time
	Pages           []CrawledPage
}

// Summary block of the serialized report.
type CrawlSummary struct {
	TotalPagesCrawled int       `json:"total_pages_crawled" yaml:"total_pages_crawled"`
	ErrorPages        int       `json:"error_pages"         yaml:"error_pages"`
	SeedURL           string    `json:"seed_url"            yaml:"seed_url"`
	MaxDepth          int       `json:"max_depth"           yaml:"max_depth"`
	MaxLinksPerPage   int       `json:"max_links_per_page"  yaml:"max_links_per_page"`
	StartedAt         time.Time `json:"started_at"          yaml:"started_at"`
	FinishedAt        time.Time `json:"finished_at"         yaml:"finished_at"`
}

// Self-describing form of a report handed to downstream tools.
type ReportDocument struct {
	Summary CrawlSummary  `json:"crawl_summary" yaml:"crawl_summary"`
	Pages   []CrawledPage `json:"pages"         yaml:"pages"`
}

// Document builds the summary + pages form of the report.
func (r *CrawlReport) Document() ReportDocument {
	pages := r.Pages
	if pages == nil {
		pages = []CrawledPage{}
	}
	errorPages := 0
	for _, page := range pages {
		if page.IsError() {
			errorPages++
		}
	}
	return ReportDocument{
		Summary: CrawlSummary{
			TotalPagesCrawled: len(pages),
			ErrorPages:        errorPages,
			SeedURL:           r.SeedURL,
			MaxDepth:          r.MaxDepth,
			MaxLinksPerPage:   r.MaxLinksPerPage,
			StartedAt:         r.StartedAt,
			FinishedAt:        r.FinishedAt,
		},
		Pages: pages,
	}
}

// MarshalJSON encodes the report as its document form.
func (r *CrawlReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// MarshalYAML encodes the report as its document form.
func (r *CrawlReport) MarshalYAML() (any, error) {
	return r.Document(), nil
}

// UnmarshalJSON reads a report back from its document form.
func (r *CrawlReport) UnmarshalJSON(data []byte) error {
	var doc ReportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*r = CrawlReport{
		SeedURL:         doc.Summary.SeedURL,
		MaxDepth:        doc.Summary.MaxDepth,
		MaxLinksPerPage: doc.Summary.MaxLinksPerPage,
		StartedAt:       doc.Summary.StartedAt,
		FinishedAt:      doc.Summary.FinishedAt,
		Pages:           doc.Pages,
	}
	return nil
}

// MaxPageDepth returns the deepest depth recorded, or -1 for an empty report.
func (r *CrawlReport) MaxPageDepth() int {
	deepest := -1
	for _, page := range r.Pages {
		if page.Depth > deepest {
			deepest = page.Depth
		}
	}
	return deepest
}
