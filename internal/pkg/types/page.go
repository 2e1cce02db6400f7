package types

import (
	"time"
	"unicode/utf8"
)

// MaxContentLength bounds the number of characters kept in CrawledPage.Content.
const MaxContentLength = 5000

// Metadata keys populated for HTML pages. All three are always present.
const (
	MetaDescription = "description"
	MetaKeywords    = "keywords"
	MetaAuthor      = "author"
	MetaContentType = "content_type"
	MetaError       = "error"
)

// Kind of document a page turned out to be.
type MediaType string

const (
	MediaHTML      MediaType = "html"
	MediaPDF       MediaType = "pdf"
	MediaPlainText MediaType = "text"
	MediaError     MediaType = "error"
)

// One fetched URL, recorded once per run and never modified afterwards.
type CrawledPage struct {
	URL       string            `json:"url"        yaml:"url"`
	Title     string            `json:"title"      yaml:"title"`
	Content   string            `json:"content"    yaml:"content"`
	MediaType MediaType         `json:"media_type" yaml:"media_type"`
	Metadata  map[string]string `json:"metadata"   yaml:"metadata"`
	Depth     int               `json:"depth"      yaml:"depth"`
	LinkCount int               `json:"link_count" yaml:"link_count"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
	LoadTime  time.Duration     `json:"load_time"  yaml:"load_time"`
}

// IsError reports whether the page records a failed fetch or extraction.
func (p CrawledPage) IsError() bool {
	return p.MediaType == MediaError
}

// Cuts s down to at most limit characters without splitting a rune.
func TruncateContent(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// HTMLMetadata returns the metadata map for an HTML page with every key present.
func HTMLMetadata(description, keywords, author string) map[string]string {
	return map[string]string{
		MetaDescription: description,
		MetaKeywords:    keywords,
		MetaAuthor:      author,
	}
}
