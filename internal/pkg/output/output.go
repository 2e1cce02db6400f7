package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sitecrawler/internal/pkg/types"
	"sitecrawler/internal/pkg/utils"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Parses a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", name)
}

func (f Format) extension() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// Write encodes report as a summary + pages document.
func Write(w io.Writer, report *types.CrawlReport, format Format) error {
	return encode(w, report.Document(), format, "report")
}

// WritePage encodes a single page record.
func WritePage(w io.Writer, page types.CrawledPage, format Format) error {
	return encode(w, page, format, "page")
}

func encode(w io.Writer, v any, format Format, what string) error {
	switch format {
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding %s as JSON: %w", what, err)
		}
		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding %s as YAML: %w", what, err)
		}
		return encoder.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteFile saves report under dir as <domain>_<timestamp>.<ext> and returns
// the path. An existing file is never overwritten; a numeric suffix is added
// instead.
func WriteFile(dir string, report *types.CrawlReport, format Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	file, path, err := createUnique(dir, FileName(report, format))
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	if err := Write(file, report, format); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing report file: %w", err)
	}
	return path, nil
}

func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for attempt := 1; ; attempt++ {
		candidate := name
		if attempt > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		path := filepath.Join(dir, candidate)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return file, path, err
	}
}

// FileName builds the file name for report from its seed domain and start time.
func FileName(report *types.CrawlReport, format Format) string {
	domain, err := utils.GetDomainFromURL(report.SeedURL)
	if err != nil || domain == "" {
		domain = "crawl"
	}
	domain = strings.NewReplacer(":", "_", "/", "_").Replace(domain)

	started := report.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	return fmt.Sprintf("%s_%s.%s", domain, started.UTC().Format("20060102T150405Z"), format.extension())
}
