package utils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Extracts the host domain from a URL.
func GetDomainFromURL(inputURL string) (string, error) {
	if !hasHTTPScheme(inputURL) {
		inputURL = "https://" + inputURL
	}
	parsedURL, err := url.Parse(inputURL)
	if err != nil {
		return "", fmt.Errorf("error parsing URL %q: %w", inputURL, err)
	}
	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("URL %q has no host", inputURL)
	}
	return strings.TrimPrefix(parsedURL.Hostname(), "www."), nil
}

// Constructs the full URL from a short URL.
func BuildFullUrl(shortUrl string) (string, error) {
	shortUrl = strings.TrimSpace(shortUrl)
	if shortUrl == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !hasHTTPScheme(shortUrl) {
		shortUrl = "https://" + shortUrl
	}
	parsedURL, err := url.Parse(shortUrl)
	if err != nil {
		return "", fmt.Errorf("invalid URL %v: %w", shortUrl, err)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL %v: missing host", shortUrl)
	}
	return parsedURL.String(), nil
}

// Resolves href against base. Only http and https results are returned.
func ResolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if !IsValidScheme(abs.Scheme) || abs.Host == "" {
		return "", false
	}
	return abs.String(), true
}

// Only http(s) links are followed.
func IsValidScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	return scheme == "http" || scheme == "https"
}

// LastPathSegment returns the final non-empty path segment of rawURL,
// falling back to the host when the path is empty.
func LastPathSegment(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	trimmed := strings.TrimRight(parsedURL.Path, "/")
	if trimmed == "" {
		if parsedURL.Host != "" {
			return parsedURL.Host
		}
		return rawURL
	}
	return path.Base(trimmed)
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
