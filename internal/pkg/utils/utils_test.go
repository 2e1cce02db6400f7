package utils

import (
	"net/url"
	"testing"
)

func TestGetDomainFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/test", "example.com"},
		{"http://www.example.com:8080/a", "example.com"},
		{"example.org", "example.org"},
	}
	for _, tc := range tests {
		domain, err := GetDomainFromURL(tc.input)
		if err != nil {
			t.Fatalf("GetDomainFromURL(%q) returned error: %v", tc.input, err)
		}
		if domain != tc.want {
			t.Errorf("GetDomainFromURL(%q) = %q, want %q", tc.input, domain, tc.want)
		}
	}
}

func TestBuildFullUrl(t *testing.T) {
	fullUrl, err := BuildFullUrl("example.com/test")
	if err != nil {
		t.Fatalf("BuildFullUrl returned error: %v", err)
	}
	if fullUrl != "https://example.com/test" {
		t.Errorf("Expected full URL 'https://example.com/test', got '%s'", fullUrl)
	}

	fullUrl, err = BuildFullUrl("http://example.com")
	if err != nil || fullUrl != "http://example.com" {
		t.Errorf("Expected scheme to be kept, got %q (%v)", fullUrl, err)
	}

	if _, err := BuildFullUrl("   "); err == nil {
		t.Errorf("Expected error for empty URL")
	}
}

func TestResolveLink(t *testing.T) {
	base, _ := url.Parse("https://example.com/docs/index.html")
	tests := []struct {
		href   string
		want   string
		wantOK bool
	}{
		{"/about", "https://example.com/about", true},
		{"guide.html", "https://example.com/docs/guide.html", true},
		{"https://other.org/x", "https://other.org/x", true},
		{"#top", "https://example.com/docs/index.html#top", true},
		{"mailto:someone@example.com", "", false},
		{"javascript:void(0)", "", false},
		{"ftp://example.com/file", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := ResolveLink(base, tc.href)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ResolveLink(%q) = (%q, %v), want (%q, %v)", tc.href, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestLastPathSegment(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/files/report.pdf", "report.pdf"},
		{"https://example.com/notes/", "notes"},
		{"https://example.com", "example.com"},
	}
	for _, tc := range tests {
		if got := LastPathSegment(tc.input); got != tc.want {
			t.Errorf("LastPathSegment(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
