package extractor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"sitecrawler/internal/pkg/types"
	"sitecrawler/internal/pkg/utils"
)

const (
	htmlContentType = "text/html"
	pdfContentType  = "application/pdf"
)

// Normalized view of one fetched document.
type Extraction struct {
	Title     string
	Content   string
	Links     []string
	Metadata  map[string]string
	MediaType types.MediaType
	Err       error
}

// Content that could not be parsed for its declared media type.
type ExtractionError struct {
	MediaType types.MediaType
	Cause     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s content: %v", e.MediaType, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Classify maps a Content-Type header onto the extraction path used for it.
// Matching is by substring, so parameters such as charset are ignored.
func Classify(contentType string) types.MediaType {
	lower := strings.ToLower(contentType)
	switch {
	case strings.Contains(lower, pdfContentType):
		return types.MediaPDF
	case strings.Contains(lower, htmlContentType):
		return types.MediaHTML
	default:
		return types.MediaPlainText
	}
}

// Extract dispatches raw on its declared content type. It never fails: a
// document that cannot be parsed comes back as an error record.
func Extract(raw []byte, contentType, sourceURL string) Extraction {
	mediaType := Classify(contentType)

	var (
		result Extraction
		err    error
	)
	switch mediaType {
	case types.MediaPDF:
		result, err = extractPDF(raw, sourceURL)
	case types.MediaHTML:
		result, err = extractHTML(raw, contentType, sourceURL)
	default:
		result, err = extractPlainText(raw, contentType, sourceURL)
	}
	if err != nil {
		return ErrorRecord(sourceURL, &ExtractionError{MediaType: mediaType, Cause: err})
	}
	return result
}

// ErrorRecord builds the record stored for a page whose fetch or extraction failed.
func ErrorRecord(sourceURL string, err error) Extraction {
	message := err.Error()
	return Extraction{
		Title:     "Error",
		Content:   fmt.Sprintf("Error crawling %s: %s", sourceURL, message),
		Links:     []string{},
		Metadata:  map[string]string{types.MetaError: message},
		MediaType: types.MediaError,
		Err:       err,
	}
}

// Parses HTML with goquery, drops script and style, then collects title,
// meta tags, anchors and visible text.
func extractHTML(raw []byte, contentType, sourceURL string) (Extraction, error) {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return Extraction{}, fmt.Errorf("decoding HTML: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return Extraction{}, fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find("script, style").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	return Extraction{
		Title:     title,
		Content:   visibleText(doc.Nodes),
		Links:     extractLinks(doc, sourceURL),
		Metadata:  extractMetadata(doc),
		MediaType: types.MediaHTML,
	}, nil
}

// Resolves every anchor href against sourceURL, in document order.
// Duplicates are kept.
func extractLinks(doc *goquery.Document, sourceURL string) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		base = nil
	}
	links := make([]string, 0, 32)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if link, ok := utils.ResolveLink(base, href); ok {
			links = append(links, link)
		}
	})
	return links
}

// Reads description, keywords and author meta tags. The first tag of each
// name wins and missing ones are left empty.
func extractMetadata(doc *goquery.Document) map[string]string {
	found := make(map[string]string, 3)
	doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case types.MetaDescription, types.MetaKeywords, types.MetaAuthor:
		default:
			return
		}
		if _, seen := found[name]; seen {
			return
		}
		content, _ := sel.Attr("content")
		found[name] = strings.TrimSpace(content)
	})
	return types.HTMLMetadata(found[types.MetaDescription], found[types.MetaKeywords], found[types.MetaAuthor])
}

// Collects text from all text nodes below roots in document order.
func visibleText(roots []*html.Node) string {
	var textBuf bytes.Buffer
	stack := make([]*html.Node, 0, 64)
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type == html.TextNode && !hiddenParent(node) {
			textBuf.WriteString(node.Data)
			textBuf.WriteByte(' ')
		}
		for child := node.LastChild; child != nil; child = child.PrevSibling {
			stack = append(stack, child)
		}
	}
	return normalizeText(textBuf.String())
}

func hiddenParent(node *html.Node) bool {
	if node.Parent == nil {
		return false
	}
	switch node.Parent.Data {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// Collapses whitespace runs to single spaces and trims the result.
func normalizeText(text string) string {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	var builder strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			builder.WriteString(line)
			builder.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

// Returns the decoded body verbatim.
func extractPlainText(raw []byte, contentType, sourceURL string) (Extraction, error) {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return Extraction{}, fmt.Errorf("decoding text: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return Extraction{}, fmt.Errorf("decoding text: %w", err)
	}
	return Extraction{
		Title:     "Document: " + utils.LastPathSegment(sourceURL),
		Content:   string(decoded),
		Links:     []string{},
		Metadata:  map[string]string{types.MetaContentType: contentType},
		MediaType: types.MediaPlainText,
	}, nil
}
