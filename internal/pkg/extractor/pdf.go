package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"sitecrawler/internal/pkg/types"
	"sitecrawler/internal/pkg/utils"
)

var errEmptyPDF = errors.New("document has no pages")

// Extracts the text of every page, joined by newlines. PDFs carry no links.
func extractPDF(raw []byte, sourceURL string) (extraction Extraction, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			extraction = Extraction{}
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Extraction{}, fmt.Errorf("opening PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return Extraction{}, errEmptyPDF
	}

	pageTexts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Extraction{}, fmt.Errorf("reading PDF page %d: %w", i, err)
		}
		pageTexts = append(pageTexts, text)
	}

	return Extraction{
		Title:     "PDF Document: " + utils.LastPathSegment(sourceURL),
		Content:   strings.Join(pageTexts, "\n"),
		Links:     []string{},
		Metadata:  map[string]string{types.MetaContentType: pdfContentType},
		MediaType: types.MediaPDF,
	}, nil
}
