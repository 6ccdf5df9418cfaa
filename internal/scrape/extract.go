// Package scrape extracts article text from rendered pages for the
// summarization pipeline.
package scrape

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoParagraph means the document contained no non-empty paragraph.
var ErrNoParagraph = errors.New("no paragraph found")

// FirstParagraph returns the first non-empty paragraph of an HTML document.
// Wikipedia article bodies are tried first, then any paragraph on the page.
func FirstParagraph(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	for _, selector := range []string{"#mw-content-text p", "p"} {
		text := firstNonEmpty(doc, selector)
		if text != "" {
			return text, nil
		}
	}
	return "", ErrNoParagraph
}

func firstNonEmpty(doc *goquery.Document, selector string) string {
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return true
		}
		found = text
		return false
	})
	return found
}
