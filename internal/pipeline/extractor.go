package pipeline

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/brevis/internal/model"
)

// DefaultTitle is recorded for pages without a <title>.
const DefaultTitle = "No title"

// nonContentSelectors are stripped before reading body text.
const nonContentSelectors = "script, style, noscript, nav, header, footer, form"

// Extractor turns fetched HTML into article text.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Article extracts the title and text content of a page. Content is the
// concatenated paragraph text, or the visible body text when the page has no
// paragraphs.
func (e *Extractor) Article(pageURL, html string) (*model.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := collapseSpace(doc.Find("title").First().Text())
	if title == "" {
		title = DefaultTitle
	}

	content := paragraphText(doc)
	if content == "" {
		body := doc.Find("body").First()
		body.Find(nonContentSelectors).Remove()
		content = collapseSpace(body.Text())
	}

	return &model.Article{URL: pageURL, Title: title, Content: content}, nil
}

// Paragraphs returns the text of every <p> element joined by single spaces.
func (e *Extractor) Paragraphs(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return paragraphText(doc), nil
}

func paragraphText(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
