package archive

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

var (
	// Pipermail marks message positions with named anchors that have no
	// meaning once the page is embedded.
	namedAnchorPattern = regexp.MustCompile(`<a name=.+?a>`)
	stripTagsPattern   = regexp.MustCompile(`(?is)<[^>]+>`)
)

// parseDocument decodes raw HTML using the charset declared in the page
// (or sniffed from its content) and parses it.
func parseDocument(raw []byte) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(raw), "text/html")
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ExtractBody returns the element children of <body>, serialised and
// joined by newlines, with named anchors removed. Text nodes directly
// under <body> are dropped.
func ExtractBody(raw []byte) (string, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return "", err
	}

	var parts []string
	var outerErr error
	doc.Find("body").First().Children().Each(func(_ int, sel *goquery.Selection) {
		if outerErr != nil {
			return
		}
		h, err := goquery.OuterHtml(sel)
		if err != nil {
			outerErr = err
			return
		}
		parts = append(parts, h)
	})
	if outerErr != nil {
		return "", fmt.Errorf("render body: %w", outerErr)
	}

	return namedAnchorPattern.ReplaceAllString(strings.Join(parts, "\n"), ""), nil
}

// Message is the searchable content of one archived message page.
type Message struct {
	Title string
	Text  string
}

// ExtractMessage pulls the page title and the visible body text out of a
// message page.
func ExtractMessage(r io.Reader) (Message, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Message{}, fmt.Errorf("read message: %w", err)
	}
	doc, err := parseDocument(raw)
	if err != nil {
		return Message{}, err
	}
	body := doc.Find("body").First()
	body.Find("script, style").Remove()

	// Pipermail wraps the message text in <pre> between the
	// beginarticle/endarticle markers; fall back to the whole body.
	text := body.Find("pre").First()
	if text.Length() == 0 {
		text = body
	}

	return Message{
		Title: collapseWhitespace(doc.Find("title").First().Text()),
		Text:  collapseWhitespace(text.Text()),
	}, nil
}

// StripHTMLTags removes all HTML tags and unescapes entities.
func StripHTMLTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripTagsPattern.ReplaceAllString(s, " ")))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
