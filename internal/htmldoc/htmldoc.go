// Package htmldoc parses the audited page exactly once and exposes the three
// read-only views every analyzer shares: a goquery selection surface, a
// precomputed semantic-HTML5 index, and the basic head metadata. Analyzers
// never reparse HTML.
package htmldoc

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Document is the immutable parsed page.
type Document struct {
	doc         *goquery.Document
	rawLen      int
	bodyText    string
	articleText string

	Semantic *SemanticIndex
	Meta     BasicMetadata
}

// BasicMetadata is the head-level metadata surfaced in the report envelope.
type BasicMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Charset     string `json:"charset,omitempty"`
	Viewport    string `json:"viewport,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	RobotsMeta  string `json:"robotsMeta,omitempty"`
	Lang        string `json:"lang,omitempty"`
}

// Parse builds the shared document from raw HTML. The semantic index, body
// text and readability article extraction all happen here so later reads are
// pure lookups; analyzers never reparse.
func Parse(raw []byte, pageURL string) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	d := &Document{doc: gq, rawLen: len(raw)}
	if root := gq.Get(0); root != nil {
		d.Semantic = buildSemanticIndex(root)
		d.bodyText = collectBodyText(root)
	} else {
		d.Semantic = &SemanticIndex{Counts: map[string]int{}}
	}
	d.Meta = extractMetadata(gq)

	u, uerr := url.Parse(pageURL)
	if uerr != nil || u.Host == "" {
		u = &url.URL{Scheme: "https", Host: "unknown.invalid"}
	}
	// Boilerplate removal can fail on unusual markup; the plain body text
	// remains available either way.
	if art, aerr := readability.FromReader(bytes.NewReader(raw), u); aerr == nil {
		d.articleText = strings.TrimSpace(art.TextContent)
	}
	return d, nil
}

// Find runs a CSS selector against the parsed tree.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// RawLength is the byte length of the original HTML.
func (d *Document) RawLength() int { return d.rawLen }

// BodyText is the visible text of <body> with script, style and similar
// non-content subtrees stripped, whitespace-collapsed.
func (d *Document) BodyText() string { return d.bodyText }

// ArticleText is the boilerplate-stripped main content found by readability
// extraction, or empty when extraction found nothing.
func (d *Document) ArticleText() string { return d.articleText }

func extractMetadata(gq *goquery.Document) BasicMetadata {
	m := BasicMetadata{}
	m.Title = strings.TrimSpace(gq.Find("head title").First().Text())
	if v, ok := gq.Find(`meta[name="description"]`).First().Attr("content"); ok {
		m.Description = strings.TrimSpace(v)
	}
	if v, ok := gq.Find("meta[charset]").First().Attr("charset"); ok {
		m.Charset = strings.TrimSpace(v)
	}
	if v, ok := gq.Find(`meta[name="viewport"]`).First().Attr("content"); ok {
		m.Viewport = strings.TrimSpace(v)
	}
	if v, ok := gq.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		m.Canonical = strings.TrimSpace(v)
	}
	if v, ok := gq.Find(`meta[name="robots"]`).First().Attr("content"); ok {
		m.RobotsMeta = strings.TrimSpace(v)
	}
	if v, ok := gq.Find("html").First().Attr("lang"); ok {
		m.Lang = strings.TrimSpace(v)
	}
	return m
}

// nonContentTags are skipped entirely when collecting body text.
var nonContentTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
}

func collectBodyText(root *html.Node) string {
	body := findFirst(root, "body")
	if body == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && nonContentTags[strings.ToLower(n.Data)] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "p", "div", "li", "br", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "section", "article":
				b.WriteString("\n")
			}
		}
	}
	walk(body)
	return collapseWhitespace(b.String())
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}
