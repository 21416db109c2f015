package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
)

// indexedTags are the structural elements tracked by the semantic index.
var indexedTags = map[string]bool{
	"main":    true,
	"nav":     true,
	"aside":   true,
	"header":  true,
	"footer":  true,
	"article": true,
	"section": true,
}

// Element is one indexed structural element in DOM order.
type Element struct {
	Tag      string
	Position int
	// HasAriaLabel is set when the element carries aria-label or
	// aria-labelledby (meaningful for <nav>).
	HasAriaLabel bool
	// Ancestors lists the element names enclosing this node, outermost
	// first. Used to check <main> placement.
	Ancestors []string
}

// Heading is one h1-h6 occurrence in DOM order.
type Heading struct {
	Level    int
	Position int
	Text     string
}

// SemanticIndex is the shared structural summary computed in a single DOM
// traversal. All slices preserve document order.
type SemanticIndex struct {
	Headings []Heading
	Elements map[string][]Element
	Counts   map[string]int
}

// Count returns how many elements of the tag (or heading level like "h2")
// the page contains.
func (idx *SemanticIndex) Count(tag string) int {
	if idx == nil {
		return 0
	}
	return idx.Counts[strings.ToLower(tag)]
}

// Mains is shorthand for the indexed <main> elements.
func (idx *SemanticIndex) Mains() []Element { return idx.Elements["main"] }

// Navs is shorthand for the indexed <nav> elements.
func (idx *SemanticIndex) Navs() []Element { return idx.Elements["nav"] }

func buildSemanticIndex(root *html.Node) *SemanticIndex {
	idx := &SemanticIndex{
		Elements: make(map[string][]Element),
		Counts:   make(map[string]int),
	}
	pos := 0
	var ancestors []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		isElement := n.Type == html.ElementNode
		var tag string
		if isElement {
			tag = strings.ToLower(n.Data)
			if level := headingLevel(tag); level > 0 {
				idx.Headings = append(idx.Headings, Heading{
					Level:    level,
					Position: pos,
					Text:     strings.TrimSpace(nodeText(n)),
				})
				idx.Counts[tag]++
				pos++
			} else if indexedTags[tag] {
				idx.Elements[tag] = append(idx.Elements[tag], Element{
					Tag:          tag,
					Position:     pos,
					HasAriaLabel: hasAttr(n, "aria-label") || hasAttr(n, "aria-labelledby"),
					Ancestors:    append([]string(nil), ancestors...),
				})
				idx.Counts[tag]++
				pos++
			}
			ancestors = append(ancestors, tag)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if isElement {
			ancestors = ancestors[:len(ancestors)-1]
		}
	}
	walk(root)
	return idx
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) && strings.TrimSpace(a.Val) != "" {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// NestedInside reports whether any of the element's ancestors is one of the
// given tags.
func (e Element) NestedInside(tags ...string) (string, bool) {
	for _, anc := range e.Ancestors {
		for _, t := range tags {
			if anc == t {
				return anc, true
			}
		}
	}
	return "", false
}
