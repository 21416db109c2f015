package analyzer

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/geoaudit/geoaudit/internal/htmldoc"
	"github.com/geoaudit/geoaudit/internal/report"
)

// LLMFormatting scores how well the page's structure reads for an LLM:
// heading hierarchy, real vs simulated data structures, landmark roles and
// link clarity.
func LLMFormatting(in Input) (*report.Section, []report.GlobalPenalty, error) {
	hierarchy := report.DrawerSpec{
		ID:          "content-hierarchy",
		Name:        "Content Hierarchy",
		Description: "Heading order and data structures LLMs use to segment the page.",
		Cards: []report.CardSpec{
			headingStructureCard(in.Doc.Semantic),
			dataGroupingCard(in.Doc),
		},
	}
	layout := report.DrawerSpec{
		ID:          "layout-roles",
		Name:        "Layout & Structural Roles",
		Description: "Landmark elements that tell crawlers where the main content lives.",
		Cards: []report.CardSpec{
			mainContentCard(in.Doc.Semantic),
			semanticRegionCard(in.Doc),
		},
	}
	cta := report.DrawerSpec{
		ID:          "cta-clarity",
		Name:        "CTA Context Clarity",
		Description: "Whether links and buttons are understandable out of visual context.",
		Cards:       []report.CardSpec{ctaClarityCard(in.Doc)},
	}

	sec, err := report.BuildSection(report.SectionLLMFormatting, "LLM Formatting",
		[]report.DrawerSpec{hierarchy, layout, cta})
	if err != nil {
		return nil, nil, err
	}
	return sec, nil, nil
}

type headingRawData struct {
	H1Count  int      `json:"h1Count"`
	Sequence []int    `json:"sequence"`
	Jumps    []string `json:"jumps,omitempty"`
}

func headingStructureCard(idx *htmldoc.SemanticIndex) report.CardSpec {
	card := report.CardSpec{
		ID:             "heading-structure",
		Name:           "Heading Structure",
		Explanation:    "A single H1 and sequential heading levels give LLMs a clean document outline.",
		MaxScore:       35,
		SuccessMessage: "The heading hierarchy is well formed.",
	}
	raw := headingRawData{H1Count: idx.Count("h1")}
	for _, h := range idx.Headings {
		raw.Sequence = append(raw.Sequence, h.Level)
	}

	// Uniqueness: exactly one H1 earns 15.
	switch raw.H1Count {
	case 1:
		card.Score += 15
	case 0:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The page has no H1 heading.",
			Solution: "Add exactly one H1 stating what the page is about.",
			Impact:   8,
		})
	default:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The page has %d H1 headings.", raw.H1Count),
			Solution: "Keep a single H1 and demote the others to H2.",
			Impact:   6,
		})
	}

	// Sequentiality: start from 20, lose 5 per level jump greater than one.
	seq := 20
	for i := 1; i < len(idx.Headings); i++ {
		prev, cur := idx.Headings[i-1], idx.Headings[i]
		if cur.Level > prev.Level+1 {
			seq -= 5
			raw.Jumps = append(raw.Jumps, fmt.Sprintf("h%d %q follows h%d %q", cur.Level, truncate(cur.Text, 40), prev.Level, truncate(prev.Text, 40)))
		}
	}
	seq = clampFloor(seq, 0)
	card.Score += seq
	if len(raw.Jumps) > 0 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "Heading levels skip intermediate levels: " + strings.Join(raw.Jumps, "; ") + ".",
			Solution: "Never skip heading levels; an H2 section should use H3 for its subsections.",
			Impact:   4,
		})
	}
	card.RawData = raw
	return card
}

type simulatedStructure struct {
	Kind       string  `json:"kind"` // "list" or "table"
	Sample     string  `json:"sample"`
	Confidence float64 `json:"confidence"`
}

type dataGroupingRawData struct {
	Lists     int                  `json:"lists"`
	Tables    int                  `json:"tables"`
	Simulated []simulatedStructure `json:"simulated,omitempty"`
}

var (
	bulletLine   = regexp.MustCompile(`^\s*[•\-*+]\s+\w{2,}`)
	numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+\w{2,}`)
	pipeRow      = regexp.MustCompile(`\|[^|]+\|`)
	spaceColumns = regexp.MustCompile(`\S\s{4,}\S`)
	spaceSplit   = regexp.MustCompile(`\s{4,}`)
)

func dataGroupingCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "data-grouping",
		Name:           "Data Grouping",
		Explanation:    "Real <ul>/<ol>/<table> markup is machine-readable; ASCII-art lists and tables are not.",
		MaxScore:       15,
		SuccessMessage: "Structured data uses semantic list and table markup.",
	}
	raw := dataGroupingRawData{
		Lists:  doc.Find("ul, ol").Length(),
		Tables: doc.Find("table").Length(),
	}

	score := 15
	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		// Only leaf-ish blocks: a container div would double-count its
		// children's text.
		if s.ChildrenFiltered("p, div, ul, ol, table").Length() > 0 {
			return
		}
		lines := textLines(s)
		if len(lines) < 2 {
			return
		}
		if sim, ok := detectSimulatedList(lines); ok {
			raw.Simulated = append(raw.Simulated, sim)
		} else if sim, ok := detectSimulatedTable(lines); ok {
			raw.Simulated = append(raw.Simulated, sim)
		}
	})

	for _, sim := range raw.Simulated {
		score -= 3
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("A simulated %s was found: %q.", sim.Kind, truncate(sim.Sample, 80)),
			Solution: fmt.Sprintf("Convert the text %s into semantic <%s> markup.", sim.Kind, map[string]string{"list": "ul", "table": "table"}[sim.Kind]),
			Impact:   int(math.Round(sim.Confidence * 6)),
		})
	}
	card.Score = clampFloor(score, 0)
	card.RawData = raw
	return card
}

func detectSimulatedList(lines []string) (simulatedStructure, bool) {
	matched := 0
	sample := ""
	for _, line := range lines {
		if len(line) > 10 && (bulletLine.MatchString(line) || numberedLine.MatchString(line)) {
			matched++
			if sample == "" {
				sample = line
			}
		}
	}
	if matched >= 2 && matched*2 >= len(lines) {
		return simulatedStructure{
			Kind:       "list",
			Sample:     sample,
			Confidence: float64(matched) / float64(len(lines)),
		}, true
	}
	return simulatedStructure{}, false
}

func detectSimulatedTable(lines []string) (simulatedStructure, bool) {
	matched := 0
	sample := ""
	for _, line := range lines {
		if isTableLine(line) {
			matched++
			if sample == "" {
				sample = line
			}
		}
	}
	if matched >= 2 {
		return simulatedStructure{
			Kind:       "table",
			Sample:     sample,
			Confidence: float64(matched) / float64(len(lines)),
		}, true
	}
	return simulatedStructure{}, false
}

func isTableLine(line string) bool {
	if pipeRow.MatchString(line) {
		return true
	}
	if cols := nonEmptyFields(strings.Split(line, "\t")); cols >= 3 {
		return true
	}
	// Columns separated by runs of 4+ spaces.
	return spaceColumns.MatchString(line) && nonEmptyFields(spaceSplit.Split(line, -1)) >= 2
}

func nonEmptyFields(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// textLines extracts the element's text with <br> treated as a line break,
// one trimmed non-empty string per line.
func textLines(s *goquery.Selection) []string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeTextWithBreaks(&b, n)
	}
	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

func writeTextWithBreaks(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "br") {
		b.WriteString("\n")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeTextWithBreaks(b, c)
	}
}

type mainContentRawData struct {
	MainCount int    `json:"mainCount"`
	NestedIn  string `json:"nestedIn,omitempty"`
}

func mainContentCard(idx *htmldoc.SemanticIndex) report.CardSpec {
	card := report.CardSpec{
		ID:             "main-content",
		Name:           "Main Content Definition",
		Explanation:    "A single top-level <main> tells crawlers exactly which content to extract.",
		MaxScore:       20,
		SuccessMessage: "Exactly one correctly placed <main> element marks the content.",
	}
	mains := idx.Mains()
	raw := mainContentRawData{MainCount: len(mains)}

	switch len(mains) {
	case 1:
		card.Score += 10
	case 0:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The page has no <main> element.",
			Solution: "Wrap the primary content in a single <main> element.",
			Impact:   7,
		})
	default:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The page has %d <main> elements.", len(mains)),
			Solution: "Keep exactly one <main>; use <section> or <article> for the rest.",
			Impact:   6,
		})
	}

	// Placement is judged on the first <main> in DOM order.
	if len(mains) > 0 {
		if anc, nested := mains[0].NestedInside("article", "aside", "footer", "header", "nav"); nested {
			raw.NestedIn = anc
			card.Recommendations = append(card.Recommendations, report.Recommendation{
				Problem:  fmt.Sprintf("The <main> element is nested inside <%s>.", anc),
				Solution: "Move <main> to be a direct region of <body>, outside landmark containers.",
				Impact:   5,
			})
		} else {
			card.Score += 10
		}
	}
	card.RawData = raw
	return card
}

type regionOffender struct {
	Tag    string `json:"tag"`
	Marker string `json:"marker"`
	Kind   string `json:"kind"` // "nav" or "sidebar"
}

type semanticRegionRawData struct {
	Offenders       []regionOffender `json:"offenders,omitempty"`
	NavsMissingAria int              `json:"navsMissingAria"`
}

func semanticRegionCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "semantic-regions",
		Name:           "Semantic Region Tagging",
		Explanation:    "Navigation and sidebar content should use <nav> and <aside>, not generic <div>s.",
		MaxScore:       10,
		SuccessMessage: "Structural regions use semantic elements.",
	}
	raw := semanticRegionRawData{}
	score := 10

	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		marker := matchedPattern(s, navDivPatterns)
		if marker != "" && s.ParentsFiltered("nav").Length() == 0 && s.Find("a[href]").Length() >= 2 {
			score -= 3
			raw.Offenders = append(raw.Offenders, regionOffender{Tag: "div", Marker: marker, Kind: "nav"})
			card.Recommendations = append(card.Recommendations, report.Recommendation{
				Problem:  fmt.Sprintf("A <div> marked %q acts as navigation but is not a <nav>.", marker),
				Solution: "Replace the wrapper with a <nav> element.",
				Impact:   3,
			})
			return
		}
		marker = matchedPattern(s, sidebarDivPatterns)
		if marker != "" && s.ParentsFiltered("aside").Length() == 0 && len(strings.TrimSpace(s.Text())) > 20 {
			score -= 2
			raw.Offenders = append(raw.Offenders, regionOffender{Tag: "div", Marker: marker, Kind: "sidebar"})
			card.Recommendations = append(card.Recommendations, report.Recommendation{
				Problem:  fmt.Sprintf("A <div> marked %q acts as a sidebar but is not an <aside>.", marker),
				Solution: "Replace the wrapper with an <aside> element.",
				Impact:   2,
			})
		}
	})

	navs := doc.Semantic.Navs()
	if len(navs) > 1 {
		for _, n := range navs {
			if !n.HasAriaLabel {
				raw.NavsMissingAria++
			}
		}
		if raw.NavsMissingAria > 0 {
			score -= 5
			card.Recommendations = append(card.Recommendations, report.Recommendation{
				Problem:  fmt.Sprintf("%d of %d <nav> elements lack an aria-label to tell them apart.", raw.NavsMissingAria, len(navs)),
				Solution: "Give each <nav> a distinct aria-label (e.g. \"primary\", \"footer\").",
				Impact:   3,
			})
		}
	}

	card.Score = clampFloor(score, 0)
	card.RawData = raw
	return card
}

// matchedPattern reports the first pattern appearing as a whole token in the
// element's id or class attributes.
func matchedPattern(s *goquery.Selection, patterns []string) string {
	id, _ := s.Attr("id")
	class, _ := s.Attr("class")
	tokens := map[string]bool{}
	for _, attr := range []string{id, class} {
		for _, tok := range strings.FieldsFunc(strings.ToLower(attr), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
		}) {
			tokens[tok] = true
		}
	}
	for _, p := range patterns {
		if tokens[p] {
			return p
		}
	}
	return ""
}

type ctaRawData struct {
	Total     int      `json:"total"`
	Clear     int      `json:"clear"`
	Offenders []string `json:"offenders,omitempty"`
}

func ctaClarityCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "cta-clarity",
		Name:           "CTA Context Clarity",
		Explanation:    "Links whose text means something out of context are citable; \"click here\" is not.",
		MaxScore:       20,
		SuccessMessage: "Links and buttons carry descriptive accessible names.",
	}
	raw := ctaRawData{}

	doc.Find("a[href], button").Each(func(_ int, s *goquery.Selection) {
		raw.Total++
		name := accessibleName(s)
		if isClearCTA(name) {
			raw.Clear++
		} else if len(raw.Offenders) < 5 {
			display := name
			if display == "" {
				display = "(no accessible name)"
			}
			raw.Offenders = append(raw.Offenders, display)
		}
	})

	if raw.Total == 0 {
		card.Score = 20
	} else {
		card.Score = roundRatio(20, raw.Clear, raw.Total)
	}
	if raw.Clear < raw.Total {
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("%d of %d links/buttons have vague or empty labels, e.g. %s.", raw.Total-raw.Clear, raw.Total, strings.Join(raw.Offenders, ", ")),
			Solution: "Rewrite link and button text to describe the destination or action.",
			Impact:   4,
		}}
	}
	card.RawData = raw
	return card
}

// accessibleName approximates the computed name: text content, then
// aria-label, then the alt text of a contained image.
func accessibleName(s *goquery.Selection) string {
	if t := strings.TrimSpace(s.Text()); t != "" {
		return t
	}
	if v, ok := s.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := s.Find("img[alt]").First().Attr("alt"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func isClearCTA(name string) bool {
	if len(name) < 4 {
		return false
	}
	return !ctaBlacklist[strings.ToLower(strings.TrimSpace(name))]
}

// truncate shortens s to n characters. It cuts on rune boundaries so
// multibyte text never ends up with a broken trailing sequence.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
