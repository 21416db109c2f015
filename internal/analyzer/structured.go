package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/geoaudit/geoaudit/internal/htmldoc"
	"github.com/geoaudit/geoaudit/internal/report"
)

// schemaProfile is everything the structured-data cards score against,
// derived once from the page's JSON-LD blocks.
type schemaProfile struct {
	// Blocks holds each successfully parsed schema object, @graph flattened.
	Blocks []map[string]any
	// Types is the set of @type values across all blocks.
	Types map[string]bool
	// Malformed counts script blocks that failed strict JSON parsing.
	Malformed int
}

type jsonLDRawData struct {
	BlockCount     int      `json:"blockCount"`
	MalformedCount int      `json:"malformedCount"`
	Types          []string `json:"types"`
}

// StructuredData scores JSON-LD coverage, meta tags and Open Graph markup.
func StructuredData(in Input) (*report.Section, []report.GlobalPenalty, error) {
	profile := extractSchemaProfile(in.Doc)

	jsonLD := report.DrawerSpec{
		ID:          "json-ld",
		Name:        "JSON-LD",
		Description: "Machine-readable schema.org markup that lets LLMs extract facts directly.",
		Cards: []report.CardSpec{
			identityCard(profile),
			mainEntityCard(profile),
			enrichmentCard(profile),
			graphConnectivityCard(profile),
		},
	}
	metaTags := report.DrawerSpec{
		ID:          "meta-tags",
		Name:        "Meta Tags",
		Description: "Head metadata that titles and summarizes the page for crawlers.",
		Cards:       []report.CardSpec{metaTagsCard(in.Doc)},
	}
	social := report.DrawerSpec{
		ID:          "social-meta",
		Name:        "Social Meta / Open Graph",
		Description: "Open Graph tags used when the page is cited or shared.",
		Cards:       []report.CardSpec{openGraphCard(in.Doc)},
	}

	sec, err := report.BuildSection(report.SectionStructuredData, "Structured Data",
		[]report.DrawerSpec{jsonLD, metaTags, social})
	if err != nil {
		return nil, nil, err
	}
	return sec, nil, nil
}

func extractSchemaProfile(doc *htmldoc.Document) schemaProfile {
	profile := schemaProfile{Types: map[string]bool{}}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		blocks, ok := parseJSONLD(text)
		if !ok {
			profile.Malformed++
			return
		}
		profile.Blocks = append(profile.Blocks, blocks...)
	})
	for _, b := range profile.Blocks {
		for _, t := range typesOf(b) {
			profile.Types[t] = true
		}
	}
	return profile
}

// parseJSONLD accepts a single object, a top-level array, or an object
// wrapping an @graph array, and flattens everything to objects.
func parseJSONLD(text string) ([]map[string]any, bool) {
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	var out []map[string]any
	var add func(v any)
	add = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			out = append(out, t)
			if graph, ok := t["@graph"].([]any); ok {
				for _, g := range graph {
					add(g)
				}
			}
		case []any:
			for _, item := range t {
				add(item)
			}
		}
	}
	add(raw)
	return out, true
}

// typesOf reads @type as either a string or an array of strings.
func typesOf(block map[string]any) []string {
	switch t := block["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func blocksOfType(profile schemaProfile, typ string) []map[string]any {
	var out []map[string]any
	for _, b := range profile.Blocks {
		for _, t := range typesOf(b) {
			if t == typ {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

func identityCard(profile schemaProfile) report.CardSpec {
	card := report.CardSpec{
		ID:             "identity-structure",
		Name:           "Identity & Structure",
		Explanation:    "Organization, WebSite and breadcrumb schemas anchor the site's identity graph.",
		MaxScore:       30,
		SuccessMessage: "The foundational identity schemas are present.",
		RawData: jsonLDRawData{
			BlockCount:     len(profile.Blocks),
			MalformedCount: profile.Malformed,
			Types:          sortedTypes(profile.Types),
		},
	}
	if profile.Types["Organization"] {
		card.Score += 10
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "No Organization schema found.",
			Solution: "Add an Organization JSON-LD block naming the site owner.",
			Impact:   5,
		})
	}
	if profile.Types["WebSite"] {
		card.Score += 10
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "No WebSite schema found.",
			Solution: "Add a WebSite JSON-LD block with the site name and URL.",
			Impact:   4,
		})
	}
	if profile.Types["BreadcrumbList"] || hasMainEntity(profile) {
		card.Score += 10
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "Neither a BreadcrumbList nor a page-type schema situates this page in the site.",
			Solution: "Add a BreadcrumbList schema or a schema matching the page type.",
			Impact:   3,
		})
	}
	if profile.Malformed > 0 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("%d JSON-LD block(s) contain invalid JSON and were ignored.", profile.Malformed),
			Solution: "Validate the JSON-LD blocks; broken blocks are invisible to crawlers.",
			Impact:   6,
		})
	}
	return card
}

func hasMainEntity(profile schemaProfile) bool {
	for _, t := range mainEntityTypes {
		if profile.Types[t] {
			return true
		}
	}
	return false
}

type mainEntityRawData struct {
	DetectedType   string   `json:"detectedType,omitempty"`
	RequiredFields []string `json:"requiredFields,omitempty"`
	MissingFields  []string `json:"missingFields,omitempty"`
}

func mainEntityCard(profile schemaProfile) report.CardSpec {
	card := report.CardSpec{
		ID:             "main-entity",
		Name:           "Main Entity",
		Explanation:    "The page's primary entity schema with its required fields is what LLMs cite.",
		MaxScore:       50,
		SuccessMessage: "The page declares its main entity with all required fields.",
	}
	var detected string
	var block map[string]any
	for _, t := range mainEntityTypes {
		if blocks := blocksOfType(profile, t); len(blocks) > 0 {
			detected, block = t, blocks[0]
			break
		}
	}
	if detected == "" {
		card.Score = 0
		card.RawData = mainEntityRawData{}
		card.Recommendations = []report.Recommendation{{
			Problem:  "No main-entity schema (Article, Product, LocalBusiness, Service, ...) was found.",
			Solution: "Add a JSON-LD block describing what this page primarily is about.",
			Impact:   8,
		}}
		return card
	}

	required := requiredFields[detected]
	var missing []string
	for _, f := range required {
		if !fieldPresent(block, f) {
			missing = append(missing, f)
		}
	}
	present := len(required) - len(missing)
	card.Score = roundRatio(50, present, len(required))
	card.RawData = mainEntityRawData{DetectedType: detected, RequiredFields: required, MissingFields: missing}
	if len(missing) > 0 {
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("The %s schema is missing required fields: %s.", detected, strings.Join(missing, ", ")),
			Solution: "Fill in the missing properties so the entity is complete for extraction.",
			Impact:   6,
		}}
	}
	return card
}

func fieldPresent(block map[string]any, field string) bool {
	v, ok := block[field]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	}
	return true
}

func enrichmentCard(profile schemaProfile) report.CardSpec {
	card := report.CardSpec{
		ID:             "enrichment-schemas",
		Name:           "Enrichment Schemas",
		Explanation:    "FAQ, review, rating and similar schemas give LLMs extra citable facts.",
		MaxScore:       enrichmentCap,
		SuccessMessage: "The page carries enrichment schemas beyond its main entity.",
	}
	score := 0
	var found []string
	for typ, weight := range enrichmentWeights {
		if profile.Types[typ] {
			score += weight
			found = append(found, typ)
		}
	}
	// Map iteration order must not leak into rawData.
	sort.Strings(found)
	if score > enrichmentCap {
		score = enrichmentCap
	}
	card.Score = score
	card.RawData = map[string]any{"found": found}
	if score == 0 {
		card.Recommendations = []report.Recommendation{{
			Problem:  "No enrichment schemas (FAQPage, Review, AggregateRating, Recipe, Event, Person) were found.",
			Solution: "Add schemas for any FAQ, review or author content the page already shows.",
			Impact:   3,
		}}
	}
	return card
}

func graphConnectivityCard(profile schemaProfile) report.CardSpec {
	card := report.CardSpec{
		ID:             "graph-connectivity",
		Name:           "Graph Connectivity",
		Explanation:    "Schemas referencing each other form a knowledge graph instead of isolated facts.",
		MaxScore:       10,
		SuccessMessage: "The schemas reference each other and form a connected graph.",
	}
	if schemasConnected(profile) {
		card.Score = 10
		return card
	}
	card.Score = 0
	if len(profile.Blocks) > 0 {
		card.Recommendations = []report.Recommendation{{
			Problem:  "The JSON-LD blocks do not reference each other.",
			Solution: "Link schemas with @id references, sameAs, author or publisher properties.",
			Impact:   2,
		}}
	} else {
		card.Recommendations = []report.Recommendation{{
			Problem:  "No JSON-LD markup to connect.",
			Solution: "Add JSON-LD schemas first, then link them into a graph.",
			Impact:   2,
		}}
	}
	return card
}

// schemasConnected looks for @id values defined in one block and referenced
// in another, or for linking properties (sameAs, author, publisher) that
// point at objects or identifiers.
func schemasConnected(profile schemaProfile) bool {
	if len(profile.Blocks) == 0 {
		return false
	}
	ids := map[string]bool{}
	for _, b := range profile.Blocks {
		if id, ok := b["@id"].(string); ok && id != "" {
			ids[id] = true
		}
	}
	for _, b := range profile.Blocks {
		for key, v := range b {
			switch key {
			case "sameAs":
				if fieldPresent(b, "sameAs") {
					return true
				}
			case "author", "publisher", "mainEntityOfPage", "isPartOf":
				if refersToKnownID(v, ids) || isObjectRef(v) {
					return true
				}
			case "@id":
				// Defining an id alone does not connect anything.
			default:
				if s, ok := v.(string); ok && ids[s] && key != "@type" {
					return true
				}
			}
		}
	}
	return false
}

func refersToKnownID(v any, ids map[string]bool) bool {
	switch t := v.(type) {
	case string:
		return ids[t]
	case map[string]any:
		if id, ok := t["@id"].(string); ok {
			return ids[id]
		}
	}
	return false
}

func isObjectRef(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	return m["@id"] != nil || m["name"] != nil
}

type metaTagsRawData struct {
	TitleLength       int  `json:"titleLength"`
	DescriptionLength int  `json:"descriptionLength"`
	TitleConsistent   bool `json:"titleConsistent"`
	DescConsistent    bool `json:"descriptionConsistent"`
	HasViewport       bool `json:"hasViewport"`
	HasCharset        bool `json:"hasCharset"`
	RobotsMetaOK      bool `json:"robotsMetaOk"`
}

func metaTagsCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "meta-tags",
		Name:           "Meta Tags",
		Explanation:    "Title and description are the first text crawlers read about the page.",
		MaxScore:       35,
		SuccessMessage: "Title, description and technical meta tags are in good shape.",
	}
	meta := doc.Meta
	// Ranges are character counts, so measure runes rather than bytes.
	raw := metaTagsRawData{
		TitleLength:       utf8.RuneCountInString(meta.Title),
		DescriptionLength: utf8.RuneCountInString(meta.Description),
	}

	// Title: 50-60 chars optimal, 30-70 acceptable.
	switch l := raw.TitleLength; {
	case l == 0:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The page has no <title>.",
			Solution: "Add a descriptive title of 50-60 characters.",
			Impact:   9,
		})
	case l >= 50 && l <= 60:
		card.Score += 10
	case l >= 30 && l <= 70:
		card.Score += 6
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The title is %d characters; the optimal range is 50-60.", l),
			Solution: "Adjust the title length toward 50-60 characters.",
			Impact:   2,
		})
	default:
		card.Score += 3
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The title is %d characters, outside the acceptable 30-70 range.", l),
			Solution: "Rewrite the title to 50-60 characters.",
			Impact:   4,
		})
	}

	// Description: 140-160 optimal, 120-170 acceptable.
	switch l := raw.DescriptionLength; {
	case l == 0:
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The page has no meta description.",
			Solution: "Add a meta description of 140-160 characters summarizing the page.",
			Impact:   8,
		})
	case l >= 140 && l <= 160:
		card.Score += 10
	case l >= 120 && l <= 170:
		card.Score += 6
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The meta description is %d characters; the optimal range is 140-160.", l),
			Solution: "Adjust the description length toward 140-160 characters.",
			Impact:   2,
		})
	default:
		card.Score += 3
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The meta description is %d characters, outside the acceptable 120-170 range.", l),
			Solution: "Rewrite the description to 140-160 characters.",
			Impact:   3,
		})
	}

	// Consistency between head tags and their Open Graph counterparts. An
	// absent counterpart is not an inconsistency.
	ogTitle := ogContent(doc, "og:title")
	ogDesc := ogContent(doc, "og:description")
	raw.TitleConsistent = ogTitle == "" || tokenJaccard(meta.Title, ogTitle) >= 0.5
	raw.DescConsistent = ogDesc == "" || tokenJaccard(meta.Description, ogDesc) >= 0.5
	if raw.TitleConsistent && raw.DescConsistent {
		card.Score += 5
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The Open Graph title/description diverge from the head title/description.",
			Solution: "Keep og:title and og:description semantically aligned with the head tags.",
			Impact:   2,
		})
	}

	// Technical: viewport 4, charset 3, robots meta 3. An absent robots meta
	// defaults to indexable, which is fine.
	raw.HasViewport = meta.Viewport != ""
	raw.HasCharset = meta.Charset != ""
	robotsMeta := strings.ToLower(meta.RobotsMeta)
	raw.RobotsMetaOK = !strings.Contains(robotsMeta, "noindex") && !strings.Contains(robotsMeta, "nofollow")
	if raw.HasViewport {
		card.Score += 4
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "No viewport meta tag.",
			Solution: `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
			Impact:   3,
		})
	}
	if raw.HasCharset {
		card.Score += 3
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "No charset declaration.",
			Solution: `Add <meta charset="utf-8"> as the first element of <head>.`,
			Impact:   3,
		})
	}
	if raw.RobotsMetaOK {
		card.Score += 3
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The robots meta tag restricts indexing (%q).", meta.RobotsMeta),
			Solution: "Remove noindex/nofollow from the robots meta tag if the page should be citable.",
			Impact:   9,
		})
	}

	card.RawData = raw
	return card
}

func ogContent(doc *htmldoc.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First()
	if v, ok := sel.Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

var nonAlphaToken = regexp.MustCompile(`[^a-z]+`)

// tokenJaccard measures overlap between two strings over lowercased
// alphabetic tokens of length >= 3.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	union := len(setB)
	for t := range setA {
		if setB[t] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range nonAlphaToken.Split(strings.ToLower(s), -1) {
		if len(tok) >= 3 {
			out[tok] = true
		}
	}
	return out
}

type openGraphRawData struct {
	Present []string `json:"present"`
	Missing []string `json:"missing"`
	Image   string   `json:"image,omitempty"`
}

func openGraphCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "open-graph",
		Name:           "Open Graph Coverage",
		Explanation:    "Open Graph tags control how the page renders when cited or shared.",
		MaxScore:       25,
		SuccessMessage: "The basic Open Graph tags and an absolute og:image are present.",
	}
	basics := []string{"og:title", "og:type", "og:url", "og:description"}
	raw := openGraphRawData{}
	present := 0
	for _, p := range basics {
		if ogContent(doc, p) != "" {
			present++
			raw.Present = append(raw.Present, p)
		} else {
			raw.Missing = append(raw.Missing, p)
		}
	}
	card.Score = roundRatio(15, present, len(basics))
	if present < len(basics) {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Missing Open Graph tags: %s.", strings.Join(raw.Missing, ", ")),
			Solution: "Add the four basic og: tags to <head>.",
			Impact:   4,
		})
	}

	img := ogContent(doc, "og:image")
	raw.Image = img
	if img != "" && (strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://")) {
		card.Score += 10
	} else if img != "" {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "og:image is present but not an absolute URL.",
			Solution: "Use a fully qualified https URL for og:image.",
			Impact:   3,
		})
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "No og:image tag.",
			Solution: "Add an og:image pointing at a representative absolute image URL.",
			Impact:   3,
		})
	}
	card.RawData = raw
	return card
}

func sortedTypes(types map[string]bool) []string {
	out := make([]string, 0, len(types))
	for t := range types {
		out = append(out, t)
	}
	// Deterministic rawData keeps repeated runs byte-identical.
	sort.Strings(out)
	return out
}
