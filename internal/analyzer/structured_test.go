package analyzer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/geoaudit/geoaudit/internal/htmldoc"
	"github.com/geoaudit/geoaudit/internal/report"
)

func mustDoc(t *testing.T, html string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.Parse([]byte(html), "https://example.test/")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func structuredSection(t *testing.T, html string) *report.Section {
	t.Helper()
	sec, penalties, err := StructuredData(Input{URL: "https://example.test/", Doc: mustDoc(t, html)})
	if err != nil {
		t.Fatal(err)
	}
	if penalties != nil {
		t.Fatalf("structured data must not emit penalties, got %+v", penalties)
	}
	return sec
}

func TestParseJSONLDShapes(t *testing.T) {
	// Single object.
	blocks, ok := parseJSONLD(`{"@type": "Article", "headline": "x"}`)
	if !ok || len(blocks) != 1 {
		t.Fatalf("object: ok=%v blocks=%d", ok, len(blocks))
	}
	// Top-level array.
	blocks, ok = parseJSONLD(`[{"@type": "Organization"}, {"@type": "WebSite"}]`)
	if !ok || len(blocks) != 2 {
		t.Fatalf("array: ok=%v blocks=%d", ok, len(blocks))
	}
	// @graph wrapper yields the wrapper plus its members.
	blocks, ok = parseJSONLD(`{"@context": "https://schema.org", "@graph": [{"@type": "Organization"}, {"@type": "Article"}]}`)
	if !ok || len(blocks) != 3 {
		t.Fatalf("@graph: ok=%v blocks=%d", ok, len(blocks))
	}
	// Malformed.
	if _, ok = parseJSONLD(`{"@type": "Article",}`); ok {
		t.Fatal("trailing comma should fail strict parsing")
	}
}

func TestExtractSchemaProfile(t *testing.T) {
	doc := mustDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Organization", "name": "Acme"}</script>
<script type="application/ld+json">not json at all</script>
<script type="application/ld+json">{"@graph": [{"@type": "WebSite", "name": "Acme", "url": "https://example.test/"}]}</script>
</head><body></body></html>`)
	profile := extractSchemaProfile(doc)
	if profile.Malformed != 1 {
		t.Fatalf("malformed = %d", profile.Malformed)
	}
	if !profile.Types["Organization"] || !profile.Types["WebSite"] {
		t.Fatalf("types = %v", profile.Types)
	}
}

func TestIdentityCardScoring(t *testing.T) {
	full := schemaProfile{Types: map[string]bool{"Organization": true, "WebSite": true, "BreadcrumbList": true}}
	if card := identityCard(full); card.Score != 30 {
		t.Fatalf("full identity = %d, want 30", card.Score)
	}

	// A main-entity type substitutes for the breadcrumb point.
	viaEntity := schemaProfile{Types: map[string]bool{"Organization": true, "WebSite": true, "Article": true}}
	if card := identityCard(viaEntity); card.Score != 30 {
		t.Fatalf("identity via main entity = %d, want 30", card.Score)
	}

	empty := identityCard(schemaProfile{Types: map[string]bool{}})
	if empty.Score != 0 {
		t.Fatalf("empty identity = %d", empty.Score)
	}
	if len(empty.Recommendations) != 3 {
		t.Fatalf("empty identity recs = %d, want 3", len(empty.Recommendations))
	}

	malformed := schemaProfile{Types: map[string]bool{"Organization": true, "WebSite": true, "BreadcrumbList": true}, Malformed: 2}
	card := identityCard(malformed)
	if card.Score != 30 || len(card.Recommendations) != 1 {
		t.Fatalf("malformed identity = %d with %d recs", card.Score, len(card.Recommendations))
	}
	if !strings.Contains(card.Recommendations[0].Problem, "invalid JSON") {
		t.Fatalf("malformed rec = %+v", card.Recommendations[0])
	}
}

func TestMainEntityCardProportional(t *testing.T) {
	sec := structuredSection(t, `<html><head>
<script type="application/ld+json">{"@type": "Article", "headline": "A fine headline"}</script>
</head><body></body></html>`)
	card := findCard(t, sec, "main-entity")
	// Article requires headline and author; one of two present.
	if card.Score != 25 {
		t.Fatalf("half-complete article = %d, want 25", card.Score)
	}
	if len(card.Recommendations) != 1 || !strings.Contains(card.Recommendations[0].Problem, "author") {
		t.Fatalf("missing-field rec = %+v", card.Recommendations)
	}

	sec = structuredSection(t, `<html><head>
<script type="application/ld+json">{"@type": "Article", "headline": "A fine headline", "author": {"@type": "Person", "name": "J. Writer"}}</script>
</head><body></body></html>`)
	if card := findCard(t, sec, "main-entity"); card.Score != 50 {
		t.Fatalf("complete article = %d, want 50", card.Score)
	}

	sec = structuredSection(t, `<html><head></head><body></body></html>`)
	if card := findCard(t, sec, "main-entity"); card.Score != 0 || len(card.Recommendations) != 1 {
		t.Fatalf("no entity = %d with %d recs", card.Score, len(card.Recommendations))
	}
}

func TestMainEntityPriorityOrder(t *testing.T) {
	// Article outranks Product when both are present.
	profile := extractSchemaProfile(mustDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Product", "name": "Thing", "description": "A thing"}</script>
<script type="application/ld+json">{"@type": "Article", "headline": "H", "author": "A"}</script>
</head><body></body></html>`))
	card := mainEntityCard(profile)
	raw := card.RawData.(mainEntityRawData)
	if raw.DetectedType != "Article" {
		t.Fatalf("detected = %q, want Article", raw.DetectedType)
	}
}

func TestEnrichmentCardCapped(t *testing.T) {
	profile := schemaProfile{Types: map[string]bool{
		"FAQPage": true, "Recipe": true, "Event": true, "Review": true, "Person": true,
	}}
	card := enrichmentCard(profile)
	if card.Score != enrichmentCap {
		t.Fatalf("enrichment = %d, want cap %d", card.Score, enrichmentCap)
	}

	single := enrichmentCard(schemaProfile{Types: map[string]bool{"FAQPage": true}})
	if single.Score != enrichmentWeights["FAQPage"] {
		t.Fatalf("single enrichment = %d", single.Score)
	}

	none := enrichmentCard(schemaProfile{Types: map[string]bool{}})
	if none.Score != 0 || len(none.Recommendations) != 1 {
		t.Fatalf("no enrichment = %d with %d recs", none.Score, len(none.Recommendations))
	}
}

func TestEnrichmentRawDataStable(t *testing.T) {
	profile := schemaProfile{Types: map[string]bool{
		"FAQPage": true, "Recipe": true, "Event": true, "Review": true, "Person": true,
	}}
	want := []string{"Event", "FAQPage", "Person", "Recipe", "Review"}
	for i := 0; i < 10; i++ {
		card := enrichmentCard(profile)
		found := card.RawData.(map[string]any)["found"].([]string)
		if !reflect.DeepEqual(found, want) {
			t.Fatalf("run %d: found = %v, want %v", i, found, want)
		}
	}
}

func TestGraphConnectivity(t *testing.T) {
	connected := extractSchemaProfile(mustDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Organization", "@id": "https://example.test/#org", "name": "Acme"}</script>
<script type="application/ld+json">{"@type": "Article", "headline": "H", "author": "A", "publisher": {"@id": "https://example.test/#org"}}</script>
</head><body></body></html>`))
	if !schemasConnected(connected) {
		t.Fatal("@id reference should connect the graph")
	}

	sameAs := extractSchemaProfile(mustDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Organization", "name": "Acme", "sameAs": ["https://social.example/acme"]}</script>
</head><body></body></html>`))
	if !schemasConnected(sameAs) {
		t.Fatal("sameAs should count as connectivity")
	}

	isolated := extractSchemaProfile(mustDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Organization", "name": "Acme"}</script>
<script type="application/ld+json">{"@type": "WebSite", "name": "Acme", "url": "https://example.test/"}</script>
</head><body></body></html>`))
	if schemasConnected(isolated) {
		t.Fatal("unlinked blocks are not a graph")
	}
	if card := graphConnectivityCard(isolated); card.Score != 0 {
		t.Fatalf("isolated connectivity card = %d", card.Score)
	}
}

func TestMetaTagsCardFullScore(t *testing.T) {
	title := strings.Repeat("t", 55)
	desc := strings.Repeat("d", 150)
	sec := structuredSection(t, `<html><head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width">
<title>`+title+`</title>
<meta name="description" content="`+desc+`">
</head><body></body></html>`)
	card := findCard(t, sec, "meta-tags")
	// 10 title + 10 description + 5 consistency (no og counterparts) + 4 + 3 + 3.
	if card.Score != 35 {
		t.Fatalf("meta tags = %d, want 35", card.Score)
	}
	if len(card.Recommendations) != 0 {
		t.Fatalf("full meta tags should carry no recs: %+v", card.Recommendations)
	}
}

func TestMetaTagsLengthsCountCharacters(t *testing.T) {
	// Multibyte text: 55 characters of title and 150 of description are
	// optimal even though the byte counts are twice that.
	title := strings.Repeat("ü", 55)
	desc := strings.Repeat("é", 150)
	sec := structuredSection(t, `<html><head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width">
<title>`+title+`</title>
<meta name="description" content="`+desc+`">
</head><body></body></html>`)
	card := findCard(t, sec, "meta-tags")
	if card.Score != 35 {
		t.Fatalf("multibyte meta tags = %d, want 35", card.Score)
	}
	raw := card.RawData.(metaTagsRawData)
	if raw.TitleLength != 55 || raw.DescriptionLength != 150 {
		t.Fatalf("lengths = %d/%d, want 55/150 characters", raw.TitleLength, raw.DescriptionLength)
	}
}

func TestMetaTagsCardDegradations(t *testing.T) {
	// Acceptable-but-not-optimal lengths earn the middle tier.
	sec := structuredSection(t, `<html><head>
<title>`+strings.Repeat("t", 35)+`</title>
<meta name="description" content="`+strings.Repeat("d", 125)+`">
</head><body></body></html>`)
	card := findCard(t, sec, "meta-tags")
	// 6 + 6 + 5 consistency + 0 viewport + 0 charset + 3 robots-ok.
	if card.Score != 20 {
		t.Fatalf("mid-tier meta tags = %d, want 20", card.Score)
	}

	// noindex forfeits the robots points and draws a high-impact rec.
	sec = structuredSection(t, `<html><head>
<title>`+strings.Repeat("t", 55)+`</title>
<meta name="robots" content="noindex">
</head><body></body></html>`)
	card = findCard(t, sec, "meta-tags")
	found := false
	for _, r := range card.Recommendations {
		if strings.Contains(r.Problem, "restricts indexing") && r.Impact == 9 {
			found = true
		}
	}
	if !found {
		t.Fatalf("noindex rec missing: %+v", card.Recommendations)
	}
}

func TestMetaTagsConsistency(t *testing.T) {
	// Matching og:title keeps the consistency points.
	sec := structuredSection(t, `<html><head>
<title>Fast widgets for busy people</title>
<meta property="og:title" content="Fast widgets for busy people everywhere">
</head><body></body></html>`)
	card := findCard(t, sec, "meta-tags")
	raw := card.RawData.(metaTagsRawData)
	if !raw.TitleConsistent {
		t.Fatal("overlapping og:title should be consistent")
	}

	// A divergent og:title loses them.
	sec = structuredSection(t, `<html><head>
<title>Fast widgets for busy people</title>
<meta property="og:title" content="Completely unrelated slogan text">
</head><body></body></html>`)
	card = findCard(t, sec, "meta-tags")
	raw = card.RawData.(metaTagsRawData)
	if raw.TitleConsistent {
		t.Fatal("divergent og:title should be inconsistent")
	}
}

func TestTokenJaccard(t *testing.T) {
	if got := tokenJaccard("fast red widgets", "fast red widgets"); got != 1 {
		t.Fatalf("identical = %f", got)
	}
	if got := tokenJaccard("fast red widgets", "slow blue gadgets"); got != 0 {
		t.Fatalf("disjoint = %f", got)
	}
	if got := tokenJaccard("", "anything"); got != 0 {
		t.Fatalf("empty = %f", got)
	}
	// Short tokens are ignored.
	if got := tokenJaccard("an of to", "an of to"); got != 0 {
		t.Fatalf("stopword-only = %f", got)
	}
}

func TestOpenGraphCard(t *testing.T) {
	sec := structuredSection(t, `<html><head>
<meta property="og:title" content="T">
<meta property="og:type" content="article">
<meta property="og:url" content="https://example.test/">
<meta property="og:description" content="D">
<meta property="og:image" content="https://example.test/hero.png">
</head><body></body></html>`)
	if card := findCard(t, sec, "open-graph"); card.Score != 25 {
		t.Fatalf("full OG = %d, want 25", card.Score)
	}

	// Two of four basics, relative image.
	sec = structuredSection(t, `<html><head>
<meta property="og:title" content="T">
<meta property="og:type" content="article">
<meta property="og:image" content="/hero.png">
</head><body></body></html>`)
	card := findCard(t, sec, "open-graph")
	// round(15*2/4) = 8, relative image earns nothing.
	if card.Score != 8 {
		t.Fatalf("partial OG = %d, want 8", card.Score)
	}
	hasRelRec := false
	for _, r := range card.Recommendations {
		if strings.Contains(r.Problem, "not an absolute URL") {
			hasRelRec = true
		}
	}
	if !hasRelRec {
		t.Fatalf("relative og:image rec missing: %+v", card.Recommendations)
	}

	sec = structuredSection(t, `<html><head></head><body></body></html>`)
	if card := findCard(t, sec, "open-graph"); card.Score != 0 || len(card.Recommendations) != 2 {
		t.Fatalf("empty OG = %d with %d recs", card.Score, len(card.Recommendations))
	}
}
