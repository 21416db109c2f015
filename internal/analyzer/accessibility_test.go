package analyzer

import (
	"strings"
	"testing"

	"github.com/geoaudit/geoaudit/internal/probe"
	"github.com/geoaudit/geoaudit/internal/report"
)

func goodProbe() probe.Result {
	return probe.Result{
		PerformanceScore: 96,
		CoreWebVitals:    probe.CoreWebVitals{LCPMs: 1200, INPMs: 80, CLS: 0.02},
		Successful:       true,
	}
}

func accessibilitySection(t *testing.T, html string, p probe.Result) *report.Section {
	t.Helper()
	sec, penalties, err := Accessibility(Input{URL: "https://example.test/", Doc: mustDoc(t, html), Probe: p})
	if err != nil {
		t.Fatal(err)
	}
	if penalties != nil {
		t.Fatalf("accessibility must not emit penalties, got %+v", penalties)
	}
	return sec
}

func wordyBody(words int) string {
	return strings.TrimSpace(strings.Repeat("word ", words))
}

func TestStaticContentRichPage(t *testing.T) {
	sec := accessibilitySection(t, `<html><body><main><p>`+wordyBody(320)+`</p></main></body></html>`, goodProbe())
	if card := findCard(t, sec, "static-content"); card.Score != 20 {
		t.Fatalf("static content = %d, want 20", card.Score)
	}
}

func TestStaticContentThinPage(t *testing.T) {
	// Fifty words drowned in script payload: both checks fail.
	html := `<html><body><main><p>` + wordyBody(50) + `</p></main><script>` +
		strings.Repeat("var filler = 'xxxxxxxxxxxxxxxx';\n", 100) + `</script></body></html>`
	sec := accessibilitySection(t, html, goodProbe())
	card := findCard(t, sec, "static-content")
	if card.Score != 0 {
		t.Fatalf("thin page = %d, want 0", card.Score)
	}
	if len(card.Recommendations) != 2 {
		t.Fatalf("recs = %+v", card.Recommendations)
	}
	raw := card.RawData.(staticContentRawData)
	if raw.WordCount != 50 {
		t.Fatalf("wordCount = %d", raw.WordCount)
	}
	if raw.TextHTMLRatio >= 15 {
		t.Fatalf("ratio = %f, fixture should sit below 15%%", raw.TextHTMLRatio)
	}
}

func TestImageAccessibilityAltCoverage(t *testing.T) {
	sec := accessibilitySection(t, `<html><body><main><p>`+wordyBody(320)+`</p>
<img src="a.png" alt="A chart of quarterly growth">
<img src="b.png" alt="">
<img src="c.png">
</main></body></html>`, goodProbe())
	card := findCard(t, sec, "image-accessibility")
	// 1 of 3 with real alt: round(20/3) = 7.
	if card.Score != 7 {
		t.Fatalf("alt coverage = %d, want 7", card.Score)
	}
	raw := card.RawData.(imageAltRawData)
	if raw.Total != 3 || raw.WithAlt != 1 || raw.MissingAlt != 2 {
		t.Fatalf("rawData = %+v", raw)
	}
}

func TestImageAccessibilityNoImages(t *testing.T) {
	sec := accessibilitySection(t, `<html><body><p>text</p></body></html>`, goodProbe())
	if card := findCard(t, sec, "image-accessibility"); card.Score != 20 {
		t.Fatalf("no images = %d, want 20", card.Score)
	}
}

func TestPerformanceCardMeasured(t *testing.T) {
	card := performanceCard(goodProbe())
	// round(96/100*25) = 24.
	if card.Score != 24 {
		t.Fatalf("performance = %d, want 24", card.Score)
	}
	if len(card.Recommendations) != 0 {
		t.Fatalf("good vitals should carry no recs: %+v", card.Recommendations)
	}
}

func TestPerformanceCardPoorVitals(t *testing.T) {
	card := performanceCard(probe.Result{
		PerformanceScore: 40,
		CoreWebVitals:    probe.CoreWebVitals{LCPMs: 4800, INPMs: 350, CLS: 0.3},
		Successful:       true,
	})
	if card.Score != 10 {
		t.Fatalf("poor performance = %d, want 10", card.Score)
	}
	// Overall, LCP, INP and CLS each draw a recommendation.
	if len(card.Recommendations) != 4 {
		t.Fatalf("recs = %d: %+v", len(card.Recommendations), card.Recommendations)
	}
}

func TestPerformanceCardFallback(t *testing.T) {
	sec := accessibilitySection(t, `<html><body><main><p>`+wordyBody(320)+`</p></main></body></html>`, probe.Fallback(2))
	card := findCard(t, sec, "performance")
	// Neutral estimate: round(50/100*25) = 13.
	if card.Score != 13 {
		t.Fatalf("fallback performance = %d, want 13", card.Score)
	}
	if len(card.Recommendations) != 1 || !strings.Contains(card.Recommendations[0].Solution, "pagespeed.web.dev") {
		t.Fatalf("fallback rec = %+v", card.Recommendations)
	}
	if card.Status != report.StatusWarning {
		t.Fatalf("fallback status = %s, want warning", card.Status)
	}
}

func TestImageOptimization(t *testing.T) {
	sec := accessibilitySection(t, `<html><body><main><p>`+wordyBody(320)+`</p>
<img src="a.webp" alt="a" loading="lazy">
<img src="b.avif" alt="b" loading="lazy">
<img src="c.jpg" alt="c">
<img src="d.png" alt="d">
</main></body></html>`, goodProbe())
	card := findCard(t, sec, "image-optimization")
	// round(5*0.5) + round(5*0.5) = 3 + 3.
	if card.Score != 6 {
		t.Fatalf("image optimization = %d, want 6", card.Score)
	}
	raw := card.RawData.(imageOptRawData)
	if raw.ModernFormat != 2 || raw.Lazy != 2 {
		t.Fatalf("rawData = %+v", raw)
	}
}

func TestImageOptimizationNoImages(t *testing.T) {
	card := imageOptimizationCard(mustDoc(t, `<html><body><p>x</p></body></html>`))
	if card.Score != 10 || len(card.Recommendations) != 0 {
		t.Fatalf("no images = %d with %d recs", card.Score, len(card.Recommendations))
	}
}

func TestNavigationCardFull(t *testing.T) {
	sec := accessibilitySection(t, `<html><body>
<nav aria-label="primary" class="breadcrumb"><a href="/a">Section A</a></nav>
<main><p>`+wordyBody(320)+`</p></main>
</body></html>`, goodProbe())
	card := findCard(t, sec, "navigation")
	if card.Score != 25 {
		t.Fatalf("navigation = %d, want 25", card.Score)
	}
	if len(card.Recommendations) != 0 {
		t.Fatalf("recs = %+v", card.Recommendations)
	}
}

func TestNavigationCardMissingNav(t *testing.T) {
	sec := accessibilitySection(t, `<html><body><main><p>content</p></main></body></html>`, goodProbe())
	card := findCard(t, sec, "navigation")
	if card.Score != 10 {
		t.Fatalf("no nav = %d, want 10", card.Score)
	}
	raw := card.RawData.(navigationRawData)
	if raw.NavCount != 0 || raw.BreadcrumbFound {
		t.Fatalf("rawData = %+v", raw)
	}
}

func TestNavigationCardScriptOnlyNav(t *testing.T) {
	sec := accessibilitySection(t, `<html><body>
<nav aria-label="primary"><button>Menu</button></nav>
<main><p>content</p></main>
</body></html>`, goodProbe())
	card := findCard(t, sec, "navigation")
	// Nav exists (no -15) but holds no static links (-10).
	if card.Score != 15 {
		t.Fatalf("linkless nav = %d, want 15", card.Score)
	}
}

func TestNavigationBreadcrumbIsRecommendationOnly(t *testing.T) {
	withOut := accessibilitySection(t, `<html><body>
<nav aria-label="primary"><a href="/a">Section A</a></nav>
<main><p>content</p></main>
</body></html>`, goodProbe())
	card := findCard(t, withOut, "navigation")
	if card.Score != 25 {
		t.Fatalf("missing breadcrumb must not cost points, got %d", card.Score)
	}
	found := false
	for _, r := range card.Recommendations {
		if strings.Contains(r.Problem, "breadcrumb") {
			found = true
		}
	}
	if !found {
		t.Fatalf("breadcrumb rec missing: %+v", card.Recommendations)
	}
}

func TestHasBreadcrumb(t *testing.T) {
	cases := []struct {
		html string
		want bool
	}{
		{`<html><body><ol class="breadcrumb"><li>Home</li></ol></body></html>`, true},
		{`<html><body><div id="breadcrumb">Home</div></body></html>`, true},
		{`<html><body><nav aria-label="Breadcrumb trail"><a href="/">Home</a></nav></body></html>`, true},
		{`<html><body><div class="site-breadcrumbs">Home</div></body></html>`, true},
		{`<html><body><div class="crumbles">Home</div></body></html>`, false},
	}
	for _, tc := range cases {
		if got := hasBreadcrumb(mustDoc(t, tc.html)); got != tc.want {
			t.Errorf("hasBreadcrumb(%q) = %v, want %v", tc.html, got, tc.want)
		}
	}
}
