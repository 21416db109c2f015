package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/geoaudit/geoaudit/internal/htmldoc"
	"github.com/geoaudit/geoaudit/internal/probe"
	"github.com/geoaudit/geoaudit/internal/report"
)

// Accessibility scores whether the content is actually reachable by a
// non-rendering crawler: static text volume, image alternatives, measured
// performance and navigation landmarks.
func Accessibility(in Input) (*report.Section, []report.GlobalPenalty, error) {
	content := report.DrawerSpec{
		ID:          "content-accessibility",
		Name:        "Content Accessibility",
		Description: "How much of the content exists as static, machine-readable text.",
		Cards: []report.CardSpec{
			staticContentCard(in.Doc),
			imageAccessibilityCard(in.Doc),
		},
	}
	technical := report.DrawerSpec{
		ID:          "technical-accessibility",
		Name:        "Technical Accessibility & Performance",
		Description: "Measured loading performance and image delivery hygiene.",
		Cards: []report.CardSpec{
			performanceCard(in.Probe),
			imageOptimizationCard(in.Doc),
		},
	}
	navigation := report.DrawerSpec{
		ID:          "navigational-accessibility",
		Name:        "Navigational Accessibility",
		Description: "Landmark navigation that works without JavaScript.",
		Cards:       []report.CardSpec{navigationCard(in.Doc)},
	}

	sec, err := report.BuildSection(report.SectionAccessibility, "Accessibility",
		[]report.DrawerSpec{content, technical, navigation})
	if err != nil {
		return nil, nil, err
	}
	return sec, nil, nil
}

type staticContentRawData struct {
	WordCount     int     `json:"wordCount"`
	TextHTMLRatio float64 `json:"textHtmlRatio"`
}

func staticContentCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "static-content",
		Name:           "Static Content Availability",
		Explanation:    "Crawlers that do not run JavaScript only see the static HTML text.",
		MaxScore:       20,
		SuccessMessage: "The page delivers substantial static text content.",
	}
	text := doc.BodyText()
	words := len(strings.Fields(text))
	ratio := 0.0
	if doc.RawLength() > 0 {
		ratio = float64(len(text)) / float64(doc.RawLength()) * 100
	}
	card.RawData = staticContentRawData{WordCount: words, TextHTMLRatio: math.Round(ratio*10) / 10}

	if words >= 300 {
		card.Score += 10
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The page body contains only %d words of static text.", words),
			Solution: "Serve at least 300 words of meaningful content in the initial HTML.",
			Impact:   8,
		})
	}
	if ratio >= 15 {
		card.Score += 10
	} else {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Text makes up only %.1f%% of the HTML payload.", ratio),
			Solution: "Reduce markup and script overhead relative to visible text (target 15%+).",
			Impact:   5,
		})
	}
	return card
}

type imageAltRawData struct {
	Total      int `json:"total"`
	WithAlt    int `json:"withAlt"`
	MissingAlt int `json:"missingAlt"`
}

func imageAccessibilityCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "image-accessibility",
		Name:           "Image Accessibility",
		Explanation:    "Alt text is the only way an LLM can read an image's content.",
		MaxScore:       20,
		SuccessMessage: "All images carry descriptive alt text.",
	}
	raw := imageAltRawData{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		raw.Total++
		if v, ok := s.Attr("alt"); ok && strings.TrimSpace(v) != "" {
			raw.WithAlt++
		}
	})
	raw.MissingAlt = raw.Total - raw.WithAlt
	card.RawData = raw

	if raw.Total == 0 {
		card.Score = 20
		return card
	}
	card.Score = roundRatio(20, raw.WithAlt, raw.Total)
	if raw.MissingAlt > 0 {
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("%d of %d images lack alt text.", raw.MissingAlt, raw.Total),
			Solution: "Add a descriptive alt attribute to every content image.",
			Impact:   6,
		}}
	}
	return card
}

func performanceCard(p probe.Result) report.CardSpec {
	card := report.CardSpec{
		ID:             "performance",
		Name:           "Performance Score & Core Web Vitals",
		Explanation:    "Slow pages get crawled less and cited less.",
		MaxScore:       25,
		SuccessMessage: "The page performs well on Core Web Vitals.",
		RawData:        p,
	}
	card.Score = int(math.Round(float64(p.PerformanceScore) / 100 * 25))

	if !p.Successful {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The performance measurement service was unavailable; a neutral estimate was used.",
			Solution: "Run PageSpeed Insights manually at https://pagespeed.web.dev/ to get real numbers.",
			Impact:   3,
		})
		return card
	}
	if p.PerformanceScore < 75 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("The overall performance score is %d (below 75).", p.PerformanceScore),
			Solution: "Address the top PageSpeed opportunities: render-blocking resources, image sizes, server latency.",
			Impact:   6,
		})
	}
	if p.CoreWebVitals.LCPMs > 2500 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Largest Contentful Paint is %.0f ms (above 2.5 s).", p.CoreWebVitals.LCPMs),
			Solution: "Optimize the largest above-the-fold element: preload its image, cut server response time.",
			Impact:   5,
		})
	}
	if p.CoreWebVitals.INPMs > 200 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Interaction to Next Paint is %.0f ms (above 200 ms).", p.CoreWebVitals.INPMs),
			Solution: "Break up long JavaScript tasks and defer non-essential scripts.",
			Impact:   4,
		})
	}
	if p.CoreWebVitals.CLS > 0.1 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Cumulative Layout Shift is %.2f (above 0.1).", p.CoreWebVitals.CLS),
			Solution: "Reserve space for images, ads and embeds so content does not move while loading.",
			Impact:   4,
		})
	}
	return card
}

type imageOptRawData struct {
	Total        int     `json:"total"`
	ModernFormat int     `json:"modernFormat"`
	Lazy         int     `json:"lazy"`
	ModernRatio  float64 `json:"modernRatio"`
	LazyRatio    float64 `json:"lazyRatio"`
}

func imageOptimizationCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "image-optimization",
		Name:           "Image Optimization",
		Explanation:    "Modern formats and lazy loading keep image-heavy pages fast to crawl.",
		MaxScore:       10,
		SuccessMessage: "Images use modern formats and lazy loading.",
	}
	raw := imageOptRawData{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		raw.Total++
		src, _ := s.Attr("src")
		lower := strings.ToLower(src)
		if strings.Contains(lower, ".webp") || strings.Contains(lower, ".avif") {
			raw.ModernFormat++
		}
		if v, ok := s.Attr("loading"); ok && strings.EqualFold(strings.TrimSpace(v), "lazy") {
			raw.Lazy++
		}
	})

	if raw.Total == 0 {
		card.Score = 10
		card.RawData = raw
		return card
	}
	raw.ModernRatio = float64(raw.ModernFormat) / float64(raw.Total)
	raw.LazyRatio = float64(raw.Lazy) / float64(raw.Total)
	card.Score = int(math.Round(5*raw.ModernRatio)) + int(math.Round(5*raw.LazyRatio))
	card.RawData = raw

	if raw.ModernRatio < 0.3 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Only %d of %d images use WebP or AVIF.", raw.ModernFormat, raw.Total),
			Solution: "Serve images in WebP or AVIF with fallbacks via <picture>.",
			Impact:   3,
		})
	}
	if raw.LazyRatio < 0.5 {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("Only %d of %d images use loading=\"lazy\".", raw.Lazy, raw.Total),
			Solution: `Add loading="lazy" to below-the-fold images.`,
			Impact:   2,
		})
	}
	return card
}

type navigationRawData struct {
	NavCount        int  `json:"navCount"`
	NavsWithLinks   int  `json:"navsWithLinks"`
	BreadcrumbFound bool `json:"breadcrumbFound"`
	NavsMissingAria int  `json:"navsMissingAria"`
}

func navigationCard(doc *htmldoc.Document) report.CardSpec {
	card := report.CardSpec{
		ID:             "navigation",
		Name:           "Navigational Accessibility",
		Explanation:    "Static <nav> links let crawlers discover the rest of the site.",
		MaxScore:       25,
		SuccessMessage: "The page exposes static, labeled navigation.",
	}
	raw := navigationRawData{NavCount: doc.Semantic.Count("nav")}
	score := 25

	if raw.NavCount == 0 {
		score -= 15
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "The page has no <nav> element.",
			Solution: "Wrap the primary site navigation in a <nav> element with static links.",
			Impact:   8,
		})
	} else {
		doc.Find("nav").Each(func(_ int, s *goquery.Selection) {
			if s.Find("a[href]").Length() > 0 {
				raw.NavsWithLinks++
			}
		})
		if raw.NavsWithLinks == 0 {
			score -= 10
			card.Recommendations = append(card.Recommendations, report.Recommendation{
				Problem:  "No <nav> element contains static <a href> links.",
				Solution: "Render navigation links as plain anchors instead of script-driven controls.",
				Impact:   6,
			})
		}
	}

	raw.BreadcrumbFound = hasBreadcrumb(doc)
	if !raw.BreadcrumbFound {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "No breadcrumb trail was detected.",
			Solution: "Add a breadcrumb (with BreadcrumbList schema) so crawlers see the page's place in the site.",
			Impact:   2,
		})
	}

	navs := doc.Semantic.Navs()
	if len(navs) > 1 {
		for _, n := range navs {
			if !n.HasAriaLabel {
				raw.NavsMissingAria++
			}
		}
		if raw.NavsMissingAria > 0 {
			card.Recommendations = append(card.Recommendations, report.Recommendation{
				Problem:  fmt.Sprintf("%d of %d <nav> elements lack an aria-label.", raw.NavsMissingAria, len(navs)),
				Solution: "Label each <nav> so assistive tools and crawlers can tell them apart.",
				Impact:   2,
			})
		}
	}

	card.Score = clampFloor(score, 0)
	card.RawData = raw
	return card
}

func hasBreadcrumb(doc *htmldoc.Document) bool {
	if doc.Find(".breadcrumb, #breadcrumb").Length() > 0 {
		return true
	}
	found := false
	doc.Find("[aria-label], [class], [id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"aria-label", "class", "id"} {
			if v, ok := s.Attr(attr); ok && strings.Contains(strings.ToLower(v), "breadcrumb") {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
