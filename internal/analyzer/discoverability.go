package analyzer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/geoaudit/geoaudit/internal/fetch"
	"github.com/geoaudit/geoaudit/internal/report"
	"github.com/geoaudit/geoaudit/internal/robots"
)

// botAccessRawData is the diagnostic payload of the AI Bots Access card.
type botAccessRawData struct {
	Bots            []botAccess `json:"bots"`
	RobotsFound     bool        `json:"robotsFound"`
	SitemapDeclared bool        `json:"sitemapDeclared"`
}

type botAccess struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}

// sitemapRawData is the diagnostic payload of the Sitemap Quality card.
type sitemapRawData struct {
	SitemapURL string `json:"sitemapUrl"`
	URLCount   int    `json:"urlCount"`
	HasLastmod bool   `json:"hasLastmod"`
	ParseError string `json:"parseError,omitempty"`
}

// Discoverability scores how reachable the page is for AI crawlers. It works
// from the URL and the non-HTML artifacts, so it runs even when the page
// fetch failed. It is also the only analyzer that emits global penalties.
func Discoverability(in Input) (*report.Section, []report.GlobalPenalty, error) {
	technical := report.DrawerSpec{
		ID:          "technical-foundation",
		Name:        "Technical Foundation",
		Description: "Protocol and response health of the audited URL.",
		Cards:       []report.CardSpec{httpsCard(in.URL), httpStatusCard(in.Collected.HTML)},
	}

	botsCard, penalties := aiBotsCard(in)
	aiAccess := report.DrawerSpec{
		ID:          "ai-access",
		Name:        "AI Access",
		Description: "Whether AI crawlers may read the site and find its pages.",
		Cards:       []report.CardSpec{botsCard, sitemapQualityCard(in.Collected)},
	}

	instructions := report.DrawerSpec{
		ID:          "llm-instructions",
		Name:        "LLM Instructions",
		Description: "Presence of llms.txt guidance files. Informational only.",
		Cards:       []report.CardSpec{llmsTxtCard(in.Collected)},
	}

	sec, err := report.BuildSection(report.SectionDiscoverability, "Discoverability",
		[]report.DrawerSpec{technical, aiAccess, instructions})
	if err != nil {
		return nil, nil, err
	}
	return sec, penalties, nil
}

func httpsCard(rawURL string) report.CardSpec {
	card := report.CardSpec{
		ID:             "https-protocol",
		Name:           "HTTPS Protocol",
		Explanation:    "AI crawlers deprioritize or skip pages served over plain HTTP.",
		MaxScore:       25,
		SuccessMessage: "The page is served over HTTPS.",
	}
	u, err := url.Parse(rawURL)
	if err == nil && strings.EqualFold(u.Scheme, "https") {
		card.Score = 25
		return card
	}
	card.Score = 0
	card.Recommendations = []report.Recommendation{{
		Problem:  "The page is not served over HTTPS.",
		Solution: "Obtain a TLS certificate and redirect all HTTP traffic to HTTPS.",
		Impact:   9,
	}}
	return card
}

func httpStatusCard(html fetch.Result) report.CardSpec {
	card := report.CardSpec{
		ID:             "http-status",
		Name:           "HTTP Status",
		Explanation:    "Crawlers index pages that answer 2xx; redirects and errors lose citations.",
		MaxScore:       25,
		SuccessMessage: "The page answered with a 2xx status.",
	}
	status := html.StatusCode
	switch {
	case status >= 200 && status <= 299:
		card.Score = 25
	case status >= 300 && status <= 399:
		card.Score = 15
		card.Recommendations = []report.Recommendation{{
			Problem:  fmt.Sprintf("The URL answers with a redirect (%d).", status),
			Solution: "Point the audited URL directly at the final destination to avoid redirect chains.",
			Impact:   4,
		}}
	default:
		card.Score = 0
		msg := "The page could not be retrieved."
		if status != 0 {
			msg = fmt.Sprintf("The page answered with status %d.", status)
		} else if html.Error != nil {
			msg = fmt.Sprintf("The page could not be retrieved: %s.", html.Error.Message)
		}
		card.Recommendations = []report.Recommendation{{
			Problem:  msg,
			Solution: "Make the URL answer with a 200 status for anonymous GET requests.",
			Impact:   10,
		}}
	}
	return card
}

func aiBotsCard(in Input) (report.CardSpec, []report.GlobalPenalty) {
	card := report.CardSpec{
		ID:             "ai-bots-access",
		Name:           "AI Bots Access",
		Explanation:    "robots.txt rules decide whether AI crawlers may read the site at all.",
		MaxScore:       25,
		SuccessMessage: "All known AI crawlers are allowed to access the site.",
	}
	bots := in.aiBots()
	raw := botAccessRawData{RobotsFound: in.Collected.RobotsTxt.Success}

	var rules robots.Rules
	if in.Collected.RobotsTxt.Success {
		rules = robots.Parse(string(in.Collected.RobotsTxt.Body))
		raw.SitemapDeclared = rules.HasSitemapDirective()
	}

	blocked := 0
	for _, b := range bots {
		isBlocked := rules.IsBlocked(b)
		if isBlocked {
			blocked++
		}
		raw.Bots = append(raw.Bots, botAccess{Name: b, Allowed: !isBlocked})
	}
	allowed := len(bots) - blocked
	card.Score = roundRatio(25, allowed, len(bots))
	card.RawData = raw

	if blocked > 0 {
		names := rules.BlockedBots(bots)
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  fmt.Sprintf("robots.txt blocks %d of %d AI crawlers (%s).", blocked, len(bots), strings.Join(names, ", ")),
			Solution: "Remove the Disallow rules for AI crawler user agents, or add explicit Allow rules for them.",
			Impact:   9,
		})
	}
	if !raw.SitemapDeclared {
		card.Recommendations = append(card.Recommendations, report.Recommendation{
			Problem:  "robots.txt does not declare a Sitemap.",
			Solution: "Add a `Sitemap: <absolute URL>` line to robots.txt so crawlers find the sitemap directly.",
			Impact:   2,
		})
	}

	var penalties []report.GlobalPenalty
	if factor := blockingPenaltyFactor(blocked, len(bots)); factor > 0 {
		names := rules.BlockedBots(bots)
		penalties = append(penalties, report.GlobalPenalty{
			Type:          "robots_txt_blocking",
			Description:   "robots.txt blocks AI crawlers from reading the site.",
			PenaltyFactor: factor,
			Details:       names,
			Solutions: []string{
				"Allow AI crawler user agents in robots.txt.",
				"If blocking is intentional, expect the site to be absent from AI answers.",
			},
		})
	}
	return card, penalties
}

// blockingPenaltyFactor maps the blocked/total ratio onto the penalty scale:
// all blocked is 0.7, a strict majority is 0.4, anything less is no penalty.
func blockingPenaltyFactor(blocked, total int) float64 {
	if total == 0 || blocked == 0 {
		return 0
	}
	if blocked == total {
		return 0.7
	}
	if blocked*2 > total {
		return 0.4
	}
	return 0
}

func sitemapQualityCard(data fetch.CollectedData) report.CardSpec {
	card := report.CardSpec{
		ID:             "sitemap-quality",
		Name:           "Sitemap Quality",
		Explanation:    "A sitemap with freshness hints helps crawlers discover and revisit pages.",
		MaxScore:       25,
		SuccessMessage: "A sitemap with lastmod freshness hints was found.",
	}
	raw := sitemapRawData{SitemapURL: data.SitemapURL}

	if !data.Sitemap.Success {
		card.Score = 0
		card.RawData = raw
		card.Recommendations = []report.Recommendation{{
			Problem:  "No sitemap could be retrieved.",
			Solution: "Publish a sitemap.xml at the site root or declare its location in robots.txt.",
			Impact:   6,
		}}
		return card
	}

	card.Score = 15
	urlCount, hasLastmod, parseErr := scanSitemap(data.Sitemap.Body)
	raw.URLCount = urlCount
	raw.HasLastmod = hasLastmod
	if parseErr != nil {
		raw.ParseError = parseErr.Error()
		card.Recommendations = []report.Recommendation{{
			Problem:  "The sitemap exists but is not well-formed XML.",
			Solution: "Validate the sitemap against the sitemaps.org schema and fix the XML errors.",
			Impact:   4,
		}}
	} else if hasLastmod {
		card.Score += 10
	} else {
		card.Recommendations = []report.Recommendation{{
			Problem:  "The sitemap carries no <lastmod> dates.",
			Solution: "Add <lastmod> to sitemap entries so crawlers know when content changed.",
			Impact:   3,
		}}
	}
	card.RawData = raw
	return card
}

// scanSitemap streams the XML looking only at <loc> and <lastmod>. A parse
// error after some valid tokens still reports what was seen.
func scanSitemap(body []byte) (urlCount int, hasLastmod bool, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, terr := dec.Token()
		if terr == io.EOF {
			return urlCount, hasLastmod, nil
		}
		if terr != nil {
			return urlCount, hasLastmod, terr
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch strings.ToLower(se.Name.Local) {
		case "loc":
			urlCount++
		case "lastmod":
			hasLastmod = true
		}
	}
}

func llmsTxtCard(data fetch.CollectedData) report.CardSpec {
	card := report.CardSpec{
		ID:             "llms-txt",
		Name:           "LLM Instructions File",
		Explanation:    "llms.txt offers LLM crawlers a curated map of the site. Emerging convention, not scored.",
		MaxScore:       0,
		SuccessMessage: "An llms.txt file is published.",
	}
	if data.LLMSTxt.Success {
		card.RawData = map[string]string{"variant": data.LLMSTxtVariant}
		return card
	}
	card.Recommendations = []report.Recommendation{{
		Problem:  "No llms.txt or llms-full.txt was found.",
		Solution: "Consider publishing an llms.txt describing the site's key content for LLM crawlers.",
		Impact:   1,
	}}
	return card
}
