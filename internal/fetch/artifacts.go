package fetch

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/geoaudit/geoaudit/internal/robots"
)

// Accept headers per artifact kind.
const (
	AcceptHTML  = "text/html,*/*"
	AcceptPlain = "text/plain,*/*"
	AcceptXML   = "application/xml,text/xml,*/*"
)

// CollectedData bundles the per-artifact results for one audit.
type CollectedData struct {
	URL        string `json:"url"`
	HTML       Result `json:"html"`
	RobotsTxt  Result `json:"robotsTxt"`
	Sitemap    Result `json:"sitemap"`
	LLMSTxt    Result `json:"llmsTxt"`
	SitemapURL string `json:"sitemapUrl,omitempty"`
	// LLMSTxtVariant records which of /llms.txt or /llms-full.txt answered.
	LLMSTxtVariant string `json:"llmsTxtVariant,omitempty"`
}

// Collect fetches the page plus robots.txt, sitemap and llms.txt. The page,
// robots and llms fetches run concurrently; the sitemap fetch starts once
// robots.txt settles because its URL may come from a Sitemap directive.
// Individual failures never cancel the other fetches.
func Collect(ctx context.Context, c *Client, pageURL string) CollectedData {
	data := CollectedData{URL: pageURL}
	origin := originOf(pageURL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.HTML = c.Fetch(gctx, pageURL, AcceptHTML)
		return nil
	})
	g.Go(func() error {
		data.LLMSTxt, data.LLMSTxtVariant = fetchLLMSTxt(gctx, c, origin)
		return nil
	})
	g.Go(func() error {
		data.RobotsTxt = c.Fetch(gctx, origin+"/robots.txt", AcceptPlain)
		data.SitemapURL = resolveSitemapURL(data.RobotsTxt, origin)
		data.Sitemap = c.Fetch(gctx, data.SitemapURL, AcceptXML)
		return nil
	})
	_ = g.Wait()

	log.Debug().
		Str("url", pageURL).
		Bool("html", data.HTML.Success).
		Bool("robots", data.RobotsTxt.Success).
		Bool("sitemap", data.Sitemap.Success).
		Bool("llms", data.LLMSTxt.Success).
		Msg("artifact collection finished")
	return data
}

// fetchLLMSTxt tries /llms.txt first and /llms-full.txt second; the first
// success wins. On double failure the /llms.txt result is reported.
func fetchLLMSTxt(ctx context.Context, c *Client, origin string) (Result, string) {
	res := c.Fetch(ctx, origin+"/llms.txt", AcceptPlain)
	if res.Success {
		return res, "llms.txt"
	}
	full := c.Fetch(ctx, origin+"/llms-full.txt", AcceptPlain)
	if full.Success {
		return full, "llms-full.txt"
	}
	return res, ""
}

// resolveSitemapURL prefers the first Sitemap directive found in robots.txt
// and falls back to the conventional /sitemap.xml location.
func resolveSitemapURL(robotsRes Result, origin string) string {
	fallback := origin + "/sitemap.xml"
	if !robotsRes.Success {
		return fallback
	}
	rules := robots.Parse(string(robotsRes.Body))
	for _, s := range rules.Sitemaps {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			return s
		}
		// Relative sitemap entries resolve against the origin.
		if strings.HasPrefix(s, "/") {
			return origin + s
		}
	}
	return fallback
}

// originOf reduces a URL to scheme://host[:port].
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(rawURL, "/")
	}
	return u.Scheme + "://" + u.Host
}

// SuccessCount tallies successful artifact fetches, for the run summary.
func (d CollectedData) SuccessCount() int {
	n := 0
	for _, r := range []Result{d.HTML, d.RobotsTxt, d.Sitemap, d.LLMSTxt} {
		if r.Success {
			n++
		}
	}
	return n
}

// FailureCount tallies failed artifact fetches.
func (d CollectedData) FailureCount() int {
	return 4 - d.SuccessCount()
}
