package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// siteMux builds a test site from a path→body map; missing paths answer 404.
func siteMux(pages map[string]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})
}

func TestCollectAllArtifacts(t *testing.T) {
	srv := httptest.NewServer(siteMux(map[string]string{
		"/":                 "<html><body>hello</body></html>",
		"/robots.txt":       "User-agent: *\nAllow: /\nSitemap: /deep/sitemap.xml",
		"/llms.txt":         "# llms",
		"/deep/sitemap.xml": `<urlset><url><loc>/</loc></url></urlset>`,
	}))
	defer srv.Close()

	data := Collect(context.Background(), &Client{}, srv.URL+"/")
	if got := data.SuccessCount(); got != 4 {
		t.Fatalf("successCount = %d, want 4", got)
	}
	if data.FailureCount() != 0 {
		t.Fatalf("failureCount = %d", data.FailureCount())
	}
	if data.SitemapURL != srv.URL+"/deep/sitemap.xml" {
		t.Fatalf("sitemap url = %q, robots directive not honored", data.SitemapURL)
	}
	if data.LLMSTxtVariant != "llms.txt" {
		t.Fatalf("llms variant = %q", data.LLMSTxtVariant)
	}
}

func TestCollectSitemapFallbackLocation(t *testing.T) {
	srv := httptest.NewServer(siteMux(map[string]string{
		"/":            "<html></html>",
		"/robots.txt":  "User-agent: *\nAllow: /",
		"/sitemap.xml": "<urlset></urlset>",
	}))
	defer srv.Close()

	data := Collect(context.Background(), &Client{}, srv.URL+"/")
	if data.SitemapURL != srv.URL+"/sitemap.xml" {
		t.Fatalf("sitemap url = %q, want conventional fallback", data.SitemapURL)
	}
	if !data.Sitemap.Success {
		t.Fatal("sitemap fetch should succeed")
	}
}

func TestCollectLLMSFullFallback(t *testing.T) {
	srv := httptest.NewServer(siteMux(map[string]string{
		"/":              "<html></html>",
		"/llms-full.txt": "# full",
	}))
	defer srv.Close()

	data := Collect(context.Background(), &Client{}, srv.URL+"/")
	if !data.LLMSTxt.Success {
		t.Fatal("llms-full.txt should have been used")
	}
	if data.LLMSTxtVariant != "llms-full.txt" {
		t.Fatalf("variant = %q", data.LLMSTxtVariant)
	}
}

func TestCollectFailureIsolation(t *testing.T) {
	// Only robots.txt exists; the page and everything else 404s.
	srv := httptest.NewServer(siteMux(map[string]string{
		"/robots.txt": "User-agent: *\nAllow: /",
	}))
	defer srv.Close()

	data := Collect(context.Background(), &Client{}, srv.URL+"/")
	if data.HTML.Success {
		t.Fatal("html fetch should fail")
	}
	if !data.RobotsTxt.Success {
		t.Fatal("robots fetch should succeed despite html failure")
	}
	if data.SuccessCount() != 1 {
		t.Fatalf("successCount = %d, want 1", data.SuccessCount())
	}
}

func TestOriginOf(t *testing.T) {
	cases := map[string]string{
		"https://example.test/a/b?q=1": "https://example.test",
		"http://example.test:8080/":    "http://example.test:8080",
	}
	for in, want := range cases {
		if got := originOf(in); got != want {
			t.Errorf("originOf(%q) = %q, want %q", in, got, want)
		}
	}
}
