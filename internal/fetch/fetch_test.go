package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "geoaudit") {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		if accept := r.Header.Get("Accept"); accept != AcceptHTML {
			t.Errorf("unexpected Accept %q", accept)
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := &Client{}
	res := c.Fetch(context.Background(), srv.URL, AcceptHTML)
	if !res.Success {
		t.Fatalf("fetch failed: %+v", res.Error)
	}
	if res.StatusCode != 200 {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if string(res.Body) != "<html>ok</html>" {
		t.Fatalf("body = %q", res.Body)
	}
	if res.ContentLength != len(res.Body) {
		t.Fatalf("contentLength = %d, body %d", res.ContentLength, len(res.Body))
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	res := (&Client{}).Fetch(context.Background(), srv.URL, AcceptPlain)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Body != nil {
		t.Fatal("failed fetch must not retain a body")
	}
	if res.StatusCode != 404 {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if res.Error == nil || res.Error.Tag != TagHTTP {
		t.Fatalf("error tag = %+v, want %s", res.Error, TagHTTP)
	}
}

func TestFetchSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	res := (&Client{MaxBytes: 10}).Fetch(context.Background(), srv.URL, "")
	if res.Success {
		t.Fatal("expected size-limit failure")
	}
	if res.Error == nil || res.Error.Tag != TagSizeLimit {
		t.Fatalf("error tag = %+v, want %s", res.Error, TagSizeLimit)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	res := (&Client{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL, "")
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Error == nil || res.Error.Tag != TagTimeout {
		t.Fatalf("error tag = %+v, want %s", res.Error, TagTimeout)
	}
}

func TestFetchRedirectBound(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	res := (&Client{MaxRedirects: 3}).Fetch(context.Background(), srv.URL+"/a", "")
	if res.Success {
		t.Fatal("expected redirect-bound failure")
	}
	if res.Error == nil || !strings.Contains(res.Error.Message, "too many redirects") {
		t.Fatalf("error = %+v", res.Error)
	}
}

func TestFetchRefusesPrivateRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Cross-host redirect into loopback space must be refused.
		http.Redirect(w, r, "http://localhost:1/", http.StatusFound)
	}))
	defer srv.Close()

	res := (&Client{}).Fetch(context.Background(), srv.URL, "")
	if res.Success {
		t.Fatal("expected refusal of private redirect")
	}
	if res.Error == nil || !strings.Contains(res.Error.Message, "private address") {
		t.Fatalf("error = %+v", res.Error)
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	res := (&Client{}).Fetch(context.Background(), "ftp://example.test/file", "")
	if res.Success {
		t.Fatal("expected scheme refusal")
	}
}

func TestIsLocalOrPrivateHost(t *testing.T) {
	private := []string{"localhost", "127.0.0.1", "10.0.0.1", "192.168.1.1", "172.16.0.1", "::1", "0.0.0.0", "169.254.1.1"}
	for _, h := range private {
		if !isLocalOrPrivateHost(h) {
			t.Errorf("%q should be private", h)
		}
	}
	public := []string{"example.com", "8.8.8.8", "1.1.1.1"}
	for _, h := range public {
		if isLocalOrPrivateHost(h) {
			t.Errorf("%q should be public", h)
		}
	}
}
