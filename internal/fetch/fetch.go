// Package fetch retrieves the four audit artifacts (page HTML, robots.txt,
// sitemap, llms.txt) with per-request deadlines, body size caps, bounded
// redirects and a private-network redirect guard. Every fetch reports its own
// success or failure; nothing here aborts a sibling fetch.
package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrorTag classifies a fetch failure for downstream analyzers.
type ErrorTag string

const (
	TagTimeout   ErrorTag = "Timeout"
	TagSizeLimit ErrorTag = "SizeLimit"
	TagNetwork   ErrorTag = "NetworkError"
	TagTLS       ErrorTag = "TlsError"
	TagHTTP      ErrorTag = "HttpStatus"
)

// Error is the failure reason recorded on a Result.
type Error struct {
	Tag     ErrorTag `json:"tag"`
	Message string   `json:"message"`
}

// Result describes the outcome of fetching one artifact. When Success is
// true, Body is present and StatusCode is in [200,299]; when false, Body is
// nil. Body is deliberately excluded from JSON output.
type Result struct {
	Success        bool   `json:"success"`
	Body           []byte `json:"-"`
	StatusCode     int    `json:"statusCode"`
	ContentLength  int    `json:"contentLength"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Error          *Error `json:"error,omitempty"`
}

// Client issues single GET requests with the audit limits applied.
type Client struct {
	HTTPClient   *http.Client
	UserAgent    string
	Timeout      time.Duration
	MaxBytes     int64
	MaxRedirects int
}

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBytes     = 10 << 20 // 10 MiB
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "geoaudit/1.0 (+https://github.com/geoaudit/geoaudit)"
)

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) maxBytes() int64 {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return DefaultMaxBytes
}

func (c *Client) maxRedirects() int {
	if c.MaxRedirects > 0 {
		return c.MaxRedirects
	}
	return DefaultMaxRedirects
}

// UserAgentString returns the configured or default auditor User-Agent.
func (c *Client) UserAgentString() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return DefaultUserAgent
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone so the redirect policy does not mutate the caller's client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// checkRedirectFunc bounds redirect hops and refuses redirects that leave
// the original host for a loopback or private address.
func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.maxRedirects()
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		origin := via[0].URL.Hostname()
		target := req.URL.Hostname()
		if target != origin && isLocalOrPrivateHost(target) {
			return errors.New("redirect to private address refused")
		}
		return nil
	}
}

// Fetch retrieves one URL and never returns an error: all failures are
// folded into the Result so sibling fetches proceed independently.
func (c *Client) Fetch(ctx context.Context, rawURL, accept string) Result {
	start := time.Now()
	res := Result{}
	fail := func(tag ErrorTag, msg string, status int) Result {
		res.Success = false
		res.Body = nil
		res.StatusCode = status
		res.ResponseTimeMs = time.Since(start).Milliseconds()
		res.Error = &Error{Tag: tag, Message: msg}
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(TagNetwork, "build request: "+err.Error(), 0)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return fail(TagNetwork, "unsupported URL scheme", 0)
	}
	req.Header.Set("User-Agent", c.UserAgentString())
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fail(classify(err), err.Error(), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused, then report.
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
		return fail(TagHTTP, "unexpected status "+resp.Status, resp.StatusCode)
	}

	limit := c.maxBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return fail(classify(err), "read body: "+err.Error(), resp.StatusCode)
	}
	if int64(len(body)) > limit {
		return fail(TagSizeLimit, "body exceeds size cap", resp.StatusCode)
	}

	res.Success = true
	res.Body = body
	res.StatusCode = resp.StatusCode
	res.ContentLength = len(body)
	res.ResponseTimeMs = time.Since(start).Milliseconds()
	return res
}

// classify maps a transport error onto the audit error taxonomy.
func classify(err error) ErrorTag {
	if errors.Is(err, context.DeadlineExceeded) {
		return TagTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return TagTimeout
	}
	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var authErr x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &authErr) {
		return TagTLS
	}
	if strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "certificate") {
		return TagTLS
	}
	return TagNetwork
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isLocalOrPrivateHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "localhost" || h == "localhost.localdomain" || h == "::1" || h == "[::1]" {
		return true
	}
	if ip := net.ParseIP(strings.Trim(h, "[]")); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
	}
	return false
}
