// Package probe measures page performance through the PageSpeed Insights v5
// API. The probe is an injected resource handle shared across audits: it
// carries its own HTTP client, retry policy and a circuit breaker so a PSI
// outage degrades to the documented fallback quickly instead of stalling
// every audit for the full deadline.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

const (
	DefaultTimeout    = 20 * time.Second
	DefaultMaxRetries = 2
	// FallbackScore is the synthesized mid-range performance score used when
	// the probe cannot measure. The consuming analyzer must surface it.
	FallbackScore = 50
)

// CoreWebVitals holds the three vitals the audit scores against.
type CoreWebVitals struct {
	LCPMs float64 `json:"lcp"`
	INPMs float64 `json:"inp"`
	CLS   float64 `json:"cls"`
}

// Result is the probe outcome. Successful=false means the values are the
// synthesized fallback, not a measurement.
type Result struct {
	PerformanceScore int           `json:"performanceScore"`
	CoreWebVitals    CoreWebVitals `json:"coreWebVitals"`
	Successful       bool          `json:"successful"`
	RetryCount       int           `json:"retryCount"`
}

// Fallback is the result returned when measurement fails or is disabled.
func Fallback(retries int) Result {
	return Result{PerformanceScore: FallbackScore, Successful: false, RetryCount: retries}
}

// Client queries the external performance API.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxRetries is the number of retries after the first attempt.
	// Zero means a single attempt with no retries.
	MaxRetries int
	Strategy   string // "mobile" (default) or "desktop"

	breaker *gobreaker.CircuitBreaker
}

// New builds a probe handle with its circuit breaker. The breaker opens
// after repeated consecutive failures and half-opens after a minute.
func New(apiKey string) *Client {
	c := &Client{APIKey: apiKey, MaxRetries: DefaultMaxRetries}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "pagespeed",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return c
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) maxRetries() int {
	if c.MaxRetries < 0 {
		return 0
	}
	return c.MaxRetries
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Measure runs the probe for one URL. It retries transient failures with
// exponential backoff inside the overall deadline and never returns an
// error: persistent failure yields the fallback result.
func (c *Client) Measure(ctx context.Context, targetURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	attempts := c.maxRetries() + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				log.Warn().Str("url", targetURL).Msg("performance probe deadline reached, using fallback")
				return Fallback(i - 1)
			case <-time.After(backoff):
			}
		}
		res, err := c.measureOnce(ctx, targetURL)
		if err == nil {
			res.RetryCount = i
			return res
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
	}
	log.Warn().Err(lastErr).Str("url", targetURL).Msg("performance probe failed, using fallback")
	return Fallback(attempts - 1)
}

func (c *Client) measureOnce(ctx context.Context, targetURL string) (Result, error) {
	if c.breaker == nil {
		return c.call(ctx, targetURL)
	}
	out, err := c.breaker.Execute(func() (any, error) {
		return c.call(ctx, targetURL)
	})
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

func (c *Client) call(ctx context.Context, targetURL string) (Result, error) {
	u, err := url.Parse(c.baseURL())
	if err != nil {
		return Result{}, fmt.Errorf("probe: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("url", targetURL)
	q.Set("category", "performance")
	if c.Strategy != "" {
		q.Set("strategy", c.Strategy)
	} else {
		q.Set("strategy", "mobile")
	}
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("probe: build request: %w", err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("probe: request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("probe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("probe: API returned %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("probe: parse response: %w", err)
	}
	if parsed.Error != nil {
		return Result{}, fmt.Errorf("probe: API error: %s", parsed.Error.Message)
	}
	if parsed.LighthouseResult == nil {
		return Result{}, errors.New("probe: missing lighthouseResult")
	}
	return parsed.LighthouseResult.toResult(), nil
}

type apiResponse struct {
	LighthouseResult *lighthouseResult `json:"lighthouseResult"`
	Error            *apiError         `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

type lighthouseResult struct {
	Categories map[string]categoryScore   `json:"categories"`
	Audits     map[string]lighthouseAudit `json:"audits"`
}

type categoryScore struct {
	Score float64 `json:"score"` // 0.0-1.0
}

type lighthouseAudit struct {
	NumericValue *float64 `json:"numericValue"`
}

func (lr *lighthouseResult) toResult() Result {
	res := Result{Successful: true}
	if cs, ok := lr.Categories["performance"]; ok {
		res.PerformanceScore = int(math.Round(cs.Score * 100))
	}
	res.CoreWebVitals.LCPMs = lr.audit("largest-contentful-paint")
	res.CoreWebVitals.CLS = lr.audit("cumulative-layout-shift")
	// INP replaced experimental interaction metrics; accept either id.
	if v := lr.audit("interaction-to-next-paint"); v > 0 {
		res.CoreWebVitals.INPMs = v
	} else {
		res.CoreWebVitals.INPMs = lr.audit("experimental-interaction-to-next-paint")
	}
	return res
}

func (lr *lighthouseResult) audit(id string) float64 {
	if a, ok := lr.Audits[id]; ok && a.NumericValue != nil {
		return *a.NumericValue
	}
	return 0
}
