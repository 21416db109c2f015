package app

import (
	"time"

	"github.com/geoaudit/geoaudit/internal/fetch"
	"github.com/geoaudit/geoaudit/internal/probe"
)

// Config holds runtime configuration for one auditor process.
type Config struct {
	// Fetch
	FetchTimeout  time.Duration
	FetchMaxBytes int64
	UserAgent     string
	MaxRedirects  int

	// External performance probe
	ProbeTimeout    time.Duration
	ProbeMaxRetries int
	ProbeAPIKey     string
	ProbeBaseURL    string
	ProbeDisabled   bool

	// Audit
	GlobalDeadline time.Duration
	AIBots         []string

	// Optional LLM executive summary
	LLMBaseURL    string
	LLMModel      string
	LLMAPIKey     string
	EnableSummary bool

	Verbose bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:    fetch.DefaultTimeout,
		FetchMaxBytes:   fetch.DefaultMaxBytes,
		UserAgent:       fetch.DefaultUserAgent,
		MaxRedirects:    fetch.DefaultMaxRedirects,
		ProbeTimeout:    probe.DefaultTimeout,
		ProbeMaxRetries: probe.DefaultMaxRetries,
		GlobalDeadline:  90 * time.Second,
	}
}
