package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates default-valued fields of cfg from environment
// variables. Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()

	if cfg.FetchTimeout == 0 || cfg.FetchTimeout == def.FetchTimeout {
		if ms := envInt("FETCH_TIMEOUT_MS"); ms > 0 {
			cfg.FetchTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if cfg.FetchMaxBytes == 0 || cfg.FetchMaxBytes == def.FetchMaxBytes {
		if n := envInt64("FETCH_MAX_BYTES"); n > 0 {
			cfg.FetchMaxBytes = n
		}
	}
	if cfg.UserAgent == "" || cfg.UserAgent == def.UserAgent {
		if v := os.Getenv("FETCH_USER_AGENT"); v != "" {
			cfg.UserAgent = v
		}
	}
	if cfg.MaxRedirects == 0 || cfg.MaxRedirects == def.MaxRedirects {
		if n := envInt("FETCH_MAX_REDIRECTS"); n > 0 {
			cfg.MaxRedirects = n
		}
	}

	if cfg.ProbeTimeout == 0 || cfg.ProbeTimeout == def.ProbeTimeout {
		if ms := envInt("PROBE_TIMEOUT_MS"); ms > 0 {
			cfg.ProbeTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if cfg.ProbeAPIKey == "" {
		cfg.ProbeAPIKey = os.Getenv("PAGESPEED_API_KEY")
	}
	if cfg.ProbeBaseURL == "" {
		cfg.ProbeBaseURL = os.Getenv("PAGESPEED_BASE_URL")
	}

	if cfg.GlobalDeadline == 0 || cfg.GlobalDeadline == def.GlobalDeadline {
		if ms := envInt("AUDIT_GLOBAL_DEADLINE_MS"); ms > 0 {
			cfg.GlobalDeadline = time.Duration(ms) * time.Millisecond
		}
	}
	if len(cfg.AIBots) == 0 {
		if v := strings.TrimSpace(os.Getenv("AI_BOTS")); v != "" {
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					cfg.AIBots = append(cfg.AIBots, b)
				}
			}
		}
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.EnableSummary, "ENABLE_SUMMARY")
	setBool(&cfg.ProbeDisabled, "PROBE_DISABLED")
	setBool(&cfg.Verbose, "VERBOSE")
}

func envInt(key string) int {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

func envInt64(key string) int64 {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
