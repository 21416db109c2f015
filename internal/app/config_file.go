package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Nested
// sections mirror the flag namespaces.
type FileConfig struct {
	Fetch struct {
		TimeoutMs    int    `yaml:"timeoutMs" json:"timeoutMs"`
		MaxBytes     int64  `yaml:"maxBytes" json:"maxBytes"`
		UserAgent    string `yaml:"userAgent" json:"userAgent"`
		MaxRedirects int    `yaml:"maxRedirects" json:"maxRedirects"`
	} `yaml:"fetch" json:"fetch"`

	Probe struct {
		TimeoutMs  int    `yaml:"timeoutMs" json:"timeoutMs"`
		MaxRetries *int   `yaml:"maxRetries" json:"maxRetries"`
		APIKey     string `yaml:"key" json:"key"`
		BaseURL    string `yaml:"base" json:"base"`
		Disabled   bool   `yaml:"disabled" json:"disabled"`
	} `yaml:"probe" json:"probe"`

	Audit struct {
		GlobalDeadlineMs int `yaml:"globalDeadlineMs" json:"globalDeadlineMs"`
	} `yaml:"audit" json:"audit"`

	AIBots []string `yaml:"aiBots" json:"aiBots"`

	LLM struct {
		BaseURL       string `yaml:"base" json:"base"`
		Model         string `yaml:"model" json:"model"`
		APIKey        string `yaml:"key" json:"key"`
		EnableSummary bool   `yaml:"enableSummary" json:"enableSummary"`
	} `yaml:"llm" json:"llm"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// still at their defaults. Flags should already have been parsed; this lets
// the file supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()

	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == def.FetchTimeout) && fc.Fetch.TimeoutMs > 0 {
		cfg.FetchTimeout = time.Duration(fc.Fetch.TimeoutMs) * time.Millisecond
	}
	if (cfg.FetchMaxBytes == 0 || cfg.FetchMaxBytes == def.FetchMaxBytes) && fc.Fetch.MaxBytes > 0 {
		cfg.FetchMaxBytes = fc.Fetch.MaxBytes
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == def.UserAgent) && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if (cfg.MaxRedirects == 0 || cfg.MaxRedirects == def.MaxRedirects) && fc.Fetch.MaxRedirects > 0 {
		cfg.MaxRedirects = fc.Fetch.MaxRedirects
	}

	if (cfg.ProbeTimeout == 0 || cfg.ProbeTimeout == def.ProbeTimeout) && fc.Probe.TimeoutMs > 0 {
		cfg.ProbeTimeout = time.Duration(fc.Probe.TimeoutMs) * time.Millisecond
	}
	if cfg.ProbeMaxRetries == def.ProbeMaxRetries && fc.Probe.MaxRetries != nil && *fc.Probe.MaxRetries >= 0 {
		cfg.ProbeMaxRetries = *fc.Probe.MaxRetries
	}
	if cfg.ProbeAPIKey == "" && fc.Probe.APIKey != "" {
		cfg.ProbeAPIKey = fc.Probe.APIKey
	}
	if cfg.ProbeBaseURL == "" && fc.Probe.BaseURL != "" {
		cfg.ProbeBaseURL = fc.Probe.BaseURL
	}
	if !cfg.ProbeDisabled && fc.Probe.Disabled {
		cfg.ProbeDisabled = true
	}

	if (cfg.GlobalDeadline == 0 || cfg.GlobalDeadline == def.GlobalDeadline) && fc.Audit.GlobalDeadlineMs > 0 {
		cfg.GlobalDeadline = time.Duration(fc.Audit.GlobalDeadlineMs) * time.Millisecond
	}
	if len(cfg.AIBots) == 0 && len(fc.AIBots) > 0 {
		cfg.AIBots = append([]string{}, fc.AIBots...)
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if !cfg.EnableSummary && fc.LLM.EnableSummary {
		cfg.EnableSummary = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if cfg.FetchTimeout < 0 || cfg.ProbeTimeout < 0 || cfg.GlobalDeadline < 0 {
		return errors.New("config: negative timeouts are not allowed")
	}
	if cfg.FetchMaxBytes < 0 || cfg.MaxRedirects < 0 || cfg.ProbeMaxRetries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.EnableSummary && cfg.LLMModel == "" {
		return errors.New("config: llm.model is required when the summary is enabled (or set LLM_MODEL)")
	}
	return nil
}
