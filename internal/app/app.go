// Package app wires the audit pipeline: validate the URL, collect the four
// artifacts, parse the page once, fan out the five analyzers, aggregate the
// score and emit the report envelope. All state is scoped to one Run call;
// the App itself only carries configured resource handles.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/geoaudit/geoaudit/internal/analyzer"
	"github.com/geoaudit/geoaudit/internal/fetch"
	"github.com/geoaudit/geoaudit/internal/htmldoc"
	"github.com/geoaudit/geoaudit/internal/probe"
	"github.com/geoaudit/geoaudit/internal/report"
	"github.com/geoaudit/geoaudit/internal/summary"
	"github.com/geoaudit/geoaudit/internal/urlnorm"
)

// App holds the long-lived resource handles shared across audits.
type App struct {
	Config     Config
	Fetcher    *fetch.Client
	Probe      *probe.Client
	Summarizer *summary.Client
}

// New builds an App from configuration.
func New(cfg Config) *App {
	a := &App{
		Config: cfg,
		Fetcher: &fetch.Client{
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.FetchTimeout,
			MaxBytes:     cfg.FetchMaxBytes,
			MaxRedirects: cfg.MaxRedirects,
		},
	}
	if !cfg.ProbeDisabled {
		p := probe.New(cfg.ProbeAPIKey)
		p.BaseURL = cfg.ProbeBaseURL
		p.Timeout = cfg.ProbeTimeout
		p.MaxRetries = cfg.ProbeMaxRetries
		a.Probe = p
	}
	if cfg.EnableSummary && cfg.LLMModel != "" {
		a.Summarizer = summary.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	}
	return a
}

// CollectionMeta records the fetch settings in effect for this audit.
type CollectionMeta struct {
	Timestamp      string `json:"timestamp"`
	UserAgent      string `json:"userAgent"`
	TimeoutMs      int64  `json:"timeout"`
	MaxContentSize int64  `json:"maxContentSize"`
}

// Metadata bundles page metadata with collection bookkeeping.
type Metadata struct {
	Basic      *htmldoc.BasicMetadata `json:"basic,omitempty"`
	Collection CollectionMeta         `json:"collection"`
}

// DataEnvelope is the artifact portion of the audit response.
type DataEnvelope struct {
	URL       string       `json:"url"`
	HTML      fetch.Result `json:"html"`
	RobotsTxt fetch.Result `json:"robotsTxt"`
	Sitemap   fetch.Result `json:"sitemap"`
	LLMSTxt   fetch.Result `json:"llmsTxt"`
	Metadata  Metadata     `json:"metadata"`
}

// AuditReport is the full response envelope for one audit.
type AuditReport struct {
	Success         bool                   `json:"success"`
	Data            *DataEnvelope          `json:"data,omitempty"`
	Analysis        *report.Analysis       `json:"analysis"`
	GlobalPenalties []report.GlobalPenalty `json:"globalPenalties"`
	Logs            []string               `json:"logs"`
	Summary         report.Summary         `json:"summary"`
	Executive       string                 `json:"executiveSummary,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Message         string                 `json:"message,omitempty"`
	StatusCode      int                    `json:"statusCode,omitempty"`
}

// Run performs one audit. Validation failure is the only error returned;
// every other failure is folded into the report.
func (a *App) Run(ctx context.Context, rawURL string) (*AuditReport, error) {
	start := time.Now()
	var logs []string
	logf := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		logs = append(logs, fmt.Sprintf("+%dms %s", time.Since(start).Milliseconds(), msg))
		log.Debug().Msg(msg)
	}

	target, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return &AuditReport{
			Success:         false,
			Analysis:        nil,
			GlobalPenalties: []report.GlobalPenalty{},
			Logs:            []string{fmt.Sprintf("+0ms validation failed: %v", err)},
			Error:           "ValidationError",
			Message:         err.Error(),
			StatusCode:      400,
		}, err
	}
	logf("validated url %s", target)

	deadline := a.Config.GlobalDeadline
	if deadline <= 0 {
		deadline = DefaultConfig().GlobalDeadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	collected := fetch.Collect(ctx, a.Fetcher, target)
	logf("collected artifacts (%d/4 ok)", collected.SuccessCount())

	var doc *htmldoc.Document
	if collected.HTML.Success {
		doc, err = htmldoc.Parse(collected.HTML.Body, target)
		if err != nil {
			log.Warn().Err(err).Str("url", target).Msg("html parse failed")
			logf("html parse failed: %v", err)
			doc = nil
		} else {
			logf("parsed html (%d bytes)", doc.RawLength())
		}
	} else {
		logf("html fetch failed, structural analyzers skipped")
	}

	// Launch the probe alongside the analyzer fan-out. Only the accessibility
	// analyzer waits for it, and that analyzer is skipped when the page is
	// unavailable, so a failed HTML fetch must not spend an external API call.
	probeCh := make(chan probe.Result, 1)
	go func() {
		if a.Probe == nil || doc == nil {
			probeCh <- probe.Fallback(0)
			return
		}
		probeCh <- a.Probe.Measure(ctx, target)
	}()

	in := analyzer.Input{
		URL:       target,
		Collected: collected,
		Doc:       doc,
		AIBots:    a.Config.AIBots,
	}
	analysis, penalties, succeeded := a.runAnalyzers(ctx, in, probeCh, logf)

	aeo := report.Aggregate(analysis, penalties)
	analysis.AEOScore = &aeo
	logf("aggregated score %d/100 (%s)", aeo.TotalScore, aeo.Completeness)

	rep := &AuditReport{
		Success:  true,
		Analysis: analysis,
		Data: &DataEnvelope{
			URL:       target,
			HTML:      collected.HTML,
			RobotsTxt: collected.RobotsTxt,
			Sitemap:   collected.Sitemap,
			LLMSTxt:   collected.LLMSTxt,
			Metadata: Metadata{
				Collection: CollectionMeta{
					Timestamp:      start.UTC().Format(time.RFC3339),
					UserAgent:      a.Fetcher.UserAgentString(),
					TimeoutMs:      a.Fetcher.Timeout.Milliseconds(),
					MaxContentSize: a.Fetcher.MaxBytes,
				},
			},
		},
		GlobalPenalties: penalties,
		StatusCode:      200,
	}
	if doc != nil {
		meta := doc.Meta
		rep.Data.Metadata.Basic = &meta
	}
	if penalties == nil {
		rep.GlobalPenalties = []report.GlobalPenalty{}
	}

	if a.Summarizer != nil && succeeded > 0 {
		if text, serr := a.Summarizer.Executive(ctx, target, analysis); serr != nil {
			log.Warn().Err(serr).Msg("executive summary skipped")
			logf("executive summary skipped: %v", serr)
		} else {
			rep.Executive = text
			logf("executive summary generated")
		}
	}

	rep.Summary = report.Summary{
		TotalTimeMs:       time.Since(start).Milliseconds(),
		SuccessCount:      collected.SuccessCount(),
		FailureCount:      collected.FailureCount(),
		PartialSuccess:    collected.FailureCount() > 0 || succeeded < len(analysis.Ordered()),
		AnalysisCompleted: succeeded > 0,
	}
	rep.Logs = logs
	return rep, nil
}

type namedAnalyzer struct {
	id   string
	name string
	run  func() (*report.Section, []report.GlobalPenalty, error)
}

// runAnalyzers fans out the analyzers, isolates their failures, and joins
// them in the fixed report order. The accessibility analyzer additionally
// waits on the probe result. Analyzers still running when the global
// deadline fires are replaced by error sections.
func (a *App) runAnalyzers(ctx context.Context, in analyzer.Input, probeCh <-chan probe.Result, logf func(string, ...any)) (*report.Analysis, []report.GlobalPenalty, int) {
	jobs := []namedAnalyzer{{
		id:   report.SectionDiscoverability,
		name: "Discoverability",
		run:  func() (*report.Section, []report.GlobalPenalty, error) { return analyzer.Discoverability(in) },
	}}
	if in.Doc != nil {
		jobs = append(jobs,
			namedAnalyzer{report.SectionStructuredData, "Structured Data",
				func() (*report.Section, []report.GlobalPenalty, error) { return analyzer.StructuredData(in) }},
			namedAnalyzer{report.SectionLLMFormatting, "LLM Formatting",
				func() (*report.Section, []report.GlobalPenalty, error) { return analyzer.LLMFormatting(in) }},
			namedAnalyzer{report.SectionAccessibility, "Accessibility",
				func() (*report.Section, []report.GlobalPenalty, error) {
					withProbe := in
					select {
					case withProbe.Probe = <-probeCh:
					case <-ctx.Done():
						return nil, nil, fmt.Errorf("accessibility: %w", ctx.Err())
					}
					return analyzer.Accessibility(withProbe)
				}},
			namedAnalyzer{report.SectionReadability, "Readability",
				func() (*report.Section, []report.GlobalPenalty, error) { return analyzer.Readability(in) }},
		)
	}

	type outcome struct {
		sec  *report.Section
		pens []report.GlobalPenalty
		ok   bool
	}
	var mu sync.Mutex
	results := make(map[string]outcome, len(jobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			sec, pens, ok := runProtected(job.id, job.name, job.run)
			mu.Lock()
			results[job.id] = outcome{sec, pens, ok}
			mu.Unlock()
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		logf("global deadline reached, unfinished analyzers marked as errors")
	}

	analysis := &report.Analysis{}
	var penalties []report.GlobalPenalty
	succeeded := 0
	mu.Lock()
	defer mu.Unlock()
	for _, job := range jobs {
		out, finished := results[job.id]
		if !finished {
			analysis.Set(job.id, report.ErrorSection(job.id, job.name, ctx.Err()))
			continue
		}
		analysis.Set(job.id, out.sec)
		penalties = append(penalties, out.pens...)
		if out.ok {
			succeeded++
		}
		logf("%s analyzed: %d/%d", job.name, out.sec.TotalScore, out.sec.MaxScore)
	}
	return analysis, penalties, succeeded
}

// runProtected isolates one analyzer: panics and errors both degrade to an
// error section instead of taking down the audit.
func runProtected(id, name string, fn func() (*report.Section, []report.GlobalPenalty, error)) (sec *report.Section, pens []report.GlobalPenalty, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("analyzer", id).Msg("analyzer panicked")
			sec, pens, ok = report.ErrorSection(id, name, fmt.Errorf("panic: %v", r)), nil, false
		}
	}()
	s, p, err := fn()
	if err != nil {
		log.Warn().Err(err).Str("analyzer", id).Msg("analyzer failed")
		return report.ErrorSection(id, name, err), nil, false
	}
	return s, p, true
}
