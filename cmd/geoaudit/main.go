package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/geoaudit/geoaudit/internal/app"
	"github.com/geoaudit/geoaudit/internal/urlnorm"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cmd := &cli.App{
		Name:      "geoaudit",
		Usage:     "audit a URL for Generative Engine Optimization",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "write the full report envelope as JSON to stdout"},
			&cli.StringFlag{Name: "pdf", Usage: "also write a PDF report to `PATH`"},
			&cli.StringFlag{Name: "config", Usage: "YAML or JSON config `FILE`"},
			&cli.StringFlag{Name: "ua", Usage: "override the outbound User-Agent"},
			&cli.DurationFlag{Name: "timeout", Usage: "per-artifact fetch deadline"},
			&cli.DurationFlag{Name: "deadline", Usage: "global audit deadline"},
			&cli.StringFlag{Name: "pagespeed.key", Usage: "PageSpeed Insights API key", EnvVars: []string{"PAGESPEED_API_KEY"}},
			&cli.BoolFlag{Name: "no-probe", Usage: "skip the external performance probe"},
			&cli.BoolFlag{Name: "summary", Usage: "generate an LLM executive summary (needs LLM_MODEL)"},
			&cli.BoolFlag{Name: "v", Usage: "verbose logging"},
		},
		Action: run,
	}
	if err := cmd.Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		log.Error().Err(err).Msg("audit failed")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: geoaudit [flags] <url>", 2)
	}

	cfg := app.DefaultConfig()
	if c.String("ua") != "" {
		cfg.UserAgent = c.String("ua")
	}
	if c.Duration("timeout") > 0 {
		cfg.FetchTimeout = c.Duration("timeout")
	}
	if c.Duration("deadline") > 0 {
		cfg.GlobalDeadline = c.Duration("deadline")
	}
	cfg.ProbeAPIKey = c.String("pagespeed.key")
	cfg.ProbeDisabled = c.Bool("no-probe")
	cfg.EnableSummary = c.Bool("summary")
	cfg.Verbose = c.Bool("v")

	if path := c.String("config"); path != "" {
		fc, err := app.LoadConfigFile(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("config: %v", err), 1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)
	if err := app.ValidateConfig(cfg); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	auditor := app.New(cfg)
	rep, err := auditor.Run(c.Context, c.Args().First())
	if err != nil {
		if errors.Is(err, urlnorm.ErrValidation) {
			return cli.Exit(err.Error(), 2)
		}
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return cli.Exit(fmt.Sprintf("encode report: %v", err), 1)
		}
	} else {
		app.WriteScorecard(os.Stdout, rep)
	}

	if path := c.String("pdf"); path != "" {
		if err := app.WritePDFReport(rep, path); err != nil {
			return cli.Exit(fmt.Sprintf("write pdf: %v", err), 1)
		}
		log.Info().Str("path", path).Msg("pdf report written")
	}
	return nil
}
