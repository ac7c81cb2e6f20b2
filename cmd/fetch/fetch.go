package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/fxquotes/cmd/env"
	"github.com/sig-0/fxquotes/cmd/pipeline"
	"github.com/sig-0/fxquotes/config"
	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/provider/pen"
	"github.com/sig-0/fxquotes/publish/webhook"
)

const defaultTimeout = 5 * time.Minute

var errNoQuotes = errors.New("no source produced a quote")

// fetchCfg wraps the fetch configuration
type fetchCfg struct {
	configPath string
	timeout    time.Duration
	publish    bool
}

// NewFetchCmd creates the fetch command
func NewFetchCmd() *ffcli.Command {
	cfg := &fetchCfg{}

	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "fetch",
		ShortUsage: "fetch [flags]",
		LongHelp: "Scrapes every enabled source once, in order, and prints the quotes as JSON. " +
			"Sources share a single rate limited client",
		FlagSet: fs,
		Exec:    cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *fetchCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the sources TOML configuration, if any",
	)

	fs.DurationVar(
		&c.timeout,
		"timeout",
		defaultTimeout,
		"the deadline of the whole run",
	)

	fs.BoolVar(
		&c.publish,
		"publish",
		true,
		"publish the quotes and failure alerts to the configured NATS server and webhooks",
	)
}

// exec executes the fetch command
func (c *fetchCfg) exec(ctx context.Context, _ []string) error {
	// Logs go to stderr, the report is written to stdout
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("unable to load config, %w", err)
	}

	pipeline.ApplyEnv(cfg)

	runCtx, cancelFn := context.WithTimeout(ctx, c.timeout)
	defer cancelFn()

	var report pipeline.Report

	opts := append(cfg.ClientOptions(), httpclient.WithLogger(logger))

	err = httpclient.Use(func(client *httpclient.Client) error {
		providers, err := pipeline.Providers(
			cfg,
			func(string) pen.Fetcher { return client },
			logger,
		)
		if err != nil {
			return fmt.Errorf("unable to create providers: %w", err)
		}

		report = pipeline.Run(runCtx, providers, logger)

		return nil
	}, opts...)
	if err != nil {
		return err
	}

	if err = writeReport(os.Stdout, report); err != nil {
		return err
	}

	if c.publish && len(report.Quotes) > 0 {
		c.publishReport(runCtx, cfg.Publish, report, logger)
	}

	if c.publish && cfg.Publish.FailureWebhookURL != "" {
		if err = notifyFailures(runCtx, cfg.Publish.FailureWebhookURL, report, logger); err != nil {
			logger.Error("unable to send failure alert", "err", err)
		}
	}

	if len(report.Quotes) == 0 {
		return errNoQuotes
	}

	return nil
}

// publishReport hands the quotes to the configured publishers.
// Publishing failures do not fail the run
func (c *fetchCfg) publishReport(
	ctx context.Context,
	cfg config.PublishConfig,
	report pipeline.Report,
	logger *slog.Logger,
) {
	publishers, closeFn, err := pipeline.Publishers(cfg, logger)
	if err != nil {
		logger.Error("unable to set up publishers", "err", err)

		return
	}

	defer closeFn()

	if err = publishers.Publish(ctx, report.Quotes); err != nil {
		logger.Error("unable to publish quotes", "err", err)
	}
}

// notifyFailures posts a summary of the failed sources to the
// given webhook. Runs without failures send nothing
func notifyFailures(
	ctx context.Context,
	url string,
	report pipeline.Report,
	logger *slog.Logger,
) error {
	if len(report.Failures) == 0 {
		return nil
	}

	notifier, err := webhook.New(url, webhook.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("unable to create failure webhook: %w", err)
	}

	text := fmt.Sprintf(
		"%d source(s) failed:\n%s",
		len(report.Failures),
		pipeline.FailureSummary(report.Failures),
	)

	return notifier.Notify(ctx, text)
}

func writeReport(w io.Writer, report pipeline.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("unable to write report: %w", err)
	}

	return nil
}
