// Package pipeline wires the configured sources, clients and publishers
// shared by the fetch and serve commands
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sig-0/fxquotes/cmd/env"
	"github.com/sig-0/fxquotes/config"
	"github.com/sig-0/fxquotes/extract"
	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/ingest"
	"github.com/sig-0/fxquotes/provider/pen"
	"github.com/sig-0/fxquotes/publish"
	"github.com/sig-0/fxquotes/publish/natspub"
	"github.com/sig-0/fxquotes/publish/webhook"
	"github.com/sig-0/fxquotes/storage/types"
)

// FetcherFn returns the fetcher the given source fetches through
type FetcherFn func(source string) pen.Fetcher

// ApplyEnv overrides the publisher urls with the environment, if set
func ApplyEnv(cfg *config.Config) {
	if v := os.Getenv(env.Prefix + env.NATSURLSuffix); v != "" {
		cfg.Publish.NATSURL = v
	}

	if v := os.Getenv(env.Prefix + env.WebhookURLSuffix); v != "" {
		cfg.Publish.WebhookURL = v
	}

	if v := os.Getenv(env.Prefix + env.FailureWebhookURLSuffix); v != "" {
		cfg.Publish.FailureWebhookURL = v
	}
}

// Providers creates the enabled providers in run order:
// Bloomberg, SBS, then the configured references
func Providers(
	cfg *config.Config,
	fetcherFn FetcherFn,
	logger *slog.Logger,
) ([]ingest.Provider, error) {
	var (
		providers []ingest.Provider
		common    = []pen.Option{pen.WithRange(cfg.PlausibleRange())}
	)

	optsFor := func(source string, interval time.Duration) []pen.Option {
		return append(
			slices.Clone(common),
			pen.WithLogger(logger.With("source", source)),
			pen.WithInterval(interval),
		)
	}

	if src := cfg.Sources.Bloomberg; src.Enabled {
		name := types.SourceBloomberg.String()

		providers = append(providers, pen.NewBloombergProvider(
			fetcherFn(name),
			src.URL,
			optsFor(name, src.ParsedInterval())...,
		))
	}

	if src := cfg.Sources.SBS; src.Enabled {
		name := types.SourceSBS.String()

		providers = append(providers, pen.NewSBSProvider(
			fetcherFn(name),
			src.URL,
			optsFor(name, src.ParsedInterval())...,
		))
	}

	for _, ref := range cfg.Sources.References {
		p, err := pen.NewReferenceProvider(
			fetcherFn(ref.Name),
			ref.ProviderConfig(),
			optsFor(ref.Name, ref.ParsedInterval())...,
		)
		if err != nil {
			return nil, fmt.Errorf("unable to create reference provider %q: %w", ref.Name, err)
		}

		providers = append(providers, p)
	}

	return providers, nil
}

// Publishers creates the configured publishers.
// The returned close function releases their connections
func Publishers(cfg config.PublishConfig, logger *slog.Logger) (publish.Multi, func(), error) {
	var (
		publishers publish.Multi
		closers    []func() error
	)

	closeAll := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Error("unable to close publisher", "err", err)
			}
		}
	}

	if cfg.NATSURL != "" {
		p, err := natspub.Connect(
			cfg.NATSURL,
			natspub.WithLogger(logger),
			natspub.WithSubjectPrefix(cfg.SubjectPrefix),
		)
		if err != nil {
			return nil, nil, err
		}

		publishers = append(publishers, p)
		closers = append(closers, p.Close)
	}

	if cfg.WebhookURL != "" {
		n, err := webhook.New(cfg.WebhookURL, webhook.WithLogger(logger))
		if err != nil {
			closeAll()

			return nil, nil, err
		}

		publishers = append(publishers, n)
	}

	return publishers, closeAll, nil
}

// Clients hands out a dedicated resilient client per source,
// so every source keeps its own rate limiter and pool
type Clients struct {
	logger *slog.Logger
	opts   []httpclient.Option

	clients []*httpclient.Client
	mux     sync.Mutex
}

// NewClients creates a new client set sharing the given options
func NewClients(logger *slog.Logger, opts ...httpclient.Option) *Clients {
	return &Clients{
		logger: logger,
		opts:   opts,
	}
}

// Fetcher creates the client of the given source
func (c *Clients) Fetcher(source string) pen.Fetcher {
	c.mux.Lock()
	defer c.mux.Unlock()

	opts := append(
		slices.Clone(c.opts),
		httpclient.WithLogger(c.logger.With("source", source)),
	)

	client := httpclient.New(opts...)
	c.clients = append(c.clients, client)

	return client
}

// Close closes every client handed out
func (c *Clients) Close() error {
	c.mux.Lock()
	defer c.mux.Unlock()

	errs := make([]error, 0, len(c.clients))
	for _, client := range c.clients {
		errs = append(errs, client.Close())
	}

	return errors.Join(errs...)
}

// Failure is a failed source of a one-shot run
type Failure struct {
	Source string `json:"source"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	if f.Kind == "" {
		return fmt.Sprintf("%s: %s", f.Source, f.Reason)
	}

	return fmt.Sprintf("%s %s: %s", f.Source, f.Kind, f.Reason)
}

// FailureSummary formats the failures one per line
func FailureSummary(failures []Failure) string {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, f.String())
	}

	return strings.Join(lines, "\n")
}

// Report is the outcome of a one-shot run
type Report struct {
	Quotes   []types.Quote `json:"quotes"`
	Failures []Failure     `json:"failures,omitempty"`
}

// Run runs every provider once, in order. Failed providers are recorded
// and the run moves on; partial results are kept
func Run(ctx context.Context, providers []ingest.Provider, logger *slog.Logger) Report {
	report := Report{
		Quotes: make([]types.Quote, 0, len(providers)),
	}

	for _, p := range providers {
		if ctx.Err() != nil {
			report.Failures = append(report.Failures, Failure{
				Source: p.Name(),
				Reason: ctx.Err().Error(),
			})

			continue
		}

		quotes, err := p.Fetch(ctx)
		report.Quotes = append(report.Quotes, quotes...)

		if err == nil {
			logger.Info("source fetched", "source", p.Name(), "quotes", len(quotes))

			continue
		}

		failure := Failure{
			Source: p.Name(),
			Reason: err.Error(),
		}

		var f *extract.Failure
		if errors.As(err, &f) {
			failure.Kind = f.Kind.String()
			failure.Reason = f.Reason
		}

		logger.Warn(
			"source failed",
			"source", p.Name(),
			"kind", failure.Kind,
			"reason", failure.Reason,
			"quotes", len(quotes),
		)

		report.Failures = append(report.Failures, failure)
	}

	return report
}
