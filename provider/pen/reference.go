package pen

import (
	"context"
	"errors"
	"time"

	"github.com/sig-0/fxquotes/extract"
	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/provider/currencies"
	"github.com/sig-0/fxquotes/storage/types"
)

var (
	errMissingSource = errors.New("missing reference source name")
	errMissingURL    = errors.New("missing reference url")
	errInvalidSide   = errors.New("invalid reference side")
)

// ReferenceConfig describes a single-value reference rate page
type ReferenceConfig struct {
	// Source name the quotes are published under
	Source types.Source

	URL string

	// Side the page quotes. Defaults to MID
	Side types.Side

	// CSS selectors, most specific first. The class token
	// and free-text strategies always follow them
	Selectors []string

	// Headers sent verbatim. The rotated profile is used when empty
	Headers map[string]string
}

// ReferenceProvider reads a single quote off a configurable reference page
type ReferenceProvider struct {
	fetcher Fetcher
	chain   *extract.Chain
	cfg     ReferenceConfig

	settings
}

// NewReferenceProvider creates a new reference rate provider
func NewReferenceProvider(
	fetcher Fetcher,
	cfg ReferenceConfig,
	opts ...Option,
) (*ReferenceProvider, error) {
	if cfg.Source == "" {
		return nil, errMissingSource
	}

	if cfg.URL == "" {
		return nil, errMissingURL
	}

	if cfg.Side == "" {
		cfg.Side = types.SideMID
	}

	if !cfg.Side.Valid() {
		return nil, errInvalidSide
	}

	s := newSettings(time.Hour, opts)

	strategies := make([]extract.Strategy, 0, 3)
	if len(cfg.Selectors) > 0 {
		strategies = append(strategies, extract.Selectors(cfg.Selectors...))
	}

	strategies = append(
		strategies,
		extract.ClassTokens([]string{"div", "span", "p", "td"}, "price", "value", "rate"),
		extract.TextScan(),
	)

	return &ReferenceProvider{
		fetcher:  fetcher,
		cfg:      cfg,
		chain:    extract.NewChain(cfg.Source, s.validator, strategies, extract.WithLogger(s.logger)),
		settings: s,
	}, nil
}

func (p *ReferenceProvider) Name() string {
	return p.cfg.Source.String()
}

func (p *ReferenceProvider) Interval() time.Duration {
	return p.interval
}

func (p *ReferenceProvider) Fetch(ctx context.Context) ([]types.Quote, error) {
	quote, err := p.Extract(ctx)
	if err != nil {
		return nil, err
	}

	return []types.Quote{quote}, nil
}

// Extract fetches the reference page and returns its USD/PEN quote
func (p *ReferenceProvider) Extract(ctx context.Context) (types.Quote, error) {
	var opts []httpclient.FetchOption
	if len(p.cfg.Headers) > 0 {
		opts = append(opts, httpclient.WithRequestHeaders(p.cfg.Headers))
	}

	_, doc, err := fetchDocument(ctx, p.fetcher, p.cfg.Source, p.cfg.URL, opts...)
	if err != nil {
		return types.Quote{}, err
	}

	match, err := p.chain.Extract(doc)
	if err != nil {
		return types.Quote{}, err
	}

	quote, err := extract.NewQuote(
		p.validator,
		p.cfg.Source,
		currencies.USDPEN,
		p.cfg.Side,
		match.Text,
		p.now(),
	)
	if err != nil {
		return types.Quote{}, err
	}

	p.logger.Info(
		"extracted quote",
		"source", quote.Source,
		"strategy", match.Strategy,
		"side", quote.Side,
		"value", quote.Value,
	)

	return quote, nil
}
