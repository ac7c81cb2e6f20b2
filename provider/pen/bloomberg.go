package pen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sig-0/fxquotes/extract"
	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/provider/currencies"
	"github.com/sig-0/fxquotes/storage/types"
)

const (
	// BloombergURL is the USD/PEN quote page
	BloombergURL = "https://www.bloomberg.com/quote/USDPEN:CUR"

	bloombergMinLength = 100
)

// bloombergHeaders are sent verbatim, instead of the rotated profile
var bloombergHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9,es;q=0.8",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Cache-Control":             "max-age=0",
}

// BloombergProvider reads the USD/PEN mid quote off the Bloomberg quote page
type BloombergProvider struct {
	fetcher Fetcher
	chain   *extract.Chain
	url     string

	settings
}

// NewBloombergProvider creates a new instance of the Bloomberg provider
func NewBloombergProvider(fetcher Fetcher, url string, opts ...Option) *BloombergProvider {
	s := newSettings(15*time.Minute, opts)

	strategies := []extract.Strategy{
		extract.Selectors(
			`div[class*="priceText"]`,
			`span[class*="priceText"]`,
			`div[class*="value"]`,
			`span[class*="value"]`,
			`div[class*="price"]`,
			`span[class*="price"]`,
			`[class*="price"]`,
		),
		extract.ClassTokens([]string{"div", "span", "p"}, "price", "value"),
		extract.TextScan(),
	}

	return &BloombergProvider{
		fetcher:  fetcher,
		url:      url,
		chain:    extract.NewChain(types.SourceBloomberg, s.validator, strategies, extract.WithLogger(s.logger)),
		settings: s,
	}
}

func (p *BloombergProvider) Name() string {
	return types.SourceBloomberg.String()
}

func (p *BloombergProvider) Interval() time.Duration {
	return p.interval
}

func (p *BloombergProvider) Fetch(ctx context.Context) ([]types.Quote, error) {
	quote, err := p.Extract(ctx)
	if err != nil {
		return nil, err
	}

	return []types.Quote{quote}, nil
}

// Extract fetches the quote page and returns the USD/PEN mid quote
func (p *BloombergProvider) Extract(ctx context.Context) (types.Quote, error) {
	raw, doc, err := fetchDocument(
		ctx,
		p.fetcher,
		types.SourceBloomberg,
		p.url,
		httpclient.WithRequestHeaders(bloombergHeaders),
	)
	if err != nil {
		return types.Quote{}, err
	}

	if err := checkBloombergDocument(raw); err != nil {
		return types.Quote{}, err
	}

	match, err := p.chain.Extract(doc)
	if err != nil {
		return types.Quote{}, err
	}

	quote, err := extract.NewQuote(
		p.validator,
		types.SourceBloomberg,
		currencies.USDPEN,
		types.SideMID,
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
		"value", quote.Value,
	)

	return quote, nil
}

// checkBloombergDocument rejects block pages and truncated responses
// before any extraction is attempted
func checkBloombergDocument(raw string) error {
	fail := func(reason string) error {
		return &extract.Failure{
			Kind:   extract.KindNoFetch,
			Source: types.SourceBloomberg,
			Reason: reason,
			Status: httpclient.StatusSuccess,
		}
	}

	switch {
	case strings.TrimSpace(raw) == "":
		return fail("empty document")
	case len(raw) < bloombergMinLength:
		return fail(fmt.Sprintf("document too short (%d bytes)", len(raw)))
	case !strings.Contains(raw, "<") || !strings.Contains(raw, ">"):
		return fail("document is not HTML")
	default:
		return nil
	}
}
