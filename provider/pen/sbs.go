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

const (
	// SBSURL is the SBS daily exchange rate publication
	SBSURL = "https://www.sbs.gob.pe/app/pp/SISTIP_PORTAL/Paginas/Publicacion/TipoCambioPromedio.aspx"

	sbsLabel      = "Dólar de N.A."
	sbsTable      = "table.rgMasterTable"
	sbsBuyColumn  = 2
	sbsSellColumn = 3
)

var sbsHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

// Rates is a two-sided reading. Either side may be missing
// when the publication is only partially filled in
type Rates struct {
	Buy  *types.Quote `json:"buy,omitempty"`
	Sell *types.Quote `json:"sell,omitempty"`
}

// Complete reports whether both sides are present
func (r Rates) Complete() bool {
	return r.Buy != nil && r.Sell != nil
}

// Quotes returns the present sides, buy first
func (r Rates) Quotes() []types.Quote {
	quotes := make([]types.Quote, 0, 2)

	if r.Buy != nil {
		quotes = append(quotes, *r.Buy)
	}

	if r.Sell != nil {
		quotes = append(quotes, *r.Sell)
	}

	return quotes
}

// SBSProvider reads the USD/PEN buy and sell rates published by the
// Superintendencia de Banca, Seguros y AFP
type SBSProvider struct {
	fetcher Fetcher
	lookup  *extract.RowLookup
	url     string

	settings
}

// NewSBSProvider creates a new instance of the SBS provider
func NewSBSProvider(fetcher Fetcher, url string, opts ...Option) *SBSProvider {
	s := newSettings(time.Hour, opts)

	strategies := []extract.RowStrategy{
		extract.TableRows(sbsTable),
		extract.LabelCells(),
		extract.AnyRow(),
	}

	return &SBSProvider{
		fetcher: fetcher,
		url:     url,
		lookup: extract.NewRowLookup(
			types.SourceSBS,
			s.validator,
			sbsLabel,
			sbsBuyColumn,
			sbsSellColumn,
			strategies,
			extract.WithLogger(s.logger),
		),
		settings: s,
	}
}

func (p *SBSProvider) Name() string {
	return types.SourceSBS.String()
}

func (p *SBSProvider) Interval() time.Duration {
	return p.interval
}

// Fetch returns the present sides. A partial reading is returned
// together with its PARTIAL_QUOTE failure
func (p *SBSProvider) Fetch(ctx context.Context) ([]types.Quote, error) {
	rates, err := p.Extract(ctx)

	return rates.Quotes(), err
}

// Extract fetches the publication and returns the two-sided USD/PEN rates.
// When only one side is found, the partial rates are returned alongside
// an extract.ErrPartialQuote failure
func (p *SBSProvider) Extract(ctx context.Context) (Rates, error) {
	_, doc, err := fetchDocument(
		ctx,
		p.fetcher,
		types.SourceSBS,
		p.url,
		httpclient.WithRequestHeaders(sbsHeaders),
	)
	if err != nil {
		return Rates{}, err
	}

	reading, lookupErr := p.lookup.Lookup(doc)
	if lookupErr != nil && !errors.Is(lookupErr, extract.ErrPartialQuote) {
		return Rates{}, lookupErr
	}

	var (
		rates     Rates
		fetchedAt = p.now()
	)

	for _, side := range []struct {
		target **types.Quote
		raw    string
		side   types.Side
	}{
		{&rates.Buy, reading.Buy, types.SideBUY},
		{&rates.Sell, reading.Sell, types.SideSELL},
	} {
		if side.raw == "" {
			continue
		}

		quote, err := extract.NewQuote(
			p.validator,
			types.SourceSBS,
			currencies.USDPEN,
			side.side,
			side.raw,
			fetchedAt,
		)
		if err != nil {
			return Rates{}, err
		}

		*side.target = &quote
	}

	p.logger.Info(
		"extracted rates",
		"source", types.SourceSBS,
		"strategy", reading.Strategy,
		"buy", reading.Buy,
		"sell", reading.Sell,
		"complete", rates.Complete(),
	)

	return rates, lookupErr
}
