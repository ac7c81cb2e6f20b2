package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyPEN Currency = "PEN"
)

func (c Currency) String() string {
	return string(c)
}

// Side is the side of the market a quote was read for
type Side string

const (
	SideMID  Side = "MID"
	SideBUY  Side = "BUY"
	SideSELL Side = "SELL"
)

func (s Side) String() string {
	return string(s)
}

// Valid reports whether the side is one of the known sides
func (s Side) Valid() bool {
	switch s {
	case SideMID, SideBUY, SideSELL:
		return true
	default:
		return false
	}
}

type Source string

const (
	SourceBloomberg Source = "Bloomberg" // https://www.bloomberg.com/quote/USDPEN:CUR
	SourceSBS       Source = "SBS"       // https://www.sbs.gob.pe/
)

func (s Source) String() string {
	return string(s)
}

type Pair struct {
	Base   Currency `json:"base"`
	Target Currency `json:"target"`
}

func (p Pair) String() string {
	return p.Base.String() + "/" + p.Target.String()
}

// Quote is a validated exchange rate reading from a single source.
// Quotes are handed around by value and never modified after construction
type Quote struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Source    Source          `json:"source"`
	Pair      Pair            `json:"pair"`
	Side      Side            `json:"side"`
	Raw       string          `json:"raw"`
	Value     decimal.Decimal `json:"value"`
}

// QuoteQuery filters the latest quotes. Nil fields match everything
type QuoteQuery struct {
	Source *Source   `json:"source"`
	Side   *Side     `json:"side"`
	Base   *Currency `json:"base"`
	Target *Currency `json:"target"`
	Offset int64     `json:"offset"`
	Limit  int32     `json:"limit"`
}

// Page wraps the results for pagination
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}

// Matches reports whether the quote satisfies the query
func (q *QuoteQuery) Matches(quote Quote) bool {
	if q == nil {
		return true
	}

	if q.Source != nil && *q.Source != quote.Source {
		return false
	}

	if q.Side != nil && *q.Side != quote.Side {
		return false
	}

	if q.Base != nil && *q.Base != quote.Pair.Base {
		return false
	}

	if q.Target != nil && *q.Target != quote.Pair.Target {
		return false
	}

	return true
}
