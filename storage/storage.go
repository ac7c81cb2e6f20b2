package storage

import (
	"context"

	"github.com/sig-0/fxquotes/storage/types"
)

// Storage is an abstraction over the latest quote board.
// Only the most recent quote per source, pair and side is kept
type Storage interface {
	// SaveQuote saves the given quote, replacing an older quote
	// of the same source, pair and side
	SaveQuote(context.Context, types.Quote) error

	// Latest fetches the latest quotes matching the query
	Latest(context.Context, *types.QuoteQuery) (*types.Page[types.Quote], error)

	// ListSources lists all sources with at least one quote
	ListSources(context.Context) ([]types.Source, error)

	// ListCurrencies lists all currencies present
	ListCurrencies(context.Context) ([]types.Currency, error)
}
