package mock

import (
	"context"

	"github.com/sig-0/fxquotes/storage/types"
)

type (
	SaveQuoteDelegate      func(context.Context, types.Quote) error
	LatestDelegate         func(context.Context, *types.QuoteQuery) (*types.Page[types.Quote], error)
	ListSourcesDelegate    func(context.Context) ([]types.Source, error)
	ListCurrenciesDelegate func(context.Context) ([]types.Currency, error)
)

type Storage struct {
	SaveQuoteFn      SaveQuoteDelegate
	LatestFn         LatestDelegate
	ListSourcesFn    ListSourcesDelegate
	ListCurrenciesFn ListCurrenciesDelegate
}

func (m *Storage) SaveQuote(ctx context.Context, quote types.Quote) error {
	if m.SaveQuoteFn != nil {
		return m.SaveQuoteFn(ctx, quote)
	}

	return nil
}

func (m *Storage) Latest(
	ctx context.Context,
	query *types.QuoteQuery,
) (*types.Page[types.Quote], error) {
	if m.LatestFn != nil {
		return m.LatestFn(ctx, query)
	}

	return nil, nil
}

func (m *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	if m.ListSourcesFn != nil {
		return m.ListSourcesFn(ctx)
	}

	return nil, nil
}

func (m *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	if m.ListCurrenciesFn != nil {
		return m.ListCurrenciesFn(ctx)
	}

	return nil, nil
}
