package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxquotes/provider/currencies"
	"github.com/sig-0/fxquotes/storage/types"
)

func newQuote(source types.Source, side types.Side, value string, at time.Time) types.Quote {
	return types.Quote{
		Source:    source,
		Pair:      currencies.USDPEN,
		Side:      side,
		Raw:       value,
		Value:     decimal.RequireFromString(value),
		FetchedAt: at,
	}
}

func TestStorage_SaveQuote(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("newer quote replaces older", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()

		require.NoError(t, s.SaveQuote(context.Background(), newQuote(types.SourceSBS, types.SideBUY, "3.70", now)))
		require.NoError(t, s.SaveQuote(context.Background(), newQuote(types.SourceSBS, types.SideBUY, "3.75", now.Add(time.Minute))))

		page, err := s.Latest(context.Background(), nil)
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, "3.75", page.Results[0].Raw)
	})

	t.Run("stale quote ignored", func(t *testing.T) {
		t.Parallel()

		s := NewStorage()

		require.NoError(t, s.SaveQuote(context.Background(), newQuote(types.SourceSBS, types.SideBUY, "3.75", now)))
		require.NoError(t, s.SaveQuote(context.Background(), newQuote(types.SourceSBS, types.SideBUY, "3.70", now.Add(-time.Hour))))

		page, err := s.Latest(context.Background(), nil)
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, "3.75", page.Results[0].Raw)
	})
}

func TestStorage_Latest(t *testing.T) {
	t.Parallel()

	var (
		now = time.Now().UTC()
		s   = NewStorage()
	)

	for _, q := range []types.Quote{
		newQuote(types.SourceSBS, types.SideSELL, "3.78", now),
		newQuote(types.SourceSBS, types.SideBUY, "3.77", now),
		newQuote(types.SourceBloomberg, types.SideMID, "3.775", now),
	} {
		require.NoError(t, s.SaveQuote(context.Background(), q))
	}

	t.Run("all quotes, sorted", func(t *testing.T) {
		t.Parallel()

		page, err := s.Latest(context.Background(), &types.QuoteQuery{})
		require.NoError(t, err)

		require.Len(t, page.Results, 3)
		assert.Equal(t, int64(3), page.Total)

		assert.Equal(t, types.SourceBloomberg, page.Results[0].Source)
		assert.Equal(t, types.SideBUY, page.Results[1].Side)
		assert.Equal(t, types.SideSELL, page.Results[2].Side)
	})

	t.Run("filtered by source and side", func(t *testing.T) {
		t.Parallel()

		var (
			source = types.SourceSBS
			side   = types.SideSELL
		)

		page, err := s.Latest(context.Background(), &types.QuoteQuery{
			Source: &source,
			Side:   &side,
		})
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, "3.78", page.Results[0].Raw)
	})

	t.Run("paged", func(t *testing.T) {
		t.Parallel()

		page, err := s.Latest(context.Background(), &types.QuoteQuery{
			Offset: 1,
			Limit:  1,
		})
		require.NoError(t, err)

		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, types.SideBUY, page.Results[0].Side)

		page, err = s.Latest(context.Background(), &types.QuoteQuery{Offset: 10})
		require.NoError(t, err)

		assert.Empty(t, page.Results)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("sources and currencies", func(t *testing.T) {
		t.Parallel()

		sources, err := s.ListSources(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []types.Source{types.SourceBloomberg, types.SourceSBS}, sources)

		currs, err := s.ListCurrencies(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []types.Currency{currencies.PEN, currencies.USD}, currs)
	})
}
