package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sig-0/fxquotes/storage/types"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type key struct {
	source, base, target, side string
}

type Storage struct {
	data map[key]types.Quote

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[key]types.Quote),
	}
}

// SaveQuote keeps the quote if it is newer than the one on the board
func (s *Storage) SaveQuote(_ context.Context, q types.Quote) error {
	k := key{
		source: q.Source.String(),
		base:   q.Pair.Base.String(),
		target: q.Pair.Target.String(),
		side:   q.Side.String(),
	}

	q.FetchedAt = q.FetchedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.data[k]; ok && cur.FetchedAt.After(q.FetchedAt) {
		return nil // stale
	}

	s.data[k] = q

	return nil
}

func (s *Storage) Latest(
	_ context.Context,
	query *types.QuoteQuery,
) (*types.Page[types.Quote], error) {
	s.mu.RLock()

	out := make([]types.Quote, 0, len(s.data))

	for _, q := range s.data {
		if query.Matches(q) {
			out = append(out, q)
		}
	}

	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source.String() < out[j].Source.String()
		}

		if out[i].Pair != out[j].Pair {
			return out[i].Pair.String() < out[j].Pair.String()
		}

		return out[i].Side.String() < out[j].Side.String()
	})

	total := int64(len(out))
	if total == 0 {
		return &types.Page[types.Quote]{
			Results: nil,
			Total:   0,
		}, nil
	}

	var (
		lim int32
		off int64
	)

	if query != nil {
		lim = query.Limit
		off = query.Offset
	}

	if lim <= 0 {
		lim = defaultLimit
	}

	if lim > maxLimit {
		lim = maxLimit
	}

	if off < 0 {
		off = 0
	}

	if off >= total {
		return &types.Page[types.Quote]{
			Results: nil,
			Total:   total,
		}, nil
	}

	start := int(off)
	end := start + int(lim)

	if end > len(out) {
		end = len(out)
	}

	return &types.Page[types.Quote]{
		Results: out[start:end],
		Total:   total,
	}, nil
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.source] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Source, 0, len(seen))

	for v := range seen {
		out = append(out, types.Source(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}

func (s *Storage) ListCurrencies(_ context.Context) ([]types.Currency, error) {
	s.mu.RLock()

	seen := make(map[string]struct{})

	for k := range s.data {
		seen[k.base] = struct{}{}
		seen[k.target] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Currency, 0, len(seen))

	for v := range seen {
		out = append(out, types.Currency(v))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}
