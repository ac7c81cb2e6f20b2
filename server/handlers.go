package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/fxquotes/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

var (
	errUnableToFetchQuotes     = errors.New("unable to fetch quotes")
	errUnableToFetchCurrencies = errors.New("unable to fetch currencies")
	errUnableToFetchSources    = errors.New("unable to fetch sources")

	errInvalidLimit    = errors.New("invalid limit")
	errInvalidOffset   = errors.New("invalid offset")
	errInvalidSide     = errors.New("invalid side (must be BUY, SELL or MID)")
	errInvalidCurrency = errors.New("invalid currency (must be 3 letters A-Z)")
)

// Quotes lists the latest quotes, optionally filtered
// by source, side, base and target currency
func (s *Server) Quotes(w http.ResponseWriter, r *http.Request) {
	s.latest(w, r, r.URL.Query().Get("source"))
}

// QuotesForSource lists the latest quotes of a single source
func (s *Server) QuotesForSource(w http.ResponseWriter, r *http.Request) {
	s.latest(w, r, chi.URLParam(r, "source"))
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request, sourceParam string) {
	var (
		sideParam   = r.URL.Query().Get("side")
		baseParam   = r.URL.Query().Get("base")
		targetParam = r.URL.Query().Get("target")

		limitParam  = r.URL.Query().Get("limit")
		offsetParam = r.URL.Query().Get("offset")
	)

	// Parse the side (optional)
	side, err := parseSide(sideParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the base currency (optional)
	base, err := parseOptionalCurrency(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the target currency (optional)
	target, err := parseOptionalCurrency(targetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(limitParam, offsetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.QuoteQuery{
		Source: parseSource(sourceParam),
		Side:   side,
		Base:   base,
		Target: target,
		Limit:  limit,
		Offset: offset,
	}

	page, err := s.storage.Latest(r.Context(), q)
	if err != nil {
		s.logger.Debug(
			"unable to fetch quotes",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchQuotes,
		)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	resp := &SourcesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListCurrencies(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch currencies",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchCurrencies,
		)

		return
	}

	resp := &CurrenciesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseLimitOffset(limitRaw, offsetRaw string) (int32, int64, error) {
	limit := defaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, errInvalidLimit
		}

		limit = int32(n)
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	var offset int64

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidOffset
		}

		offset = n
	}

	return limit, offset, nil
}

func parseSource(v string) *types.Source {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	src := types.Source(v)

	return &src
}

func parseSide(v string) (*types.Side, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	side := types.Side(strings.ToUpper(v))
	if !side.Valid() {
		return nil, errInvalidSide
	}

	return &side, nil
}

func parseOptionalCurrency(v string) (*types.Currency, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}

	c, err := parseCurrencySymbol(v)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) != 3 {
		return "", errInvalidCurrency
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", errInvalidCurrency
		}
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
