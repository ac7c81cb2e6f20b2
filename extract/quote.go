package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/sig-0/fxquotes/storage/types"
)

// NewQuote builds a validated quote out of a raw candidate text.
// It is the only way extraction produces quotes
func NewQuote(
	validator Validator,
	source types.Source,
	pair types.Pair,
	side types.Side,
	raw string,
	fetchedAt time.Time,
) (types.Quote, error) {
	raw = strings.TrimSpace(raw)

	if !side.Valid() {
		return types.Quote{}, &Failure{
			Kind:   KindValidationRejected,
			Source: source,
			Reason: fmt.Sprintf("invalid side %q", side),
		}
	}

	if !validator.IsPlausible(raw) {
		return types.Quote{}, &Failure{
			Kind:   KindValidationRejected,
			Source: source,
			Reason: fmt.Sprintf("implausible %s %s quote %q", pair, side, raw),
		}
	}

	value, ok := Normalize(raw)
	if !ok {
		return types.Quote{}, &Failure{
			Kind:   KindValidationRejected,
			Source: source,
			Reason: fmt.Sprintf("unable to normalize %q", raw),
		}
	}

	return types.Quote{
		Source:    source,
		Pair:      pair,
		Side:      side,
		Raw:       raw,
		Value:     value,
		FetchedAt: fetchedAt.UTC(),
	}, nil
}
