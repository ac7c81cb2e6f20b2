package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sig-0/fxquotes/storage/types"
)

// Publisher republishes freshly extracted quotes to a downstream system
type Publisher interface {
	// Publish publishes the given batch of quotes, all from a single run
	Publish(context.Context, []types.Quote) error
}

// Multi fans a batch out to every publisher.
// A failing publisher does not stop the others
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, quotes []types.Quote) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, quotes); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Summary formats the quotes as a short, human-readable message,
// one line per quote
func Summary(quotes []types.Quote) string {
	var b strings.Builder

	for i, q := range quotes {
		if i > 0 {
			b.WriteByte('\n')
		}

		fmt.Fprintf(&b, "%s %s %s: %s", q.Source, q.Pair, q.Side, q.Value.String())
	}

	return b.String()
}
