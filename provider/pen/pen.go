package pen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sig-0/fxquotes/extract"
	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/storage/types"
)

// Fetcher is the resilient transport the providers fetch documents through.
// The owner of the fetcher is responsible for closing it
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts ...httpclient.FetchOption) *httpclient.Outcome
}

type settings struct {
	logger    *slog.Logger
	now       func() time.Time
	validator extract.Validator
	interval  time.Duration
}

type Option func(s *settings)

// WithLogger specifies the logger for the provider
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithInterval overrides the provider's default run interval
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRange overrides the plausible USD/PEN range
func WithRange(r extract.Range) Option {
	return func(s *settings) {
		s.validator = extract.NewValidator(r)
	}
}

func newSettings(interval time.Duration, opts []Option) settings {
	s := settings{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		validator: extract.DefaultValidator(),
		interval:  interval,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// fetchDocument fetches and parses the source page. Transport failures
// are reported as NO_FETCH failures carrying the transport status
func fetchDocument(
	ctx context.Context,
	fetcher Fetcher,
	source types.Source,
	url string,
	opts ...httpclient.FetchOption,
) (string, *goquery.Document, error) {
	out := fetcher.Fetch(ctx, url, opts...)
	if !out.OK() {
		return "", nil, extract.FetchFailure(source, out)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.Document))
	if err != nil {
		return "", nil, &extract.Failure{
			Kind:   extract.KindNoFetch,
			Source: source,
			Reason: fmt.Sprintf("unable to parse document from %s", url),
			Status: out.Status,
			Code:   out.Code,
			Err:    err,
		}
	}

	return out.Document, doc, nil
}
