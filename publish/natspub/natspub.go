package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sig-0/fxquotes/storage/types"
)

// DefaultSubjectPrefix is the subject root every quote is published under
const DefaultSubjectPrefix = "fxquotes"

var errEmptyURL = errors.New("empty nats url")

// conn is the subset of *nats.Conn the publisher relies on
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

type Option func(p *Publisher)

// WithLogger specifies the logger for the publisher
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// WithSubjectPrefix specifies the subject root. Defaults to "fxquotes"
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix = strings.Trim(prefix, "."); prefix != "" {
			p.prefix = prefix
		}
	}
}

// Publisher publishes every quote as JSON on
// <prefix>.<source>.<pair>.<side>, for example fxquotes.sbs.usdpen.buy
type Publisher struct {
	nc     conn
	logger *slog.Logger
	prefix string
}

// Connect dials the NATS server and creates a new publisher
func Connect(url string, opts ...Option) (*Publisher, error) {
	if url == "" {
		return nil, errEmptyURL
	}

	p := newPublisher(nil, opts...)

	nc, err := nats.Connect(
		url,
		nats.Name("fxquotes"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Warn("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Error("nats disconnected", "err", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	p.nc = nc

	p.logger.Info("nats connected", "url", url)

	return p, nil
}

func newPublisher(nc conn, opts ...Option) *Publisher {
	p := &Publisher{
		nc:     nc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		prefix: DefaultSubjectPrefix,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish publishes each quote on its own subject and flushes the batch
func (p *Publisher) Publish(ctx context.Context, quotes []types.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	for _, q := range quotes {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("unable to marshal quote: %w", err)
		}

		subject := p.Subject(q)

		if err := p.nc.Publish(subject, payload); err != nil {
			return fmt.Errorf("unable to publish to %s: %w", subject, err)
		}

		p.logger.Debug(
			"published quote",
			"subject", subject,
			"value", q.Value,
		)
	}

	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("unable to flush nats: %w", err)
	}

	return nil
}

// Subject returns the subject the quote is published on
func (p *Publisher) Subject(q types.Quote) string {
	return strings.Join(
		[]string{
			p.prefix,
			token(q.Source.String()),
			token(q.Pair.Base.String() + q.Pair.Target.String()),
			token(q.Side.String()),
		},
		".",
	)
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}

	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("unable to drain nats: %w", err)
	}

	return nil
}

// token turns a free-form name into a single subject token
func token(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		default:
			return r
		}
	}, s)
}
