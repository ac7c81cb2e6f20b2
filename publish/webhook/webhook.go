package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sig-0/fxquotes/publish"
	"github.com/sig-0/fxquotes/storage/types"
)

const defaultTimeout = 10 * time.Second

var errEmptyURL = errors.New("empty webhook url")

// message is the chat webhook payload
type message struct {
	Text string `json:"text"`
}

type Option func(n *Notifier)

// WithLogger specifies the logger for the notifier
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = l
	}
}

// WithHTTPClient specifies the HTTP client used for deliveries
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.client = c
	}
}

// WithTitle specifies the first line of every quote summary
func WithTitle(title string) Option {
	return func(n *Notifier) {
		n.title = title
	}
}

// Notifier posts text notifications to a chat webhook
// (Google Chat, Slack and Teams incoming webhooks accept the same payload)
type Notifier struct {
	client *http.Client
	logger *slog.Logger
	url    string
	title  string
}

// New creates a new webhook notifier
func New(url string, opts ...Option) (*Notifier, error) {
	if url == "" {
		return nil, errEmptyURL
	}

	n := &Notifier{
		client: &http.Client{Timeout: defaultTimeout},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		url:    url,
		title:  "Exchange rates registered",
	}

	for _, opt := range opts {
		opt(n)
	}

	return n, nil
}

// Publish posts a summary of the quotes
func (n *Notifier) Publish(ctx context.Context, quotes []types.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	text := publish.Summary(quotes)
	if n.title != "" {
		text = n.title + "\n" + text
	}

	return n.Notify(ctx, text)
}

// Notify posts the given text message. Webhook deliveries are not retried
func (n *Notifier) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(message{Text: text})
	if err != nil {
		return fmt.Errorf("unable to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("unable to execute POST request: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	n.logger.Debug("webhook notified", "status", resp.StatusCode)

	return nil
}
