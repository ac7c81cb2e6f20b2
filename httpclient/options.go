package httpclient

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries      = 3
	DefaultTimeout         = 15 * time.Second
	DefaultPoolConnections = 10
	DefaultPoolMaxSize     = 20
	DefaultRateLimitMin    = time.Second
	DefaultRateLimitMax    = 3 * time.Second
	DefaultBackoff         = time.Second
	DefaultMaxRetryAfter   = 2 * time.Minute
	DefaultMaxRedirects    = 5
)

type Option func(c *Client)

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMaxRetries specifies how many times a transient failure is retried.
// Defaults to 3
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithTimeout specifies the default per-attempt timeout.
// Defaults to 15s
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPool specifies the connection pool sizing: the number of hosts
// pooled and the number of idle connections kept per host
func WithPool(connections, maxSize int) Option {
	return func(c *Client) {
		if connections > 0 {
			c.poolConnections = connections
		}

		if maxSize > 0 {
			c.poolMaxSize = maxSize
		}
	}
}

// WithRateLimit specifies the randomized delay bounds between requests.
// Defaults to [1s, 3s]
func WithRateLimit(minDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.limiter = NewRateLimiter(minDelay, maxDelay)
	}
}

// WithVerifyTLS specifies whether server certificates are verified by default
func WithVerifyTLS(verify bool) Option {
	return func(c *Client) {
		c.verifyTLS = verify
	}
}

// WithHeaderProfile specifies the pools headers are synthesized from
func WithHeaderProfile(p HeaderProfile) Option {
	return func(c *Client) {
		c.profile = p
	}
}

// WithBackoff specifies the first retry delay, doubled on every retry.
// Defaults to 1s
func WithBackoff(initial time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.backoff = initial
		}
	}
}

// WithMaxRetryAfter caps the delay a server can request through Retry-After
func WithMaxRetryAfter(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.maxRetryAfter = d
		}
	}
}

// request holds the per-call settings of a fetch
type request struct {
	headers        http.Header
	verifyTLS      *bool
	method         string
	timeout        time.Duration
	maxRedirects   int
	allowRedirects bool
}

type FetchOption func(r *request)

// WithRequestHeaders sends the given headers verbatim instead of
// synthesizing a rotated set
func WithRequestHeaders(h map[string]string) FetchOption {
	return func(r *request) {
		r.headers = make(http.Header, len(h))

		for k, v := range h {
			r.headers.Set(k, v)
		}
	}
}

// WithRequestTimeout overrides the client's per-attempt timeout
func WithRequestTimeout(d time.Duration) FetchOption {
	return func(r *request) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRequestVerifyTLS overrides the client's certificate verification
func WithRequestVerifyTLS(verify bool) FetchOption {
	return func(r *request) {
		r.verifyTLS = &verify
	}
}

// WithRedirects specifies whether redirects are followed, and how many.
// Defaults to following at most 5
func WithRedirects(allow bool, maxRedirects int) FetchOption {
	return func(r *request) {
		r.allowRedirects = allow

		if maxRedirects >= 0 {
			r.maxRedirects = maxRedirects
		}
	}
}

// WithMethod overrides the request method (GET).
// Only idempotent methods are retried
func WithMethod(method string) FetchOption {
	return func(r *request) {
		if method != "" {
			r.method = method
		}
	}
}
