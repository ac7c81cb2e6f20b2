package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 16 << 20

var (
	// ErrClientClosed is reported for fetches on a closed client
	ErrClientClosed = errors.New("client is closed")

	// ErrRedirectLimit is reported when a fetch exceeds its redirect budget
	ErrRedirectLimit = errors.New("redirect limit exceeded")
)

// retryableCodes are the transient statuses worth another attempt
var retryableCodes = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
	520:                            {}, // unknown error (Cloudflare)
	521:                            {}, // web server is down
	522:                            {}, // connection timed out
	523:                            {}, // origin is unreachable
	524:                            {}, // a timeout occurred
}

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Client is an HTTP client for scraping hostile pages. It rate limits
// its own requests, rotates browser headers, retries transient failures
// with exponential backoff and recovers from broken encodings.
//
// A Client owns its rate limiter and connection pool, and should be
// closed by its owner once no longer needed
type Client struct {
	logger  *slog.Logger
	limiter *RateLimiter
	jar     http.CookieJar

	secure   *http.Transport
	insecure *http.Transport

	now    func() time.Time
	sleep  sleepFunc
	picker headerPicker

	profile HeaderProfile

	timeout         time.Duration
	backoff         time.Duration
	maxRetryAfter   time.Duration
	maxRetries      int
	poolConnections int
	poolMaxSize     int
	verifyTLS       bool

	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a new resilient client
func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // never fails without options

	c := &Client{
		logger:          noopLogger,
		limiter:         NewRateLimiter(DefaultRateLimitMin, DefaultRateLimitMax),
		jar:             jar,
		now:             time.Now,
		sleep:           sleepContext,
		picker:          defaultPicker,
		profile:         DefaultHeaderProfile(),
		timeout:         DefaultTimeout,
		backoff:         DefaultBackoff,
		maxRetryAfter:   DefaultMaxRetryAfter,
		maxRetries:      DefaultMaxRetries,
		poolConnections: DefaultPoolConnections,
		poolMaxSize:     DefaultPoolMaxSize,
		verifyTLS:       true,
	}

	// Apply the options
	for _, opt := range opts {
		opt(c)
	}

	c.secure = c.newTransport(true)
	c.insecure = c.newTransport(false)

	return c
}

// Use creates a client, hands it to fn and closes it on every exit path
func Use(fn func(c *Client) error, opts ...Option) error {
	c := New(opts...)
	defer c.Close()

	return fn(c)
}

// Close releases the pooled connections. Safe to call multiple times
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.secure.CloseIdleConnections()
		c.insecure.CloseIdleConnections()

		c.logger.Debug("http client closed")
	})

	return nil
}

// Limiter returns the client's rate limiter
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// Fetch retrieves the document at the given URL [BLOCKING].
// Failures are never returned as errors, they are classified
// in the outcome status instead
func (c *Client) Fetch(ctx context.Context, rawURL string, opts ...FetchOption) *Outcome {
	r := &request{
		method:         http.MethodGet,
		timeout:        c.timeout,
		allowRedirects: true,
		maxRedirects:   DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(r)
	}

	if c.closed.Load() {
		return &Outcome{
			URL:    rawURL,
			Status: StatusRequestError,
			Err:    ErrClientClosed,
		}
	}

	bo := c.newBackOff()

	var out *Outcome

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Outcome{
				URL:      rawURL,
				Status:   classify(err),
				Err:      err,
				Attempts: attempt - 1,
			}
		}

		c.logger.Info(
			"fetching document",
			"url", rawURL,
			"attempt", attempt,
		)

		out = c.attempt(ctx, rawURL, r)
		out.Attempts = attempt

		if attempt > c.maxRetries || !c.shouldRetry(ctx, r.method, out) {
			break
		}

		delay := bo.NextBackOff()
		if after, ok := c.retryAfter(out.Headers); ok {
			delay = after
		}

		c.logger.Warn(
			"transient fetch failure, retrying",
			"url", rawURL,
			"outcome", out.String(),
			"delay", delay,
		)

		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	switch out.Status {
	case StatusSuccess:
		c.logger.Info(
			"document fetched",
			"url", rawURL,
			"code", out.Code,
			"bytes", len(out.Document),
			"encoding", out.Encoding,
			"attempts", out.Attempts,
		)
	default:
		c.logger.Warn(
			"unable to fetch document",
			"url", rawURL,
			"outcome", out.String(),
			"attempts", out.Attempts,
		)
	}

	return out
}

// attempt performs a single request
func (c *Client) attempt(ctx context.Context, rawURL string, r *request) *Outcome {
	out := &Outcome{
		URL: rawURL,
	}

	attemptCtx, cancelFn := context.WithTimeout(ctx, r.timeout)
	defer cancelFn()

	req, err := http.NewRequestWithContext(attemptCtx, r.method, rawURL, http.NoBody)
	if err != nil {
		out.Status = StatusRequestError
		out.Err = fmt.Errorf("unable to create request: %w", err)

		return out
	}

	req.Header = c.headers(r)

	resp, err := c.httpClient(r).Do(req)
	if err != nil {
		out.Status = classify(err)
		out.Err = err

		return out
	}
	defer resp.Body.Close()

	out.Code = resp.StatusCode
	out.Headers = resp.Header.Clone()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain so the connection goes back to the pool
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize)) //nolint:errcheck // best effort

		out.Status = StatusHTTPError
		out.Err = fmt.Errorf("invalid status code received: %d", resp.StatusCode)

		return out
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		out.Status = classify(err)
		out.Err = fmt.Errorf("unable to read body: %w", err)

		return out
	}

	body, err := decompress(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		out.Status = StatusDecodeError
		out.Err = err

		return out
	}

	text, encoding, degraded := decodeDocument(body, resp.Header.Get("Content-Type"), fallbackEncodings)
	if degraded {
		c.logger.Warn(
			"unable to decode document with any known encoding, using lossy utf-8",
			"url", rawURL,
		)
	}

	out.Status = StatusSuccess
	out.Document = text
	out.Encoding = encoding

	return out
}

// headers returns the caller's headers verbatim, or a freshly rotated set
func (c *Client) headers(r *request) http.Header {
	if r.headers != nil {
		return r.headers.Clone()
	}

	return c.profile.headers(c.picker)
}

// httpClient wraps the pooled transport with the request's redirect policy
func (c *Client) httpClient(r *request) *http.Client {
	transport := c.secure

	verify := c.verifyTLS
	if r.verifyTLS != nil {
		verify = *r.verifyTLS
	}

	if !verify {
		transport = c.insecure
	}

	return &http.Client{
		Transport: transport,
		Jar:       c.jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !r.allowRedirects {
				return http.ErrUseLastResponse
			}

			if len(via) > r.maxRedirects {
				return fmt.Errorf("%w (%d)", ErrRedirectLimit, r.maxRedirects)
			}

			return nil
		},
	}
}

func (c *Client) newTransport(verify bool) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()

	tr.MaxIdleConns = c.poolConnections * c.poolMaxSize
	tr.MaxIdleConnsPerHost = c.poolMaxSize

	if !verify {
		tr.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // explicitly requested
		}
	}

	return tr
}

// newBackOff creates the retry schedule: backoff, 2*backoff, 4*backoff...
func (c *Client) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()

	bo.InitialInterval = c.backoff
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0 // the retry budget is enforced by the client

	bo.Reset()

	return bo
}

// shouldRetry reports whether the outcome is transient and worth retrying
func (c *Client) shouldRetry(ctx context.Context, method string, out *Outcome) bool {
	if ctx.Err() != nil || !isIdempotent(method) {
		return false
	}

	switch out.Status {
	case StatusTimeout, StatusConnectionError:
		return true
	case StatusHTTPError:
		_, ok := retryableCodes[out.Code]

		return ok
	default:
		return false
	}
}

// retryAfter parses a server-supplied Retry-After header,
// in either delay-seconds or HTTP-date form. Only positive delays are reported
func (c *Client) retryAfter(h http.Header) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}

	var d time.Duration

	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(c.now())
	} else {
		return 0, false
	}

	if d > c.maxRetryAfter {
		d = c.maxRetryAfter
	}

	// A zero or past delay leaves the backoff schedule in charge
	if d <= 0 {
		return 0, false
	}

	return d, true
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// classify maps a transport error onto an outcome status
func classify(err error) Status {
	var (
		netErr  net.Error
		opErr   *net.OpError
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
	)

	switch {
	case errors.Is(err, ErrRedirectLimit):
		return StatusRedirectLimit
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return StatusTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return StatusTimeout
	case errors.Is(err, context.Canceled):
		return StatusRequestError
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.As(err, &certErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return StatusConnectionError
	default:
		return StatusRequestError
	}
}
