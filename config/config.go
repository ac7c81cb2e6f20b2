package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/sig-0/fxquotes/extract"
	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/provider/pen"
	"github.com/sig-0/fxquotes/storage/types"
)

var (
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrInvalidRateLimit     = errors.New("invalid rate limit bounds")
	ErrInvalidRetries       = errors.New("invalid max retries")
	ErrInvalidRange         = errors.New("invalid plausible range")
	ErrMissingReferenceName = errors.New("missing reference name")
	ErrMissingReferenceURL  = errors.New("missing reference url")
	ErrInvalidReferenceSide = errors.New("invalid reference side")
	ErrDuplicateSource      = errors.New("duplicate source name")
	ErrMissingSourceURL     = errors.New("missing source url")
)

// Config is the scraping configuration shared by the fetch and serve commands
type Config struct {
	Client  ClientConfig  `toml:"client"`
	Range   RangeConfig   `toml:"range"`
	Sources SourcesConfig `toml:"sources"`
	Publish PublishConfig `toml:"publish"`
}

// ClientConfig configures the resilient HTTP client.
// Durations use the time.ParseDuration format ("15s", "1m30s")
type ClientConfig struct {
	// Headers sent with every request instead of the rotated browser profile
	Headers map[string]string `toml:"headers"`

	Timeout      string `toml:"timeout"`
	RateLimitMin string `toml:"rate_limit_min"`
	RateLimitMax string `toml:"rate_limit_max"`

	MaxRetries      int `toml:"max_retries"`
	PoolConnections int `toml:"pool_connections"`
	PoolMaxSize     int `toml:"pool_maxsize"`

	VerifyTLS bool `toml:"verify_tls"`
}

// RangeConfig is the plausible USD/PEN range
type RangeConfig struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// SourceConfig configures one of the built-in sources
type SourceConfig struct {
	URL      string `toml:"url"`
	Interval string `toml:"interval"`
	Enabled  bool   `toml:"enabled"`
}

// ReferenceSourceConfig configures a reference rate page
type ReferenceSourceConfig struct {
	Headers   map[string]string `toml:"headers"`
	Name      string            `toml:"name"`
	URL       string            `toml:"url"`
	Side      string            `toml:"side"`
	Interval  string            `toml:"interval"`
	Selectors []string          `toml:"selectors"`
}

type SourcesConfig struct {
	Bloomberg  SourceConfig            `toml:"bloomberg"`
	SBS        SourceConfig            `toml:"sbs"`
	References []ReferenceSourceConfig `toml:"references"`
}

// PublishConfig configures the downstream systems quotes are pushed to.
// Empty URLs disable the publisher
type PublishConfig struct {
	NATSURL       string `toml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix"`
	WebhookURL    string `toml:"webhook_url"`

	// Chat webhook alerted with the failed sources of a run
	FailureWebhookURL string `toml:"failure_webhook_url"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Timeout:         httpclient.DefaultTimeout.String(),
			RateLimitMin:    httpclient.DefaultRateLimitMin.String(),
			RateLimitMax:    httpclient.DefaultRateLimitMax.String(),
			MaxRetries:      httpclient.DefaultMaxRetries,
			PoolConnections: httpclient.DefaultPoolConnections,
			PoolMaxSize:     httpclient.DefaultPoolMaxSize,
			VerifyTLS:       true,
		},
		Range: RangeConfig{
			Min: 1.0,
			Max: 10.0,
		},
		Sources: SourcesConfig{
			Bloomberg: SourceConfig{
				URL:      pen.BloombergURL,
				Interval: (15 * time.Minute).String(),
				Enabled:  true,
			},
			SBS: SourceConfig{
				URL:      pen.SBSURL,
				Interval: time.Hour.String(),
				Enabled:  true,
			},
		},
		Publish: PublishConfig{
			SubjectPrefix: "fxquotes",
		},
	}
}

// Read reads the configuration from the given path.
// Missing fields are filled in with the defaults
func Read(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	cfg := DefaultConfig()

	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	return cfg, nil
}

// Load reads and validates the configuration at the given path.
// An empty path yields the validated defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		var err error

		if cfg, err = Read(path); err != nil {
			return nil, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if err := validateClient(cfg.Client); err != nil {
		return fmt.Errorf("client: %w", err)
	}

	if cfg.Range.Min <= 0 || cfg.Range.Min >= cfg.Range.Max {
		return ErrInvalidRange
	}

	for name, source := range map[string]SourceConfig{
		"bloomberg": cfg.Sources.Bloomberg,
		"sbs":       cfg.Sources.SBS,
	} {
		if !source.Enabled {
			continue
		}

		if strings.TrimSpace(source.URL) == "" {
			return fmt.Errorf("%s: %w", name, ErrMissingSourceURL)
		}

		if _, err := parsePositive(source.Interval); err != nil {
			return fmt.Errorf("%s interval: %w", name, err)
		}
	}

	seen := map[string]struct{}{
		strings.ToLower(types.SourceBloomberg.String()): {},
		strings.ToLower(types.SourceSBS.String()):       {},
	}

	for i, ref := range cfg.Sources.References {
		if err := validateReference(ref); err != nil {
			return fmt.Errorf("reference #%d: %w", i, err)
		}

		key := strings.ToLower(ref.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, ref.Name)
		}

		seen[key] = struct{}{}
	}

	return nil
}

func validateClient(c ClientConfig) error {
	if _, err := parsePositive(c.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}

	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}

	minDelay, err := parseDuration(c.RateLimitMin)
	if err != nil {
		return fmt.Errorf("rate_limit_min: %w", err)
	}

	maxDelay, err := parseDuration(c.RateLimitMax)
	if err != nil {
		return fmt.Errorf("rate_limit_max: %w", err)
	}

	if minDelay < 0 || maxDelay < minDelay {
		return ErrInvalidRateLimit
	}

	return nil
}

func validateReference(ref ReferenceSourceConfig) error {
	if strings.TrimSpace(ref.Name) == "" {
		return ErrMissingReferenceName
	}

	if strings.TrimSpace(ref.URL) == "" {
		return ErrMissingReferenceURL
	}

	if ref.Side != "" && !types.Side(strings.ToUpper(ref.Side)).Valid() {
		return ErrInvalidReferenceSide
	}

	if ref.Interval != "" {
		if _, err := parsePositive(ref.Interval); err != nil {
			return fmt.Errorf("interval: %w", err)
		}
	}

	return nil
}

// ClientOptions converts the client section into client options.
// The configuration is expected to be validated
func (c *Config) ClientOptions() []httpclient.Option {
	var (
		timeout, _  = parseDuration(c.Client.Timeout)
		minDelay, _ = parseDuration(c.Client.RateLimitMin)
		maxDelay, _ = parseDuration(c.Client.RateLimitMax)
	)

	opts := []httpclient.Option{
		httpclient.WithTimeout(timeout),
		httpclient.WithMaxRetries(c.Client.MaxRetries),
		httpclient.WithPool(c.Client.PoolConnections, c.Client.PoolMaxSize),
		httpclient.WithRateLimit(minDelay, maxDelay),
		httpclient.WithVerifyTLS(c.Client.VerifyTLS),
	}

	if len(c.Client.Headers) > 0 {
		opts = append(opts, httpclient.WithHeaderProfile(httpclient.HeaderProfile{
			Base: c.Client.Headers,
		}))
	}

	return opts
}

// PlausibleRange returns the configured plausible range
func (c *Config) PlausibleRange() extract.Range {
	return extract.NewRange(c.Range.Min, c.Range.Max)
}

// ParsedInterval returns the run interval of the source, or zero if unset
func (s SourceConfig) ParsedInterval() time.Duration {
	d, _ := parseDuration(s.Interval)

	return d
}

// ParsedInterval returns the run interval of the reference, or zero if unset
func (r ReferenceSourceConfig) ParsedInterval() time.Duration {
	d, _ := parseDuration(r.Interval)

	return d
}

// ProviderConfig converts the reference section into a provider configuration
func (r ReferenceSourceConfig) ProviderConfig() pen.ReferenceConfig {
	return pen.ReferenceConfig{
		Source:    types.Source(r.Name),
		URL:       r.URL,
		Side:      types.Side(strings.ToUpper(r.Side)),
		Selectors: r.Selectors,
		Headers:   r.Headers,
	}
}

func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, v)
	}

	return d, nil
}

func parsePositive(v string) (time.Duration, error) {
	d, err := parseDuration(v)
	if err != nil {
		return 0, err
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidDuration, v)
	}

	return d, nil
}
