package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxquotes/provider/pen"
	"github.com/sig-0/fxquotes/storage/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fxquotes.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{
			"invalid timeout",
			func(c *Config) { c.Client.Timeout = "soon" },
			ErrInvalidDuration,
		},
		{
			"zero timeout",
			func(c *Config) { c.Client.Timeout = "0s" },
			ErrInvalidDuration,
		},
		{
			"negative retries",
			func(c *Config) { c.Client.MaxRetries = -1 },
			ErrInvalidRetries,
		},
		{
			"inverted rate limit",
			func(c *Config) {
				c.Client.RateLimitMin = "3s"
				c.Client.RateLimitMax = "1s"
			},
			ErrInvalidRateLimit,
		},
		{
			"inverted range",
			func(c *Config) {
				c.Range.Min = 10
				c.Range.Max = 1
			},
			ErrInvalidRange,
		},
		{
			"missing bloomberg interval",
			func(c *Config) { c.Sources.Bloomberg.Interval = "" },
			ErrInvalidDuration,
		},
		{
			"missing sbs url",
			func(c *Config) { c.Sources.SBS.URL = "  " },
			ErrMissingSourceURL,
		},
		{
			"missing reference url",
			func(c *Config) {
				c.Sources.References = []ReferenceSourceConfig{{Name: "Ref"}}
			},
			ErrMissingReferenceURL,
		},
		{
			"missing reference name",
			func(c *Config) {
				c.Sources.References = []ReferenceSourceConfig{{URL: "https://example.com"}}
			},
			ErrMissingReferenceName,
		},
		{
			"invalid reference side",
			func(c *Config) {
				c.Sources.References = []ReferenceSourceConfig{{
					Name: "Ref",
					URL:  "https://example.com",
					Side: "bid",
				}}
			},
			ErrInvalidReferenceSide,
		},
		{
			"reference shadows built-in source",
			func(c *Config) {
				c.Sources.References = []ReferenceSourceConfig{{
					Name: "sbs",
					URL:  "https://example.com",
				}}
			},
			ErrDuplicateSource,
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			testCase.modify(cfg)

			assert.ErrorIs(t, Validate(cfg), testCase.expected)
		})
	}

	t.Run("disabled source skips checks", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Sources.SBS.Enabled = false
		cfg.Sources.SBS.Interval = ""
		cfg.Sources.SBS.URL = ""

		assert.NoError(t, Validate(cfg))
	})

	t.Run("valid configuration", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, Validate(DefaultConfig()))
	})
}

func TestConfig_Read(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Read(filepath.Join(t.TempDir(), "missing.toml"))

		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid toml", func(t *testing.T) {
		t.Parallel()

		_, err := Read(writeConfig(t, "[client"))

		assert.Error(t, err)
	})

	t.Run("full file", func(t *testing.T) {
		t.Parallel()

		content := `
[client]
timeout = "20s"
max_retries = 5
rate_limit_min = "2s"
rate_limit_max = "4s"
verify_tls = false

[range]
min = 2.5
max = 5.5

[sources.bloomberg]
enabled = false

[[sources.references]]
name = "Ref"
url = "https://ref.example.com/usd"
side = "sell"
selectors = ["#venta"]
interval = "30m"

[publish]
nats_url = "nats://localhost:4222"
`

		cfg, err := Read(writeConfig(t, content))
		require.NoError(t, err)
		require.NoError(t, Validate(cfg))

		assert.Equal(t, "20s", cfg.Client.Timeout)
		assert.Equal(t, 5, cfg.Client.MaxRetries)
		assert.False(t, cfg.Client.VerifyTLS)

		assert.False(t, cfg.Sources.Bloomberg.Enabled)

		// Untouched sections keep the defaults
		assert.True(t, cfg.Sources.SBS.Enabled)
		assert.Equal(t, pen.SBSURL, cfg.Sources.SBS.URL)
		assert.Equal(t, "fxquotes", cfg.Publish.SubjectPrefix)
		assert.Equal(t, "nats://localhost:4222", cfg.Publish.NATSURL)

		r := cfg.PlausibleRange()
		assert.True(t, decimal.NewFromFloat(2.5).Equal(r.Min))
		assert.True(t, decimal.NewFromFloat(5.5).Equal(r.Max))

		require.Len(t, cfg.Sources.References, 1)

		ref := cfg.Sources.References[0]
		assert.Equal(t, 30*time.Minute, ref.ParsedInterval())

		provider := ref.ProviderConfig()
		assert.Equal(t, types.Source("Ref"), provider.Source)
		assert.Equal(t, types.SideSELL, provider.Side)
		assert.Equal(t, []string{"#venta"}, provider.Selectors)
	})
}

func TestConfig_ClientOptions(t *testing.T) {
	t.Parallel()

	t.Run("rotated profile", func(t *testing.T) {
		t.Parallel()

		assert.Len(t, DefaultConfig().ClientOptions(), 5)
	})

	t.Run("fixed headers", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Client.Headers = map[string]string{"User-Agent": "fxquotes"}

		assert.Len(t, cfg.ClientOptions(), 6)
	})
}

func TestConfig_ParsedInterval(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, 15*time.Minute, cfg.Sources.Bloomberg.ParsedInterval())
	assert.Equal(t, time.Hour, cfg.Sources.SBS.ParsedInterval())
	assert.Zero(t, ReferenceSourceConfig{}.ParsedInterval())
}

func TestConfig_Load(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("invalid file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeConfig(t, "[range]\nmin = 5.0\nmax = 4.0\n"))

		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}
