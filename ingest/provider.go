package ingest

import (
	"context"
	"time"

	"github.com/sig-0/fxquotes/storage/types"
)

// Provider is a single quote source
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Interval returns the interval at which the provider should be called
	Interval() time.Duration

	// Fetch is the provider's main fetch job, yielding validated quotes.
	// A provider may return quotes together with an error (partial results)
	Fetch(context.Context) ([]types.Quote, error)
}
