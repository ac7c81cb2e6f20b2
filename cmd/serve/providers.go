package serve

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sig-0/fxquotes/cmd/pipeline"
	"github.com/sig-0/fxquotes/config"
	"github.com/sig-0/fxquotes/ingest"
)

var errNoProviders = errors.New("no sources enabled")

// registerProviders registers every enabled source with the orchestrator
func registerProviders(
	orchestrator *ingest.Orchestrator,
	cfg *config.Config,
	clients *pipeline.Clients,
	logger *slog.Logger,
) error {
	providers, err := pipeline.Providers(cfg, clients.Fetcher, logger)
	if err != nil {
		return fmt.Errorf("unable to create providers: %w", err)
	}

	if len(providers) == 0 {
		return errNoProviders
	}

	for _, provider := range providers {
		if err = orchestrator.Register(provider); err != nil {
			return fmt.Errorf("unable to register provider: %w", err)
		}
	}

	return nil
}
