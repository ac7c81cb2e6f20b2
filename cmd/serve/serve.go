package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/fxquotes/cmd/env"
	"github.com/sig-0/fxquotes/cmd/pipeline"
	fxconfig "github.com/sig-0/fxquotes/config"
	"github.com/sig-0/fxquotes/ingest"
	"github.com/sig-0/fxquotes/server"
	"github.com/sig-0/fxquotes/server/config"
	"github.com/sig-0/fxquotes/storage/memory"
)

const defaultRetryDelay = 10 * time.Second

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath  string
	sourcesPath string

	retryDelay time.Duration
}

// NewServeCmd creates the serve command
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve [flags]",
		LongHelp:   "Periodically scrapes the configured sources and serves the latest quotes",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.sourcesPath,
		"sources",
		"",
		"the path to the sources TOML configuration, if any",
	)

	fs.DurationVar(
		&c.retryDelay,
		"retry-delay",
		defaultRetryDelay,
		"how soon a failed source is scraped again",
	)
}

// exec executes the serve command
func (c *serveCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if c.configPath != "" {
		serverCfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		// The flag wins over the file
		if c.config.ListenAddress != config.DefaultListenAddress {
			serverCfg.ListenAddress = c.config.ListenAddress
		}

		c.config = serverCfg
	}

	// Create a new logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Read the sources configuration
	sourcesCfg, err := fxconfig.Load(c.sourcesPath)
	if err != nil {
		return fmt.Errorf("unable to load sources config, %w", err)
	}

	pipeline.ApplyEnv(sourcesCfg)

	// Set up the downstream publishers
	publishers, closePublishers, err := pipeline.Publishers(sourcesCfg.Publish, logger)
	if err != nil {
		return fmt.Errorf("unable to set up publishers, %w", err)
	}

	defer closePublishers()

	// Create an in-memory latest quote board
	store := memory.NewStorage()

	// Create the ingestion service
	opts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithRetryDelay(c.retryDelay),
	}

	if len(publishers) > 0 {
		opts = append(opts, ingest.WithPublisher(publishers))
	}

	orchestrator := ingest.New(store, opts...)

	// Every source gets its own client
	clients := pipeline.NewClients(logger, sourcesCfg.ClientOptions()...)

	defer func() {
		if err := clients.Close(); err != nil {
			logger.Error("unable to close http clients", "err", err)
		}
	}()

	if err = registerProviders(orchestrator, sourcesCfg, clients, logger); err != nil {
		return err
	}

	// Create the server instance
	s, err := server.New(
		store,
		server.WithLogger(logger),
		server.WithConfig(c.config),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the ingestion service
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	return group.Wait()
}
