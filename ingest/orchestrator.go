package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/fxquotes/extract"
	"github.com/sig-0/fxquotes/publish"
	"github.com/sig-0/fxquotes/storage"
	"github.com/sig-0/fxquotes/storage/types"
)

var (
	errInvalidProvider = errors.New("invalid provider")
	errInvalidInterval = errors.New("invalid interval")
)

const (
	defaultRetryDelay = 10 * time.Second
	saveTimeout       = 10 * time.Second
	publishTimeout    = 30 * time.Second
)

// Orchestrator is the main job scheduler for registered providers
type Orchestrator struct {
	storage   storage.Storage
	publisher publish.Publisher
	logger    *slog.Logger

	registeredProviders sync.Map

	q             iq.Queue[scheduledIngest]
	queryInterval time.Duration
	retryDelay    time.Duration
	qMux          sync.Mutex
}

// New creates a new Orchestrator instance
func New(storage storage.Storage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		storage:       storage,
		q:             iq.NewQueue[scheduledIngest](),
		queryInterval: time.Second, // every second
		retryDelay:    defaultRetryDelay,
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Register registers a new provider with the orchestrator.
// The provider is immediately queued up for execution
func (o *Orchestrator) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return errInvalidProvider
	}

	if p.Interval() <= 0 {
		return errInvalidInterval
	}

	// Register the provider
	id := xid.New()
	o.registeredProviders.Store(id, p)

	o.logger.Info(
		"registered new provider",
		"name", p.Name(),
		"interval", p.Interval().String(),
	)

	// Schedule the job
	o.scheduleIngest(
		time.Now().UTC(),
		id,
		p,
	)

	return nil
}

// Start starts the provider orchestration service loop [BLOCKING]
func (o *Orchestrator) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100)

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(o.queryInterval)
	defer ticker.Stop()

	// handleIngest initializes all jobs that are executable (due)
	handleIngest := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				nextSI := o.nextIngest()
				if nextSI == nil {
					return // nothing to schedule anymore
				}

				info := &workerInfo{
					provider:   nextSI.provider,
					providerID: nextSI.providerID,
					runID:      xid.New(),
					resCh:      collectorCh,
				}

				o.logger.Info(
					"scheduling ingest",
					"name", nextSI.provider.Name(),
					"run", info.runID.String(),
				)

				// Spawn worker
				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleIngest()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator service shut down")

			return nil
		case <-ticker.C:
			handleIngest()
		case response := <-collectorCh:
			o.handleResponse(ctx, response)
		}
	}
}

// handleResponse saves and publishes the quotes of a finished run,
// and reschedules its provider
func (o *Orchestrator) handleResponse(ctx context.Context, response *workerResponse) {
	now := time.Now().UTC()

	rpRaw, ok := o.registeredProviders.Load(response.providerID)
	if !ok {
		o.logger.Error(
			"unable to load registered provider",
			"id", response.providerID.String(),
		)

		return
	}

	rp, _ := rpRaw.(Provider)

	if response.error != nil {
		o.logFailure(rp, response)
	}

	// Partial results are saved and published as well
	saved := o.saveQuotes(ctx, response.quotes)
	o.publishQuotes(ctx, rp, saved)

	next := now.Add(rp.Interval())
	if response.error != nil {
		// Retry ingest job soon
		next = now.Add(o.retryDelay)
	}

	o.logger.Info(
		"ingest finished",
		"name", rp.Name(),
		"run", response.runID.String(),
		"quotes", len(saved),
		"took", response.took.String(),
		"next", next.Format(time.RFC3339),
	)

	// Schedule a new ingest for this provider
	o.scheduleIngest(
		next,
		response.providerID,
		rp,
	)
}

func (o *Orchestrator) logFailure(rp Provider, response *workerResponse) {
	var failure *extract.Failure

	if !errors.As(response.error, &failure) {
		o.logger.Error(
			"error encountered during quote fetch",
			"name", rp.Name(),
			"run", response.runID.String(),
			"err", response.error.Error(),
		)

		return
	}

	// Business failures are expected, the source is simply retried
	o.logger.Warn(
		"quote fetch failed",
		"name", rp.Name(),
		"run", response.runID.String(),
		"kind", failure.Kind.String(),
		"reason", failure.Reason,
	)
}

// saveQuotes saves the quotes, returning the ones that were saved
func (o *Orchestrator) saveQuotes(ctx context.Context, quotes []types.Quote) []types.Quote {
	saved := make([]types.Quote, 0, len(quotes))

	for _, quote := range quotes {
		saveCtx, cancelFn := context.WithTimeout(ctx, saveTimeout)
		err := o.storage.SaveQuote(saveCtx, quote)

		cancelFn()

		if err != nil {
			o.logger.Error(
				"unable to save quote",
				"source", quote.Source,
				"pair", quote.Pair.String(),
				"side", quote.Side,
				"err", err,
			)

			continue
		}

		o.logger.Info(
			"saved quote",
			"source", quote.Source,
			"pair", quote.Pair.String(),
			"side", quote.Side,
			"value", quote.Value.String(),
			"fetched_at", quote.FetchedAt.String(),
		)

		saved = append(saved, quote)
	}

	return saved
}

func (o *Orchestrator) publishQuotes(ctx context.Context, rp Provider, quotes []types.Quote) {
	if o.publisher == nil || len(quotes) == 0 {
		return
	}

	publishCtx, cancelFn := context.WithTimeout(ctx, publishTimeout)
	defer cancelFn()

	if err := o.publisher.Publish(publishCtx, quotes); err != nil {
		o.logger.Error(
			"unable to publish quotes",
			"name", rp.Name(),
			"err", err,
		)
	}
}

// scheduleIngest schedules a new provider ingest
func (o *Orchestrator) scheduleIngest(
	at time.Time,
	providerID xid.ID,
	provider Provider,
) {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	futureSI := scheduledIngest{
		at:         at,
		providerID: providerID,
		provider:   provider,
	}

	o.q.Push(futureSI)
}

// nextIngest fetches the next due ingest job, as of the moment of calling
func (o *Orchestrator) nextIngest() *scheduledIngest {
	o.qMux.Lock()
	defer o.qMux.Unlock()

	now := time.Now().UTC()

	// Check if anything needs to be scheduled
	if o.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if o.q.Index(0).at.After(now) {
		return nil // nothing to schedule, latest job is in the future
	}

	// Grab the next job
	nextSI := o.q.PopFront()

	return nextSI
}
