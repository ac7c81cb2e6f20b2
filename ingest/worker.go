package ingest

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/fxquotes/storage/types"
)

// scheduledIngest is a single scheduled Provider ingest job
type scheduledIngest struct {
	at         time.Time
	provider   Provider
	providerID xid.ID
}

// Less is utilized to sort scheduled ingests by their due-time (latest == first)
func (a scheduledIngest) Less(b scheduledIngest) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the provider routine
type workerInfo struct {
	provider   Provider
	resCh      chan<- *workerResponse
	providerID xid.ID
	runID      xid.ID
}

// workerResponse is the provider routine response
type workerResponse struct {
	error      error         // encountered error, if any
	quotes     []types.Quote // the fetched quotes, possibly partial
	providerID xid.ID        // the provider ID
	runID      xid.ID        // the run ID
	took       time.Duration // the fetch duration
}

// handleJob fetches using the provider
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	start := time.Now()

	quotes, err := info.provider.Fetch(ctx)

	response := &workerResponse{
		error:      err,
		quotes:     quotes,
		providerID: info.providerID,
		runID:      info.runID,
		took:       time.Since(start),
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}
