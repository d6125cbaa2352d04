// Package reimport implements a poller that drains the pending reimport
// queue, deleting and reprocessing the named block through the same
// per-block contract the ingestion pipeline uses, up to a bounded
// concurrency.
package reimport

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/store"
)

// MaxConcurrent bounds simultaneous in-flight reimports.
const MaxConcurrent = 5

// PollInterval is how often the worker checks for newly pending requests.
const PollInterval = 5 * time.Second

// Processor reprocesses one block on one chain through the ingestion
// pipeline's per-block contract. Implemented by *ingestion.Pipeline.
type Processor interface {
	ReimportBlock(ctx context.Context, blockNumber uint64) error
}

// Worker drains the reimport queue, dispatching each chain's requests to
// the matching Processor.
type Worker struct {
	Store      *store.Store
	Processors map[store.ReimportChain]Processor
	Logger     *zap.Logger
}

// Run polls the queue until ctx is cancelled, claiming and processing up to
// MaxConcurrent requests per tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	claimed, err := w.Store.ClaimPendingReimports(ctx, MaxConcurrent)
	if err != nil {
		w.Logger.Error("claiming pending reimports failed", zap.Error(err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	done := make(chan struct{}, len(claimed))
	for _, req := range claimed {
		req := req
		go func() {
			defer func() { done <- struct{}{} }()
			w.process(ctx, req)
		}()
	}
	for range claimed {
		<-done
	}
}

// process deletes the existing block row (cascading its events) and
// re-runs the per-block contract for it.
func (w *Worker) process(ctx context.Context, req store.ReimportRequest) {
	// One correlation id per run ties the delete/reprocess/complete log
	// lines together across the five concurrent goroutines.
	logger := w.Logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("chain", string(req.Chain)),
		zap.Uint64("block_number", req.BlockNumber),
	)

	proc, ok := w.Processors[req.Chain]
	if !ok {
		logger.Error("no processor registered for reimport chain")
		_ = w.Store.CompleteReimport(ctx, req.ID, false, "no processor registered for chain")
		return
	}

	chainTag := store.ChainRC
	if req.Chain == store.ReimportChainAH {
		chainTag = store.ChainAH
	}
	if err := w.Store.DeleteBlock(ctx, chainTag, req.BlockNumber); err != nil {
		logger.Error("deleting block before reimport failed", zap.Error(err))
		_ = w.Store.CompleteReimport(ctx, req.ID, false, err.Error())
		return
	}

	if err := proc.ReimportBlock(ctx, req.BlockNumber); err != nil {
		logger.Error("reimport failed", zap.Error(err))
		_ = w.Store.CompleteReimport(ctx, req.ID, false, err.Error())
		return
	}

	if err := w.Store.CompleteReimport(ctx, req.ID, true, ""); err != nil {
		logger.Error("marking reimport complete failed", zap.Error(err))
	}
}
