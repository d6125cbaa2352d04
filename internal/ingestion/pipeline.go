// Package ingestion implements the per-chain ingestion pipeline: bounded-
// range initial backfill, live finalized-head subscription, periodic gap
// detection, and idempotent per-block processing with retry. One Pipeline
// runs per chain (RC or AH); the AH pipeline additionally drives the
// EventInterpreter, the RC pipeline only persists filtered blocks+events.
package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/interpreter"
	"github.com/dotstake/indexer/internal/store"
)

// errNotConnected is returned by processBlock when no client is currently
// live; the backoff/retry budget treats it like any other transient error,
// and exhaustion leaves the block for the next gap-filler sweep.
var errNotConnected = errors.New("ingestion: no connected client")

// ClientProvider is satisfied by *endpoint.Manager: the pipeline never
// dials a connection itself, it only ever asks for "whatever client is
// currently live" and tolerates nil (not yet connected / mid-failover).
type ClientProvider interface {
	Client() chain.Client
}

// gapFillInterval and gapFillWindow implement the 30s/"last 50 heights"
// durable safety net.
const (
	gapFillInterval  = 30 * time.Second
	gapFillWindow    = 50
	retryAttempts    = 3
	missingEventScan = interpreter.MissingEventWindow
)

// Pipeline drives one chain's ingestion: backfill, live subscription, and
// periodic gap filling.
type Pipeline struct {
	ChainTag   store.ChainTag
	FilterName string // "rc" or "ah", passed to chain.PassesFilter
	SyncWindow uint64

	Provider    ClientProvider
	Store       *store.Store
	Interpreter *interpreter.Interpreter // nil for RC: blocks+events only, no interpretation
	Logger      *zap.Logger
}

// Run executes startup backfill to completion, then runs live subscription
// and the gap filler as peer tasks until ctx is cancelled. The pipeline
// starts as a peer of its EndpointManager, so backfill simply retries until
// the manager has produced a connection and the initial sweep succeeds.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		err := p.backfill(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil
		}
		p.Logger.Warn("backfill attempt failed, retrying", zap.Error(err))
		if !sleepCtx(ctx, 5*time.Second) {
			return nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.liveMode(gctx) })
	g.Go(func() error { return p.gapFillerLoop(gctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// backfill enumerates missing heights in [max(1, finalized-N), finalized],
// reports progress, and processes them in ascending order.
func (p *Pipeline) backfill(ctx context.Context) error {
	client := p.Provider.Client()
	if client == nil {
		return errNotConnected
	}
	finalized, err := client.FinalizedHead(ctx)
	if err != nil {
		return err
	}

	from := uint64(1)
	if finalized > p.SyncWindow {
		from = finalized - p.SyncWindow
	}

	missing, err := p.Store.MissingHeights(ctx, p.ChainTag, from, finalized)
	if err != nil {
		return err
	}

	total := uint64(len(missing))
	if err := p.Store.SetSyncProgress(ctx, p.ChainTag, store.SyncProgress{
		CurrentHeight: from, TargetBlock: finalized, TotalMissingBlocks: total, IsSyncing: true,
	}); err != nil {
		p.Logger.Error("writing initial sync progress failed", zap.Error(err))
	}

	for i, height := range missing {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := p.processBlockWithRetry(ctx, height); err != nil {
			p.Logger.Error("block permanently failed during backfill, leaving for gap filler",
				zap.String("chain", string(p.ChainTag)), zap.Uint64("height", height), zap.Error(err))
		}
		if err := p.Store.SetSyncProgress(ctx, p.ChainTag, store.SyncProgress{
			CurrentHeight: height, TargetBlock: finalized, TotalMissingBlocks: total,
			SyncedBlocks: uint64(i + 1), IsSyncing: true, LastProcessedBlock: height,
		}); err != nil {
			p.Logger.Error("writing sync progress failed", zap.Error(err))
		}
	}

	return p.Store.SetSyncProgress(ctx, p.ChainTag, store.SyncProgress{
		CurrentHeight: finalized, TargetBlock: finalized, TotalMissingBlocks: total,
		SyncedBlocks: total, IsSyncing: false, LastProcessedBlock: finalized,
	})
}

// liveMode subscribes to finalized-head notifications and runs the
// per-block contract for each. A dropped
// subscription (closed channel) is recovered by resubscribing; a missed
// notification is recovered by the gap filler.
func (p *Pipeline) liveMode(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		client := p.Provider.Client()
		if client == nil {
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		heights, err := client.SubscribeFinalizedHeaders(ctx)
		if err != nil {
			p.Logger.Warn("subscribing to finalized headers failed, retrying", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		for height := range heights {
			if err := p.processBlockWithRetry(ctx, height); err != nil {
				p.Logger.Error("block permanently failed in live mode, leaving for gap filler",
					zap.String("chain", string(p.ChainTag)), zap.Uint64("height", height), zap.Error(err))
			}
			p.advanceCurrentHeight(ctx, height)
		}
		// Channel closed: subscription dropped. Loop back and resubscribe
		// against whatever client the EndpointManager has reconnected to.
		if ctx.Err() != nil {
			return nil
		}
	}
}

// gapFillerLoop is the durable safety net: every 30s, scan the last 50
// heights and reprocess any missing ones. It also piggy-backs the
// supplemental missing_event sweep on the same tick.
func (p *Pipeline) gapFillerLoop(ctx context.Context) error {
	ticker := time.NewTicker(gapFillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.fillGaps(ctx)
			if p.Interpreter != nil {
				p.sweepMissingEventWarnings(ctx)
			}
		}
	}
}

func (p *Pipeline) fillGaps(ctx context.Context) {
	latest, ok, err := p.Store.LatestBlock(ctx, p.ChainTag)
	if err != nil {
		p.Logger.Error("gap filler: reading latest block failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	from := uint64(1)
	if latest > gapFillWindow {
		from = latest - gapFillWindow
	}
	missing, err := p.Store.MissingHeights(ctx, p.ChainTag, from, latest)
	if err != nil {
		p.Logger.Error("gap filler: enumerating missing heights failed", zap.Error(err))
		return
	}
	for _, height := range missing {
		if err := p.processBlockWithRetry(ctx, height); err != nil {
			p.Logger.Warn("gap filler: block still failing", zap.Uint64("height", height), zap.Error(err))
		}
	}
}

// processBlockWithRetry wraps processBlock in a bounded retry/backoff
// budget: 3 attempts, with jittered exponential waits of about 1s and then
// 2s between them. After the last attempt the error is returned; callers
// log it and move on — the pipeline never aborts, the gap filler gets
// another shot.
func (p *Pipeline) processBlockWithRetry(ctx context.Context, height uint64) error {
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(4*time.Second),
	), retryAttempts-1)
	return backoff.Retry(func() error {
		return p.processBlock(ctx, height)
	}, backoff.WithContext(bo, ctx))
}

// ReimportBlock satisfies reimport.Processor: the reimport worker has
// already deleted the block row (cascading its events), so processBlock's
// existence check naturally falls through to a full re-fetch.
func (p *Pipeline) ReimportBlock(ctx context.Context, blockNumber uint64) error {
	return p.processBlock(ctx, blockNumber)
}

// processBlock is the idempotent per-block contract: skip if present, else
// fetch hash+timestamp+events, filter, persist, and interpret (AH only) —
// all in one logical transaction.
func (p *Pipeline) processBlock(ctx context.Context, height uint64) error {
	exists, err := p.Store.BlockExists(ctx, p.ChainTag, height)
	if err != nil {
		return err
	}
	if exists {
		p.advanceCurrentHeight(ctx, height)
		return nil
	}

	client := p.Provider.Client()
	if client == nil {
		return errNotConnected
	}

	hash, err := client.BlockHash(ctx, height)
	if err != nil {
		return err
	}
	state, err := client.StateAt(ctx, hash)
	if err != nil {
		return err
	}
	timestamp, err := state.Timestamp(ctx)
	if err != nil {
		return err
	}
	rawEvents, err := state.Events(ctx)
	if err != nil {
		return err
	}

	events := make([]store.Event, 0, len(rawEvents))
	for _, ev := range rawEvents {
		if !chain.PassesFilter(p.FilterName, ev.Type) {
			continue
		}
		events = append(events, store.Event{
			BlockNumber: height,
			EventID:     fmt.Sprintf("%d-%d", height, ev.Index),
			EventType:   ev.Type,
			Data:        ev.Data,
		})
	}

	block := store.Block{BlockNumber: height, Timestamp: timestamp}
	fetcher := &stateFetcher{client: client}

	err = p.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := store.InsertBlockWithEventsTx(ctx, tx, p.ChainTag, block, events); err != nil {
			return err
		}
		if p.Interpreter != nil {
			if err := p.Interpreter.ProcessBlock(ctx, tx, fetcher, height, timestamp, events); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.advanceCurrentHeight(ctx, height)
	return nil
}

// advanceCurrentHeight best-effort-updates the chain's current-height
// progress field without disturbing the rest of the snapshot. Failures are
// logged, not propagated: progress reporting never blocks ingestion.
func (p *Pipeline) advanceCurrentHeight(ctx context.Context, height uint64) {
	progress, err := p.Store.GetSyncProgress(ctx, p.ChainTag)
	if err != nil {
		p.Logger.Error("reading sync progress failed", zap.Error(err))
		return
	}
	progress.CurrentHeight = height
	if err := p.Store.SetSyncProgress(ctx, p.ChainTag, progress); err != nil {
		p.Logger.Error("writing sync progress failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
