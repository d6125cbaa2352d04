package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/store"
)

// stateFetcher adapts a live chain.Client into interpreter.StateFetcher by
// resolving a height to a block hash before asking for state at it.
type stateFetcher struct {
	client chain.Client
}

func (f *stateFetcher) StateAtHeight(ctx context.Context, height uint64) (chain.StateView, error) {
	hash, err := f.client.BlockHash(ctx, height)
	if err != nil {
		return nil, err
	}
	return f.client.StateAt(ctx, hash)
}

// sweepMissingEventWarnings implements the supplemental missing_event sweep:
// an election score submission stuck in "registered" for longer than
// interpreter.MissingEventWindow blocks likely missed its terminal event
// (Rewarded/Slashed/Ejected/Discarded/Bailed) and is worth surfacing.
func (p *Pipeline) sweepMissingEventWarnings(ctx context.Context) {
	latest, ok, err := p.Store.LatestBlock(ctx, p.ChainTag)
	if err != nil {
		p.Logger.Error("missing-event sweep: reading latest block failed", zap.Error(err))
		return
	}
	if !ok || latest < missingEventScan {
		return
	}
	cutoff := latest - missingEventScan

	stale, err := p.Store.StaleRegisteredScores(ctx, cutoff)
	if err != nil {
		p.Logger.Error("missing-event sweep: querying stale scores failed", zap.Error(err))
		return
	}

	for _, sc := range stale {
		already, err := p.Store.HasWarning(ctx, store.WarningMissingEvent, sc.BlockNumber)
		if err != nil {
			p.Logger.Error("missing-event sweep: checking existing warning failed", zap.Error(err))
			continue
		}
		if already {
			continue
		}
		w := store.Warning{
			EraID:       sc.EraID,
			BlockNumber: sc.BlockNumber,
			Type:        store.WarningMissingEvent,
			Message:     fmt.Sprintf("election score round=%d submitter=%s registered at block %d has no terminal event after %d blocks", sc.Round, sc.Submitter, sc.BlockNumber, missingEventScan),
			Severity:    store.SeverityWarning,
			Timestamp:   time.Now().UnixMilli(),
		}
		if err := store.InsertWarning(ctx, p.Store.DB(), w); err != nil {
			p.Logger.Error("missing-event sweep: inserting warning failed", zap.Error(err))
		}
	}
}
