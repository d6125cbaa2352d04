package interpreter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/store"
)

// handleElectionSigned runs the (round, submitter)
// election-score submission state machine. Unknown sub-event names are
// silently ignored (ParsePayload tags every multiBlockElectionSigned
// method KindElectionSigned, so the sub-event is checked here first).
// Missing round or submitter triggers a warning and no write.
func (ip *Interpreter) handleElectionSigned(ctx context.Context, tx dbtx, fetcher StateFetcher, blockNumber uint64, ev store.Event, p *chain.ElectionSignedPayload) error {
	switch p.SubEvent {
	case "Registered", "Rewarded", "Slashed", "Ejected", "Discarded", "Bailed":
	default:
		return nil
	}
	if p.Round == nil || p.Submitter == "" {
		ip.warn(ctx, tx, nil, nil, blockNumber, store.WarningMissingEvent, "election score event missing round or submitter", 0)
		return errs.NewDataAbsence(errNoRoundOrSubmitter)
	}
	round := *p.Round
	now := time.Now().UnixMilli()

	eraID := ip.resolveEraIDBestEffort(ctx, tx, fetcher, blockNumber, round, p.Submitter)

	switch p.SubEvent {
	case "Registered":
		return store.UpsertElectionScoreRegistered(ctx, tx, round, p.Submitter, blockNumber,
			p.MinimalStake, p.SumStake, p.SumStakeSquared, eraID, now)
	case "Rewarded":
		return store.TransitionElectionScore(ctx, tx, round, p.Submitter, store.ScoreRewarded, blockNumber, eraID, now)
	case "Slashed":
		return store.TransitionElectionScore(ctx, tx, round, p.Submitter, store.ScoreSlashed, blockNumber, eraID, now)
	case "Ejected":
		return store.TransitionElectionScore(ctx, tx, round, p.Submitter, store.ScoreEjected, blockNumber, eraID, now)
	case "Discarded":
		return store.TransitionElectionScore(ctx, tx, round, p.Submitter, store.ScoreDiscarded, blockNumber, eraID, now)
	case "Bailed":
		return store.TransitionElectionScore(ctx, tx, round, p.Submitter, store.ScoreBailed, blockNumber, eraID, now)
	default:
		// Unknown sub-event: silently ignored.
		return nil
	}
}

// resolveEraIDBestEffort fills in era_id when currently unknown for the
// row, by querying activeEra at this block. Failures never block the
// write — the row is saved with era_id = null.
func (ip *Interpreter) resolveEraIDBestEffort(ctx context.Context, tx dbtx, fetcher StateFetcher, blockNumber, round uint64, submitter string) *uint64 {
	existing, err := store.ElectionScoreByKey(ctx, tx, round, submitter)
	if err == nil && existing != nil && existing.EraID != nil {
		return existing.EraID
	}

	state, err := fetcher.StateAtHeight(ctx, blockNumber)
	if err != nil || state == nil {
		return nil
	}
	eraID, err := state.ActiveEra(ctx)
	if err != nil {
		ip.logger.Warn("resolving era_id for election score failed", zap.Error(err))
		return nil
	}
	return eraID
}

var errNoRoundOrSubmitter = errorString("election score event missing round or submitter")
