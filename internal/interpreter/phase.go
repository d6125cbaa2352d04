package interpreter

import (
	"context"

	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/store"
)

// handlePhaseTransitioned appends one ElectionPhase
// row per observed transition, tagged with the era being elected into (the
// current planned_era_id). Per-phase metrics are queried from chain state
// at the same block when available; any failure to fetch them just leaves
// those fields null, it never blocks the append.
func (ip *Interpreter) handlePhaseTransitioned(ctx context.Context, tx dbtx, fetcher StateFetcher, blockNumber uint64, timestamp int64, ev store.Event, p *chain.PhaseTransitionedPayload) error {
	if p.Round == nil {
		ip.warn(ctx, tx, nil, nil, blockNumber, store.WarningMissingEvent, "PhaseTransitioned missing round", timestamp)
		return errs.NewDataAbsence(errNoRound)
	}
	phaseName := store.ElectionPhasePayload(p.Phase)

	plannedEraID, err := ip.currentPlannedEra(ctx, fetcher, blockNumber)
	if err != nil {
		ip.logger.Warn("resolving planned era for election phase failed", zap.Error(err))
		return errs.NewDataAbsence(err)
	}
	if plannedEraID == nil {
		ip.warn(ctx, tx, nil, nil, blockNumber, store.WarningElectionIssue, "PhaseTransitioned with no resolvable planned era", timestamp)
		return errs.NewDataAbsence(errNoPlannedEra)
	}

	row := store.ElectionPhase{
		EraID:       *plannedEraID,
		BlockNumber: blockNumber,
		Round:       *p.Round,
		Phase:       phaseName,
		EventID:     ev.EventID,
		Timestamp:   timestamp,
	}

	state, err := fetcher.StateAtHeight(ctx, blockNumber)
	if err == nil && state != nil {
		switch phaseName {
		case store.PhaseSnapshot:
			row.ValidatorCandidates, _ = state.CounterForValidators(ctx)
			row.NominatorCandidates, _ = state.CounterForNominators(ctx)
			row.TargetValidatorCount, _ = state.ValidatorCount(ctx)
		case store.PhaseSigned:
			row.MinimumScore, _ = state.MinimumElectionScore(ctx)
		case store.PhaseSignedValidation:
			row.QueuedSolutionScore, _ = state.MinimumElectionScore(ctx)
		case store.PhaseExport, store.PhaseDone:
			row.ValidatorsElected, _ = state.ElectableStashes(ctx)
		}
	} else if err != nil {
		ip.logger.Warn("fetching state for election phase metrics failed", zap.Error(err))
	}

	return store.InsertElectionPhase(ctx, tx, row)
}

// currentPlannedEra resolves the era being elected into, by querying
// currentEra at this block — the same "planned era" source the session
// handler uses.
func (ip *Interpreter) currentPlannedEra(ctx context.Context, fetcher StateFetcher, blockNumber uint64) (*uint64, error) {
	state, err := fetcher.StateAtHeight(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return state.CurrentEra(ctx)
}

var (
	errNoRound      = errorString("PhaseTransitioned event carried no round")
	errNoPlannedEra = errorString("could not resolve planned era for election phase")
)
