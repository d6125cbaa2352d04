package interpreter

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/store"
)

// timingDeviationFactor is the "timing" warning trigger: a session boundary
// whose gap from the previous session's activation timestamp deviates by
// more than 50% of the expected envelope derived from the start times of
// the active era and the era before it.
const timingDeviationFactor = 0.5

// handleSessionReportReceived handles the single event
// that drives the entire era/session state machine.
func (ip *Interpreter) handleSessionReportReceived(ctx context.Context, tx dbtx, fetcher StateFetcher, blockNumber uint64, ev store.Event, p *chain.SessionReportReceivedPayload) error {
	if p.EndIndex == nil {
		ip.warn(ctx, tx, nil, nil, blockNumber, store.WarningMissingEvent, "SessionReportReceived missing endIndex", 0)
		return errs.NewDataAbsence(errNoEndIndex)
	}
	endIndex := *p.EndIndex

	prevState, err := fetcher.StateAtHeight(ctx, prevHeight(blockNumber))
	if err != nil {
		return errs.NewTransient(err)
	}
	var activeEraAtPrev *uint64
	if prevState != nil {
		activeEraAtPrev, err = prevState.ActiveEra(ctx)
		if err != nil {
			ip.logger.Warn("querying activeEra@n-1 failed", zap.Error(err))
		}
	}

	curState, err := fetcher.StateAtHeight(ctx, blockNumber)
	if err != nil {
		return errs.NewTransient(err)
	}
	var activeEraAtCur, currentEraAtCur *uint64
	if curState != nil {
		activeEraAtCur, err = curState.ActiveEra(ctx)
		if err != nil {
			ip.logger.Warn("querying activeEra@n failed", zap.Error(err))
		}
		currentEraAtCur, err = curState.CurrentEra(ctx)
		if err != nil {
			ip.logger.Warn("querying currentEra@n failed", zap.Error(err))
		}
	}

	var validatorPoints uint64
	if p.ValidatorPointsCounts != nil {
		validatorPoints = *p.ValidatorPointsCounts
	}

	var activationTS *int64
	if p.ActivationTimestamp != nil {
		ts := p.ActivationTimestamp.Timestamp
		activationTS = &ts
	}

	// Step 3: persist the ended session.
	ended := store.Session{
		SessionID:            endIndex,
		BlockNumber:          &blockNumber,
		ActivationTimestamp:  activationTS,
		ActiveEraID:          activeEraAtPrev,
		PlannedEraID:         currentEraAtCur,
		ValidatorPointsTotal: validatorPoints,
	}
	if err := store.UpsertSession(ctx, tx, ended); err != nil {
		return err
	}

	ip.checkTiming(ctx, tx, blockNumber, endIndex, activeEraAtPrev, activationTS)

	// Step 4: pre-create the next session, era ids taken from the n view.
	next := store.Session{
		SessionID:    endIndex + 1,
		ActiveEraID:  activeEraAtCur,
		PlannedEraID: currentEraAtCur,
	}
	if err := store.UpsertSession(ctx, tx, next); err != nil {
		return err
	}

	// Step 5: era boundary.
	if p.ActivationTimestamp != nil {
		newEraID := p.ActivationTimestamp.EraID
		closed, err := store.CloseEraSessionEnd(ctx, tx, endIndex)
		if err != nil {
			return err
		}
		if !closed {
			ip.warn(ctx, tx, &newEraID, nil, blockNumber, store.WarningUnexpectedEvent, "era boundary with no previously-open era", p.ActivationTimestamp.Timestamp)
		}

		if err := store.UpsertEra(ctx, tx, store.Era{
			EraID:        newEraID,
			SessionStart: endIndex + 1,
			SessionEnd:   nil,
			StartTime:    p.ActivationTimestamp.Timestamp,
		}); err != nil {
			return err
		}

		nextWithEra := store.Session{
			SessionID:   endIndex + 1,
			ActiveEraID: &newEraID,
		}
		if err := store.UpsertSession(ctx, tx, nextWithEra); err != nil {
			return err
		}
	}

	return nil
}

// prevHeight returns n-1, floored at 0 (there is no block before genesis).
func prevHeight(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return n - 1
}

// checkTiming emits the "timing" warning:
// flag a session boundary whose gap from the previous
// session's activation timestamp falls outside +/-50% of the expected
// per-session duration, derived from the two most recent consecutive eras'
// start_time once at least one full era has completed. Best-effort: any
// failure to resolve that envelope just skips the check.
func (ip *Interpreter) checkTiming(ctx context.Context, tx dbtx, blockNumber, endIndex uint64, activeEraAtPrev *uint64, activationTS *int64) {
	if activationTS == nil || activeEraAtPrev == nil || *activeEraAtPrev == 0 {
		return
	}
	prevSession, err := store.SessionByIDTx(ctx, tx, endIndex-1)
	if err != nil || prevSession == nil || prevSession.ActivationTimestamp == nil {
		return
	}
	era, err := store.EraByIDTx(ctx, tx, *activeEraAtPrev)
	if err != nil || era == nil {
		return
	}
	priorEra, err := store.EraByIDTx(ctx, tx, era.EraID-1)
	if err != nil || priorEra == nil {
		return
	}
	sessionSpan := era.SessionStart - priorEra.SessionStart
	if sessionSpan == 0 {
		return
	}
	expected := float64(era.StartTime-priorEra.StartTime) / float64(sessionSpan)
	if expected <= 0 {
		return
	}
	actual := float64(*activationTS - *prevSession.ActivationTimestamp)
	if math.Abs(actual-expected) > expected*timingDeviationFactor {
		ip.warn(ctx, tx, activeEraAtPrev, nil, blockNumber, store.WarningTiming,
			"session boundary interval outside expected envelope", *activationTS)
	}
}

var errNoEndIndex = errorString("SessionReportReceived event carried no endIndex")

type errorString string

func (e errorString) Error() string { return string(e) }
