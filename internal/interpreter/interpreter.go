// Package interpreter derives staking state from chain events: the
// pure(ish) derivation of sessions, eras, election phases, and election
// score submissions from the small family of AH events that drive the
// state machine. Relay-chain events never reach this package — they are
// persisted verbatim by the ingestion pipeline and never interpreted.
//
// Every handler re-reads whatever Store state it needs rather than
// keeping an in-memory domain graph, so the
// state machines tolerate out-of-order or concurrent block processing.
package interpreter

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/store"
)

// StateFetcher resolves a StateView for a historical AH block height,
// abstracting over the block-hash lookup + state_call round trip so the
// interpreter itself only ever talks in heights. Implemented by the
// IngestionPipeline over its chain.Client.
type StateFetcher interface {
	StateAtHeight(ctx context.Context, height uint64) (chain.StateView, error)
}

// MissingEventWindow is the default number of AH blocks a registered score
// submission may go without a terminal event before the gap-filler sweep
// (internal/ingestion) flags it with a missing_event warning.
const MissingEventWindow = 200

// Interpreter derives Store mutations from AH events. It holds
// no mutable state of its own beyond its dependencies.
type Interpreter struct {
	db     *sql.DB
	logger *zap.Logger
}

// New constructs an Interpreter writing through the given database handle.
// db is taken directly (rather than *store.Store) so handlers can run
// inside the caller's per-block transaction (fetch → persist
// → interpret is one logical transaction).
func New(db *sql.DB, logger *zap.Logger) *Interpreter {
	return &Interpreter{db: db, logger: logger}
}

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ProcessBlock dispatches every already-persisted AH event at blockNumber
// to its handler, in ingestion order. fetcher resolves
// chain state at this block and the previous one for the historical
// queries the session and phase handlers require. Errors from individual handlers are
// caught and logged rather than propagated — no failure of one handler may
// abort the rest of the block — except Store/transaction errors, which
// bubble up so the per-block contract's retry budget covers them too.
func (ip *Interpreter) ProcessBlock(ctx context.Context, tx dbtx, fetcher StateFetcher, blockNumber uint64, timestamp int64, events []store.Event) error {
	for _, ev := range events {
		raw := chain.RawEvent{Type: ev.EventType, Data: ev.Data}
		payload, err := chain.ParsePayload(raw)
		if err != nil {
			ip.logger.Warn("discarding unparseable event payload",
				zap.String("event_id", ev.EventID), zap.String("event_type", ev.EventType), zap.Error(err))
			continue
		}

		var handleErr error
		switch payload.Kind {
		case chain.KindSessionReportReceived:
			handleErr = ip.handleSessionReportReceived(ctx, tx, fetcher, blockNumber, ev, payload.SessionReportReceived)
		case chain.KindEraPaid:
			handleErr = ip.handleEraPaid(ctx, tx, blockNumber, timestamp, ev, payload.EraPaid)
		case chain.KindPhaseTransitioned:
			handleErr = ip.handlePhaseTransitioned(ctx, tx, fetcher, blockNumber, timestamp, ev, payload.PhaseTransitioned)
		case chain.KindElectionSigned:
			handleErr = ip.handleElectionSigned(ctx, tx, fetcher, blockNumber, ev, payload.ElectionSigned)
		default:
			continue
		}

		if handleErr == nil {
			continue
		}
		if errs.IsTransient(handleErr) {
			// Store/transaction failures are the caller's retry budget to
			// spend: the per-block contract counts them as retryable.
			return handleErr
		}
		ip.logger.Warn("event handler reported data absence",
			zap.String("event_id", ev.EventID), zap.String("event_type", ev.EventType), zap.Error(handleErr))
	}
	return nil
}

func (ip *Interpreter) warn(ctx context.Context, tx dbtx, eraID, sessionID *uint64, blockNumber uint64, warnType, message string, timestamp int64) {
	w := store.Warning{
		EraID: eraID, SessionID: sessionID, BlockNumber: blockNumber,
		Type: warnType, Message: message, Severity: store.SeverityWarning, Timestamp: timestamp,
	}
	if err := store.InsertWarning(ctx, tx, w); err != nil {
		ip.logger.Error("failed to record warning", zap.Error(err), zap.String("warning_type", warnType))
	}
}
