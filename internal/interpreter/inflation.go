package interpreter

import (
	"context"

	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/bigint"
	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/store"
)

// handleEraPaid updates an era's inflation fields from an EraPaid event.
// If the era row does not exist the update is a no-op — it will be filled
// later once a boundary event creates the row. Numeric conversion
// failures are logged and leave all era fields untouched.
func (ip *Interpreter) handleEraPaid(ctx context.Context, tx dbtx, blockNumber uint64, timestamp int64, ev store.Event, p *chain.EraPaidPayload) error {
	if p.EraIndex == nil {
		ip.warn(ctx, tx, nil, nil, blockNumber, store.WarningMissingEvent, "EraPaid missing eraIndex", timestamp)
		return errs.NewDataAbsence(errNoEraIndex)
	}

	total, err := bigint.Add(p.ValidatorPayout, p.Remainder)
	if err != nil {
		ip.logger.Warn("EraPaid numeric conversion failed, era fields left untouched",
			zap.Uint64("era", *p.EraIndex), zap.Error(err))
		return errs.NewDataAbsence(err)
	}

	return store.ApplyInflation(ctx, tx, *p.EraIndex, p.ValidatorPayout, p.Remainder, total)
}

var errNoEraIndex = errorString("EraPaid event carried no eraIndex")
