package store

import (
	"context"
)

// EventsByEraAH returns the AH events attributable to one era: the event
// range [prev_session.block+1, last_session.block], widened to also
// include every election_phases row for that era (phases for era E are
// emitted during era E-1, so they fall outside the plain block range).
func (s *Store) EventsByEraAH(ctx context.Context, eraID uint64) ([]Event, []ElectionPhase, error) {
	era, err := s.EraByID(ctx, eraID)
	if err != nil {
		return nil, nil, err
	}
	if era == nil {
		return nil, nil, nil
	}

	var fromBlock uint64
	if era.SessionStart > 0 {
		if prevSession, err := s.SessionByID(ctx, era.SessionStart-1); err != nil {
			return nil, nil, err
		} else if prevSession != nil && prevSession.BlockNumber != nil {
			fromBlock = *prevSession.BlockNumber + 1
		}
	}

	var toBlock uint64
	lastSessionID := era.SessionStart
	if era.SessionEnd != nil {
		lastSessionID = *era.SessionEnd
	} else if sessions, err := s.SessionsByEra(ctx, eraID); err != nil {
		return nil, nil, err
	} else if len(sessions) > 0 {
		lastSessionID = sessions[len(sessions)-1].SessionID
	}
	if lastSession, err := s.SessionByID(ctx, lastSessionID); err != nil {
		return nil, nil, err
	} else if lastSession != nil && lastSession.BlockNumber != nil {
		toBlock = *lastSession.BlockNumber
	}

	phases, err := s.ElectionPhasesByEra(ctx, eraID)
	if err != nil {
		return nil, nil, err
	}
	for _, ph := range phases {
		if ph.BlockNumber < fromBlock {
			fromBlock = ph.BlockNumber
		}
		if ph.BlockNumber > toBlock {
			toBlock = ph.BlockNumber
		}
	}

	var events []Event
	if toBlock >= fromBlock && toBlock > 0 {
		events, err = s.EventsInRange(ctx, ChainAH, fromBlock, toBlock)
		if err != nil {
			return nil, nil, err
		}
	}
	return events, phases, nil
}
