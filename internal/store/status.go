package store

import (
	"context"
	"time"
)

// SyncStatus is the ChainSyncInfo.status enum.
type SyncStatus string

const (
	StatusSyncing   SyncStatus = "syncing"
	StatusInSync    SyncStatus = "in-sync"
	StatusOutOfSync SyncStatus = "out-of-sync"
)

// inSyncWindow is the "last block age" threshold used to call a chain in-sync.
const inSyncWindow = 60 * time.Second

// ChainSyncInfo is one chain's half of get_status().
type ChainSyncInfo struct {
	Status          SyncStatus
	LastBlockNumber uint64
	LastBlockTime   int64
	CurrentHeight   uint64
	SyncProgress    *float64
}

// Status is the full get_status() response.
type Status struct {
	CurrentEra     *uint64
	CurrentSession *uint64
	RelayChain     ChainSyncInfo
	AssetHub       ChainSyncInfo
}

// GetStatus reports currentEra/currentSession from the open era/latest
// session, and per-chain sync info derived from indexer_state and the
// latest block row.
func (s *Store) GetStatus(ctx context.Context, now time.Time) (Status, error) {
	var st Status

	era, err := s.ActiveEra(ctx)
	if err != nil {
		return st, err
	}
	if era != nil {
		st.CurrentEra = &era.EraID
	}

	sessions, err := s.RecentSessions(ctx, 1)
	if err != nil {
		return st, err
	}
	if len(sessions) > 0 {
		st.CurrentSession = &sessions[0].SessionID
	}

	st.RelayChain, err = s.chainSyncInfo(ctx, ChainRC, now)
	if err != nil {
		return st, err
	}
	st.AssetHub, err = s.chainSyncInfo(ctx, ChainAH, now)
	if err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) chainSyncInfo(ctx context.Context, chain ChainTag, now time.Time) (ChainSyncInfo, error) {
	progress, err := s.GetSyncProgress(ctx, chain)
	if err != nil {
		return ChainSyncInfo{}, err
	}

	info := ChainSyncInfo{CurrentHeight: progress.CurrentHeight}

	latest, ok, err := s.LatestBlock(ctx, chain)
	if err != nil {
		return ChainSyncInfo{}, err
	}
	if ok {
		block, err := s.BlockByNumber(ctx, chain, latest)
		if err != nil {
			return ChainSyncInfo{}, err
		}
		if block != nil {
			info.LastBlockNumber = block.BlockNumber
			info.LastBlockTime = block.Timestamp
		}
	}

	switch {
	case progress.IsSyncing:
		info.Status = StatusSyncing
		if progress.TotalMissingBlocks > 0 {
			p := float64(progress.SyncedBlocks) / float64(progress.TotalMissingBlocks)
			info.SyncProgress = &p
		}
	case info.LastBlockTime > 0 && now.UnixMilli()-info.LastBlockTime < inSyncWindow.Milliseconds():
		info.Status = StatusInSync
	default:
		info.Status = StatusOutOfSync
	}

	return info, nil
}
