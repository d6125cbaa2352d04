package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// Indexer state keys, namespaced per chain
// ("currentHeightRC", "currentHeightAH", ...) — the indexer_state table is the sole
// progress-reporting channel read by the API.
func stateKey(prefix string, chain ChainTag) string {
	if chain == ChainRC {
		return prefix + "RC"
	}
	return prefix + "AH"
}

const (
	keyCurrentHeight     = "currentHeight"
	keyTargetBlock       = "targetBlock"
	keyTotalMissing      = "totalMissingBlocks"
	keySyncedBlocks      = "syncedBlocks"
	keyIsSyncing         = "isSyncing"
	keyLastProcessed     = "lastProcessedBlock"
)

// SetState writes a single key/value with a fresh updated_at timestamp.
func (s *Store) SetState(ctx context.Context, key, value string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+tableIndexerState+` (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now.UnixMilli())
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "writing indexer state"))
	}
	return nil
}

// GetState reads one key, returning ("", false, nil) if absent.
func (s *Store) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM `+tableIndexerState+` WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.NewTransient(errors.Wrap(err, "reading indexer state"))
	}
	return value, true, nil
}

// SyncProgress is the decoded per-chain progress snapshot
// as written to indexer_state by the IngestionPipeline.
type SyncProgress struct {
	CurrentHeight      uint64
	TargetBlock        uint64
	TotalMissingBlocks uint64
	SyncedBlocks       uint64
	IsSyncing          bool
	LastProcessedBlock uint64
}

// SetSyncProgress writes the full per-chain progress snapshot, best-effort.
// Each key is written separately, outside any transaction; the snapshot is
// not written in the same transaction as the block it reports.
func (s *Store) SetSyncProgress(ctx context.Context, chain ChainTag, p SyncProgress) error {
	now := time.Now()
	writes := map[string]string{
		stateKey(keyCurrentHeight, chain): strconv.FormatUint(p.CurrentHeight, 10),
		stateKey(keyTargetBlock, chain):   strconv.FormatUint(p.TargetBlock, 10),
		stateKey(keyTotalMissing, chain):  strconv.FormatUint(p.TotalMissingBlocks, 10),
		stateKey(keySyncedBlocks, chain):  strconv.FormatUint(p.SyncedBlocks, 10),
		stateKey(keyIsSyncing, chain):     strconv.FormatBool(p.IsSyncing),
		stateKey(keyLastProcessed, chain): strconv.FormatUint(p.LastProcessedBlock, 10),
	}
	for k, v := range writes {
		if err := s.SetState(ctx, k, v, now); err != nil {
			return err
		}
	}
	return nil
}

// GetSyncProgress reads back a per-chain progress snapshot, defaulting
// absent fields to zero values.
func (s *Store) GetSyncProgress(ctx context.Context, chain ChainTag) (SyncProgress, error) {
	var p SyncProgress
	for key, dest := range map[string]*uint64{
		stateKey(keyCurrentHeight, chain): &p.CurrentHeight,
		stateKey(keyTargetBlock, chain):   &p.TargetBlock,
		stateKey(keyTotalMissing, chain):  &p.TotalMissingBlocks,
		stateKey(keySyncedBlocks, chain):  &p.SyncedBlocks,
		stateKey(keyLastProcessed, chain): &p.LastProcessedBlock,
	} {
		v, ok, err := s.GetState(ctx, key)
		if err != nil {
			return p, err
		}
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			continue
		}
		*dest = n
	}
	v, ok, err := s.GetState(ctx, stateKey(keyIsSyncing, chain))
	if err != nil {
		return p, err
	}
	if ok {
		p.IsSyncing, _ = strconv.ParseBool(v)
	}
	return p, nil
}
