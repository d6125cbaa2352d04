package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// BlockExists reports whether a block row already exists for the given
// chain/height — the idempotency check at the head of the per-block
// contract.
func (s *Store) BlockExists(ctx context.Context, chain ChainTag, blockNumber uint64) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE block_number = ?)`, blocksTable(chain))
	if err := s.db.QueryRowContext(ctx, query, blockNumber).Scan(&exists); err != nil {
		return false, errs.NewTransient(errors.Wrap(err, "checking block existence"))
	}
	return exists, nil
}

// InsertBlockWithEvents inserts the block row and its already-filtered
// events in one transaction — the atomic half of the per-block contract.
// Re-inserting an existing block is a no-op (INSERT OR IGNORE), preserving
// idempotence under concurrent ingestion paths.
func (s *Store) InsertBlockWithEvents(ctx context.Context, chain ChainTag, block Block, events []Event) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return InsertBlockWithEventsTx(ctx, tx, chain, block, events)
	})
}

// InsertBlockWithEventsTx is InsertBlockWithEvents over an explicit
// transaction handle, letting the ingestion pipeline's per-block contract
// insert the block+events and invoke the EventInterpreter in one logical
// transaction, rather than committing the write before the
// interpreter has run.
func InsertBlockWithEventsTx(ctx context.Context, tx dbExecer, chain ChainTag, block Block, events []Event) error {
	insertBlock := fmt.Sprintf(`INSERT OR IGNORE INTO %s (block_number, timestamp) VALUES (?, ?)`, blocksTable(chain))
	res, err := tx.ExecContext(ctx, insertBlock, block.BlockNumber, block.Timestamp)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "inserting block"))
	}
	if n, err := res.RowsAffected(); err != nil {
		return errs.NewTransient(errors.Wrap(err, "inserting block"))
	} else if n == 0 {
		// Block already present: its events were stored with it.
		return nil
	}

	insertEvent := fmt.Sprintf(`INSERT INTO %s (block_number, event_id, event_type, data) VALUES (?, ?, ?, ?)`, eventsTable(chain))
	for _, ev := range events {
		if _, err := tx.ExecContext(ctx, insertEvent, block.BlockNumber, ev.EventID, ev.EventType, ev.Data); err != nil {
			return errs.NewTransient(errors.Wrap(err, "inserting event"))
		}
	}
	return nil
}

// DeleteBlock removes a block row; events cascade by the FK.
// Used by ReimportWorker and administrative pruning.
func (s *Store) DeleteBlock(ctx context.Context, chain ChainTag, blockNumber uint64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE block_number = ?`, blocksTable(chain))
	if _, err := s.db.ExecContext(ctx, query, blockNumber); err != nil {
		return errs.NewTransient(errors.Wrap(err, "deleting block"))
	}
	return nil
}

// RecentBlocks returns up to limit most-recent blocks for a chain.
func (s *Store) RecentBlocks(ctx context.Context, chain ChainTag, limit int) ([]Block, error) {
	query := fmt.Sprintf(`SELECT block_number, timestamp FROM %s ORDER BY block_number DESC LIMIT ?`, blocksTable(chain))
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying recent blocks"))
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.BlockNumber, &b.Timestamp); err != nil {
			return nil, errs.NewTransient(errors.Wrap(err, "scanning block"))
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BlockByNumber returns one block, or (nil, nil) if absent.
func (s *Store) BlockByNumber(ctx context.Context, chain ChainTag, blockNumber uint64) (*Block, error) {
	query := fmt.Sprintf(`SELECT block_number, timestamp FROM %s WHERE block_number = ?`, blocksTable(chain))
	var b Block
	err := s.db.QueryRowContext(ctx, query, blockNumber).Scan(&b.BlockNumber, &b.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying block"))
	}
	return &b, nil
}

// MissingHeights returns the subset of [from, to] (inclusive) not yet
// present as block rows — used by backfill enumeration and the gap filler.
func (s *Store) MissingHeights(ctx context.Context, chain ChainTag, from, to uint64) ([]uint64, error) {
	if to < from {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT block_number FROM %s WHERE block_number BETWEEN ? AND ?`, blocksTable(chain))
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying present heights"))
	}
	defer rows.Close()

	present := make(map[uint64]bool)
	for rows.Next() {
		var n uint64
		if err := rows.Scan(&n); err != nil {
			return nil, errs.NewTransient(errors.Wrap(err, "scanning height"))
		}
		present[n] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransient(err)
	}

	var missing []uint64
	for h := from; h <= to; h++ {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	return missing, nil
}

// LatestBlock returns the highest block number stored for a chain, or
// (0, false) if no blocks exist yet.
func (s *Store) LatestBlock(ctx context.Context, chain ChainTag) (uint64, bool, error) {
	query := fmt.Sprintf(`SELECT MAX(block_number) FROM %s`, blocksTable(chain))
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, false, errs.NewTransient(errors.Wrap(err, "querying latest block"))
	}
	if !n.Valid {
		return 0, false, nil
	}
	return uint64(n.Int64), true, nil
}

// RecentEvents returns up to limit most-recent events for a chain across
// all blocks, newest first.
func (s *Store) RecentEvents(ctx context.Context, chain ChainTag, limit int) ([]Event, error) {
	query := fmt.Sprintf(`SELECT id, block_number, event_id, event_type, data FROM %s ORDER BY id DESC LIMIT ?`, eventsTable(chain))
	return s.scanEvents(ctx, query, limit)
}

// EventsByType returns up to limit most-recent events of the given type.
func (s *Store) EventsByType(ctx context.Context, chain ChainTag, eventType string, limit int) ([]Event, error) {
	query := fmt.Sprintf(`SELECT id, block_number, event_id, event_type, data FROM %s WHERE event_type = ? ORDER BY id DESC LIMIT ?`, eventsTable(chain))
	return s.scanEvents(ctx, query, eventType, limit)
}

// EventsByBlock returns all events for one block, in ingestion order.
func (s *Store) EventsByBlock(ctx context.Context, chain ChainTag, blockNumber uint64) ([]Event, error) {
	query := fmt.Sprintf(`SELECT id, block_number, event_id, event_type, data FROM %s WHERE block_number = ? ORDER BY id ASC`, eventsTable(chain))
	return s.scanEvents(ctx, query, blockNumber)
}

// EventsInRange returns all events for a chain with block_number in
// [from, to], in ingestion order — the basis for get_by_era_ah,
// which widens this range to also include election_phases coverage.
func (s *Store) EventsInRange(ctx context.Context, chain ChainTag, from, to uint64) ([]Event, error) {
	query := fmt.Sprintf(`SELECT id, block_number, event_id, event_type, data FROM %s WHERE block_number BETWEEN ? AND ? ORDER BY block_number ASC, id ASC`, eventsTable(chain))
	return s.scanEvents(ctx, query, from, to)
}

func (s *Store) scanEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying events"))
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.BlockNumber, &e.EventID, &e.EventType, &e.Data); err != nil {
			return nil, errs.NewTransient(errors.Wrap(err, "scanning event"))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
