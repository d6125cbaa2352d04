package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// SubmitReimport enqueues a pending reimport request and returns its id.
func (s *Store) SubmitReimport(ctx context.Context, chain ReimportChain, blockNumber uint64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO `+tableReimport+` (chain, block_number, status, submitted_at)
		VALUES (?, ?, 'pending', ?)
	`, string(chain), blockNumber, time.Now().UnixMilli())
	if err != nil {
		return 0, errs.NewTransient(errors.Wrap(err, "submitting reimport request"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.NewTransient(err)
	}
	return id, nil
}

// ListReimports returns up to limit most-recent reimport requests.
func (s *Store) ListReimports(ctx context.Context, limit int) ([]ReimportRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chain, block_number, status, submitted_at, completed_at, error
		FROM `+tableReimport+` ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "listing reimport requests"))
	}
	defer rows.Close()

	var out []ReimportRequest
	for rows.Next() {
		r, err := scanReimport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ClaimPendingReimports atomically transitions up to `limit` pending
// requests (oldest-submitted first) to processing and returns them — the
// ReimportWorker's poll step (up to 5 at a time).
func (s *Store) ClaimPendingReimports(ctx context.Context, limit int) ([]ReimportRequest, error) {
	var claimed []ReimportRequest
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, chain, block_number, status, submitted_at, completed_at, error
			FROM `+tableReimport+` WHERE status = 'pending' ORDER BY submitted_at ASC LIMIT ?
		`, limit)
		if err != nil {
			return errs.NewTransient(errors.Wrap(err, "querying pending reimports"))
		}
		var pending []ReimportRequest
		for rows.Next() {
			r, err := scanReimport(rows)
			if err != nil {
				rows.Close()
				return err
			}
			pending = append(pending, *r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errs.NewTransient(err)
		}
		rows.Close()

		for _, r := range pending {
			if _, err := tx.ExecContext(ctx, `UPDATE `+tableReimport+` SET status = 'processing' WHERE id = ? AND status = 'pending'`, r.ID); err != nil {
				return errs.NewTransient(errors.Wrap(err, "claiming reimport request"))
			}
			r.Status = ReimportProcessing
			claimed = append(claimed, r)
		}
		return nil
	})
	return claimed, err
}

// CompleteReimport marks a request completed or failed — terminal, except
// the pending → processing transition already made.
func (s *Store) CompleteReimport(ctx context.Context, id int64, success bool, reimportErr string) error {
	status := ReimportCompleted
	var errPtr *string
	if !success {
		status = ReimportFailed
		errPtr = &reimportErr
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE `+tableReimport+` SET status = ?, completed_at = ?, error = ? WHERE id = ?
	`, string(status), time.Now().UnixMilli(), errPtr, id)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "completing reimport request"))
	}
	return nil
}

func scanReimport(rows *sql.Rows) (*ReimportRequest, error) {
	var r ReimportRequest
	var completedAt sql.NullInt64
	var errStr sql.NullString
	if err := rows.Scan(&r.ID, &r.Chain, &r.BlockNumber, &r.Status, &r.SubmittedAt, &completedAt, &errStr); err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "scanning reimport request"))
	}
	if completedAt.Valid {
		v := completedAt.Int64
		r.CompletedAt = &v
	}
	if errStr.Valid {
		r.Error = &errStr.String
	}
	return &r, nil
}
