package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// InsertWarning appends one observability row; warnings never
// mutate entity state.
func InsertWarning(ctx context.Context, db dbExecer, w Warning) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+tableWarnings+` (era_id, session_id, block_number, type, message, severity, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.EraID, w.SessionID, w.BlockNumber, w.Type, w.Message, string(w.Severity), w.Timestamp)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "inserting warning"))
	}
	return nil
}

// HasWarning reports whether a warning of the given type already exists for
// a block number, letting periodic sweeps (the gap filler's missing_event
// scan) avoid re-appending the same observation on every tick.
func (s *Store) HasWarning(ctx context.Context, warnType string, blockNumber uint64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM `+tableWarnings+` WHERE type = ? AND block_number = ?)
	`, warnType, blockNumber).Scan(&exists)
	if err != nil {
		return false, errs.NewTransient(errors.Wrap(err, "checking warning existence"))
	}
	return exists, nil
}

// RecentWarnings returns up to limit most-recent warnings, newest first.
func (s *Store) RecentWarnings(ctx context.Context, limit int) ([]Warning, error) {
	return s.queryWarnings(ctx, `
		SELECT id, era_id, session_id, block_number, type, message, severity, timestamp
		FROM `+tableWarnings+` ORDER BY id DESC LIMIT ?
	`, limit)
}

// WarningsBySeverity returns up to limit most-recent warnings at a severity.
func (s *Store) WarningsBySeverity(ctx context.Context, severity WarningSeverity, limit int) ([]Warning, error) {
	return s.queryWarnings(ctx, `
		SELECT id, era_id, session_id, block_number, type, message, severity, timestamp
		FROM `+tableWarnings+` WHERE severity = ? ORDER BY id DESC LIMIT ?
	`, string(severity), limit)
}

// WarningsByEra returns all warnings tagged with one era.
func (s *Store) WarningsByEra(ctx context.Context, eraID uint64) ([]Warning, error) {
	return s.queryWarnings(ctx, `
		SELECT id, era_id, session_id, block_number, type, message, severity, timestamp
		FROM `+tableWarnings+` WHERE era_id = ? ORDER BY id DESC
	`, eraID)
}

func (s *Store) queryWarnings(ctx context.Context, query string, args ...interface{}) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying warnings"))
	}
	defer rows.Close()

	var out []Warning
	for rows.Next() {
		var w Warning
		var eraID, sessionID sql.NullInt64
		if err := rows.Scan(&w.ID, &eraID, &sessionID, &w.BlockNumber, &w.Type, &w.Message, &w.Severity, &w.Timestamp); err != nil {
			return nil, errs.NewTransient(errors.Wrap(err, "scanning warning"))
		}
		if eraID.Valid {
			v := uint64(eraID.Int64)
			w.EraID = &v
		}
		if sessionID.Valid {
			v := uint64(sessionID.Int64)
			w.SessionID = &v
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
