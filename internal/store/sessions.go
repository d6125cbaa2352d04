package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// UpsertSession merges a session row into place: block_number,
// activation_timestamp, active_era_id, planned_era_id use COALESCE(new,
// old); validator_points_total uses CASE WHEN new > 0 THEN new ELSE old END
// so a pre-create (zero points) never clobbers a later real report.
func UpsertSession(ctx context.Context, db dbExecer, sess Session) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+tableSessions+` (session_id, block_number, activation_timestamp, active_era_id, planned_era_id, validator_points_total)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			block_number         = COALESCE(excluded.block_number, sessions.block_number),
			activation_timestamp = COALESCE(excluded.activation_timestamp, sessions.activation_timestamp),
			active_era_id        = COALESCE(excluded.active_era_id, sessions.active_era_id),
			planned_era_id       = COALESCE(excluded.planned_era_id, sessions.planned_era_id),
			validator_points_total = CASE WHEN excluded.validator_points_total > 0 THEN excluded.validator_points_total ELSE sessions.validator_points_total END
	`, sess.SessionID, sess.BlockNumber, sess.ActivationTimestamp, sess.ActiveEraID, sess.PlannedEraID, sess.ValidatorPointsTotal)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "upserting session"))
	}
	return nil
}

// SessionByID returns one session, or (nil, nil) if absent.
func (s *Store) SessionByID(ctx context.Context, sessionID uint64) (*Session, error) {
	return SessionByIDTx(ctx, s.db, sessionID)
}

// queryRower is satisfied by *sql.DB and *sql.Tx for read helpers that may
// run either standalone or inside the caller's transaction.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SessionByIDTx is SessionByID over an explicit handle, letting interpreter
// handlers read session state inside their own per-block transaction.
func SessionByIDTx(ctx context.Context, db queryRower, sessionID uint64) (*Session, error) {
	row := db.QueryRowContext(ctx, `
		SELECT session_id, block_number, activation_timestamp, active_era_id, planned_era_id, validator_points_total
		FROM `+tableSessions+` WHERE session_id = ?
	`, sessionID)
	return scanSession(row)
}

// RecentSessions returns up to limit most-recent sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, block_number, activation_timestamp, active_era_id, planned_era_id, validator_points_total
		FROM `+tableSessions+` ORDER BY session_id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying recent sessions"))
	}
	defer rows.Close()
	return scanSessions(rows)
}

// SessionsByEra returns all sessions joined on active_era_id = eraID, per
// the era detail view.
func (s *Store) SessionsByEra(ctx context.Context, eraID uint64) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, block_number, activation_timestamp, active_era_id, planned_era_id, validator_points_total
		FROM `+tableSessions+` WHERE active_era_id = ? ORDER BY session_id ASC
	`, eraID)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying sessions by era"))
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var blockNumber, activationTimestamp, activeEraID, plannedEraID sql.NullInt64

	err := row.Scan(&sess.SessionID, &blockNumber, &activationTimestamp, &activeEraID, &plannedEraID, &sess.ValidatorPointsTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "scanning session"))
	}
	if blockNumber.Valid {
		v := uint64(blockNumber.Int64)
		sess.BlockNumber = &v
	}
	if activationTimestamp.Valid {
		v := activationTimestamp.Int64
		sess.ActivationTimestamp = &v
	}
	if activeEraID.Valid {
		v := uint64(activeEraID.Int64)
		sess.ActiveEraID = &v
	}
	if plannedEraID.Valid {
		v := uint64(plannedEraID.Int64)
		sess.PlannedEraID = &v
	}
	return &sess, nil
}
