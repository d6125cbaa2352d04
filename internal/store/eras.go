package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// dbExecer is satisfied by *sql.DB and *sql.Tx for the write helpers that
// may run either standalone or inside the caller's per-block transaction.
type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// UpsertEra merges an era row into place: session_start,
// session_end, start_time are always replaced; inflation/validator-count
// fields use COALESCE(new, old) so a boundary event never blanks data a
// later EraPaid already filled in.
func UpsertEra(ctx context.Context, db dbExecer, e Era) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+tableEras+` (era_id, session_start, session_end, start_time, inflation_total, inflation_validators, inflation_treasury, validators_elected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(era_id) DO UPDATE SET
			session_start = excluded.session_start,
			session_end   = excluded.session_end,
			start_time    = excluded.start_time,
			inflation_total      = COALESCE(excluded.inflation_total, eras.inflation_total),
			inflation_validators = COALESCE(excluded.inflation_validators, eras.inflation_validators),
			inflation_treasury   = COALESCE(excluded.inflation_treasury, eras.inflation_treasury),
			validators_elected   = COALESCE(excluded.validators_elected, eras.validators_elected)
	`, e.EraID, e.SessionStart, e.SessionEnd, e.StartTime, e.InflationTotal, e.InflationValidators, e.InflationTreasury, e.ValidatorsElected)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "upserting era"))
	}
	return nil
}

// CloseEraSessionEnd sets session_end on the era currently open
// (session_end = null) at an era boundary. Returns false if no open era
// exists (a data-consistency warning case for the caller to log).
func CloseEraSessionEnd(ctx context.Context, db dbExecer, sessionEnd uint64) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE `+tableEras+` SET session_end = ? WHERE session_end IS NULL`, sessionEnd)
	if err != nil {
		return false, errs.NewTransient(errors.Wrap(err, "closing active era"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.NewTransient(err)
	}
	return n > 0, nil
}

// ApplyInflation applies an EraPaid update: if the era row does
// not exist the update is a no-op (filled later by boundary events).
func ApplyInflation(ctx context.Context, db dbExecer, eraID uint64, validatorPayout, remainder, total string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE `+tableEras+`
		SET inflation_validators = ?, inflation_treasury = ?, inflation_total = ?
		WHERE era_id = ?
	`, validatorPayout, remainder, total, eraID)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "applying inflation"))
	}
	_, err = res.RowsAffected()
	return err
}

// EraByID returns one era with EndTime derived from the activation_timestamp
// of the session with id = session_end, or (nil, nil) if absent.
func (s *Store) EraByID(ctx context.Context, eraID uint64) (*Era, error) {
	return EraByIDTx(ctx, s.db, eraID)
}

// EraByIDTx is EraByID over an explicit handle, letting interpreter
// handlers read era state inside their own per-block transaction.
func EraByIDTx(ctx context.Context, db queryRower, eraID uint64) (*Era, error) {
	row := db.QueryRowContext(ctx, `
		SELECT e.era_id, e.session_start, e.session_end, e.start_time,
		       e.inflation_total, e.inflation_validators, e.inflation_treasury, e.validators_elected,
		       s.activation_timestamp
		FROM `+tableEras+` e
		LEFT JOIN `+tableSessions+` s ON s.session_id = e.session_end
		WHERE e.era_id = ?
	`, eraID)
	return scanEra(row)
}

// RecentEras returns up to limit most-recent eras, newest first, with
// EndTime derived the same way as EraByID.
func (s *Store) RecentEras(ctx context.Context, limit int) ([]Era, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.era_id, e.session_start, e.session_end, e.start_time,
		       e.inflation_total, e.inflation_validators, e.inflation_treasury, e.validators_elected,
		       s.activation_timestamp
		FROM `+tableEras+` e
		LEFT JOIN `+tableSessions+` s ON s.session_id = e.session_end
		ORDER BY e.era_id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying recent eras"))
	}
	defer rows.Close()

	var out []Era
	for rows.Next() {
		era, err := scanEraRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *era)
	}
	return out, rows.Err()
}

// ActiveEra returns the era with session_end = null, or (nil, nil) if none
// (possible only before the first boundary event is processed).
func (s *Store) ActiveEra(ctx context.Context) (*Era, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.era_id, e.session_start, e.session_end, e.start_time,
		       e.inflation_total, e.inflation_validators, e.inflation_treasury, e.validators_elected,
		       s.activation_timestamp
		FROM `+tableEras+` e
		LEFT JOIN `+tableSessions+` s ON s.session_id = e.session_end
		WHERE e.session_end IS NULL
	`)
	return scanEra(row)
}

// PruneEras deletes eras with era_id < latest - maxEras together with their
// dependent phase and warning rows, leaving blocks/events untouched. Phases
// and warnings carry no era FK (forward references), so the cascade is
// explicit.
func (s *Store) PruneEras(ctx context.Context, maxEras uint64) error {
	latest, ok, err := s.latestEraID(ctx)
	if err != nil || !ok || latest < maxEras {
		return err
	}
	threshold := latest - maxEras
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{tableElectionPhases, tableWarnings, tableEras} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE era_id < ?`, threshold); err != nil {
				return errs.NewTransient(errors.Wrapf(err, "pruning %s", table))
			}
		}
		return nil
	})
}

func (s *Store) latestEraID(ctx context.Context) (uint64, bool, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(era_id) FROM `+tableEras).Scan(&n); err != nil {
		return 0, false, errs.NewTransient(errors.Wrap(err, "querying latest era"))
	}
	if !n.Valid {
		return 0, false, nil
	}
	return uint64(n.Int64), true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEra(row rowScanner) (*Era, error) {
	var e Era
	var sessionEnd, validatorsElected sql.NullInt64
	var inflationTotal, inflationValidators, inflationTreasury sql.NullString
	var endTime sql.NullInt64

	err := row.Scan(&e.EraID, &e.SessionStart, &sessionEnd, &e.StartTime,
		&inflationTotal, &inflationValidators, &inflationTreasury, &validatorsElected, &endTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "scanning era"))
	}
	applyEraNullables(&e, sessionEnd, validatorsElected, inflationTotal, inflationValidators, inflationTreasury, endTime)
	return &e, nil
}

func scanEraRow(rows *sql.Rows) (*Era, error) {
	return scanEra(rows)
}

func applyEraNullables(e *Era, sessionEnd, validatorsElected sql.NullInt64, inflationTotal, inflationValidators, inflationTreasury sql.NullString, endTime sql.NullInt64) {
	if sessionEnd.Valid {
		v := uint64(sessionEnd.Int64)
		e.SessionEnd = &v
	}
	if validatorsElected.Valid {
		v := uint64(validatorsElected.Int64)
		e.ValidatorsElected = &v
	}
	if inflationTotal.Valid {
		e.InflationTotal = &inflationTotal.String
	}
	if inflationValidators.Valid {
		e.InflationValidators = &inflationValidators.String
	}
	if inflationTreasury.Valid {
		e.InflationTreasury = &inflationTreasury.String
	}
	if endTime.Valid {
		v := endTime.Int64
		e.EndTime = &v
	}
}
