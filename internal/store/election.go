package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/dotstake/indexer/internal/errs"
)

// InsertElectionPhase appends one phase-transition row. Phase rows
// are append-only — there is no upsert here.
func InsertElectionPhase(ctx context.Context, db dbExecer, p ElectionPhase) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+tableElectionPhases+` (
			era_id, block_number, round, phase, event_id, timestamp,
			validator_candidates, nominator_candidates, target_validator_count,
			minimum_score, sorted_scores, queued_solution_score,
			validators_elected, expected_duration_blocks, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.EraID, p.BlockNumber, p.Round, p.Phase, p.EventID, p.Timestamp,
		p.ValidatorCandidates, p.NominatorCandidates, p.TargetValidatorCount,
		p.MinimumScore, p.SortedScores, p.QueuedSolutionScore,
		p.ValidatorsElected, p.ExpectedDurationBlocks, p.Status)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "inserting election phase"))
	}
	return nil
}

// ElectionPhasesByEra returns every phase row for an era, in insertion
// order (oldest first), matching the append-only log semantics.
func (s *Store) ElectionPhasesByEra(ctx context.Context, eraID uint64) ([]ElectionPhase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, era_id, block_number, round, phase, event_id, timestamp,
		       validator_candidates, nominator_candidates, target_validator_count,
		       minimum_score, sorted_scores, queued_solution_score,
		       validators_elected, expected_duration_blocks, status
		FROM `+tableElectionPhases+` WHERE era_id = ? ORDER BY id ASC
	`, eraID)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying election phases"))
	}
	defer rows.Close()
	return scanElectionPhases(rows)
}

// RecentElectionPhases returns up to limit most-recent phase rows, newest first.
func (s *Store) RecentElectionPhases(ctx context.Context, limit int) ([]ElectionPhase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, era_id, block_number, round, phase, event_id, timestamp,
		       validator_candidates, nominator_candidates, target_validator_count,
		       minimum_score, sorted_scores, queued_solution_score,
		       validators_elected, expected_duration_blocks, status
		FROM `+tableElectionPhases+` ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying recent election phases"))
	}
	defer rows.Close()
	return scanElectionPhases(rows)
}

func scanElectionPhases(rows *sql.Rows) ([]ElectionPhase, error) {
	var out []ElectionPhase
	for rows.Next() {
		var p ElectionPhase
		var validatorCandidates, nominatorCandidates, targetValidatorCount, validatorsElected, expectedDurationBlocks sql.NullInt64
		var minimumScore, sortedScores, queuedSolutionScore, status sql.NullString

		if err := rows.Scan(&p.ID, &p.EraID, &p.BlockNumber, &p.Round, &p.Phase, &p.EventID, &p.Timestamp,
			&validatorCandidates, &nominatorCandidates, &targetValidatorCount,
			&minimumScore, &sortedScores, &queuedSolutionScore,
			&validatorsElected, &expectedDurationBlocks, &status); err != nil {
			return nil, errs.NewTransient(errors.Wrap(err, "scanning election phase"))
		}
		if validatorCandidates.Valid {
			v := uint64(validatorCandidates.Int64)
			p.ValidatorCandidates = &v
		}
		if nominatorCandidates.Valid {
			v := uint64(nominatorCandidates.Int64)
			p.NominatorCandidates = &v
		}
		if targetValidatorCount.Valid {
			v := uint64(targetValidatorCount.Int64)
			p.TargetValidatorCount = &v
		}
		if validatorsElected.Valid {
			v := uint64(validatorsElected.Int64)
			p.ValidatorsElected = &v
		}
		if expectedDurationBlocks.Valid {
			v := uint64(expectedDurationBlocks.Int64)
			p.ExpectedDurationBlocks = &v
		}
		if minimumScore.Valid {
			p.MinimumScore = &minimumScore.String
		}
		if sortedScores.Valid {
			p.SortedScores = &sortedScores.String
		}
		if queuedSolutionScore.Valid {
			p.QueuedSolutionScore = &queuedSolutionScore.String
		}
		if status.Valid {
			p.Status = &status.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ElectionScoreByKey returns one (round, submitter) row, or (nil, nil) if
// absent — used by the interpreter to decide the submission state transition
// before writing.
func ElectionScoreByKey(ctx context.Context, db interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, round uint64, submitter string) (*ElectionScore, error) {
	row := db.QueryRowContext(ctx, `
		SELECT round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at
		FROM `+tableElectionScores+` WHERE round = ? AND submitter = ?
	`, round, submitter)
	return scanElectionScore(row)
}

// UpsertElectionScoreRegistered creates or overwrites a registered row
// (latest score wins before terminal).
func UpsertElectionScoreRegistered(ctx context.Context, db dbExecer, round uint64, submitter string, blockNumber uint64, minimalStake, sumStake, sumStakeSquared string, eraID *uint64, now int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+tableElectionScores+` (round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'registered', ?, ?, ?)
		ON CONFLICT(round, submitter) DO UPDATE SET
			block_number      = excluded.block_number,
			minimal_stake     = CASE WHEN excluded.minimal_stake <> '0' THEN excluded.minimal_stake ELSE election_scores.minimal_stake END,
			sum_stake         = CASE WHEN excluded.sum_stake <> '0' THEN excluded.sum_stake ELSE election_scores.sum_stake END,
			sum_stake_squared = CASE WHEN excluded.sum_stake_squared <> '0' THEN excluded.sum_stake_squared ELSE election_scores.sum_stake_squared END,
			era_id            = COALESCE(election_scores.era_id, excluded.era_id),
			updated_at        = excluded.updated_at
		WHERE election_scores.status = 'registered'
	`, round, submitter, blockNumber, minimalStake, sumStake, sumStakeSquared, eraID, now, now)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "upserting registered election score"))
	}
	return nil
}

// TransitionElectionScore moves a (round, submitter) row from registered to
// a terminal status, preserving score fields (CASE WHEN new_score <> 0...
// rule is moot here since terminal events carry no score). The WHERE clause
// guards terminal immutability: rows already in a
// terminal status are left untouched.
func TransitionElectionScore(ctx context.Context, db dbExecer, round uint64, submitter string, newStatus ElectionScoreStatus, blockNumber uint64, eraID *uint64, now int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE `+tableElectionScores+`
		SET status = ?, block_number = ?, era_id = COALESCE(era_id, ?), updated_at = ?
		WHERE round = ? AND submitter = ? AND status = 'registered'
	`, string(newStatus), blockNumber, eraID, now, round, submitter)
	if err != nil {
		return errs.NewTransient(errors.Wrap(err, "transitioning election score"))
	}
	return nil
}

// StaleRegisteredScores returns registered submissions whose block_number is
// at or before the cutoff height — candidates for the gap filler's
// missing_event sweep, since a registered score that never
// reaches a terminal status within the window likely missed its follow-up
// event.
func (s *Store) StaleRegisteredScores(ctx context.Context, cutoffHeight uint64) ([]ElectionScore, error) {
	return s.queryScores(ctx, `
		SELECT round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at
		FROM `+tableElectionScores+` WHERE status = 'registered' AND block_number <= ? ORDER BY block_number ASC
	`, cutoffHeight)
}

// Winners returns up to limit rewarded scores ordered by round desc.
func (s *Store) Winners(ctx context.Context, limit int) ([]ElectionScore, error) {
	return s.queryScores(ctx, `
		SELECT round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at
		FROM `+tableElectionScores+` WHERE status = 'rewarded' ORDER BY round DESC LIMIT ?
	`, limit)
}

// WinnersByEra returns rewarded scores for one era.
func (s *Store) WinnersByEra(ctx context.Context, eraID uint64) ([]ElectionScore, error) {
	return s.queryScores(ctx, `
		SELECT round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at
		FROM `+tableElectionScores+` WHERE status = 'rewarded' AND era_id = ? ORDER BY round DESC
	`, eraID)
}

// WinnerByRound returns the rewarded score for one round, or (nil, nil).
func (s *Store) WinnerByRound(ctx context.Context, round uint64) (*ElectionScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at
		FROM `+tableElectionScores+` WHERE status = 'rewarded' AND round = ?
	`, round)
	return scanElectionScore(row)
}

// ScoresByRound returns every submission for one round.
func (s *Store) ScoresByRound(ctx context.Context, round uint64) ([]ElectionScore, error) {
	return s.queryScores(ctx, `
		SELECT round, submitter, block_number, minimal_stake, sum_stake, sum_stake_squared, status, era_id, created_at, updated_at
		FROM `+tableElectionScores+` WHERE round = ? ORDER BY submitter ASC
	`, round)
}

// SubmissionCount returns the number of submissions for one round.
func (s *Store) SubmissionCount(ctx context.Context, round uint64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tableElectionScores+` WHERE round = ?`, round).Scan(&n)
	if err != nil {
		return 0, errs.NewTransient(errors.Wrap(err, "counting submissions"))
	}
	return n, nil
}

func (s *Store) queryScores(ctx context.Context, query string, args ...interface{}) ([]ElectionScore, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "querying election scores"))
	}
	defer rows.Close()

	var out []ElectionScore
	for rows.Next() {
		sc, err := scanElectionScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

func scanElectionScore(row rowScanner) (*ElectionScore, error) {
	var sc ElectionScore
	var eraID sql.NullInt64
	err := row.Scan(&sc.Round, &sc.Submitter, &sc.BlockNumber, &sc.MinimalStake, &sc.SumStake, &sc.SumStakeSquared, &sc.Status, &eraID, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "scanning election score"))
	}
	if eraID.Valid {
		v := uint64(eraID.Int64)
		sc.EraID = &v
	}
	return &sc, nil
}
