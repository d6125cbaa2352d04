package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestSingleOpenEraInvariant drives a random sequence of era boundaries
// through the close/upsert primitives and checks that exactly one era has
// session_end = null after every step.
func TestSingleOpenEraInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := openTestStore(t)
		ctx := context.Background()

		boundaries := rapid.IntRange(1, 20).Draw(rt, "boundaries")
		eraID := rapid.Uint64Range(1, 1000).Draw(rt, "firstEra")
		sessionEnd := rapid.Uint64Range(1, 100000).Draw(rt, "firstSessionEnd")

		require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: eraID, SessionStart: sessionEnd + 1, StartTime: 1}))

		for i := 0; i < boundaries; i++ {
			gap := rapid.Uint64Range(1, 10).Draw(rt, fmt.Sprintf("gap%d", i))
			sessionEnd += gap
			eraID++

			closed, err := CloseEraSessionEnd(ctx, s.db, sessionEnd)
			require.NoError(t, err)
			require.True(t, closed)
			require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: eraID, SessionStart: sessionEnd + 1, StartTime: int64(i)}))

			var open int
			require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+tableEras+` WHERE session_end IS NULL`).Scan(&open))
			require.Equal(t, 1, open)
		}
	})
}

// TestClosedEraSessionCountInvariant checks that each closed era
// spans session_end - session_start + 1 sessions once every session in the
// range has been reported with that era as active.
func TestClosedEraSessionCountInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := openTestStore(t)
		ctx := context.Background()

		start := rapid.Uint64Range(1, 10000).Draw(rt, "sessionStart")
		span := rapid.Uint64Range(0, 12).Draw(rt, "span")
		end := start + span
		eraID := rapid.Uint64Range(1, 5000).Draw(rt, "eraID")

		require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: eraID, SessionStart: start, SessionEnd: &end, StartTime: 1}))
		for sid := start; sid <= end; sid++ {
			require.NoError(t, UpsertSession(ctx, s.db, Session{SessionID: sid, ActiveEraID: &eraID}))
		}

		sessions, err := s.SessionsByEra(ctx, eraID)
		require.NoError(t, err)
		require.Len(t, sessions, int(end-start+1))
	})
}

// TestTerminalScoreImmutabilityInvariant drives a random event sequence per
// (round, submitter) through the score primitives: once a terminal status is
// reached, no later transition or re-registration may change anything.
func TestTerminalScoreImmutabilityInvariant(t *testing.T) {
	terminal := []ElectionScoreStatus{ScoreRewarded, ScoreSlashed, ScoreEjected, ScoreDiscarded, ScoreBailed}

	rapid.Check(t, func(rt *rapid.T) {
		s := openTestStore(t)
		ctx := context.Background()

		round := rapid.Uint64Range(1, 10000).Draw(rt, "round")
		submitter := rapid.StringMatching(`[A-Z][a-z0-9]{2,8}`).Draw(rt, "submitter")

		require.NoError(t, UpsertElectionScoreRegistered(ctx, s.db, round, submitter, 100, "11", "22", "33", nil, 1))

		first := rapid.SampledFrom(terminal).Draw(rt, "firstTerminal")
		require.NoError(t, TransitionElectionScore(ctx, s.db, round, submitter, first, 200, nil, 2))

		frozen, err := ElectionScoreByKey(ctx, s.db, round, submitter)
		require.NoError(t, err)
		require.NotNil(t, frozen)
		require.Equal(t, first, frozen.Status)

		laterEvents := rapid.IntRange(1, 6).Draw(rt, "laterEvents")
		for i := 0; i < laterEvents; i++ {
			if rapid.Bool().Draw(rt, fmt.Sprintf("reRegister%d", i)) {
				require.NoError(t, UpsertElectionScoreRegistered(ctx, s.db, round, submitter, 300, "99", "99", "99", nil, 3))
			} else {
				next := rapid.SampledFrom(terminal).Draw(rt, fmt.Sprintf("laterTerminal%d", i))
				require.NoError(t, TransitionElectionScore(ctx, s.db, round, submitter, next, 300, nil, 3))
			}

			got, err := ElectionScoreByKey(ctx, s.db, round, submitter)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, frozen.Status, got.Status)
			require.Equal(t, frozen.BlockNumber, got.BlockNumber)
			require.Equal(t, frozen.MinimalStake, got.MinimalStake)
			require.Equal(t, frozen.SumStake, got.SumStake)
			require.Equal(t, frozen.SumStakeSquared, got.SumStakeSquared)
		}
	})
}

// TestRegisteredScoreOverwriteBeforeTerminal checks the pre-terminal rule:
// a second Registered overwrites the score (latest wins).
func TestRegisteredScoreOverwriteBeforeTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, UpsertElectionScoreRegistered(ctx, s.db, 7, "Alice", 100, "1", "2", "3", nil, 1))
	require.NoError(t, UpsertElectionScoreRegistered(ctx, s.db, 7, "Alice", 150, "4", "5", "6", nil, 2))

	got, err := ElectionScoreByKey(ctx, s.db, 7, "Alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, ScoreRegistered, got.Status)
	require.Equal(t, "4", got.MinimalStake)
	require.Equal(t, "5", got.SumStake)
	require.Equal(t, "6", got.SumStakeSquared)
	require.EqualValues(t, 150, got.BlockNumber)
}
