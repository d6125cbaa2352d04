package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotstake/indexer/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func u64p(n uint64) *uint64 { return &n }
func i64p(n int64) *int64   { return &n }
func strp(s string) *string { return &s }

func TestMigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := Open(path, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must not re-run migration version 1.
	s, err = Open(path, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+tableMigrations).Scan(&n))
	assert.Equal(t, len(migrations), n)
}

func TestUpsertEraPreservesInflationOnBoundaryReplay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: 10, SessionStart: 100, StartTime: 1000}))
	require.NoError(t, ApplyInflation(ctx, s.db, 10, "7", "3", "10"))

	// A replayed boundary upsert carries nil inflation fields; COALESCE
	// keeps the values EraPaid already filled in.
	require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: 10, SessionStart: 100, StartTime: 1000}))

	era, err := s.EraByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, era)
	require.NotNil(t, era.InflationTotal)
	assert.Equal(t, "10", *era.InflationTotal)
	assert.Equal(t, "7", *era.InflationValidators)
	assert.Equal(t, "3", *era.InflationTreasury)
}

func TestUpsertSessionMergeSemantics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainAH, Block{BlockNumber: 500, Timestamp: 1}, nil))
	require.NoError(t, UpsertSession(ctx, s.db, Session{
		SessionID: 42, BlockNumber: u64p(500), ActiveEraID: u64p(9), ValidatorPointsTotal: 77,
	}))

	// A later pre-create style upsert with nil block and zero points must
	// not clobber either.
	require.NoError(t, UpsertSession(ctx, s.db, Session{SessionID: 42, PlannedEraID: u64p(10)}))

	sess, err := s.SessionByID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NotNil(t, sess.BlockNumber)
	assert.EqualValues(t, 500, *sess.BlockNumber)
	assert.EqualValues(t, 77, sess.ValidatorPointsTotal)
	require.NotNil(t, sess.ActiveEraID)
	assert.EqualValues(t, 9, *sess.ActiveEraID)
	require.NotNil(t, sess.PlannedEraID)
	assert.EqualValues(t, 10, *sess.PlannedEraID)
}

func TestDeleteBlockCascadesEventsAndNullsSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainAH, Block{BlockNumber: 900, Timestamp: 1}, []Event{
		{BlockNumber: 900, EventID: "900-0", EventType: "staking.EraPaid", Data: "{}"},
		{BlockNumber: 900, EventID: "900-1", EventType: "session.NewSession", Data: "{}"},
	}))
	require.NoError(t, UpsertSession(ctx, s.db, Session{SessionID: 7, BlockNumber: u64p(900), ValidatorPointsTotal: 5}))

	require.NoError(t, s.DeleteBlock(ctx, ChainAH, 900))

	events, err := s.EventsByBlock(ctx, ChainAH, 900)
	require.NoError(t, err)
	assert.Empty(t, events)

	// The session row outlives the block; only its FK is nulled.
	sess, err := s.SessionByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Nil(t, sess.BlockNumber)
	assert.EqualValues(t, 5, sess.ValidatorPointsTotal)
}

func TestInsertBlockWithEventsIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	block := Block{BlockNumber: 31, Timestamp: 1234}
	events := []Event{{BlockNumber: 31, EventID: "31-0", EventType: "staking.EraPaid", Data: "{}"}}

	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainRC, block, events))

	// The pipeline checks BlockExists first; a second path observing the
	// block already present must skip the event append entirely.
	exists, err := s.BlockExists(ctx, ChainRC, 31)
	require.NoError(t, err)
	assert.True(t, exists)

	// Re-inserting the same block appends no events.
	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainRC, block, events))

	got, err := s.EventsByBlock(ctx, ChainRC, 31)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEraRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := Era{
		EraID:               55,
		SessionStart:        600,
		SessionEnd:          u64p(605),
		StartTime:           1700000000000,
		InflationTotal:      strp("10"),
		InflationValidators: strp("7"),
		InflationTreasury:   strp("3"),
		ValidatorsElected:   u64p(297),
	}
	require.NoError(t, UpsertEra(ctx, s.db, want))
	require.NoError(t, UpsertSession(ctx, s.db, Session{SessionID: 605, ActivationTimestamp: i64p(1700000600000)}))

	got, err := s.EraByID(ctx, 55)
	require.NoError(t, err)
	require.NotNil(t, got)

	want.EndTime = i64p(1700000600000)
	if diff := deep.Equal(want, *got); diff != nil {
		t.Fatal(diff)
	}
}

func TestPruneErasKeepsBlocksAndEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for era := uint64(1); era <= 10; era++ {
		end := era * 6
		require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: era, SessionStart: end - 5, SessionEnd: &end, StartTime: int64(era)}))
	}
	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainAH, Block{BlockNumber: 1, Timestamp: 1}, []Event{
		{BlockNumber: 1, EventID: "1-0", EventType: "staking.EraPaid", Data: "{}"},
	}))
	require.NoError(t, InsertElectionPhase(ctx, s.db, ElectionPhase{
		EraID: 2, BlockNumber: 1, Round: 1, Phase: PhaseSnapshot, EventID: "1-0", Timestamp: 1,
	}))

	require.NoError(t, s.PruneEras(ctx, 3))

	old, err := s.EraByID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, old, "era below the retention threshold must be gone")

	kept, err := s.EraByID(ctx, 8)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	phases, err := s.ElectionPhasesByEra(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, phases, "phase rows cascade with their era")

	events, err := s.EventsByBlock(ctx, ChainAH, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1, "pruning eras must not touch blocks or events")
}

func TestReimportQueueClaimAndComplete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.SubmitReimport(ctx, ReimportChainAH, 100)
	require.NoError(t, err)
	_, err = s.SubmitReimport(ctx, ReimportChainRC, 200)
	require.NoError(t, err)

	claimed, err := s.ClaimPendingReimports(ctx, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, ReimportProcessing, claimed[0].Status)

	// A second claim pass finds nothing pending.
	again, err := s.ClaimPendingReimports(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, s.CompleteReimport(ctx, id1, false, "node unreachable"))
	list, err := s.ListReimports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, r := range list {
		if r.ID == id1 {
			assert.Equal(t, ReimportFailed, r.Status)
			require.NotNil(t, r.Error)
			assert.Equal(t, "node unreachable", *r.Error)
			assert.NotNil(t, r.CompletedAt)
		}
	}
}

func TestGetStatusSyncStates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// Syncing wins regardless of block age.
	require.NoError(t, s.SetSyncProgress(ctx, ChainRC, SyncProgress{IsSyncing: true, TotalMissingBlocks: 10, SyncedBlocks: 4}))
	st, err := s.GetStatus(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, StatusSyncing, st.RelayChain.Status)
	require.NotNil(t, st.RelayChain.SyncProgress)
	assert.InDelta(t, 0.4, *st.RelayChain.SyncProgress, 1e-9)

	// Fresh block and not syncing: in-sync.
	require.NoError(t, s.SetSyncProgress(ctx, ChainRC, SyncProgress{IsSyncing: false}))
	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainRC, Block{BlockNumber: 1, Timestamp: now.Add(-10 * time.Second).UnixMilli()}, nil))
	st, err = s.GetStatus(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, StatusInSync, st.RelayChain.Status)

	// Block older than 60s: out-of-sync.
	require.NoError(t, s.InsertBlockWithEvents(ctx, ChainRC, Block{BlockNumber: 2, Timestamp: now.Add(-5 * time.Minute).UnixMilli()}, nil))
	st, err = s.GetStatus(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, StatusOutOfSync, st.RelayChain.Status)

	// The AH side never wrote progress: out-of-sync with no blocks.
	assert.Equal(t, StatusOutOfSync, st.AssetHub.Status)
}

func TestGetStatusReportsOpenEraAndLatestSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	end := uint64(99)
	require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: 1, SessionStart: 90, SessionEnd: &end, StartTime: 1}))
	require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: 2, SessionStart: 100, StartTime: 2}))
	require.NoError(t, UpsertSession(ctx, s.db, Session{SessionID: 101, ActiveEraID: u64p(2)}))

	st, err := s.GetStatus(ctx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, st.CurrentEra)
	assert.EqualValues(t, 2, *st.CurrentEra)
	require.NotNil(t, st.CurrentSession)
	assert.EqualValues(t, 101, *st.CurrentSession)
}

func TestAdminIntrospection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, tableEras)
	assert.Contains(t, tables, tableElectionScores)

	cols, err := s.TableSchema(ctx, tableEras)
	require.NoError(t, err)
	var names []string
	for _, c := range cols {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "era_id")
	assert.Contains(t, names, "session_end")

	_, err = s.TableSchema(ctx, "no_such_table")
	assert.Error(t, err)

	require.NoError(t, UpsertEra(ctx, s.db, Era{EraID: 3, SessionStart: 1, StartTime: 1}))
	out, err := s.SampleRows(ctx, tableEras, 5)
	require.NoError(t, err)
	// go-pretty upper-cases header cells in its default style.
	assert.Contains(t, strings.ToUpper(out), "ERA_ID")
}
