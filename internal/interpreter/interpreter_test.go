package interpreter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/logging"
	"github.com/dotstake/indexer/internal/store"
)

// fakeStateView is a hand-rolled double for chain.StateView: each scenario
// here needs only a handful of named query results at one historical block,
// so a small struct of optional fields is clearer than a generated mock.
type fakeStateView struct {
	activeEra  *uint64
	currentEra *uint64
}

func (f *fakeStateView) Timestamp(context.Context) (int64, error)             { return 0, nil }
func (f *fakeStateView) Events(context.Context) ([]chain.RawEvent, error)     { return nil, nil }
func (f *fakeStateView) ActiveEra(context.Context) (*uint64, error)           { return f.activeEra, nil }
func (f *fakeStateView) CurrentEra(context.Context) (*uint64, error)          { return f.currentEra, nil }
func (f *fakeStateView) ValidatorCount(context.Context) (*uint64, error)      { return u64p(1000), nil }
func (f *fakeStateView) CounterForValidators(context.Context) (*uint64, error) { return u64p(900), nil }
func (f *fakeStateView) CounterForNominators(context.Context) (*uint64, error) { return u64p(50000), nil }
func (f *fakeStateView) ElectableStashes(context.Context) (*uint64, error)    { return u64p(1000), nil }
func (f *fakeStateView) ElectionRound(context.Context) (*uint64, error)       { return nil, nil }
func (f *fakeStateView) MinimumElectionScore(context.Context) (*string, error) {
	s := "123"
	return &s, nil
}

func u64p(n uint64) *uint64 { return &n }

// fakeFetcher maps block heights to canned StateViews, one entry per
// historical block a scenario queries.
type fakeFetcher struct {
	byHeight map[uint64]*fakeStateView
}

func (f *fakeFetcher) StateAtHeight(_ context.Context, height uint64) (chain.StateView, error) {
	v, ok := f.byHeight[height]
	if !ok {
		return &fakeStateView{}, nil
	}
	return v, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func eventRow(id string, blockNumber uint64, eventType, data string) store.Event {
	return store.Event{EventID: id, BlockNumber: blockNumber, EventType: eventType, Data: data}
}

// TestSessionReportReceived_NoEraBoundary: a session ends mid-era; the
// ended session is recorded, the next one pre-created, the era stays open.
func TestSessionReportReceived_NoEraBoundary(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "s1.db")
	s, err := store.Open(dbPath, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, store.UpsertEra(ctx, s.DB(), store.Era{EraID: 1982, SessionStart: 11931, StartTime: 1000}))
	// The per-block contract persists the block before interpreting; the
	// sessions.block_number FK depends on it.
	require.NoError(t, s.InsertBlockWithEvents(ctx, store.ChainAH, store.Block{BlockNumber: 10279000, Timestamp: 1700000000000}, nil))

	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{byHeight: map[uint64]*fakeStateView{
		10278999: {activeEra: u64p(1982)},
		10279000: {activeEra: u64p(1982), currentEra: u64p(1982)},
	}}

	data := `{"endIndex":11935,"validatorPointsCounts":599}`
	events := []store.Event{eventRow("10279000-0", 10279000, "stakingRcClient.SessionReportReceived", data)}

	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10279000, 1700000000000, events))

	sess, err := s.SessionByID(ctx, 11935)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.EqualValues(t, 10279000, *sess.BlockNumber)
	assert.EqualValues(t, 1982, *sess.ActiveEraID)
	assert.EqualValues(t, 599, sess.ValidatorPointsTotal)

	next, err := s.SessionByID(ctx, 11936)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Nil(t, next.BlockNumber)
	assert.EqualValues(t, 1982, *next.ActiveEraID)

	era, err := s.EraByID(ctx, 1982)
	require.NoError(t, err)
	require.NotNil(t, era)
	assert.Nil(t, era.SessionEnd)
}

// TestSessionReportReceived_EraBoundary: a session report carrying an
// activation timestamp closes the old era and opens the next one.
func TestSessionReportReceived_EraBoundary(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "s2.db")
	s, err := store.Open(dbPath, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, store.UpsertEra(ctx, s.DB(), store.Era{EraID: 1982, SessionStart: 11931, StartTime: 1000}))
	require.NoError(t, s.InsertBlockWithEvents(ctx, store.ChainAH, store.Block{BlockNumber: 10279301, Timestamp: 1762400172000}, nil))

	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{byHeight: map[uint64]*fakeStateView{
		10279300: {activeEra: u64p(1982)},
		10279301: {activeEra: u64p(1983), currentEra: u64p(1983)},
	}}

	data := `{"endIndex":11936,"validatorPointsCounts":599,"activationTimestamp":[1762400172000,1983]}`
	events := []store.Event{eventRow("10279301-0", 10279301, "stakingRcClient.SessionReportReceived", data)}

	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10279301, 1762400172000, events))

	closedEra, err := s.EraByID(ctx, 1982)
	require.NoError(t, err)
	require.NotNil(t, closedEra)
	require.NotNil(t, closedEra.SessionEnd)
	assert.EqualValues(t, 11936, *closedEra.SessionEnd)

	newEra, err := s.EraByID(ctx, 1983)
	require.NoError(t, err)
	require.NotNil(t, newEra)
	assert.Nil(t, newEra.SessionEnd)
	assert.EqualValues(t, 11937, newEra.SessionStart)
	assert.EqualValues(t, 1762400172000, newEra.StartTime)

	sess11936, err := s.SessionByID(ctx, 11936)
	require.NoError(t, err)
	require.NotNil(t, sess11936)
	assert.EqualValues(t, 1982, *sess11936.ActiveEraID)

	sess11937, err := s.SessionByID(ctx, 11937)
	require.NoError(t, err)
	require.NotNil(t, sess11937)
	require.NotNil(t, sess11937.ActiveEraID)
	assert.EqualValues(t, 1983, *sess11937.ActiveEraID)
}

// TestEraPaid_InflationUpdate: start_time and session bounds must survive
// the inflation update untouched, and the total is a big-integer sum.
func TestEraPaid_InflationUpdate(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "s3.db")
	s, err := store.Open(dbPath, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	sessionEnd := uint64(11936)
	require.NoError(t, store.UpsertEra(ctx, s.DB(), store.Era{
		EraID: 1982, SessionStart: 11931, SessionEnd: &sessionEnd, StartTime: 5000,
	}))

	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{}

	data := `{"eraIndex":1982,"validatorPayout":"971146566430052","remainder":"171378805840597"}`
	events := []store.Event{eventRow("10279301-1", 10279301, "staking.EraPaid", data)}
	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10279301, 1762400172000, events))

	era, err := s.EraByID(ctx, 1982)
	require.NoError(t, err)
	require.NotNil(t, era)
	require.NotNil(t, era.InflationValidators)
	require.NotNil(t, era.InflationTreasury)
	require.NotNil(t, era.InflationTotal)
	assert.Equal(t, "971146566430052", *era.InflationValidators)
	assert.Equal(t, "171378805840597", *era.InflationTreasury)
	assert.Equal(t, "1142525372270649", *era.InflationTotal)
	assert.EqualValues(t, 11931, era.SessionStart)
	require.NotNil(t, era.SessionEnd)
	assert.EqualValues(t, 11936, *era.SessionEnd)
	assert.EqualValues(t, 5000, era.StartTime)
}

// TestElectionScoreLifecycle: Registered then Rewarded; the score fields
// set at registration survive the status transition.
func TestElectionScoreLifecycle(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "s4.db")
	s, err := store.Open(dbPath, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{byHeight: map[uint64]*fakeStateView{
		10274762: {activeEra: u64p(1982)},
	}}

	registered := `{"round":3964,"submitter":"A","minimalStake":"9822834105182999","sumStake":"40914956818281800","sumStakeSquared":"249348803003456830000000000000000"}`
	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10274762, 0,
		[]store.Event{eventRow("10274762-0", 10274762, "multiBlockElectionSigned.Registered", registered)}))

	row, err := store.ElectionScoreByKey(ctx, s.DB(), 3964, "A")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, store.ScoreRegistered, row.Status)
	assert.Equal(t, "9822834105182999", row.MinimalStake)

	rewarded := `{"round":3964,"submitter":"A"}`
	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10274936, 0,
		[]store.Event{eventRow("10274936-0", 10274936, "multiBlockElectionSigned.Rewarded", rewarded)}))

	row, err = store.ElectionScoreByKey(ctx, s.DB(), 3964, "A")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, store.ScoreRewarded, row.Status)
	assert.EqualValues(t, 10274936, row.BlockNumber)
	assert.Equal(t, "9822834105182999", row.MinimalStake)
}

// TestElectionScoreTerminalImmutability: a later event against an
// already-terminal row is silently ignored.
func TestElectionScoreTerminalImmutability(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "s5.db")
	s, err := store.Open(dbPath, logging.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := int64(1)
	require.NoError(t, store.UpsertElectionScoreRegistered(ctx, s.DB(), 3964, "A", 10274762, "1", "2", "3", nil, now))
	require.NoError(t, store.TransitionElectionScore(ctx, s.DB(), 3964, "A", store.ScoreRewarded, 10274936, nil, now))

	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{}
	slashed := `{"round":3964,"submitter":"A"}`
	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10275000, 0,
		[]store.Event{eventRow("10275000-0", 10275000, "multiBlockElectionSigned.Slashed", slashed)}))

	row, err := store.ElectionScoreByKey(ctx, s.DB(), 3964, "A")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, store.ScoreRewarded, row.Status, "terminal status must not be overwritten")
	assert.EqualValues(t, 10274936, row.BlockNumber, "terminal row's block_number must not change")
}

// TestSessionReportReceived_MissingEndIndex covers the data
// absence path: a warning is recorded and processing continues without
// error (handlers never propagate data-absence failures).
func TestSessionReportReceived_MissingEndIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{}

	events := []store.Event{eventRow("1-0", 1, "stakingRcClient.SessionReportReceived", `{}`)}
	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 1, 0, events))

	warnings, err := s.RecentWarnings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, store.WarningMissingEvent, warnings[0].Type)
}

// TestProcessBlockIdempotent: re-running
// the same block's events produces the same Store state.
func TestProcessBlockIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ip := New(s.DB(), logging.Nop())
	fetcher := &fakeFetcher{byHeight: map[uint64]*fakeStateView{
		10274762: {activeEra: u64p(1982)},
	}}

	registered := `{"round":3964,"submitter":"A","minimalStake":"100","sumStake":"200","sumStakeSquared":"300"}`
	events := []store.Event{eventRow("10274762-0", 10274762, "multiBlockElectionSigned.Registered", registered)}

	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10274762, 0, events))
	first, err := store.ElectionScoreByKey(ctx, s.DB(), 3964, "A")
	require.NoError(t, err)

	require.NoError(t, ip.ProcessBlock(ctx, s.DB(), fetcher, 10274762, 0, events))
	second, err := store.ElectionScoreByKey(ctx, s.DB(), 3964, "A")
	require.NoError(t, err)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.MinimalStake, second.MinimalStake)
	assert.Equal(t, first.SumStake, second.SumStake)
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
