package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/store"
)

type fakeStateView struct {
	timestamp int64
	events    []chain.RawEvent
}

func (f *fakeStateView) Timestamp(ctx context.Context) (int64, error)          { return f.timestamp, nil }
func (f *fakeStateView) Events(ctx context.Context) ([]chain.RawEvent, error)  { return f.events, nil }
func (f *fakeStateView) ActiveEra(ctx context.Context) (*uint64, error)        { return nil, nil }
func (f *fakeStateView) CurrentEra(ctx context.Context) (*uint64, error)       { return nil, nil }
func (f *fakeStateView) ValidatorCount(ctx context.Context) (*uint64, error)   { return nil, nil }
func (f *fakeStateView) CounterForValidators(ctx context.Context) (*uint64, error) {
	return nil, nil
}
func (f *fakeStateView) CounterForNominators(ctx context.Context) (*uint64, error) {
	return nil, nil
}
func (f *fakeStateView) ElectableStashes(ctx context.Context) (*uint64, error) { return nil, nil }
func (f *fakeStateView) ElectionRound(ctx context.Context) (*uint64, error)    { return nil, nil }
func (f *fakeStateView) MinimumElectionScore(ctx context.Context) (*string, error) {
	return nil, nil
}

type fakeChainClient struct {
	finalized uint64
	blocks    map[uint64]*fakeStateView
}

func (c *fakeChainClient) FinalizedHead(ctx context.Context) (uint64, error) { return c.finalized, nil }
func (c *fakeChainClient) SubscribeFinalizedHeaders(ctx context.Context) (<-chan uint64, error) {
	ch := make(chan uint64)
	close(ch)
	return ch, nil
}
func (c *fakeChainClient) BlockHash(ctx context.Context, height uint64) (string, error) {
	return "0xabc", nil
}
func (c *fakeChainClient) StateAt(ctx context.Context, hash string) (chain.StateView, error) {
	return c.blocks[0], nil
}
func (c *fakeChainClient) Close() error { return nil }

type fakeProvider struct{ client chain.Client }

func (p *fakeProvider) Client() chain.Client { return p.client }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir()+"/test.db", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBackfillProcessesMissingHeightsAscending(t *testing.T) {
	s := openTestStore(t)
	client := &fakeChainClient{
		finalized: 3,
		blocks: map[uint64]*fakeStateView{
			0: {timestamp: 1000, events: []chain.RawEvent{{Index: 0, Type: "staking.EraPaid", Data: "{}"}}},
		},
	}
	p := &Pipeline{
		ChainTag:   store.ChainRC,
		FilterName: "rc",
		SyncWindow: 10,
		Provider:   &fakeProvider{client: client},
		Store:      s,
		Logger:     zap.NewNop(),
	}

	require.NoError(t, p.backfill(context.Background()))

	for h := uint64(1); h <= 3; h++ {
		exists, err := s.BlockExists(context.Background(), store.ChainRC, h)
		require.NoError(t, err)
		assert.True(t, exists, "height %d should have been backfilled", h)
	}

	progress, err := s.GetSyncProgress(context.Background(), store.ChainRC)
	require.NoError(t, err)
	assert.False(t, progress.IsSyncing)
	assert.Equal(t, uint64(3), progress.SyncedBlocks)
}

func TestProcessBlockIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	client := &fakeChainClient{
		finalized: 1,
		blocks: map[uint64]*fakeStateView{
			0: {timestamp: 500, events: []chain.RawEvent{{Index: 0, Type: "session.NewSession", Data: "{}"}}},
		},
	}
	p := &Pipeline{
		ChainTag:   store.ChainRC,
		FilterName: "rc",
		Provider:   &fakeProvider{client: client},
		Store:      s,
		Logger:     zap.NewNop(),
	}

	require.NoError(t, p.processBlock(context.Background(), 1))
	require.NoError(t, p.processBlock(context.Background(), 1))

	events, err := s.EventsByBlock(context.Background(), store.ChainRC, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestProcessBlockFiltersEventsByLayer(t *testing.T) {
	s := openTestStore(t)
	client := &fakeChainClient{
		finalized: 1,
		blocks: map[uint64]*fakeStateView{
			0: {timestamp: 500, events: []chain.RawEvent{
				{Index: 0, Type: "staking.EraPaid", Data: "{}"},
				{Index: 1, Type: "balances.Transfer", Data: "{}"},
			}},
		},
	}
	p := &Pipeline{
		ChainTag:   store.ChainRC,
		FilterName: "rc",
		Provider:   &fakeProvider{client: client},
		Store:      s,
		Logger:     zap.NewNop(),
	}

	require.NoError(t, p.processBlock(context.Background(), 1))

	events, err := s.EventsByBlock(context.Background(), store.ChainRC, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "staking.EraPaid", events[0].EventType)
}

func TestProcessBlockWithRetryGivesUpAndReturnsError(t *testing.T) {
	s := openTestStore(t)
	p := &Pipeline{
		ChainTag:   store.ChainRC,
		FilterName: "rc",
		Provider:   &fakeProvider{client: nil},
		Store:      s,
		Logger:     zap.NewNop(),
	}

	err := p.processBlockWithRetry(context.Background(), 1)
	assert.Error(t, err)

	exists, err2 := s.BlockExists(context.Background(), store.ChainRC, 1)
	require.NoError(t, err2)
	assert.False(t, exists)
}
