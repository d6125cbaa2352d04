package reimport

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/store"
)

type fakeProcessor struct {
	calls     atomic.Int32
	failWith  error
	lastBlock uint64
}

func (f *fakeProcessor) ReimportBlock(ctx context.Context, blockNumber uint64) error {
	f.calls.Add(1)
	f.lastBlock = blockNumber
	return f.failWith
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir()+"/test.db", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDrainCompletesSuccessfulReimport(t *testing.T) {
	s := openTestStore(t)
	id, err := s.SubmitReimport(context.Background(), store.ReimportChainAH, 42)
	require.NoError(t, err)

	proc := &fakeProcessor{}
	w := &Worker{
		Store:      s,
		Processors: map[store.ReimportChain]Processor{store.ReimportChainAH: proc},
		Logger:     zap.NewNop(),
	}

	w.drain(context.Background())

	assert.Equal(t, int32(1), proc.calls.Load())
	assert.Equal(t, uint64(42), proc.lastBlock)

	reqs, err := s.ListReimports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, store.ReimportCompleted, reqs[0].Status)
	assert.Equal(t, id, reqs[0].ID)
}

func TestDrainMarksFailedReimport(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SubmitReimport(context.Background(), store.ReimportChainRC, 7)
	require.NoError(t, err)

	proc := &fakeProcessor{failWith: assertErr("boom")}
	w := &Worker{
		Store:      s,
		Processors: map[store.ReimportChain]Processor{store.ReimportChainRC: proc},
		Logger:     zap.NewNop(),
	}

	w.drain(context.Background())

	reqs, err := s.ListReimports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, store.ReimportFailed, reqs[0].Status)
	require.NotNil(t, reqs[0].Error)
	assert.Contains(t, *reqs[0].Error, "boom")
}

func TestDrainSkipsUnregisteredChain(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SubmitReimport(context.Background(), store.ReimportChainAH, 1)
	require.NoError(t, err)

	w := &Worker{Store: s, Processors: map[store.ReimportChain]Processor{}, Logger: zap.NewNop()}
	w.drain(context.Background())

	reqs, err := s.ListReimports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, store.ReimportFailed, reqs[0].Status)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
