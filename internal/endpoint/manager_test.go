package endpoint

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
)

type fakeClient struct {
	closed atomic.Bool
}

func (f *fakeClient) FinalizedHead(ctx context.Context) (uint64, error)            { return 1, nil }
func (f *fakeClient) SubscribeFinalizedHeaders(ctx context.Context) (<-chan uint64, error) {
	return make(chan uint64), nil
}
func (f *fakeClient) BlockHash(ctx context.Context, height uint64) (string, error) { return "0xabc", nil }
func (f *fakeClient) StateAt(ctx context.Context, hash string) (chain.StateView, error) {
	return nil, nil
}
func (f *fakeClient) Close() error { f.closed.Store(true); return nil }

type fakeDialer struct {
	failFor map[string]bool
}

func (d fakeDialer) Dial(ctx context.Context, url string) (chain.Client, error) {
	if d.failFor[url] {
		return nil, assertError{url}
	}
	return &fakeClient{}, nil
}

type assertError struct{ url string }

func (e assertError) Error() string { return "dial failed: " + e.url }

func TestManagerConnectsToFirstHealthyEndpoint(t *testing.T) {
	dialer := fakeDialer{failFor: map[string]bool{"wss://a": true}}
	m, err := New("polkadot", "relay_chain", []string{"wss://a", "wss://b"}, dialer, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.connect(context.Background()))
	assert.True(t, m.IsConnected())
	assert.Equal(t, "wss://b", m.CurrentEndpoint())
}

func TestManagerResetsAfterTwoFailedPasses(t *testing.T) {
	dialer := fakeDialer{failFor: map[string]bool{"wss://a": true, "wss://b": true}}
	m, err := New("polkadot", "relay_chain", []string{"wss://a", "wss://b"}, dialer, zap.NewNop())
	require.NoError(t, err)

	err = m.connect(context.Background())
	require.Error(t, err)

	for _, st := range m.endpoints {
		assert.True(t, st.healthy)
		assert.Equal(t, 0, st.consecutiveFailures)
	}
}

func TestManagerRunDisconnectsOnCancel(t *testing.T) {
	dialer := fakeDialer{}
	m, err := New("polkadot", "asset_hub", []string{"wss://a"}, dialer, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, m.IsConnected())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.False(t, m.IsConnected())
}

func TestEndpointStateIsSelectable(t *testing.T) {
	st := &endpointState{healthy: false, consecutiveFailures: MaxFail, lastAttempt: time.Now()}
	assert.False(t, st.isSelectable(time.Now()))
	assert.True(t, st.isSelectable(time.Now().Add(Cooldown+time.Second)))
}
