package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/config"
)

func TestNewWiresAllComponents(t *testing.T) {
	cfg := config.Config{
		Chain:        config.Polkadot,
		DatabasePath: t.TempDir() + "/test.db",
		SyncBlocks:   16,
		MaxEras:      10,
	}

	sup, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer sup.Close()

	assert.NotNil(t, sup.Store())
	assert.NotNil(t, sup.relayManager)
	assert.NotNil(t, sup.assetManager)
	assert.NotNil(t, sup.relayPipeline)
	assert.NotNil(t, sup.assetPipeline)
	assert.Nil(t, sup.relayPipeline.Interpreter, "relay chain pipeline must not interpret events")
	assert.NotNil(t, sup.assetPipeline.Interpreter, "asset hub pipeline must interpret events")
	assert.NotNil(t, sup.reimport)
}

func TestNewRejectsUnknownChain(t *testing.T) {
	cfg := config.Config{
		Chain:        config.Network("unknown"),
		DatabasePath: t.TempDir() + "/test.db",
	}
	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)
}
