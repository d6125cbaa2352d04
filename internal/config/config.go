// Package config loads the process environment surface: the CHAIN
// selector, sync window size, era retention cap, and the optional RC
// endpoint override. Kept deliberately thin — cmd/stakeindexer reads its
// configuration from here; its own cobra/pflag flags cover only logging.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Network is the CHAIN environment selector.
type Network string

const (
	Polkadot Network = "polkadot"
	Kusama   Network = "kusama"
	Westend  Network = "westend"
)

func (n Network) Valid() bool {
	switch n {
	case Polkadot, Kusama, Westend:
		return true
	default:
		return false
	}
}

// Config is the fully-resolved process configuration.
type Config struct {
	Chain             Network
	DatabasePath      string
	SyncBlocks        uint64
	MaxEras           uint64
	CustomRPCEndpoint string // overrides the RC endpoint list with a singleton when non-empty
}

const (
	defaultSyncBlocks = 256
	defaultMaxEras    = 100
)

// FromEnv reads CHAIN, SYNC_BLOCKS, MAX_ERAS, CUSTOM_RPC_ENDPOINT, and
// DATABASE_PATH (defaulted from CHAIN when unset).
func FromEnv() (Config, error) {
	chain := Network(os.Getenv("CHAIN"))
	if !chain.Valid() {
		return Config{}, errors.Errorf("CHAIN must be one of polkadot|kusama|westend, got %q", chain)
	}

	cfg := Config{
		Chain:             chain,
		DatabasePath:      os.Getenv("DATABASE_PATH"),
		SyncBlocks:        defaultSyncBlocks,
		MaxEras:           defaultMaxEras,
		CustomRPCEndpoint: os.Getenv("CUSTOM_RPC_ENDPOINT"),
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = string(chain) + ".db"
	}

	if v := os.Getenv("SYNC_BLOCKS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, "SYNC_BLOCKS")
		}
		cfg.SyncBlocks = n
	}
	if v := os.Getenv("MAX_ERAS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, "MAX_ERAS")
		}
		cfg.MaxEras = n
	}

	return cfg, nil
}
