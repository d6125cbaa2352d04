// Package supervisor wires the per-process component graph: two
// EndpointManagers (one per chain), their chain clients, the two
// IngestionPipelines, the EventInterpreter, and the ReimportWorker, running
// them all as peer tasks under one errgroup and propagating Fatal errors
// as a non-zero process exit.
package supervisor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/config"
	"github.com/dotstake/indexer/internal/endpoint"
	"github.com/dotstake/indexer/internal/errs"
	"github.com/dotstake/indexer/internal/ingestion"
	"github.com/dotstake/indexer/internal/interpreter"
	"github.com/dotstake/indexer/internal/reimport"
	"github.com/dotstake/indexer/internal/store"
)

// Supervisor owns the full component graph for one chain-network process.
type Supervisor struct {
	cfg    config.Config
	store  *store.Store
	logger *zap.Logger

	relayManager  *endpoint.Manager
	assetManager  *endpoint.Manager
	relayPipeline *ingestion.Pipeline
	assetPipeline *ingestion.Pipeline
	reimport      *reimport.Worker
}

// New builds the full graph: opens the Store, resolves endpoint lists,
// constructs both EndpointManagers, both IngestionPipelines, and the
// ReimportWorker. It performs no I/O beyond opening the database and
// applying migrations — dialing happens once Run starts the managers.
func New(cfg config.Config, logger *zap.Logger) (*Supervisor, error) {
	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	relayEndpoints, err := config.Endpoints(cfg, config.LayerRelayChain)
	if err != nil {
		st.Close()
		return nil, errs.NewFatal(err)
	}
	assetEndpoints, err := config.Endpoints(cfg, config.LayerAssetHub)
	if err != nil {
		st.Close()
		return nil, errs.NewFatal(err)
	}

	dialer := chain.WSDialer{Logger: logger}

	relayManager, err := endpoint.New(string(cfg.Chain), string(config.LayerRelayChain), relayEndpoints, dialer, logger)
	if err != nil {
		st.Close()
		return nil, errs.NewFatal(err)
	}
	assetManager, err := endpoint.New(string(cfg.Chain), string(config.LayerAssetHub), assetEndpoints, dialer, logger)
	if err != nil {
		st.Close()
		return nil, errs.NewFatal(err)
	}

	interp := interpreter.New(st.DB(), logger)

	relayPipeline := &ingestion.Pipeline{
		ChainTag:   store.ChainRC,
		FilterName: "rc",
		SyncWindow: cfg.SyncBlocks,
		Provider:   relayManager,
		Store:      st,
		Logger:     logger.With(zap.String("pipeline", "relay_chain")),
	}
	assetPipeline := &ingestion.Pipeline{
		ChainTag:    store.ChainAH,
		FilterName:  "ah",
		SyncWindow:  cfg.SyncBlocks,
		Provider:    assetManager,
		Store:       st,
		Interpreter: interp,
		Logger:      logger.With(zap.String("pipeline", "asset_hub")),
	}

	worker := &reimport.Worker{
		Store: st,
		Processors: map[store.ReimportChain]reimport.Processor{
			store.ReimportChainRC: relayPipeline,
			store.ReimportChainAH: assetPipeline,
		},
		Logger: logger.With(zap.String("component", "reimport_worker")),
	}

	return &Supervisor{
		cfg:           cfg,
		store:         st,
		logger:        logger,
		relayManager:  relayManager,
		assetManager:  assetManager,
		relayPipeline: relayPipeline,
		assetPipeline: assetPipeline,
		reimport:      worker,
	}, nil
}

// Store exposes the underlying Store, e.g. for an admin/API surface hosted
// in the same process.
func (s *Supervisor) Store() *store.Store {
	return s.store
}

// Run starts every component as a peer goroutine and blocks until ctx is
// cancelled or one component returns a Fatal error, which aborts the whole
// process. Transient/DataAbsence errors are handled within each component
// and never reach here.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.relayManager.Run(gctx) })
	g.Go(func() error { return s.assetManager.Run(gctx) })
	g.Go(func() error { return s.relayPipeline.Run(gctx) })
	g.Go(func() error { return s.assetPipeline.Run(gctx) })
	g.Go(func() error { return s.reimport.Run(gctx) })
	g.Go(func() error { s.retentionLoop(gctx); return nil })

	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		s.logger.Error("component failed, shutting down", zap.Error(err))
		return err
	}
	return nil
}

// retentionInterval is how often era retention pruning runs: eras older
// than MaxEras behind the latest are dropped, along with their dependent
// phase and warning rows.
const retentionInterval = time.Hour

// retentionLoop periodically prunes eras beyond the configured retention
// window. Best-effort: a failed prune is logged and retried next tick.
func (s *Supervisor) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.PruneEras(ctx, s.cfg.MaxEras); err != nil {
				s.logger.Error("era retention pruning failed", zap.Error(err))
			}
		}
	}
}

// Close flushes and closes the Store. Called last, after every component's
// Run has returned, so no component writes after the flush.
func (s *Supervisor) Close() error {
	return s.store.Close()
}
