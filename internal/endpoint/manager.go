// Package endpoint implements the EndpointManager: a small health-tracking
// pool in front of a list of RPC endpoint URLs that produces a connected
// chain.Client and transparently fails over when one goes bad. Modeled on
// the reconnect/backoff polling style of long-running chain watchers —
// a ctx.Done()-driven loop with a ticking liveness check, rather than a
// full-blown circuit breaker library, since the failure domain here
// (a handful of known-good RPC endpoints) does not warrant one.
package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/chain"
	"github.com/dotstake/indexer/internal/errs"
)

// MaxFail is the consecutive-failure count at which an endpoint is
// marked unhealthy (recommended value 3).
const MaxFail = 3

// Cooldown is how long an unhealthy endpoint is skipped before being
// reconsidered eligible again.
const Cooldown = 2 * time.Minute

type endpointState struct {
	url                 string
	lastAttempt         time.Time
	consecutiveFailures int
	healthy             bool
}

func (s *endpointState) isSelectable(now time.Time) bool {
	if s.healthy {
		return true
	}
	return s.consecutiveFailures < MaxFail || now.Sub(s.lastAttempt) >= Cooldown
}

// Manager fronts one chain layer's endpoint pool: given a chain/layer tag and
// a static endpoint list, it produces and maintains a connected
// chain.Client, failing over and reconnecting as endpoints misbehave.
type Manager struct {
	chainTag string
	layerTag string
	dialer   chain.Dialer
	logger   *zap.Logger

	mu         sync.RWMutex
	endpoints  []*endpointState
	cursor     int
	client     chain.Client
	connected  bool
	currentURL string
}

// New constructs a Manager over a fixed endpoint list. The list must be
// non-empty.
func New(chainTag, layerTag string, endpoints []string, dialer chain.Dialer, logger *zap.Logger) (*Manager, error) {
	if len(endpoints) == 0 {
		return nil, errors.Errorf("endpoint manager for %s/%s: empty endpoint list", chainTag, layerTag)
	}
	states := make([]*endpointState, len(endpoints))
	for i, url := range endpoints {
		states[i] = &endpointState{url: url, healthy: true}
	}
	return &Manager{
		chainTag:  chainTag,
		layerTag:  layerTag,
		dialer:    dialer,
		logger:    logger.With(zap.String("chain", chainTag), zap.String("layer", layerTag)),
		endpoints: states,
	}, nil
}

// disconnectNotifier is optionally implemented by clients (the WSClient)
// that can signal an observed disconnect, letting Run react within the ~5s
// reconnect delay instead of waiting out a liveness tick.
type disconnectNotifier interface {
	Disconnected() <-chan struct{}
}

// Run drives the connect/reconnect/liveness lifecycle until ctx is
// cancelled, at which point it disconnects orderly. An exhausted pool on
// the initial connect is retried after the reconnect delay — connect just
// reset every endpoint to healthy, treating the outage as transient.
func (m *Manager) Run(ctx context.Context) error {
	for {
		err := m.connect(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil
		}
		m.logger.Warn("endpoint pool exhausted, retrying", zap.Error(err))
		select {
		case <-time.After(chain.DefaultReconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
	defer m.disconnect()

	ticker := time.NewTicker(chain.DefaultLivenessInterval)
	defer ticker.Stop()

	for {
		var disconnected <-chan struct{}
		if dn, ok := m.Client().(disconnectNotifier); ok {
			disconnected = dn.Disconnected()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-disconnected:
			m.logger.Warn("client disconnected, reconnecting")
			m.scheduleReconnect(ctx)
		case <-ticker.C:
			if !m.checkLiveness(ctx) {
				m.logger.Warn("liveness check failed, reconnecting")
				m.scheduleReconnect(ctx)
			}
		}
	}
}

func (m *Manager) checkLiveness(ctx context.Context) bool {
	m.mu.RLock()
	c := m.client
	m.mu.RUnlock()
	if c == nil {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, chain.DefaultConnectTimeout)
	defer cancel()
	_, err := c.FinalizedHead(checkCtx)
	return err == nil
}

func (m *Manager) scheduleReconnect(ctx context.Context) {
	select {
	case <-time.After(chain.DefaultReconnectDelay):
	case <-ctx.Done():
		return
	}
	if err := m.connect(ctx); err != nil {
		m.logger.Error("reconnect failed", zap.Error(err))
	}
}

// connect runs the selection algorithm: advance through the
// endpoint list looking for a selectable one, resetting all to healthy
// after two full unsuccessful passes (assumed transient network fault).
func (m *Manager) connect(ctx context.Context) error {
	m.mu.Lock()
	n := len(m.endpoints)
	m.mu.Unlock()

	var lastErr error
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < n; i++ {
			m.mu.Lock()
			idx := m.cursor % n
			m.cursor++
			st := m.endpoints[idx]
			now := time.Now()
			selectable := st.isSelectable(now)
			m.mu.Unlock()

			if !selectable {
				continue
			}

			connectCtx, cancel := context.WithTimeout(ctx, chain.DefaultConnectTimeout)
			c, err := m.dialer.Dial(connectCtx, st.url)
			cancel()

			m.mu.Lock()
			st.lastAttempt = time.Now()
			if err != nil {
				st.consecutiveFailures++
				if st.consecutiveFailures >= MaxFail {
					st.healthy = false
				}
				m.mu.Unlock()
				lastErr = err
				m.logger.Warn("dial failed", zap.String("endpoint", st.url), zap.Error(err))
				continue
			}
			st.consecutiveFailures = 0
			st.healthy = true
			old := m.client
			m.client = c
			m.connected = true
			m.currentURL = st.url
			m.mu.Unlock()

			if old != nil {
				_ = old.Close()
			}
			m.logger.Info("connected", zap.String("endpoint", st.url))
			return nil
		}
	}

	m.mu.Lock()
	for _, st := range m.endpoints {
		st.healthy = true
		st.consecutiveFailures = 0
	}
	m.mu.Unlock()

	if lastErr == nil {
		lastErr = errors.New("no endpoints available")
	}
	return errs.NewTransient(errors.Wrapf(lastErr, "%s/%s: exhausted endpoint pool", m.chainTag, m.layerTag))
}

func (m *Manager) disconnect() {
	m.mu.Lock()
	c := m.client
	m.client = nil
	m.connected = false
	m.currentURL = ""
	m.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

// Client returns the currently-connected chain.Client, or nil if not
// currently connected.
func (m *Manager) Client() chain.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// IsConnected reports whether a live connection is currently held.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// CurrentEndpoint returns the URL most recently successfully connected to,
// or "" if never connected.
func (m *Manager) CurrentEndpoint() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentURL
}
