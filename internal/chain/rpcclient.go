package chain

import (
	"context"
	encodingjson "encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dotstake/indexer/internal/errs"
)

// rpcRequest/rpcResponse are the plain JSON-RPC 2.0 envelopes spoken over
// the node's WebSocket endpoint.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rawResult wraps a json.RawMessage so a nil/absent "result" field decodes
// cleanly while still letting callers unmarshal it into a concrete type via
// jsoniter, keeping the rest of the package on one JSON codec.
type rawResult struct {
	data encodingjson.RawMessage
}

func (r *rawResult) UnmarshalJSON(b []byte) error {
	r.data = append(r.data[:0], b...)
	return nil
}

func (r rawResult) unmarshalInto(v interface{}) error {
	if len(r.data) == 0 || string(r.data) == "null" {
		return nil
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(r.data, v)
}

type rpcResponse struct {
	ID     uint64    `json:"id"`
	Result rawResult `json:"result"`
	Error  *rpcError `json:"error"`
	// Subscription notifications carry "method"/"params" instead of id/result.
	Method string `json:"method"`
	Params struct {
		Subscription string    `json:"subscription"`
		Result       rawResult `json:"result"`
	} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// WSClient is the gorilla/websocket-backed Client implementation. It owns a
// single connection; reconnection on failure is the EndpointManager's job,
// not this type's — a WSClient that loses its socket simply reports errors
// until Close is called and a new one is dialed.
type WSClient struct {
	logger *zap.Logger
	conn   *websocket.Conn
	nextID uint64

	mu      sync.Mutex
	pending map[uint64]chan rpcResponse
	subs    map[string]chan rpcResponse

	readErr   atomic.Value // error
	closeOnce sync.Once
	closed    chan struct{}
}

// WSDialer implements Dialer over gorilla/websocket.
type WSDialer struct {
	Logger *zap.Logger
}

func (d WSDialer) Dial(ctx context.Context, endpointURL string) (Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpointURL, nil)
	if err != nil {
		return nil, errs.NewTransient(errors.Wrapf(err, "dialing %s", endpointURL))
	}

	c := &WSClient{
		logger:  d.Logger,
		conn:    conn,
		pending: make(map[uint64]chan rpcResponse),
		subs:    make(map[string]chan rpcResponse),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSClient) readLoop() {
	for {
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.readErr.Store(err)
			c.mu.Lock()
			for _, ch := range c.pending {
				close(ch)
			}
			for _, ch := range c.subs {
				close(ch)
			}
			c.pending = map[uint64]chan rpcResponse{}
			c.subs = map[string]chan rpcResponse{}
			c.mu.Unlock()
			close(c.closed)
			return
		}

		c.mu.Lock()
		if resp.Method != "" && resp.Params.Subscription != "" {
			if ch, ok := c.subs[resp.Params.Subscription]; ok {
				select {
				case ch <- resp:
				default:
				}
			}
		} else if ch, ok := c.pending[resp.ID]; ok {
			ch <- resp
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
	}
}

func (c *WSClient) call(ctx context.Context, method string, params ...interface{}) (rpcResponse, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	ch := make(chan rpcResponse, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.conn.WriteJSON(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return rpcResponse{}, errs.NewTransient(errors.Wrapf(err, "writing %s request", method))
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return rpcResponse{}, errs.NewTransient(errors.Errorf("connection closed awaiting %s response", method))
		}
		if resp.Error != nil {
			return rpcResponse{}, errs.NewTransient(resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return rpcResponse{}, ctx.Err()
	case <-c.closed:
		return rpcResponse{}, errs.NewTransient(errors.Errorf("connection closed awaiting %s response", method))
	}
}

func (c *WSClient) FinalizedHead(ctx context.Context) (uint64, error) {
	resp, err := c.call(ctx, "chain_getFinalizedHead")
	if err != nil {
		return 0, err
	}
	var hash string
	if err := resp.Result.unmarshalInto(&hash); err != nil {
		return 0, errs.NewTransient(errors.Wrap(err, "decoding finalized head hash"))
	}
	header, err := c.headerAt(ctx, hash)
	if err != nil {
		return 0, err
	}
	return header.Number, nil
}

type blockHeader struct {
	Number uint64
}

func (c *WSClient) headerAt(ctx context.Context, hash string) (blockHeader, error) {
	resp, err := c.call(ctx, "chain_getHeader", hash)
	if err != nil {
		return blockHeader{}, err
	}
	var raw struct {
		Number string `json:"number"`
	}
	if err := resp.Result.unmarshalInto(&raw); err != nil {
		return blockHeader{}, errs.NewTransient(errors.Wrap(err, "decoding header"))
	}
	n, err := parseHexUint(raw.Number)
	if err != nil {
		return blockHeader{}, errs.NewTransient(errors.Wrap(err, "parsing header number"))
	}
	return blockHeader{Number: n}, nil
}

func (c *WSClient) SubscribeFinalizedHeaders(ctx context.Context) (<-chan uint64, error) {
	resp, err := c.call(ctx, "chain_subscribeFinalizedHeads")
	if err != nil {
		return nil, err
	}
	var subID string
	if err := resp.Result.unmarshalInto(&subID); err != nil {
		return nil, errs.NewTransient(errors.Wrap(err, "decoding subscription id"))
	}

	raw := make(chan rpcResponse, 64)
	c.mu.Lock()
	c.subs[subID] = raw
	c.mu.Unlock()

	out := make(chan uint64, 64)
	go func() {
		defer close(out)
		for {
			select {
			case resp, ok := <-raw:
				if !ok {
					return
				}
				var header struct {
					Number string `json:"number"`
				}
				if err := resp.Params.Result.unmarshalInto(&header); err != nil {
					c.logger.Warn("decoding finalized header notification", zap.Error(err))
					continue
				}
				n, err := parseHexUint(header.Number)
				if err != nil {
					c.logger.Warn("parsing finalized header number", zap.Error(err))
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			case <-c.closed:
				return
			}
		}
	}()
	return out, nil
}

func (c *WSClient) BlockHash(ctx context.Context, height uint64) (string, error) {
	resp, err := c.call(ctx, "chain_getBlockHash", height)
	if err != nil {
		return "", err
	}
	var hash string
	if err := resp.Result.unmarshalInto(&hash); err != nil {
		return "", errs.NewTransient(errors.Wrap(err, "decoding block hash"))
	}
	return hash, nil
}

func (c *WSClient) StateAt(ctx context.Context, blockHash string) (StateView, error) {
	return &rpcStateView{client: c, blockHash: blockHash}, nil
}

// Disconnected is closed when the read loop observes the socket dying,
// letting the EndpointManager react immediately instead of waiting for its
// next liveness tick.
func (c *WSClient) Disconnected() <-chan struct{} {
	return c.closed
}

func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

func parseHexUint(s string) (uint64, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		var n uint64
		_, scanErr := fmt.Sscanf(s, "0x%x", &n)
		return n, scanErr
	}
	var n uint64
	_, scanErr := fmt.Sscanf(s, "%d", &n)
	return n, scanErr
}

// DefaultReconnectDelay and DefaultLivenessInterval back the EndpointManager
// reconnect/liveness cadence.
const (
	DefaultReconnectDelay   = 5 * time.Second
	DefaultLivenessInterval = 5 * time.Minute
)
