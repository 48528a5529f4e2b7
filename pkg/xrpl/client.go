// Package xrpl implements the live connection to the account-based ledger:
// a websocket JSON-RPC client with explicit connection state and
// request/response correlation.
package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/drippyfi/dualchain-middleware/internal/metrics"
	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
	"github.com/drippyfi/dualchain-middleware/pkg/network"
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Options holds tunables for the websocket client.
type Options struct {
	HandshakeTimeout time.Duration `default:"10s"`
	RequestTimeout   time.Duration `default:"30s"`
	WriteTimeout     time.Duration `default:"10s"`
}

// Client owns the single live connection to the selected ledger endpoint.
// Reconnection is driven externally by a configuration change, never
// automatically.
type Client struct {
	logger *zap.Logger
	opts   Options

	writeMu sync.Mutex // serializes writes to the socket

	mu       sync.Mutex
	state    State
	endpoint string
	conn     *websocket.Conn
	closing  bool
	pending  map[string]chan envelope
}

// NewClient creates a disconnected client.
func NewClient(logger *zap.Logger, opts Options) (*Client, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("apply client defaults: %w", err)
	}
	return &Client{
		logger:  logger,
		opts:    opts,
		pending: make(map[string]chan envelope),
	}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Endpoint returns the endpoint of the current or last connection attempt.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Connected reports whether the client holds a live connection.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Connect opens a streaming connection to the network's RPC endpoint. When
// already connected to the same endpoint it is a no-op; otherwise any
// existing connection is torn down first.
func (c *Client) Connect(ctx context.Context, cfg network.Config) error {
	c.mu.Lock()
	if c.state == StateConnected && c.endpoint == cfg.RPCURL {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	c.state = StateConnecting
	c.endpoint = cfg.RPCURL
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, cfg.RPCURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()
		metrics.LedgerConnects.WithLabelValues("failed").Inc()
		c.logger.Error("Failed to connect to ledger",
			zap.String("endpoint", cfg.RPCURL),
			zap.Error(err))
		return apperrors.ConnectivityError(err, "ledger endpoint unreachable")
	}

	c.mu.Lock()
	c.conn = conn
	c.closing = false
	c.pending = make(map[string]chan envelope)
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(conn)

	metrics.LedgerConnects.WithLabelValues("connected").Inc()
	c.logger.Info("Connected to ledger",
		zap.String("network", cfg.Name),
		zap.String("endpoint", cfg.RPCURL))
	return nil
}

// Disconnect closes any live connection. It is idempotent and always leaves
// the client in the Disconnected state.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.state = StateDisconnected
}

// teardownLocked closes the socket and fails all in-flight requests.
// Callers must hold c.mu.
func (c *Client) teardownLocked() {
	if c.conn != nil {
		c.closing = true
		_ = c.conn.Close()
		c.conn = nil
	}
	c.failPendingLocked()
}

// failPendingLocked closes the response channel of every in-flight request;
// waiters observe the close as a lost connection.
func (c *Client) failPendingLocked() {
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
}

// readLoop is the single reader for one socket; it dispatches responses to
// their waiting requests by id.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn || c.conn == nil {
				if c.closing {
					c.state = StateDisconnected
				} else if c.state == StateConnected {
					c.state = StateFailed
					c.logger.Warn("Ledger connection lost", zap.Error(err))
				}
				c.conn = nil
				c.failPendingLocked()
			}
			c.mu.Unlock()
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("Dropping undecodable ledger frame", zap.Error(err))
			continue
		}
		if env.ID == "" {
			// Unsolicited stream message; nothing subscribes to those yet.
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- env
		}
	}
}

// Request issues a single command and waits for its correlated response.
// Outside the Connected state it fails fast rather than queuing.
func (c *Client) Request(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return nil, apperrors.NotConnectedError("not connected to ledger")
	}
	conn := c.conn
	id := uuid.NewString()
	ch := make(chan envelope, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = command

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, apperrors.ConnectivityError(err, "ledger request write failed")
	}

	timer := time.NewTimer(c.opts.RequestTimeout)
	defer timer.Stop()

	select {
	case env, ok := <-ch:
		if !ok {
			return nil, apperrors.ConnectivityError(errors.New("connection closed"), "ledger connection lost mid-request")
		}
		switch env.Status {
		case "success":
			return env.Result, nil
		case "error":
			return nil, &RPCError{Code: env.ErrorCode, Message: env.ErrorMessage}
		default:
			return nil, apperrors.DecodeError(nil, fmt.Sprintf("unrecognized response status %q", env.Status))
		}
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, apperrors.ConnectivityError(errors.New("request timed out"), "ledger request timed out")
	}
}

// AccountInfo looks up an account's native state on the validated ledger.
func (c *Client) AccountInfo(ctx context.Context, account string) (*AccountInfo, error) {
	raw, err := c.Request(ctx, "account_info", map[string]any{
		"account":      account,
		"ledger_index": "validated",
	})
	if err != nil {
		return nil, err
	}

	var res accountInfoResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, apperrors.DecodeError(err, "account_info result")
	}
	if res.AccountData == nil {
		return nil, apperrors.DecodeError(nil, "account_info result missing account_data")
	}
	return res.AccountData, nil
}

// AccountLines enumerates an account's trust lines on the validated ledger.
func (c *Client) AccountLines(ctx context.Context, account string) ([]TrustLine, error) {
	raw, err := c.Request(ctx, "account_lines", map[string]any{
		"account":      account,
		"ledger_index": "validated",
	})
	if err != nil {
		return nil, err
	}

	var res accountLinesResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, apperrors.DecodeError(err, "account_lines result")
	}
	if res.Lines == nil {
		return nil, apperrors.DecodeError(nil, "account_lines result missing lines")
	}
	return *res.Lines, nil
}
