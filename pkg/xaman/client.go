// Package xaman bridges the middleware to the external custodial wallet
// agent: session restoration, the payload signing protocol, and stateless
// deep links for out-of-band approval.
package xaman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/drippyfi/dualchain-middleware/internal/metrics"
	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
)

// Config holds the agent connection settings. An empty APIKey permanently
// disables authentication for the process; that is a mode switch, not an
// error.
type Config struct {
	APIKey     string
	BaseURL    string
	DetectHost string
}

// Options holds tunables for the agent client.
type Options struct {
	HTTPTimeout  time.Duration `default:"15s"`
	PollInterval time.Duration `default:"2s"`
}

// Client talks to the wallet agent's HTTP API.
type Client struct {
	cfg    Config
	opts   Options
	http   *http.Client
	logger *zap.Logger

	ready       atomic.Bool
	restoreOnce sync.Once
	restoredAcc string
	restoreErr  error
}

// New creates an agent client. When no API key is configured the client is
// immediately ready and every authenticated operation is disabled.
func New(cfg Config, logger *zap.Logger, opts Options) (*Client, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("apply agent client defaults: %w", err)
	}
	if cfg.DetectHost == "" {
		cfg.DetectHost = "xaman.app"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:    cfg,
		opts:   opts,
		http:   &http.Client{Timeout: opts.HTTPTimeout},
		logger: logger,
	}
	if cfg.APIKey == "" {
		logger.Warn("Agent API key missing: wallet authentication disabled")
		c.ready.Store(true)
	}
	return c, nil
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// Ready reports whether session restoration has resolved. It becomes true
// without any network call when authentication is disabled.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// RestoreSession asks the agent for an existing session and returns its
// account identifier, or "" when there is none. It runs at most once per
// process lifetime; later calls return the first result.
func (c *Client) RestoreSession(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", nil
	}

	c.restoreOnce.Do(func() {
		defer c.ready.Store(true)

		raw, err := c.get(ctx, "/state")
		if err != nil {
			c.restoreErr = err
			return
		}
		account, err := decodeState(raw)
		if err != nil {
			c.restoreErr = err
			return
		}
		c.restoredAcc = account
		if account != "" {
			c.logger.Info("Restored wallet session", zap.String("account", account))
		} else {
			c.logger.Info("No existing wallet session")
		}
	})
	return c.restoredAcc, c.restoreErr
}

// Sign submits an unsigned intent to the agent and awaits its resolution.
// Rejection, expiry and agent failures all resolve to the negative outcome;
// only ctx cancellation is returned as an error. No retries are attempted;
// a rejected attempt must be re-initiated as a brand-new intent.
func (c *Client) Sign(ctx context.Context, intent TxIntent) (SigningOutcome, error) {
	if !c.Enabled() {
		return SigningOutcome{}, apperrors.ConfigAbsentError("wallet authentication disabled")
	}

	body, err := json.Marshal(map[string]any{"txjson": intent})
	if err != nil {
		return SigningOutcome{}, fmt.Errorf("encode intent: %w", err)
	}

	raw, err := c.post(ctx, "/payload", body)
	if err != nil {
		c.logger.Warn("Payload submission failed", zap.Error(err))
		metrics.SigningOutcomes.WithLabelValues("agent_error").Inc()
		return SigningOutcome{}, nil
	}

	var created createResponse
	if err := json.Unmarshal(raw, &created); err != nil || created.UUID == "" {
		c.logger.Warn("Undecodable payload submission response", zap.Error(err))
		metrics.SigningOutcomes.WithLabelValues("agent_error").Inc()
		return SigningOutcome{}, nil
	}

	c.logger.Info("Signing payload created", zap.String("payload_uuid", created.UUID))
	return c.awaitOutcome(ctx, created.UUID)
}

// awaitOutcome polls the agent until the payload resolves. The round trip
// may stay pending indefinitely waiting on the user; cancellation of ctx is
// the caller abandoning the wait, not a rejection.
func (c *Client) awaitOutcome(ctx context.Context, uuid string) (SigningOutcome, error) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return SigningOutcome{}, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.PayloadResult(ctx, uuid)
		if err != nil {
			if ctx.Err() != nil {
				return SigningOutcome{}, ctx.Err()
			}
			c.logger.Warn("Payload status lookup failed",
				zap.String("payload_uuid", uuid),
				zap.Error(err))
			metrics.SigningOutcomes.WithLabelValues("agent_error").Inc()
			return SigningOutcome{}, nil
		}

		switch {
		case status.Meta.Resolved && status.Meta.Signed:
			metrics.SigningOutcomes.WithLabelValues("signed").Inc()
			c.logger.Info("Payload signed",
				zap.String("payload_uuid", uuid),
				zap.String("txid", status.Response.TxID))
			return SigningOutcome{Signed: true, TxID: status.Response.TxID}, nil
		case status.Meta.Resolved || status.Meta.Expired:
			metrics.SigningOutcomes.WithLabelValues("not_signed").Inc()
			c.logger.Info("Payload not signed", zap.String("payload_uuid", uuid))
			return SigningOutcome{}, nil
		}
	}
}

// PayloadResult fetches the agent's record of a payload outcome.
func (c *Client) PayloadResult(ctx context.Context, uuid string) (*PayloadStatus, error) {
	raw, err := c.get(ctx, "/payload/"+uuid)
	if err != nil {
		return nil, err
	}
	var status PayloadStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, apperrors.DecodeError(err, "payload status response")
	}
	return &status, nil
}

// Logout terminates the agent-side session.
func (c *Client) Logout(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.post(ctx, "/logout", nil)
	return err
}

// ForgetMe asks the agent to drop all stored user state.
func (c *Client) ForgetMe(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.post(ctx, "/forget-me", nil)
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ConnectivityError(err, "agent unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ConnectivityError(err, "agent response read failed")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.AgentError(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			"agent request failed")
	}
	return raw, nil
}
