// Package evm wraps the sidechain connector stack. It is a black box to the
// rest of the middleware: the reported address, balance and chain id are
// accepted as given.
package evm

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
)

// weiPerNative converts the smallest sidechain unit to the display unit.
var weiPerNative = decimal.New(1, 18)

// Connector holds the configured sidechain account and a lazily dialed
// client for the currently selected endpoint.
type Connector struct {
	address string
	logger  *zap.Logger

	mu     sync.Mutex
	rpcURL string
	client *ethclient.Client
}

// NewConnector creates a connector for the given account address. An empty
// address leaves the sidechain leg permanently unavailable.
func NewConnector(address string, logger *zap.Logger) *Connector {
	if address == "" {
		logger.Warn("Sidechain address missing: EVM balances disabled")
	}
	return &Connector{address: address, logger: logger}
}

// Address returns the connector-reported account address.
func (c *Connector) Address() string {
	return c.address
}

// clientFor returns a client for rpcURL, redialing when the endpoint
// changed since the last call.
func (c *Connector) clientFor(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.rpcURL == rpcURL {
		return c.client, nil
	}
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperrors.ConnectivityError(err, "sidechain endpoint unreachable")
	}
	c.client = client
	c.rpcURL = rpcURL
	c.logger.Info("Connected to sidechain", zap.String("endpoint", rpcURL))
	return client, nil
}

// NativeBalance returns the account's native balance on the given endpoint
// as a decimal display string.
func (c *Connector) NativeBalance(ctx context.Context, rpcURL string) (string, error) {
	if c.address == "" {
		return "", apperrors.ConfigAbsentError("sidechain address not configured")
	}
	client, err := c.clientFor(ctx, rpcURL)
	if err != nil {
		return "", err
	}

	wei, err := client.BalanceAt(ctx, common.HexToAddress(c.address), nil)
	if err != nil {
		return "", apperrors.ConnectivityError(err, "sidechain balance query failed")
	}
	return decimal.NewFromBigInt(wei, 0).Div(weiPerNative).String(), nil
}

// ChainID returns the chain id reported by the endpoint.
func (c *Connector) ChainID(ctx context.Context, rpcURL string) (string, error) {
	client, err := c.clientFor(ctx, rpcURL)
	if err != nil {
		return "", err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return "", apperrors.ConnectivityError(err, "sidechain chain id query failed")
	}
	return id.String(), nil
}

// Close releases the dialed client, if any.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
		c.rpcURL = ""
	}
}
