// Package reconcile derives the unified balance and trust-line view of an
// account from live ledger state.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/drippyfi/dualchain-middleware/internal/metrics"
	"github.com/drippyfi/dualchain-middleware/pkg/asset"
	"github.com/drippyfi/dualchain-middleware/pkg/xrpl"
)

// ErrNotReady marks the expected "not ready" state: no live connection or
// no authenticated account yet. Callers keep their previous state; this is
// not a failure.
var ErrNotReady = errors.New("reconciliation not ready")

// dropsPerNative converts the ledger's smallest unit to the display unit.
var dropsPerNative = decimal.New(1, 6)

// Connection is the read-only slice of the ledger client the engine needs.
// The engine only references the connection; it never owns or mutates it.
type Connection interface {
	AccountInfo(ctx context.Context, account string) (*xrpl.AccountInfo, error)
	AccountLines(ctx context.Context, account string) ([]xrpl.TrustLine, error)
}

// AssetConfig identifies the issued asset to reconcile against.
type AssetConfig struct {
	Issuer   string
	Currency string
}

// Result is the reconciled balance state for one account. IssuedBalance is
// nil when no matching trust line exists; when TrustLinePresent is true it
// carries the matched line's balance verbatim (issued-currency balances are
// already decimal-denominated).
type Result struct {
	NativeBalance    string
	IssuedBalance    *string
	TrustLinePresent bool
}

// Engine applies the asset identity match against live ledger state.
type Engine struct {
	logger   *zap.Logger
	issuer   string
	identity asset.Identity
	enabled  bool
}

// New creates an engine for the configured issued asset. A missing issuer
// or currency disables trust-line reconciliation for the process; native
// balance refresh still works.
func New(cfg AssetConfig, logger *zap.Logger) *Engine {
	e := &Engine{logger: logger, issuer: cfg.Issuer}
	if cfg.Issuer == "" || cfg.Currency == "" {
		logger.Warn("Issuer or currency missing: trust-line reconciliation disabled")
		return e
	}
	e.identity = asset.Canonicalize(cfg.Currency)
	e.enabled = true
	logger.Info("Reconciliation engine ready",
		zap.String("issuer", cfg.Issuer),
		zap.String("currency_alpha", e.identity.Alpha),
		zap.String("currency_encoded", e.identity.Encoded))
	return e
}

// TrustLinesEnabled reports whether issued-asset reconciliation is active.
func (e *Engine) TrustLinesEnabled() bool {
	return e.enabled
}

// Refresh queries the connection for the account's native balance and trust
// lines and derives the reconciled result. A nil connection or empty
// account returns ErrNotReady. Any query failure is returned to the caller,
// which keeps its prior state (stale-but-present, never wiped).
func (e *Engine) Refresh(ctx context.Context, conn Connection, account string) (*Result, error) {
	if conn == nil || account == "" {
		return nil, ErrNotReady
	}

	start := time.Now()
	defer func() {
		metrics.RefreshDuration.WithLabelValues("xrpl").Observe(time.Since(start).Seconds())
	}()

	info, err := conn.AccountInfo(ctx, account)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("xrpl", "failed").Inc()
		return nil, err
	}

	drops, err := decimal.NewFromString(info.Balance)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("xrpl", "failed").Inc()
		return nil, err
	}
	result := &Result{NativeBalance: drops.Div(dropsPerNative).String()}

	if !e.enabled {
		metrics.RefreshesTotal.WithLabelValues("xrpl", "ok").Inc()
		return result, nil
	}

	lines, err := conn.AccountLines(ctx, account)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("xrpl", "failed").Inc()
		return nil, err
	}

	var matched *xrpl.TrustLine
	var matchCount int
	for i := range lines {
		if asset.Matches(lines[i].Account, lines[i].Currency, e.issuer, e.identity) {
			matchCount++
			if matched == nil {
				matched = &lines[i]
			}
		}
	}

	// A well-formed ledger has at most one matching line, but the data model
	// does not exclude duplicates. First match wins; the anomaly is loud.
	if matchCount > 1 {
		metrics.TrustLineAnomalies.Inc()
		e.logger.Warn("Multiple matching trust lines, using first",
			zap.String("account", account),
			zap.String("issuer", e.issuer),
			zap.Int("matches", matchCount))
	}

	if matched != nil {
		balance := matched.Balance
		if balance == "" {
			balance = "0"
		}
		result.TrustLinePresent = true
		result.IssuedBalance = &balance
	}

	metrics.RefreshesTotal.WithLabelValues("xrpl", "ok").Inc()
	return result, nil
}
