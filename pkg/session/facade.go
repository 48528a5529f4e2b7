// Package session composes network selection, wallet authentication and
// balance reconciliation into one explicitly constructed session object.
// Consumers receive it by reference and observe it through Subscribe; no
// component other than the Facade mutates the session state.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/drippyfi/dualchain-middleware/internal/metrics"
	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
	"github.com/drippyfi/dualchain-middleware/pkg/network"
	"github.com/drippyfi/dualchain-middleware/pkg/reconcile"
	"github.com/drippyfi/dualchain-middleware/pkg/xaman"
)

// trustSetFlagNoRipple is set on pre-authorization trust-line intents.
const trustSetFlagNoRipple = 131072

// LedgerClient is the slice of the ledger connection the facade drives.
type LedgerClient interface {
	Connect(ctx context.Context, cfg network.Config) error
	Disconnect()
	Connected() bool
	reconcile.Connection
}

// AuthBridge is the slice of the wallet agent bridge the facade drives.
type AuthBridge interface {
	Enabled() bool
	Ready() bool
	RestoreSession(ctx context.Context) (string, error)
	Sign(ctx context.Context, intent xaman.TxIntent) (xaman.SigningOutcome, error)
	Logout(ctx context.Context) error
	ForgetMe(ctx context.Context) error
	DetectLink(intent xaman.TxIntent) (string, error)
}

// SidechainConnector reports the sidechain account and balance; both are
// accepted as given.
type SidechainConnector interface {
	Address() string
	NativeBalance(ctx context.Context, rpcURL string) (string, error)
}

// AssetParams configures the issued asset driven through trust-line flows.
type AssetParams struct {
	Issuer   string
	Currency string
	Limit    string
}

// Deps are the collaborators injected into the Facade.
type Deps struct {
	Ledger    LedgerClient
	Bridge    AuthBridge
	Engine    *reconcile.Engine
	Sidechain SidechainConnector
	Prefs     network.PreferenceStore
	Asset     AssetParams

	// Overrides adjusts registry endpoints; applied whenever a network
	// config is adopted.
	Overrides map[string]network.Override

	// RefreshInterval enables periodic balance refresh when positive.
	RefreshInterval time.Duration

	Logger *zap.Logger
}

// Facade owns the session state and its lifecycle: created at application
// start, closed at shutdown.
type Facade struct {
	deps   Deps
	logger *zap.Logger

	mu    sync.Mutex
	state State
	// gen increments whenever the authenticated identity changes; in-flight
	// results created under an older generation are discarded on arrival
	// instead of overwriting newer state.
	gen     uint64
	subs    map[int]func(State)
	nextSub int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a Facade on the persisted network selection, falling back to
// the registry default.
func New(deps Deps) (*Facade, error) {
	if deps.Ledger == nil || deps.Bridge == nil || deps.Engine == nil || deps.Prefs == nil {
		return nil, fmt.Errorf("session facade: missing required dependency")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Asset.Limit == "" {
		deps.Asset.Limit = "1000000000"
	}

	cfg, pref, err := network.Select(deps.Prefs)
	if err != nil {
		deps.Logger.Warn("Failed to load network preference, using default", zap.Error(err))
	}
	cfg = network.Apply(cfg, deps.Overrides)
	deps.Logger.Info("Session starting",
		zap.String("network", cfg.Name),
		zap.Bool("explicit_choice", pref.Chosen))

	return &Facade{
		deps:   deps,
		logger: deps.Logger,
		state:  State{Network: cfg},
		subs:   make(map[int]func(State)),
		stopCh: make(chan struct{}),
	}, nil
}

// Start connects to the selected ledger, kicks off session restoration in
// the background and starts the periodic refresh. Restoration never blocks
// other components; until it resolves the session serves unauthenticated
// queries only.
func (f *Facade) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	cfg := f.state.Network
	f.mu.Unlock()

	if cfg.Type == network.TypeXRPL {
		if err := f.deps.Ledger.Connect(ctx, cfg); err != nil {
			f.update(func(s *State) { s.Degraded = true })
		}
	}
	f.update(func(s *State) { s.Connected = f.deps.Ledger.Connected() })

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		account, err := f.deps.Bridge.RestoreSession(ctx)
		if err != nil {
			f.logger.Warn("Session restoration failed", zap.Error(err))
		}
		f.update(func(s *State) { s.AuthReady = f.deps.Bridge.Ready() })
		if account != "" {
			f.HandleAuthorized(ctx, account)
		}
	}()

	if f.deps.RefreshInterval > 0 {
		f.wg.Add(1)
		go f.refreshLoop()
	}
}

// refreshLoop drives the periodic balance refresh until Close.
func (f *Facade) refreshLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.deps.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			f.RefreshBalances(ctx)
			cancel()
		case <-f.stopCh:
			return
		}
	}
}

// Close stops background work and tears down the ledger connection.
func (f *Facade) Close() {
	f.mu.Lock()
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	f.mu.Unlock()

	f.wg.Wait()
	f.deps.Ledger.Disconnect()
}

// Snapshot returns a copy of the current session state.
func (f *Facade) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn to be called with a snapshot after every atomic
// state update. The returned function unsubscribes; callers must invoke it
// on teardown.
func (f *Facade) Subscribe(fn func(State)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// update applies one atomic state mutation and notifies subscribers with
// the resulting snapshot.
func (f *Facade) update(mutate func(*State)) {
	f.mu.Lock()
	mutate(&f.state)
	snap := f.state
	subs := make([]func(State), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// ConnectWallet opens the authentication UI. Identity adoption happens via
// HandleAuthorized once the agent confirms.
func (f *Facade) ConnectWallet() {
	f.update(func(s *State) { s.ModalOpen = true })
}

// CloseConnectModal dismisses the authentication UI.
func (f *Facade) CloseConnectModal() {
	f.update(func(s *State) { s.ModalOpen = false })
}

// HandleAuthorized adopts an authenticated identity and then refreshes
// balances. The refresh is sequenced strictly after the adoption is
// recorded, never speculatively before.
func (f *Facade) HandleAuthorized(ctx context.Context, account string) {
	f.update(func(s *State) {
		f.gen++
		s.Account = account
		s.ModalOpen = false
	})
	f.logger.Info("Wallet authorized", zap.String("account", account))
	f.RefreshBalances(ctx)
}

// DisconnectWallet terminates the agent session and clears the identity and
// both balances in one atomic update: there is no window where stale
// balances are visible under a cleared identity.
func (f *Facade) DisconnectWallet(ctx context.Context) {
	if err := f.deps.Bridge.Logout(ctx); err != nil {
		f.logger.Warn("Agent logout failed", zap.Error(err))
	}
	if err := f.deps.Bridge.ForgetMe(ctx); err != nil {
		f.logger.Warn("Agent forget-me failed", zap.Error(err))
	}

	f.update(func(s *State) {
		f.gen++
		s.Account = ""
		s.NativeBalance = nil
		s.IssuedBalance = nil
		s.TrustLinePresent = false
	})
	f.logger.Info("Wallet disconnected")
}

// RefreshBalances reconciles balances for the current network and identity.
// One attempt per invocation; failures keep the previous balances and raise
// the degraded flag, never an error to the caller.
func (f *Facade) RefreshBalances(ctx context.Context) {
	f.mu.Lock()
	account := f.state.Account
	cfg := f.state.Network
	gen := f.gen
	f.mu.Unlock()

	if cfg.Type == network.TypeEVM {
		f.refreshSidechain(ctx, cfg, gen)
		return
	}
	f.refreshLedger(ctx, account, gen)
}

func (f *Facade) refreshLedger(ctx context.Context, account string, gen uint64) {
	var conn reconcile.Connection
	if f.deps.Ledger.Connected() {
		conn = f.deps.Ledger
	}

	res, err := f.deps.Engine.Refresh(ctx, conn, account)
	if errors.Is(err, reconcile.ErrNotReady) {
		return
	}
	if err != nil {
		f.logger.Warn("Balance refresh failed, keeping previous balances", zap.Error(err))
		f.update(func(s *State) { s.Degraded = true })
		return
	}

	f.applyIfCurrent(gen, func(s *State) {
		s.NativeBalance = &res.NativeBalance
		s.IssuedBalance = res.IssuedBalance
		s.TrustLinePresent = res.TrustLinePresent
		s.Degraded = false
	})
}

func (f *Facade) refreshSidechain(ctx context.Context, cfg network.Config, gen uint64) {
	if f.deps.Sidechain == nil || f.deps.Sidechain.Address() == "" {
		return
	}

	balance, err := f.deps.Sidechain.NativeBalance(ctx, cfg.RPCURL)
	if err != nil {
		if apperrors.Is(err, apperrors.CategoryConfigAbsent) {
			return
		}
		f.logger.Warn("Sidechain balance refresh failed, keeping previous balance", zap.Error(err))
		metrics.RefreshesTotal.WithLabelValues("evm", "failed").Inc()
		f.update(func(s *State) { s.Degraded = true })
		return
	}

	metrics.RefreshesTotal.WithLabelValues("evm", "ok").Inc()
	f.applyIfCurrent(gen, func(s *State) {
		s.NativeBalance = &balance
		s.Degraded = false
	})
}

// applyIfCurrent applies a mutation only when the identity generation is
// unchanged since the triggering operation began. Stale resolutions are
// dropped, not merged destructively.
func (f *Facade) applyIfCurrent(gen uint64, mutate func(*State)) {
	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		f.logger.Debug("Dropping stale result from previous identity")
		return
	}
	mutate(&f.state)
	snap := f.state
	subs := make([]func(State), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// SwitchNetwork persists the selection and reconnects. Connection failures
// degrade the session; they are never surfaced as hard errors.
func (f *Facade) SwitchNetwork(ctx context.Context, cfg network.Config) {
	cfg = network.Apply(cfg, f.deps.Overrides)
	if err := f.deps.Prefs.Save(network.Preference{Network: cfg.Name, Chosen: true}); err != nil {
		f.logger.Warn("Failed to persist network preference", zap.Error(err))
	}
	metrics.NetworkSwitches.WithLabelValues(cfg.Name).Inc()
	f.logger.Info("Switching network", zap.String("network", cfg.DisplayName))

	f.update(func(s *State) { s.Network = cfg })

	if cfg.Type == network.TypeXRPL {
		if err := f.deps.Ledger.Connect(ctx, cfg); err != nil {
			f.update(func(s *State) {
				s.Connected = false
				s.Degraded = true
			})
			return
		}
	} else {
		f.deps.Ledger.Disconnect()
	}
	f.update(func(s *State) { s.Connected = f.deps.Ledger.Connected() })

	f.RefreshBalances(ctx)
}

// ToggleEnvironment switches to the same ledger type in the opposite
// environment.
func (f *Facade) ToggleEnvironment(ctx context.Context) {
	f.mu.Lock()
	cfg := f.state.Network
	f.mu.Unlock()

	next, ok := network.Counterpart(cfg)
	if !ok {
		f.logger.Warn("No counterpart network", zap.String("network", cfg.Name))
		return
	}
	f.SwitchNetwork(ctx, next)
}

// RequestTrustLine builds a trust-line-establishment intent from the
// configured issuer, currency and limit and drives it through the signing
// protocol. A not-signed outcome leaves the trust-line state untouched.
func (f *Facade) RequestTrustLine(ctx context.Context) (xaman.SigningOutcome, error) {
	if f.deps.Asset.Issuer == "" || f.deps.Asset.Currency == "" {
		return xaman.SigningOutcome{}, apperrors.ConfigAbsentError("issuer or currency not configured")
	}

	f.mu.Lock()
	account := f.state.Account
	gen := f.gen
	f.mu.Unlock()

	intent := xaman.TxIntent{
		"TransactionType": "TrustSet",
		"LimitAmount": map[string]any{
			"currency": f.deps.Asset.Currency,
			"issuer":   f.deps.Asset.Issuer,
			"value":    f.deps.Asset.Limit,
		},
	}
	if account != "" {
		intent["Account"] = account
	}

	outcome, err := f.deps.Bridge.Sign(ctx, intent)
	if err != nil {
		return outcome, err
	}

	if outcome.Signed {
		f.mu.Lock()
		current := f.gen == gen
		f.mu.Unlock()
		if current {
			f.RefreshBalances(ctx)
		} else {
			f.logger.Debug("Signing resolved under a previous identity, skipping refresh")
		}
	}
	return outcome, nil
}

// TrustLineDeepLink builds the stateless approval link for the configured
// trust line. Currencies longer than three characters use the hex code per
// the agent's convention.
func (f *Facade) TrustLineDeepLink() (string, error) {
	if f.deps.Asset.Issuer == "" || f.deps.Asset.Currency == "" {
		return "", apperrors.ConfigAbsentError("issuer or currency not configured")
	}

	currency := f.deps.Asset.Currency
	if len(currency) > 3 {
		currency = strings.ToUpper(hex.EncodeToString([]byte(currency)))
	}

	return f.deps.Bridge.DetectLink(xaman.TxIntent{
		"TransactionType": "TrustSet",
		"Flags":           trustSetFlagNoRipple,
		"LimitAmount": map[string]any{
			"currency": currency,
			"issuer":   f.deps.Asset.Issuer,
			"value":    f.deps.Asset.Limit,
		},
	})
}
