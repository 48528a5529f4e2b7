package session

import (
	"context"
	"sync"

	"github.com/drippyfi/dualchain-middleware/pkg/network"
	"github.com/drippyfi/dualchain-middleware/pkg/xaman"
	"github.com/drippyfi/dualchain-middleware/pkg/xrpl"
)

// mockLedger implements LedgerClient with function fields and call counters.
type mockLedger struct {
	mu sync.Mutex

	connected   bool
	connectErr  error
	lastConfig  network.Config
	connectN    int
	disconnectN int
	infoN       int
	linesN      int

	InfoFunc  func(ctx context.Context, account string) (*xrpl.AccountInfo, error)
	LinesFunc func(ctx context.Context, account string) ([]xrpl.TrustLine, error)
}

func (m *mockLedger) Connect(_ context.Context, cfg network.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectN++
	m.lastConfig = cfg
	if m.connectErr != nil {
		m.connected = false
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockLedger) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectN++
	m.connected = false
}

func (m *mockLedger) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockLedger) AccountInfo(ctx context.Context, account string) (*xrpl.AccountInfo, error) {
	m.mu.Lock()
	m.infoN++
	fn := m.InfoFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, account)
	}
	return &xrpl.AccountInfo{Account: account, Balance: "0"}, nil
}

func (m *mockLedger) AccountLines(ctx context.Context, account string) ([]xrpl.TrustLine, error) {
	m.mu.Lock()
	m.linesN++
	fn := m.LinesFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, account)
	}
	return []xrpl.TrustLine{}, nil
}

func (m *mockLedger) infoCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoN
}

// mockBridge implements AuthBridge with function fields and call counters.
type mockBridge struct {
	mu sync.Mutex

	enabled    bool
	ready      bool
	logoutN    int
	forgetN    int
	lastIntent xaman.TxIntent

	RestoreFunc func(ctx context.Context) (string, error)
	SignFunc    func(ctx context.Context, intent xaman.TxIntent) (xaman.SigningOutcome, error)
}

func (m *mockBridge) Enabled() bool { return m.enabled }
func (m *mockBridge) Ready() bool   { return m.ready }

func (m *mockBridge) RestoreSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.ready = true
	fn := m.RestoreFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return "", nil
}

func (m *mockBridge) Sign(ctx context.Context, intent xaman.TxIntent) (xaman.SigningOutcome, error) {
	m.mu.Lock()
	m.lastIntent = intent
	fn := m.SignFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, intent)
	}
	return xaman.SigningOutcome{}, nil
}

func (m *mockBridge) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutN++
	return nil
}

func (m *mockBridge) ForgetMe(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetN++
	return nil
}

func (m *mockBridge) DetectLink(intent xaman.TxIntent) (string, error) {
	m.mu.Lock()
	m.lastIntent = intent
	m.mu.Unlock()
	return xaman.DetectLink("xaman.app", intent)
}

func (m *mockBridge) intent() xaman.TxIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastIntent
}

// mockSidechain implements SidechainConnector.
type mockSidechain struct {
	address string

	BalanceFunc func(ctx context.Context, rpcURL string) (string, error)
}

func (m *mockSidechain) Address() string { return m.address }

func (m *mockSidechain) NativeBalance(ctx context.Context, rpcURL string) (string, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, rpcURL)
	}
	return "0", nil
}

// memPrefs is an in-memory PreferenceStore.
type memPrefs struct {
	mu      sync.Mutex
	pref    network.Preference
	saved   []network.Preference
	loadErr error
}

func (m *memPrefs) Load() (network.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pref, m.loadErr
}

func (m *memPrefs) Save(pref network.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pref = pref
	m.saved = append(m.saved, pref)
	return nil
}
