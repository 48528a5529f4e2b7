// Package network defines the closed set of ledger networks the middleware
// can operate against and resolves a persisted selection to a full config.
package network

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Type identifies the ledger family a network belongs to.
type Type string

// Environment identifies a deployment environment of a ledger.
type Environment string

const (
	TypeXRPL Type = "xrpl"
	TypeEVM  Type = "evm"

	EnvMainnet Environment = "mainnet"
	EnvTestnet Environment = "testnet"
)

// Feature is a capability flag enabled on a network.
type Feature string

const (
	FeatureAMM       Feature = "amm"
	FeatureWallet    Feature = "wallet"
	FeatureSend      Feature = "send"
	FeatureReceive   Feature = "receive"
	FeatureBuy       Feature = "buy-drippy"
	FeatureSwap      Feature = "swap"
	FeatureLiquidity Feature = "liquidity"
	FeatureNFT       Feature = "nft"
	FeatureStaking   Feature = "staking"
	FeatureGov       Feature = "governance"
	FeatureAnalytics Feature = "analytics"
)

// Config is an immutable network descriptor. Exactly one config exists per
// (type, environment) pair.
type Config struct {
	Type        Type        `json:"type"`
	Environment Environment `json:"environment"`
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	ChainID     string      `json:"chainId,omitempty"`
	RPCURL      string      `json:"rpcUrl"`
	ExplorerURL string      `json:"explorerUrl"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
	Features    []Feature   `json:"features"`
}

// HasFeature reports whether the network enables the given feature.
func (c Config) HasFeature(f Feature) bool {
	for _, have := range c.Features {
		if have == f {
			return true
		}
	}
	return false
}

var (
	XRPLMainnet = Config{
		Type:        TypeXRPL,
		Environment: EnvMainnet,
		Name:        "xrpl-mainnet",
		DisplayName: "XRPL Mainnet",
		RPCURL:      "wss://xrplcluster.com",
		ExplorerURL: "https://livenet.xrpl.org",
		Currency:    "XRP",
		Description: "XRPL Mainnet with Xaman wallet integration",
		Features:    []Feature{FeatureAMM, FeatureWallet, FeatureSend, FeatureReceive, FeatureBuy, FeatureAnalytics},
	}

	XRPLTestnet = Config{
		Type:        TypeXRPL,
		Environment: EnvTestnet,
		Name:        "xrpl-testnet",
		DisplayName: "XRPL Testnet",
		RPCURL:      "wss://s.altnet.rippletest.net:51233",
		ExplorerURL: "https://testnet.xrpl.org",
		Currency:    "XRP",
		Description: "XRPL Testnet for testing",
		Features:    []Feature{FeatureAMM, FeatureWallet, FeatureSend, FeatureReceive, FeatureAnalytics},
	}

	EVMMainnet = Config{
		Type:        TypeEVM,
		Environment: EnvMainnet,
		Name:        "xrpl-evm-mainnet",
		DisplayName: "XRPL EVM Sidechain",
		ChainID:     "1440000",
		RPCURL:      "https://rpc.xrplevm.org",
		ExplorerURL: "https://explorer.xrplevm.org",
		Currency:    "XRP",
		Description: "XRPL EVM Sidechain for DeFi",
		Features:    []Feature{FeatureWallet, FeatureSwap, FeatureLiquidity, FeatureNFT, FeatureStaking, FeatureGov, FeatureAnalytics},
	}

	EVMTestnet = Config{
		Type:        TypeEVM,
		Environment: EnvTestnet,
		Name:        "xrpl-evm-testnet",
		DisplayName: "XRPL EVM Testnet",
		ChainID:     "1449000",
		RPCURL:      "https://rpc.testnet.xrplevm.org",
		ExplorerURL: "https://evm-sidechain.xrpl.org",
		Currency:    "XRP",
		Description: "XRPL EVM Testnet with deployed DRIPPY contracts",
		Features:    []Feature{FeatureWallet, FeatureSwap, FeatureLiquidity, FeatureNFT, FeatureStaking, FeatureGov, FeatureAnalytics},
	}
)

// All returns every known network in registry order.
func All() []Config {
	return []Config{XRPLMainnet, XRPLTestnet, EVMMainnet, EVMTestnet}
}

// Default is the selection used when no preference has been persisted.
// The issued-asset contracts are deployed on the EVM testnet, so a fresh
// install lands there rather than on a mainnet.
func Default() Config {
	return EVMTestnet
}

// Resolve looks up a network by its stable name. The second return value is
// false when the name is unknown; that is a normal negative result, not an
// error.
func Resolve(name string) (Config, bool) {
	for _, n := range All() {
		if n.Name == name {
			return n, true
		}
	}
	return Config{}, false
}

// ByType returns all networks of the given ledger type.
func ByType(t Type) []Config {
	var out []Config
	for _, n := range All() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ByEnvironment returns all networks in the given environment.
func ByEnvironment(env Environment) []Config {
	var out []Config
	for _, n := range All() {
		if n.Environment == env {
			out = append(out, n)
		}
	}
	return out
}

// Counterpart returns the same ledger type in the opposite environment.
func Counterpart(c Config) (Config, bool) {
	env := EnvMainnet
	if c.Environment == EnvMainnet {
		env = EnvTestnet
	}
	for _, n := range ByType(c.Type) {
		if n.Environment == env {
			return n, true
		}
	}
	return Config{}, false
}

// Override replaces selected endpoint fields of a named network.
type Override struct {
	RPCURL      string `yaml:"rpc_url"`
	ExplorerURL string `yaml:"explorer_url"`
}

// LoadOverrides reads a YAML file mapping network names to endpoint
// overrides and returns the adjusted registry contents. Unknown names are
// rejected so a typo in the file cannot silently be ignored.
func LoadOverrides(path string) (map[string]Override, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var overrides map[string]Override
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}

	for name := range overrides {
		if _, ok := Resolve(name); !ok {
			return nil, fmt.Errorf("overrides reference unknown network %q", name)
		}
	}
	return overrides, nil
}

// Apply returns a copy of cfg with any matching override applied.
func Apply(cfg Config, overrides map[string]Override) Config {
	o, ok := overrides[cfg.Name]
	if !ok {
		return cfg
	}
	if o.RPCURL != "" {
		cfg.RPCURL = o.RPCURL
	}
	if o.ExplorerURL != "" {
		cfg.ExplorerURL = o.ExplorerURL
	}
	return cfg
}
