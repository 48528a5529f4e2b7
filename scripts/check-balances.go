//go:build ignore

// check-balances.go - Query an account's native and issued balances directly
// against a ledger endpoint, bypassing the HTTP API.
//
// Usage:
//   go run scripts/check-balances.go -network xrpl-testnet -account rXXXX
//   go run scripts/check-balances.go -network xrpl-mainnet -account rXXXX -issuer rIII -currency DRIPPY

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/drippyfi/dualchain-middleware/pkg/network"
	"github.com/drippyfi/dualchain-middleware/pkg/reconcile"
	"github.com/drippyfi/dualchain-middleware/pkg/xrpl"
)

func main() {
	networkName := flag.String("network", "xrpl-testnet", "Network name from the registry")
	account := flag.String("account", "", "Account to query (required)")
	issuer := flag.String("issuer", "", "Issued-asset issuer (optional)")
	currency := flag.String("currency", "", "Issued-asset currency code (optional)")
	flag.Parse()

	if *account == "" {
		log.Fatal("-account is required")
	}

	cfg, ok := network.Resolve(*networkName)
	if !ok {
		log.Fatalf("unknown network %q", *networkName)
	}
	if cfg.Type != network.TypeXRPL {
		log.Fatalf("network %q is not an XRPL network", *networkName)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := xrpl.NewClient(logger, xrpl.Options{})
	if err != nil {
		log.Fatalf("create client: %v", err)
	}
	if err := client.Connect(ctx, cfg); err != nil {
		log.Fatalf("connect to %s: %v", cfg.RPCURL, err)
	}
	defer client.Disconnect()

	engine := reconcile.New(reconcile.AssetConfig{Issuer: *issuer, Currency: *currency}, logger)
	result, err := engine.Refresh(ctx, client, *account)
	if err != nil {
		log.Fatalf("refresh: %v", err)
	}

	fmt.Printf("Network:        %s (%s)\n", cfg.DisplayName, cfg.RPCURL)
	fmt.Printf("Account:        %s\n", *account)
	fmt.Printf("Native balance: %s %s\n", result.NativeBalance, cfg.Currency)
	if engine.TrustLinesEnabled() {
		if result.TrustLinePresent {
			fmt.Printf("Trust line:     present, balance %s %s\n", *result.IssuedBalance, *currency)
		} else {
			fmt.Printf("Trust line:     not present for %s/%s\n", *currency, *issuer)
		}
	}
}
