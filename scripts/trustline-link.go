//go:build ignore

// trustline-link.go - Print the stateless wallet deep link that opens a
// trust-line approval for the given asset. Useful for QR code generation and
// for verifying what the /session/trustline/deeplink endpoint will serve.
//
// Usage:
//   go run scripts/trustline-link.go -issuer rIII -currency DRIPPY
//   go run scripts/trustline-link.go -issuer rIII -currency DRIPPY -limit 500000

package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/drippyfi/dualchain-middleware/pkg/xaman"
)

func main() {
	issuer := flag.String("issuer", "", "Asset issuer account (required)")
	currency := flag.String("currency", "", "Currency code (required)")
	limit := flag.String("limit", "1000000000", "Trust line limit")
	host := flag.String("host", "xaman.app", "Deep link host")
	flag.Parse()

	if *issuer == "" || *currency == "" {
		log.Fatal("-issuer and -currency are required")
	}

	code := *currency
	if len(code) > 3 {
		code = strings.ToUpper(hex.EncodeToString([]byte(code)))
	}

	link, err := xaman.DetectLink(*host, xaman.TxIntent{
		"TransactionType": "TrustSet",
		"Flags":           131072,
		"LimitAmount": map[string]any{
			"currency": code,
			"issuer":   *issuer,
			"value":    *limit,
		},
	})
	if err != nil {
		log.Fatalf("build link: %v", err)
	}
	fmt.Println(link)
}
