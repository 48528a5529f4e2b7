package asset

import (
	"encoding/hex"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeShortCodes(t *testing.T) {
	for _, code := range []string{"XRP", "usd", "Ab", "Z", "eur"} {
		id := Canonicalize(code)
		assert.Equal(t, strings.ToUpper(code), id.Alpha, "code %q", code)
		assert.Empty(t, id.Encoded, "short code %q must not have an encoded form", code)
	}
}

func TestCanonicalizeLongCodes(t *testing.T) {
	for _, code := range []string{"DRIPPY", "TOKEN", "SOLO", "longercurrencyname12"} {
		id := Canonicalize(code)
		require.Len(t, id.Encoded, 40, "code %q", code)
		assert.Equal(t, strings.ToUpper(id.Encoded), id.Encoded)

		// The encoded form is the hex of the UTF-8 bytes followed only by
		// padding zeroes.
		want := strings.ToUpper(hex.EncodeToString([]byte(code)))
		require.True(t, strings.HasPrefix(id.Encoded, want))
		assert.Equal(t, strings.Repeat("0", 40-len(want)), id.Encoded[len(want):])
	}
}

func TestCanonicalizeDrippy(t *testing.T) {
	id := Canonicalize("DRIPPY")
	assert.Equal(t, "DRIPPY", id.Alpha)
	assert.Equal(t, "445249505059"+strings.Repeat("0", 28), id.Encoded)
}

func TestMatches(t *testing.T) {
	const issuer = "rIssuerDrippy1234567890"
	id := Canonicalize("DRIPPY")

	tests := []struct {
		name     string
		peer     string
		currency string
		want     bool
	}{
		{"encoded form", issuer, id.Encoded, true},
		{"encoded form lowercase", issuer, strings.ToLower(id.Encoded), true},
		{"alpha form", issuer, "DRIPPY", true},
		{"alpha form mixed case", issuer, "dRiPpY", true},
		{"peer with whitespace", "  " + issuer + " ", id.Encoded, true},
		{"wrong peer", "rSomeoneElse", id.Encoded, false},
		{"wrong currency", issuer, "USD", false},
		{"empty currency", issuer, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.peer, tt.currency, issuer, id))
		})
	}
}

func TestMatchesShortCodeHasNoEncodedForm(t *testing.T) {
	const issuer = "rIssuer"
	id := Canonicalize("USD")

	assert.True(t, Matches(issuer, "usd", issuer, id))
	// The 40-char encoding of a short code is never a valid wire match.
	padded := strings.ToUpper(hex.EncodeToString([]byte("USD"))) + strings.Repeat("0", 34)
	assert.False(t, Matches(issuer, padded, issuer, id))
}

func TestMatchesRandomizedLineSets(t *testing.T) {
	const issuer = "rIssuerDrippy1234567890"
	id := Canonicalize("DRIPPY")
	rng := rand.New(rand.NewSource(1))

	type line struct{ peer, currency string }
	randomLine := func() line {
		peers := []string{issuer, "rOther1", "rOther2"}
		currencies := []string{id.Encoded, "DRIPPY", "USD", "4142430000000000000000000000000000000000"}
		return line{peers[rng.Intn(len(peers))], currencies[rng.Intn(len(currencies))]}
	}

	for i := 0; i < 200; i++ {
		lines := make([]line, rng.Intn(6))
		for j := range lines {
			lines[j] = randomLine()
		}

		var matches int
		for _, l := range lines {
			if Matches(l.peer, l.currency, issuer, id) {
				matches++
				// Only the configured issuer with one of the two
				// representations may ever match.
				require.Equal(t, issuer, strings.TrimSpace(l.peer))
				cur := strings.ToUpper(l.currency)
				require.True(t, cur == id.Alpha || cur == id.Encoded)
			}
		}

		var want int
		for _, l := range lines {
			cur := strings.ToUpper(l.currency)
			if strings.TrimSpace(l.peer) == issuer && (cur == id.Alpha || cur == id.Encoded) {
				want++
			}
		}
		require.Equal(t, want, matches)
	}
}
