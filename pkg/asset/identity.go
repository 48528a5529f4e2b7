// Package asset computes the alternate wire encodings of an issued-currency
// code and matches reported trust lines against a configured issuer/currency
// pair.
package asset

import (
	"strings"
)

// encodedLen is the fixed width of the long-form currency encoding:
// 20 bytes rendered as 40 uppercase hex characters.
const encodedLen = 40

// Identity is the pair of representations a currency code can take on the
// wire. Alpha is the human-readable code; Encoded is the fixed-width hex
// form, empty for codes of three characters or fewer (short codes are
// transmitted as-is, never in encoded form).
type Identity struct {
	Alpha   string
	Encoded string
}

// Canonicalize derives the wire representations of a configured currency
// code. Codes longer than three characters are encoded as the uppercase hex
// of their UTF-8 bytes, right-padded with '0' to exactly 40 characters; the
// alpha form is kept for display but is not a valid wire match in that case.
func Canonicalize(code string) Identity {
	alpha := strings.ToUpper(code)
	if len(code) <= 3 {
		return Identity{Alpha: alpha}
	}

	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(encodedLen)
	for _, c := range []byte(code) {
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	for b.Len() < encodedLen {
		b.WriteByte('0')
	}
	return Identity{Alpha: alpha, Encoded: b.String()}
}

// Matches reports whether a reported trust line belongs to the configured
// issuer and currency. The peer comparison is exact after trimming
// incidental whitespace; the currency comparison is case-insensitive against
// either representation.
func Matches(peer, currency, issuer string, id Identity) bool {
	if strings.TrimSpace(peer) != issuer {
		return false
	}
	cur := strings.ToUpper(currency)
	if cur == id.Alpha {
		return true
	}
	return id.Encoded != "" && cur == id.Encoded
}
