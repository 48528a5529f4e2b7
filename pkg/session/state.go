package session

import (
	"github.com/drippyfi/dualchain-middleware/pkg/network"
)

// State is the unified session view published to consumers. It is owned and
// mutated exclusively by the Facade; every update is atomic and followed by
// a subscriber notification.
//
// Invariants: TrustLinePresent implies IssuedBalance is non-nil, and
// clearing Account clears both balances in the same update.
type State struct {
	Network   network.Config `json:"network"`
	Account   string         `json:"account,omitempty"`
	AuthReady bool           `json:"authReady"`
	Connected bool           `json:"connected"`
	ModalOpen bool           `json:"modalOpen"`

	NativeBalance    *string `json:"nativeBalance,omitempty"`
	IssuedBalance    *string `json:"issuedBalance,omitempty"`
	TrustLinePresent bool    `json:"trustLinePresent"`

	// Degraded is set when the last refresh failed and the balances shown
	// are stale; it is the signal behind the UI's retry affordance.
	Degraded bool `json:"degraded"`
}
