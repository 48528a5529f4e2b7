package xaman

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/drippyfi/dualchain-middleware/pkg/app/errors"
)

// TxIntent is an unsigned transaction description submitted to the agent
// for user approval. It is serialized verbatim as the payload's txjson.
type TxIntent map[string]any

// SigningOutcome is the result of one signing round trip. It resolves
// exactly once: signed with a transaction id, or not signed (rejection,
// expiry and agent errors all collapse to the negative outcome).
type SigningOutcome struct {
	Signed bool   `json:"signed"`
	TxID   string `json:"txid,omitempty"`
}

// stateResponse covers the known shapes of the agent's session state reply:
// an active session reporting the account directly, an active session
// carrying a JWT whose sub claim is the account, or no session at all.
type stateResponse struct {
	Me *struct {
		Account string `json:"account"`
		Sub     string `json:"sub"`
	} `json:"me"`
	JWT string `json:"jwt"`
}

// decodeState extracts the restored account from a session state reply.
// An empty account with a nil error means "no existing session". Anything
// outside the known variants is a boundary-decode failure.
func decodeState(raw []byte) (string, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return "", apperrors.DecodeError(err, "agent state response")
	}
	for k := range keys {
		if k != "me" && k != "jwt" {
			return "", apperrors.DecodeError(nil, fmt.Sprintf("agent state response has unknown field %q", k))
		}
	}

	var state stateResponse
	if err := json.Unmarshal(raw, &state); err != nil {
		return "", apperrors.DecodeError(err, "agent state response")
	}

	if state.Me != nil {
		if state.Me.Account != "" {
			return state.Me.Account, nil
		}
		if state.Me.Sub != "" {
			return state.Me.Sub, nil
		}
	}
	if state.JWT != "" {
		return accountFromJWT(state.JWT)
	}
	return "", nil
}

// accountFromJWT pulls the account out of the agent-issued token's sub
// claim. The token arrived over the authenticated agent channel, so it is
// parsed without signature verification here.
func accountFromJWT(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", apperrors.DecodeError(err, "agent session token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", apperrors.DecodeError(err, "agent session token missing sub claim")
	}
	return sub, nil
}

// createResponse is the agent's reply to a payload submission.
type createResponse struct {
	UUID string `json:"uuid"`
	Next struct {
		Always string `json:"always"`
	} `json:"next"`
	Refs struct {
		QRPng           string `json:"qr_png"`
		WebsocketStatus string `json:"websocket_status"`
	} `json:"refs"`
}

// PayloadStatus is the agent's record of a payload's progress and outcome.
type PayloadStatus struct {
	Meta struct {
		Resolved bool `json:"resolved"`
		Signed   bool `json:"signed"`
		Expired  bool `json:"expired"`
	} `json:"meta"`
	Response struct {
		TxID    string `json:"txid"`
		Account string `json:"account"`
	} `json:"response"`
}
