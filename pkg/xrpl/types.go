package xrpl

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire frame of every response from the streaming RPC
// endpoint. Requests and responses are correlated by ID.
type envelope struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	ErrorCode    string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
}

// RPCError is an error reported by the ledger itself, e.g. actNotFound for
// an unfunded account.
type RPCError struct {
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ledger error %s", e.Code)
}

// AccountInfo is the subset of the account_info response the middleware
// consumes. Balance is the native balance in drops (smallest units).
type AccountInfo struct {
	Account    string `json:"Account"`
	Balance    string `json:"Balance"`
	Sequence   uint32 `json:"Sequence"`
	OwnerCount uint32 `json:"OwnerCount"`
}

// TrustLine is a trust line as reported by account_lines: peer account,
// currency code as presented on the wire, and a decimal balance string.
// Lines form an unordered collection; currency codes are not unique across
// peers.
type TrustLine struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Limit    string `json:"limit"`
}

type accountInfoResult struct {
	AccountData *AccountInfo `json:"account_data"`
}

type accountLinesResult struct {
	Account string       `json:"account"`
	Lines   *[]TrustLine `json:"lines"`
}
