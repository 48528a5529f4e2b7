package xaman

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DetectLink builds the stateless deep link for out-of-band approval: the
// serialized unsigned intent, hex-encoded, embedded in the agent's fixed
// /detect URL. Pure function, no network call.
func (c *Client) DetectLink(intent TxIntent) (string, error) {
	return DetectLink(c.cfg.DetectHost, intent)
}

// DetectLink is the host-parameterized form of Client.DetectLink.
func DetectLink(host string, intent TxIntent) (string, error) {
	raw, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("encode intent: %w", err)
	}
	return fmt.Sprintf("https://%s/detect/%s", host, hex.EncodeToString(raw)), nil
}
