package join

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTag    = "Tezos Signed Message:"
	DefaultDomain = "playtime.com"
	NetworkTez    = "tez"

	isoMillis = "2006-01-02T15:04:05.000Z"
)

// FormatISO renders t like JavaScript's Date.toISOString.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// CanonicalMessage builds the exact string the wallet signs. Parts are
// joined with single spaces and nothing is trimmed.
func CanonicalMessage(tag, domain string, at time.Time, address string) string {
	return strings.Join([]string{
		tag,
		domain,
		FormatISO(at),
		fmt.Sprintf("%s would like to join room with %s", domain, address),
	}, " ")
}

// Payload is the signed join request sent with the JOIN event.
type Payload struct {
	Network   string `json:"network"`
	PublicKey string `json:"publicKey"`
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Encode serializes p to the single JSON string sent over the socket.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal join payload: %w", err)
	}
	return string(b), nil
}
