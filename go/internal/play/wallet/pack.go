package wallet

import (
	"encoding/binary"
	"encoding/hex"
)

const (
	michelinePackPrefix = 0x05
	michelineString     = 0x01
)

// PackMessage encodes message as a packed Micheline string, the form Tezos
// wallets sign for off-chain messages, and returns it hex encoded.
func PackMessage(message string) string {
	raw := []byte(message)
	buf := make([]byte, 0, 6+len(raw))
	buf = append(buf, michelinePackPrefix, michelineString)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(raw)))
	buf = append(buf, raw...)
	return hex.EncodeToString(buf)
}
