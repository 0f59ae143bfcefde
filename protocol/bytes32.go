package protocol

import (
	"encoding/hex"
	"errors"
)

var errInvalidHex32 = errors.New("invalid 32-byte hex value")

// Bytes32 is the fixed-width identifier used uniformly on the wire for
// contract, token and account addresses, chain-local or foreign, and for
// route, reward and intent hashes.
type Bytes32 [32]byte

func (b Bytes32) Hex() string { return hex32([32]byte(b)) }

func (b Bytes32) IsZero() bool { return b == Bytes32{} }

func ParseBytes32Hex(s string) (Bytes32, error) {
	b, err := parseHex32(s)
	return Bytes32(b), err
}

func parseHex32(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) != 64 {
		return out, errInvalidHex32
	}

	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return out, errInvalidHex32
	}

	copy(out[:], b)
	return out, nil
}

func hex32(b [32]byte) string {
	return hex.EncodeToString(b[:])
}
