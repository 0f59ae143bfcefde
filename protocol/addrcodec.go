package protocol

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Address codec between Bytes32 wire identifiers and native address forms.
//
// 20-byte addresses map into the low 20 bytes of a Bytes32 with a zero
// prefix; the inverse is defined only when the prefix is zero. 32-byte
// native addresses map by identity.

var (
	ErrNotAnEVMAddress = errors.New("identifier does not fit a 20-byte address")

	errInvalidBase58 = errors.New("invalid base58 32-byte value")
)

func FromEVMAddress(addr common.Address) Bytes32 {
	var out Bytes32
	copy(out[12:], addr[:])
	return out
}

func (b Bytes32) EVMAddress() (common.Address, error) {
	for _, v := range b[:12] {
		if v != 0 {
			return common.Address{}, ErrNotAnEVMAddress
		}
	}
	return common.BytesToAddress(b[12:]), nil
}

// Base58 renders the identifier in its 32-byte native form.
func (b Bytes32) Base58() string {
	return base58.Encode(b[:])
}

func ParseBytes32Base58(s string) (Bytes32, error) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return Bytes32{}, errInvalidBase58
	}
	var out Bytes32
	copy(out[:], raw)
	return out, nil
}
