package token

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/openintents/portal/svm"
)

// Wire encoding for token-program call data carried inside a route's calls.
// Layout: variant byte, then the variant's fixed fields.

const transferVariant = 3

var ErrInvalidInstruction = errors.New("invalid token instruction data")

// EncodeTransfer encodes a transfer of amount to the recipient owner's
// associated account, funded from the calling authority's account.
func EncodeTransfer(to svm.Pubkey, amount *uint256.Int) []byte {
	out := make([]byte, 0, 1+32+32)
	out = append(out, transferVariant)
	out = append(out, to[:]...)

	word := amount.Bytes32()
	out = append(out, word[:]...)
	return out
}

func DecodeTransfer(data []byte) (to svm.Pubkey, amount *uint256.Int, err error) {
	if len(data) != 1+32+32 || data[0] != transferVariant {
		return svm.Pubkey{}, nil, ErrInvalidInstruction
	}
	copy(to[:], data[1:33])
	return to, new(uint256.Int).SetBytes(data[33:]), nil
}
