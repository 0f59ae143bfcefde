package protocol

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Canonical encodings of Route and Reward.
//
// Both follow the source chain's established ABI word layout so that
// keccak256 of the encoding is identical on either side of the protocol.
//
// Route:
//
//	head (6 words): salt || source_domain || destination_domain || inbox ||
//	                token_array_offset || call_array_offset
//	token_array_offset = 6*32
//	call_array_offset  = 6*32 + (32 + 64*|tokens|)
//	tokens: |tokens| || (token || amount)*
//	calls:  |calls| || per-call head offset* || per-call body*
//	call body: target || data_offset (3*32) || value ||
//	           data_len || data_len || data zero-padded to 32
//
// The duplicated data_len word is the on-wire quirk of the source contract
// and is reproduced verbatim.
//
// Reward:
//
//	head (5 words): creator || prover || deadline || native_value ||
//	                token_array_offset (5*32)
//	tokens: |tokens| || (token || amount)*

const wordSize = 32

const (
	routeHeadWords  = 6
	rewardHeadWords = 5
	// callBodyFixedWords covers target, data_offset, value and the doubled
	// data_len, everything before the padded data bytes.
	callBodyFixedWords = 5
	callDataOffset     = 3 * wordSize
)

func EncodeRoute(r Route) []byte {
	tokenOff := routeHeadWords * wordSize
	callOff := tokenOff + wordSize + 2*wordSize*len(r.Tokens)

	out := make([]byte, 0, callOff+wordSize+callsEncodedLen(r.Calls))
	out = append(out, r.Salt[:]...)
	out = appendU64Word(out, r.SourceDomain)
	out = appendU64Word(out, r.DestinationDomain)
	out = append(out, r.Inbox[:]...)
	out = appendU64Word(out, uint64(tokenOff))
	out = appendU64Word(out, uint64(callOff))

	out = appendTokenArray(out, r.Tokens)
	out = appendCallArray(out, r.Calls)
	return out
}

func EncodeReward(r Reward) []byte {
	tokenOff := rewardHeadWords * wordSize

	out := make([]byte, 0, tokenOff+wordSize+2*wordSize*len(r.Tokens))
	out = append(out, r.Creator[:]...)
	out = append(out, r.Prover[:]...)
	out = appendU64Word(out, r.Deadline)
	out = appendUint256Word(out, r.NativeValue)
	out = appendU64Word(out, uint64(tokenOff))

	out = appendTokenArray(out, r.Tokens)
	return out
}

func appendTokenArray(out []byte, tokens []TokenAmount) []byte {
	out = appendU64Word(out, uint64(len(tokens)))
	for _, t := range tokens {
		out = append(out, t.Token[:]...)
		out = appendUint256Word(out, t.Amount)
	}
	return out
}

func appendCallArray(out []byte, calls []Call) []byte {
	out = appendU64Word(out, uint64(len(calls)))

	// Per-call head offsets are relative to the start of the element area,
	// directly after the length word.
	offset := wordSize * len(calls)
	for _, c := range calls {
		out = appendU64Word(out, uint64(offset))
		offset += callBodyLen(c)
	}

	for _, c := range calls {
		out = append(out, c.Target[:]...)
		out = appendU64Word(out, callDataOffset)
		out = appendUint256Word(out, c.Value)
		out = appendU64Word(out, uint64(len(c.Data)))
		out = appendU64Word(out, uint64(len(c.Data)))
		out = append(out, c.Data...)
		out = append(out, make([]byte, padTo32(len(c.Data))-len(c.Data))...)
	}
	return out
}

func callsEncodedLen(calls []Call) int {
	n := wordSize * len(calls)
	for _, c := range calls {
		n += callBodyLen(c)
	}
	return n
}

func callBodyLen(c Call) int {
	return callBodyFixedWords*wordSize + padTo32(len(c.Data))
}

func padTo32(n int) int {
	return (n + wordSize - 1) / wordSize * wordSize
}

func appendU64Word(out []byte, v uint64) []byte {
	var word [wordSize]byte
	binary.BigEndian.PutUint64(word[24:], v)
	return append(out, word[:]...)
}

func appendUint256Word(out []byte, v *uint256.Int) []byte {
	word := amountOrZero(v).Bytes32()
	return append(out, word[:]...)
}
