package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"
)

// Decoders for the canonical Route and Reward encodings. They accept only
// the exact byte strings EncodeRoute and EncodeReward produce: every offset
// word, the duplicated data length and the zero padding are verified, and
// trailing bytes are rejected.

var ErrInvalidEncoding = errors.New("invalid canonical encoding")

func DecodeRoute(buf []byte) (Route, error) {
	r := wordReader{buf: buf}

	var out Route
	salt, err := r.word()
	if err != nil {
		return Route{}, err
	}
	out.Salt = salt

	if out.SourceDomain, err = r.u64Word(); err != nil {
		return Route{}, err
	}
	if out.DestinationDomain, err = r.u64Word(); err != nil {
		return Route{}, err
	}
	inbox, err := r.word()
	if err != nil {
		return Route{}, err
	}
	out.Inbox = inbox

	tokenOff, err := r.u64Word()
	if err != nil {
		return Route{}, err
	}
	callOff, err := r.u64Word()
	if err != nil {
		return Route{}, err
	}
	if tokenOff != uint64(routeHeadWords*wordSize) {
		return Route{}, ErrInvalidEncoding
	}

	if out.Tokens, err = r.tokenArray(); err != nil {
		return Route{}, err
	}
	if callOff != uint64(routeHeadWords*wordSize+wordSize+2*wordSize*len(out.Tokens)) {
		return Route{}, ErrInvalidEncoding
	}

	if out.Calls, err = r.callArray(); err != nil {
		return Route{}, err
	}
	if !r.done() {
		return Route{}, ErrInvalidEncoding
	}
	return out, nil
}

func DecodeReward(buf []byte) (Reward, error) {
	r := wordReader{buf: buf}

	var out Reward
	creator, err := r.word()
	if err != nil {
		return Reward{}, err
	}
	out.Creator = creator

	prover, err := r.word()
	if err != nil {
		return Reward{}, err
	}
	out.Prover = prover

	if out.Deadline, err = r.u64Word(); err != nil {
		return Reward{}, err
	}
	if out.NativeValue, err = r.uint256Word(); err != nil {
		return Reward{}, err
	}

	tokenOff, err := r.u64Word()
	if err != nil {
		return Reward{}, err
	}
	if tokenOff != uint64(rewardHeadWords*wordSize) {
		return Reward{}, ErrInvalidEncoding
	}

	if out.Tokens, err = r.tokenArray(); err != nil {
		return Reward{}, err
	}
	if !r.done() {
		return Reward{}, ErrInvalidEncoding
	}
	return out, nil
}

type wordReader struct {
	buf []byte
	off int
}

func (r *wordReader) done() bool { return r.off == len(r.buf) }

func (r *wordReader) word() ([wordSize]byte, error) {
	var out [wordSize]byte
	if r.off+wordSize > len(r.buf) {
		return out, ErrInvalidEncoding
	}
	copy(out[:], r.buf[r.off:r.off+wordSize])
	r.off += wordSize
	return out, nil
}

// u64Word reads a 32-byte word whose value must fit in 64 bits.
func (r *wordReader) u64Word() (uint64, error) {
	w, err := r.word()
	if err != nil {
		return 0, err
	}
	for _, b := range w[:24] {
		if b != 0 {
			return 0, ErrInvalidEncoding
		}
	}
	return binary.BigEndian.Uint64(w[24:]), nil
}

func (r *wordReader) uint256Word() (*uint256.Int, error) {
	w, err := r.word()
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(w[:]), nil
}

func (r *wordReader) tokenArray() ([]TokenAmount, error) {
	n, err := r.u64Word()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)/(2*wordSize)) {
		return nil, ErrInvalidEncoding
	}

	out := make([]TokenAmount, 0, n)
	for i := uint64(0); i < n; i++ {
		token, err := r.word()
		if err != nil {
			return nil, err
		}
		amount, err := r.uint256Word()
		if err != nil {
			return nil, err
		}
		out = append(out, TokenAmount{Token: token, Amount: amount})
	}
	return out, nil
}

func (r *wordReader) callArray() ([]Call, error) {
	n, err := r.u64Word()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)/wordSize) {
		return nil, ErrInvalidEncoding
	}

	offsets := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		off, err := r.u64Word()
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, off)
	}

	expectedOff := uint64(wordSize) * n
	out := make([]Call, 0, n)
	for i := uint64(0); i < n; i++ {
		if offsets[i] != expectedOff {
			return nil, ErrInvalidEncoding
		}
		call, err := r.callBody()
		if err != nil {
			return nil, err
		}
		out = append(out, call)
		expectedOff += uint64(callBodyLen(call))
	}
	return out, nil
}

func (r *wordReader) callBody() (Call, error) {
	var out Call
	target, err := r.word()
	if err != nil {
		return Call{}, err
	}
	out.Target = target

	dataOff, err := r.u64Word()
	if err != nil {
		return Call{}, err
	}
	if dataOff != callDataOffset {
		return Call{}, ErrInvalidEncoding
	}

	if out.Value, err = r.uint256Word(); err != nil {
		return Call{}, err
	}

	dataLen, err := r.u64Word()
	if err != nil {
		return Call{}, err
	}
	dataLenAgain, err := r.u64Word()
	if err != nil {
		return Call{}, err
	}
	if dataLen != dataLenAgain || dataLen > uint64(len(r.buf)-r.off) {
		return Call{}, ErrInvalidEncoding
	}

	padded := padTo32(int(dataLen))
	if r.off+padded > len(r.buf) {
		return Call{}, ErrInvalidEncoding
	}
	out.Data = append([]byte(nil), r.buf[r.off:r.off+int(dataLen)]...)
	for _, b := range r.buf[r.off+int(dataLen) : r.off+padded] {
		if b != 0 {
			return Call{}, ErrInvalidEncoding
		}
	}
	r.off += padded
	return out, nil
}
