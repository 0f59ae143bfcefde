package protocol

import "errors"

// Proof message body: the canonical encoding of two parallel bytes32 arrays,
// intent hashes and claimants. This is the payload carried through the
// mailbox from the destination-chain prover to its source-chain peer.
//
// Layout (offsets relative to the start of the body):
//
//	hash_array_offset (2*32) || claimant_array_offset ||
//	|hashes| || hash* || |claimants| || claimant*

var ErrArrayLengthMismatch = errors.New("intent hash and claimant arrays differ in length")

func EncodeProofMessage(hashes, claimants []Bytes32) ([]byte, error) {
	if len(hashes) != len(claimants) {
		return nil, ErrArrayLengthMismatch
	}

	headLen := 2 * wordSize
	arrayLen := wordSize + wordSize*len(hashes)

	out := make([]byte, 0, headLen+2*arrayLen)
	out = appendU64Word(out, uint64(headLen))
	out = appendU64Word(out, uint64(headLen+arrayLen))
	out = appendBytes32Array(out, hashes)
	out = appendBytes32Array(out, claimants)
	return out, nil
}

func appendBytes32Array(out []byte, values []Bytes32) []byte {
	out = appendU64Word(out, uint64(len(values)))
	for _, v := range values {
		out = append(out, v[:]...)
	}
	return out
}

func DecodeProofMessage(buf []byte) (hashes, claimants []Bytes32, err error) {
	r := wordReader{buf: buf}

	hashOff, err := r.u64Word()
	if err != nil {
		return nil, nil, err
	}
	claimantOff, err := r.u64Word()
	if err != nil {
		return nil, nil, err
	}

	if hashes, err = r.bytes32Array(); err != nil {
		return nil, nil, err
	}
	if claimants, err = r.bytes32Array(); err != nil {
		return nil, nil, err
	}

	if hashOff != uint64(2*wordSize) ||
		claimantOff != uint64(2*wordSize+wordSize+wordSize*len(hashes)) ||
		!r.done() {
		return nil, nil, ErrInvalidEncoding
	}
	if len(hashes) != len(claimants) {
		return nil, nil, ErrArrayLengthMismatch
	}
	return hashes, claimants, nil
}

func (r *wordReader) bytes32Array() ([]Bytes32, error) {
	n, err := r.u64Word()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)/wordSize) {
		return nil, ErrInvalidEncoding
	}

	out := make([]Bytes32, 0, n)
	for i := uint64(0); i < n; i++ {
		w, err := r.word()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
