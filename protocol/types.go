package protocol

import (
	"errors"

	"github.com/holiman/uint256"
)

// TokenAmount names a token and an amount in the token's smallest unit.
// A zero amount is legal and means no movement is required.
type TokenAmount struct {
	Token  Bytes32
	Amount *uint256.Int
}

// Call is an opaque invocation the solver must perform on the destination
// chain. Value carries native funds on chains that support attaching them to
// arbitrary calls; on this side it must be zero and is rejected otherwise at
// fulfillment time.
type Call struct {
	Target Bytes32
	Data   []byte
	Value  *uint256.Int
}

// Route is the destination-chain half of an intent: what the solver must
// execute, and where.
type Route struct {
	// Salt provides per-creator uniqueness and keys the execution authority.
	Salt              Bytes32
	SourceDomain      uint64
	DestinationDomain uint64
	// Inbox names the destination-chain fulfillment receiver.
	Inbox  Bytes32
	Tokens []TokenAmount
	Calls  []Call
}

// Reward is the source-chain half of an intent: what the solver earns on
// proof of fulfillment.
type Reward struct {
	Creator Bytes32
	// Prover names the destination-chain prover contract authorised to
	// produce proofs for this intent.
	Prover Bytes32
	// Deadline is the unix instant after which the reward may be refunded if
	// unclaimed. Zero means no deadline: fulfillment is never late and a
	// refund is allowed at once.
	Deadline    uint64
	NativeValue *uint256.Int
	Tokens      []TokenAmount
}

type Intent struct {
	Route  Route
	Reward Reward
}

var errTokenAmountOverflow = errors.New("token amount overflow")

// TokenAmounts aggregates the route's token list per token with checked
// addition. Duplicate entries are treated independently on the wire but the
// engine verifies aggregate balances.
func (r Route) TokenAmounts() (map[Bytes32]*uint256.Int, error) {
	return tokenAmounts(r.Tokens)
}

func (r Reward) TokenAmounts() (map[Bytes32]*uint256.Int, error) {
	return tokenAmounts(r.Tokens)
}

func tokenAmounts(tokens []TokenAmount) (map[Bytes32]*uint256.Int, error) {
	out := make(map[Bytes32]*uint256.Int, len(tokens))
	for _, t := range tokens {
		sum, ok := out[t.Token]
		if !ok {
			sum = new(uint256.Int)
			out[t.Token] = sum
		}
		if _, overflow := sum.AddOverflow(sum, amountOrZero(t.Amount)); overflow {
			return nil, errTokenAmountOverflow
		}
	}
	return out, nil
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
