package mailbox

import (
	"errors"
	"math"
	"math/bits"

	"github.com/holiman/uint256"
)

const gasPerBodyByte = 16

var errFeeOverflow = errors.New("dispatch fee overflow")

// dispatchFee returns (gas_limit + 16*|body|) * gas_price with checked
// arithmetic.
func dispatchFee(gasLimit uint64, bodyLen int, gasPrice uint64) (*uint256.Int, error) {
	bodyGas := uint64(bodyLen) * gasPerBodyByte
	if gasLimit > math.MaxUint64-bodyGas {
		return nil, errFeeOverflow
	}

	hi, lo := bits.Mul64(gasLimit+bodyGas, gasPrice)
	fee := new(uint256.Int)
	fee[0] = lo
	fee[1] = hi
	return fee, nil
}
