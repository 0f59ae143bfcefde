package portal

import (
	"github.com/holiman/uint256"

	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// TokenTransferAccounts is one (mint, from, to) triple of a token movement,
// matched against a token list by the operation consuming it.
type TokenTransferAccounts struct {
	Mint svm.Pubkey
	From svm.Pubkey
	To   svm.Pubkey
}

// Permit is an external token-transfer delegation: asked to move up to
// amount of mint from the funder, it either moves what the delegation
// allows and reports how much, or fails.
type Permit interface {
	Transfer(ld *token.Ledger, funder, mint, to svm.Pubkey, amount *uint256.Int) (*uint256.Int, error)
}
