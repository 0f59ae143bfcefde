// Package prover implements proof emission and ingestion: the hyper prover
// transits proofs through the mailbox between chains, the local prover
// records them directly for same-chain intents. Both own the proof records
// under their program id; a proof record's existence is the attestation
// that its claimant fulfilled the intent.
package prover

import (
	"github.com/holiman/uint256"

	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
)

// MaxWhitelistSize bounds the inbound sender whitelist fixed at deployment.
const MaxWhitelistSize = 20

// ProveRequest is what the fulfillment engine hands to a dispatcher. The
// transaction it runs in belongs to the fulfillment, so a dispatch failure
// unwinds the whole fulfill.
type ProveRequest struct {
	// Caller must be the portal's dispatch authority; nothing else may
	// trigger an outbound proof.
	Caller       svm.Pubkey
	Payer        svm.Pubkey
	SourceDomain uint64
	Hashes       []protocol.Bytes32
	Claimants    []protocol.Bytes32
	// Funds is the native amount supplied for the dispatch fee. Only the
	// quoted fee is taken; the rest never leaves the payer.
	Funds *uint256.Int
	// Data optionally selects the post-dispatch hook: exactly 32 bytes to
	// override, empty for the mailbox default.
	Data []byte
}

// Dispatcher is the portal's view of a prover's outbound side.
type Dispatcher interface {
	ProgramID() svm.Pubkey
	Prove(tx state.Txn, req ProveRequest) error
}

// CloseRequest asks a prover to delete a proof record and release its rent.
// A record may be closed by any caller, the portal's proof closer authority
// included, once the reward is withdrawn, or — under the eager reclamation
// policy — earlier by the intent's creator.
type CloseRequest struct {
	Caller     svm.Pubkey
	IntentHash protocol.Bytes32
	// Creator is the reward creator, verified by the portal before the
	// request reaches the prover. Zero when the caller path cannot verify
	// it.
	Creator protocol.Bytes32
	RentTo  svm.Pubkey
}
