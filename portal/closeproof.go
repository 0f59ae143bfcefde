package portal

import (
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/prover"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
)

// proofCloserEngine is implemented by provers that support explicit proof
// record cleanup.
type proofCloserEngine interface {
	CloseProof(tx state.Txn, req prover.CloseRequest) error
}

// CloseProof reclaims a proof record's rent outside the withdraw path. The
// caller must be the reward creator; whether cleanup is allowed before
// withdrawal is the prover's eager-reclamation policy.
func (p *Portal) CloseProof(caller svm.Pubkey, routeHash protocol.Bytes32, reward protocol.Reward) error {
	if caller != pubkeyOf(reward.Creator) {
		return ErrInvalidCreator
	}

	engine, ok := p.provers[pubkeyOf(reward.Prover)]
	if !ok {
		return ErrInvalidProver
	}
	closer, ok := engine.(proofCloserEngine)
	if !ok {
		return ErrInvalidProver
	}

	intentHash := protocol.IntentHashFromParts(routeHash, protocol.RewardHash(reward))
	rentTo, err := svm.ProverPayerAddress(pubkeyOf(reward.Prover))
	if err != nil {
		return err
	}

	return p.store.Transact(func(tx state.Txn) error {
		return closer.CloseProof(tx, prover.CloseRequest{
			Caller:     caller,
			IntentHash: intentHash,
			Creator:    reward.Creator,
			RentTo:     rentTo,
		})
	})
}
