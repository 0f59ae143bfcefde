package prover

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/metrics"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
)

// LocalProver records proofs directly for intents whose source and
// destination are the same chain, skipping the mailbox entirely.
type LocalProver struct {
	programID         svm.Pubkey
	portalID          svm.Pubkey
	localDomain       uint64
	portalDispatch    svm.Pubkey
	portalProofCloser svm.Pubkey
	eagerClose        bool

	log     *zap.Logger
	events  events.Emitter
	metrics *metrics.Set
}

func NewLocalProver(
	programID, portalID svm.Pubkey,
	localDomain uint64,
	eagerClose bool,
	log *zap.Logger,
	emitter events.Emitter,
	set *metrics.Set,
) (*LocalProver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = events.NewLogEmitter(log)
	}

	portalDispatch, err := svm.DispatchAuthority(portalID)
	if err != nil {
		return nil, fmt.Errorf("derive portal dispatch authority: %w", err)
	}
	portalProofCloser, err := svm.ProofCloserAuthority(portalID)
	if err != nil {
		return nil, fmt.Errorf("derive portal proof closer: %w", err)
	}

	return &LocalProver{
		programID:         programID,
		portalID:          portalID,
		localDomain:       localDomain,
		portalDispatch:    portalDispatch,
		portalProofCloser: portalProofCloser,
		eagerClose:        eagerClose,
		log:               log.Named("local_prover"),
		events:            emitter,
		metrics:           set,
	}, nil
}

func (p *LocalProver) ProgramID() svm.Pubkey { return p.programID }

// Prove writes proof records in place. The source domain must be this
// chain; anything else belongs to the hyper prover.
func (p *LocalProver) Prove(tx state.Txn, req ProveRequest) error {
	if req.Caller != p.portalDispatch {
		return ErrUnauthorizedProve
	}
	if len(req.Hashes) != len(req.Claimants) {
		return protocol.ErrArrayLengthMismatch
	}
	if len(req.Hashes) == 0 {
		return ErrEmptyBatch
	}
	if req.SourceDomain != p.localDomain {
		return ErrWrongSourceDomain
	}

	for i, hash := range req.Hashes {
		addr, err := svm.ProofAddress(p.programID, hash)
		if err != nil {
			return err
		}
		raw, err := state.ProofRecord{Claimant: [32]uint8(req.Claimants[i])}.Marshal()
		if err != nil {
			return err
		}

		switch err := tx.CreateAccount(addr, raw, req.Payer); err {
		case nil:
			p.metrics.ProofRecorded()
			p.events.Emit(events.IntentProven{IntentHash: hash, Claimant: req.Claimants[i]})
		case state.ErrAccountExists:
			p.events.Emit(events.AlreadyProven{IntentHash: hash})
		default:
			return err
		}
	}
	return nil
}

func (p *LocalProver) Proof(view state.View, hash protocol.Bytes32) (protocol.Bytes32, bool, error) {
	return readProof(view, p.programID, hash)
}

func (p *LocalProver) CloseProof(tx state.Txn, req CloseRequest) error {
	return closeProof(tx, p.programID, p.portalID, p.portalProofCloser, p.eagerClose, req, p.events)
}
