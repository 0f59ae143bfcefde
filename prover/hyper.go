package prover

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/mailbox"
	"github.com/openintents/portal/metrics"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
)

// HyperProverConfig wires one chain's hyper prover deployment.
type HyperProverConfig struct {
	ProgramID svm.Pubkey
	// PortalID is the portal program whose dispatch and proof-closer
	// authorities this prover trusts.
	PortalID svm.Pubkey
	// SourceProvers maps a source domain to the prover contract identity
	// proofs for that domain are addressed to.
	SourceProvers map[uint64]protocol.Bytes32
	// EagerClose lets the intent creator reclaim a proof record before
	// withdrawal. Off by default.
	EagerClose bool
}

// HyperProver dispatches proofs out through the mailbox and records inbound
// ones. One instance serves one chain: outbound on the destination side,
// inbound on the source side.
type HyperProver struct {
	cfg               HyperProverConfig
	portalDispatch    svm.Pubkey
	portalProofCloser svm.Pubkey
	dispatchAuthority svm.Pubkey
	payerAccount      svm.Pubkey
	configAddress     svm.Pubkey

	store   state.Store
	mailbox mailbox.Mailbox
	log     *zap.Logger
	events  events.Emitter
	metrics *metrics.Set
}

func NewHyperProver(
	cfg HyperProverConfig,
	store state.Store,
	mbox mailbox.Mailbox,
	log *zap.Logger,
	emitter events.Emitter,
	set *metrics.Set,
) (*HyperProver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = events.NewLogEmitter(log)
	}

	portalDispatch, err := svm.DispatchAuthority(cfg.PortalID)
	if err != nil {
		return nil, fmt.Errorf("derive portal dispatch authority: %w", err)
	}
	portalProofCloser, err := svm.ProofCloserAuthority(cfg.PortalID)
	if err != nil {
		return nil, fmt.Errorf("derive portal proof closer: %w", err)
	}
	dispatchAuthority, err := svm.DispatchAuthority(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive dispatch authority: %w", err)
	}
	payerAccount, err := svm.ProverPayerAddress(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive payer account: %w", err)
	}
	configAddress, err := svm.ProverConfigAddress(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}

	return &HyperProver{
		cfg:               cfg,
		portalDispatch:    portalDispatch,
		portalProofCloser: portalProofCloser,
		dispatchAuthority: dispatchAuthority,
		payerAccount:      payerAccount,
		configAddress:     configAddress,
		store:             store,
		mailbox:           mbox,
		log:               log.Named("hyper_prover"),
		events:            emitter,
		metrics:           set,
	}, nil
}

func (p *HyperProver) ProgramID() svm.Pubkey { return p.cfg.ProgramID }

// DispatchAuthority is the wire-level sender identity of this prover's
// outbound messages; peers whitelist it.
func (p *HyperProver) DispatchAuthority() svm.Pubkey { return p.dispatchAuthority }

// PayerAccount pays rent for inbound proof records and must stay funded.
func (p *HyperProver) PayerAccount() svm.Pubkey { return p.payerAccount }

// Init writes the whitelist config record. Runs once; a second call fails.
func (p *HyperProver) Init(payer svm.Pubkey, whitelist []protocol.Bytes32) error {
	if len(whitelist) == 0 {
		return ErrWhitelistEmpty
	}
	if len(whitelist) > MaxWhitelistSize {
		return ErrWhitelistTooLarge
	}

	entries := make([][32]uint8, 0, len(whitelist))
	for _, w := range whitelist {
		entries = append(entries, [32]uint8(w))
	}
	raw, err := state.ProverConfig{Whitelist: entries}.Marshal()
	if err != nil {
		return err
	}

	return p.store.Transact(func(tx state.Txn) error {
		if err := tx.CreateAccount(p.configAddress, raw, payer); err != nil {
			if err == state.ErrAccountExists {
				return ErrAlreadyInitialized
			}
			return err
		}
		return nil
	})
}

func (p *HyperProver) config(view state.View) (state.ProverConfig, error) {
	raw, err := view.AccountData(p.configAddress)
	if err != nil {
		if err == state.ErrAccountNotFound {
			return state.ProverConfig{}, ErrNotInitialized
		}
		return state.ProverConfig{}, err
	}
	return state.UnmarshalProverConfig(raw)
}

// Prove composes the proof message for a batch of fulfilled intents and
// dispatches it to the source domain's prover. Only the fulfillment flow
// may call it, and it runs inside the fulfillment's transaction.
func (p *HyperProver) Prove(tx state.Txn, req ProveRequest) error {
	if req.Caller != p.portalDispatch {
		return ErrUnauthorizedProve
	}
	if len(req.Hashes) != len(req.Claimants) {
		return protocol.ErrArrayLengthMismatch
	}
	if len(req.Hashes) == 0 {
		return ErrEmptyBatch
	}
	if req.SourceDomain > math.MaxUint32 {
		return ErrChainIDTooLarge
	}

	recipient, ok := p.cfg.SourceProvers[req.SourceDomain]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRecipient, req.SourceDomain)
	}

	body, err := protocol.EncodeProofMessage(req.Hashes, req.Claimants)
	if err != nil {
		return err
	}

	destination := uint32(req.SourceDomain)
	fee, err := p.mailbox.Quote(destination, body)
	if err != nil {
		return err
	}
	if req.Funds == nil || req.Funds.Lt(fee) {
		return ErrInsufficientFee
	}
	// Only the quoted fee leaves the payer; the excess stays, which is the
	// refund.
	if err := tx.TransferNative(req.Payer, p.mailbox.FeeAccount(), fee); err != nil {
		return err
	}

	var hook protocol.Bytes32
	if len(req.Data) == len(hook) {
		copy(hook[:], req.Data)
	}

	id, err := p.mailbox.Dispatch(mailbox.Dispatch{
		Sender:      p.dispatchAuthority,
		Destination: destination,
		Recipient:   recipient,
		Body:        body,
		Hook:        hook,
	})
	if err != nil {
		return err
	}

	p.metrics.ProofDispatched()
	p.events.Emit(events.ProofDispatched{
		Destination: destination,
		MessageID:   string(id),
		Count:       len(req.Hashes),
	})
	p.log.Info("proof dispatched",
		zap.Uint32("destination", destination),
		zap.Int("intents", len(req.Hashes)),
		zap.String("message_id", string(id)),
	)
	return nil
}

// Handle ingests an inbound proof message. The direct caller must be the
// mailbox, the origin non-zero, and the sender whitelisted; per-intent
// duplicates emit AlreadyProven and the batch continues.
func (p *HyperProver) Handle(caller svm.Pubkey, origin uint32, sender protocol.Bytes32, body []byte) error {
	if caller != p.mailbox.ProcessAuthority() {
		return ErrUnauthorizedHandle
	}
	if origin == 0 {
		return ErrInvalidOriginChainID
	}

	hashes, claimants, err := protocol.DecodeProofMessage(body)
	if err != nil {
		return err
	}

	return p.store.Transact(func(tx state.Txn) error {
		cfg, err := p.config(tx)
		if err != nil {
			return err
		}
		if !cfg.IsWhitelisted([32]byte(sender)) {
			p.log.Warn("rejected inbound proof",
				zap.String("sender", sender.Hex()),
				zap.Uint32("origin", origin),
			)
			return ErrUnauthorizedIncomingProof
		}

		for i, hash := range hashes {
			if err := p.recordProof(tx, hash, claimants[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *HyperProver) recordProof(tx state.Txn, hash, claimant protocol.Bytes32) error {
	addr, err := svm.ProofAddress(p.cfg.ProgramID, hash)
	if err != nil {
		return err
	}

	raw, err := state.ProofRecord{Claimant: [32]uint8(claimant)}.Marshal()
	if err != nil {
		return err
	}

	switch err := tx.CreateAccount(addr, raw, p.payerAccount); err {
	case nil:
		p.metrics.ProofRecorded()
		p.events.Emit(events.IntentProven{IntentHash: hash, Claimant: claimant})
		return nil
	case state.ErrAccountExists:
		p.events.Emit(events.AlreadyProven{IntentHash: hash})
		return nil
	default:
		return err
	}
}

// Proof returns the recorded claimant for an intent hash, if any.
func (p *HyperProver) Proof(view state.View, hash protocol.Bytes32) (protocol.Bytes32, bool, error) {
	return readProof(view, p.cfg.ProgramID, hash)
}

// CloseProof deletes a proof record inside the caller's transaction. Any
// caller may close it once the reward's withdrawn marker exists; creators
// may close early only when eager reclamation is configured. The portal's
// withdraw path deletes the record itself and does not call here.
func (p *HyperProver) CloseProof(tx state.Txn, req CloseRequest) error {
	return closeProof(tx, p.cfg.ProgramID, p.cfg.PortalID, p.portalProofCloser, p.cfg.EagerClose, req, p.events)
}

// Close runs CloseProof in its own transaction.
func (p *HyperProver) Close(req CloseRequest) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.CloseProof(tx, req)
	})
}

func readProof(view state.View, proverID svm.Pubkey, hash protocol.Bytes32) (protocol.Bytes32, bool, error) {
	addr, err := svm.ProofAddress(proverID, hash)
	if err != nil {
		return protocol.Bytes32{}, false, err
	}

	raw, err := view.AccountData(addr)
	if err == state.ErrAccountNotFound {
		return protocol.Bytes32{}, false, nil
	}
	if err != nil {
		return protocol.Bytes32{}, false, err
	}

	record, err := state.UnmarshalProofRecord(raw)
	if err != nil {
		return protocol.Bytes32{}, false, err
	}
	return protocol.Bytes32(record.Claimant), true, nil
}

func closeProof(
	tx state.Txn,
	proverID, portalID, portalProofCloser svm.Pubkey,
	eagerClose bool,
	req CloseRequest,
	emitter events.Emitter,
) error {
	addr, err := svm.ProofAddress(proverID, req.IntentHash)
	if err != nil {
		return err
	}
	if exists, err := tx.HasAccount(addr); err != nil {
		return err
	} else if !exists {
		return state.ErrAccountNotFound
	}

	withdrawnAddr, err := svm.WithdrawnMarkerAddress(portalID, req.IntentHash)
	if err != nil {
		return err
	}
	withdrawn, err := tx.HasAccount(withdrawnAddr)
	if err != nil {
		return err
	}

	switch {
	case withdrawn:
	case !req.Creator.IsZero() && req.Caller == svm.Pubkey(req.Creator):
		if !eagerClose {
			return ErrIntentNotClaimed
		}
	default:
		return ErrUnauthorizedClose
	}

	if err := tx.CloseAccount(addr, req.RentTo); err != nil {
		return err
	}
	emitter.Emit(events.ProofClosed{IntentHash: req.IntentHash})
	return nil
}
