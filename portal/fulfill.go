package portal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/holiman/uint256"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/prover"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// FulfillArgs is the destination-side fulfillment request. TokenAccounts
// are matched positionally against route.Tokens: (mint, solver account,
// execution-authority account) per entry.
type FulfillArgs struct {
	IntentHash protocol.Bytes32
	Route      protocol.Route
	Reward     protocol.Reward
	Claimant   protocol.Bytes32

	Payer  svm.Pubkey
	Solver svm.Pubkey
	// Prover is the registered prover program dispatching the proof.
	Prover svm.Pubkey
	// ProverFunds is the native amount the payer commits to the dispatch
	// fee; only the quoted fee is taken.
	ProverFunds *uint256.Int
	// ProverData optionally selects the post-dispatch hook.
	ProverData []byte

	TokenAccounts []TokenTransferAccounts
}

// Fulfill executes an intent on this chain: it creates the fulfillment
// marker, moves the route tokens to the execution authority, runs the
// route's calls under that authority, and dispatches the proof. Any failure
// unwinds everything.
func (p *Portal) Fulfill(args FulfillArgs) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			return p.fulfill(tx, ld, args)
		})
	})
}

func (p *Portal) fulfill(tx state.Txn, ld *token.Ledger, args FulfillArgs) error {
	cfg, err := p.config(tx)
	if err != nil {
		return err
	}

	// Precondition order is observable: the first failing check names the
	// rejection.
	if args.Route.DestinationDomain != cfg.LocalDomain {
		return ErrWrongChain
	}
	if protocol.IntentHash(args.Route, args.Reward) != args.IntentHash {
		return ErrInvalidHash
	}
	if args.Route.Inbox != p.InboxID() {
		return ErrInvalidInbox
	}
	if args.Claimant.IsZero() {
		return ErrZeroClaimant
	}

	markerAddr, err := svm.FulfillMarkerAddress(p.programID, args.IntentHash)
	if err != nil {
		return err
	}
	if exists, err := tx.HasAccount(markerAddr); err != nil {
		return err
	} else if exists {
		return ErrAlreadyFulfilled
	}

	if args.Reward.Deadline != 0 && p.now() > args.Reward.Deadline {
		return ErrDeadlinePassed
	}

	for _, call := range args.Route.Calls {
		if !amountOrZero(call.Value).IsZero() {
			return ErrCallValueNotSupported
		}
	}

	dispatcher, ok := p.provers[args.Prover]
	if !ok {
		return ErrInvalidProver
	}

	if err := p.markFulfilled(tx, markerAddr, args); err != nil {
		return err
	}
	if err := p.fundExecutor(ld, args); err != nil {
		return err
	}

	authority, err := svm.ExecutionAuthority(p.programID, args.Route.Salt)
	if err != nil {
		return err
	}
	if err := p.executeCalls(tx, ld, authority, args.Route.Calls); err != nil {
		return err
	}

	p.metrics.IntentFulfilled()
	p.events.Emit(events.IntentFulfilled{
		IntentHash:   args.IntentHash,
		SourceDomain: args.Route.SourceDomain,
		Prover:       args.Reward.Prover,
		Claimant:     args.Claimant,
	})

	if err := dispatcher.Prove(tx, prover.ProveRequest{
		Caller:       p.dispatchAuthority,
		Payer:        args.Payer,
		SourceDomain: args.Route.SourceDomain,
		Hashes:       []protocol.Bytes32{args.IntentHash},
		Claimants:    []protocol.Bytes32{args.Claimant},
		Funds:        args.ProverFunds,
		Data:         args.ProverData,
	}); err != nil {
		return err
	}

	p.log.Info("intent fulfilled",
		zap.String("intent_hash", args.IntentHash.Hex()),
		zap.String("claimant", args.Claimant.Hex()),
		zap.Uint64("source_domain", args.Route.SourceDomain),
	)
	return nil
}

func (p *Portal) markFulfilled(tx state.Txn, markerAddr svm.Pubkey, args FulfillArgs) error {
	raw, err := state.FulfillMarker{Claimant: [32]uint8(args.Claimant)}.Marshal()
	if err != nil {
		return err
	}
	if err := tx.CreateAccount(markerAddr, raw, args.Payer); err != nil {
		if err == state.ErrAccountExists {
			return ErrAlreadyFulfilled
		}
		return err
	}
	return nil
}

// fundExecutor moves every route token from the solver to the execution
// authority, positionally per route.Tokens. Zero amounts skip the transfer
// but the account triple must still be listed.
func (p *Portal) fundExecutor(ld *token.Ledger, args FulfillArgs) error {
	if len(args.TokenAccounts) != len(args.Route.Tokens) {
		return ErrInvalidTokenTransferAccounts
	}

	authority, err := svm.ExecutionAuthority(p.programID, args.Route.Salt)
	if err != nil {
		return err
	}

	for i, want := range args.Route.Tokens {
		accounts := args.TokenAccounts[i]
		if protocol.Bytes32(accounts.Mint) != want.Token {
			return ErrInvalidMint
		}

		authorityATA, err := ld.EnsureAccount(authority, accounts.Mint)
		if err != nil {
			return err
		}
		if accounts.To != authorityATA {
			return ErrInvalidAta
		}

		amount := amountOrZero(want.Amount)
		if amount.IsZero() {
			continue
		}

		from, err := ld.Account(accounts.From)
		if err != nil {
			return err
		}
		if from.Owner != args.Solver || from.Mint != accounts.Mint {
			return ErrInvalidTokenTransferAccounts
		}
		if err := ld.Transfer(args.Solver, accounts.From, authorityATA, amount); err != nil {
			return err
		}
	}
	return nil
}

// executeCalls runs the route's calls in listed order under the execution
// authority. Targets identifying as provers are rejected, as are calls with
// data to targets without code.
func (p *Portal) executeCalls(tx state.Txn, ld *token.Ledger, authority svm.Pubkey, calls []protocol.Call) error {
	for i, call := range calls {
		target := pubkeyOf(call.Target)
		if p.registry.IsProver(target) {
			return ErrCallToProver
		}

		program, ok := p.registry.Program(target)
		if !ok {
			if len(call.Data) > 0 {
				return ErrCallToEOA
			}
			continue
		}

		if err := program.Execute(CallEnv{
			Store:     tx,
			Tokens:    ld,
			Authority: authority,
			Call:      call,
		}); err != nil {
			return fmt.Errorf("%w: call %d: %v", ErrIntentCallFailed, i, err)
		}
	}
	return nil
}

// Fulfilled returns the recorded claimant when the intent has been
// fulfilled on this chain.
func (p *Portal) Fulfilled(intentHash protocol.Bytes32) (protocol.Bytes32, bool, error) {
	markerAddr, err := svm.FulfillMarkerAddress(p.programID, intentHash)
	if err != nil {
		return protocol.Bytes32{}, false, err
	}

	raw, err := p.store.AccountData(markerAddr)
	if err == state.ErrAccountNotFound {
		return protocol.Bytes32{}, false, nil
	}
	if err != nil {
		return protocol.Bytes32{}, false, err
	}

	marker, err := state.UnmarshalFulfillMarker(raw)
	if err != nil {
		return protocol.Bytes32{}, false, err
	}
	return protocol.Bytes32(marker.Claimant), true, nil
}
