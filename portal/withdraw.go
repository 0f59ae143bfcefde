package portal

import (
	"go.uber.org/zap"

	"github.com/holiman/uint256"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// WithdrawArgs releases a proven reward. TokenAccounts carry one (mint,
// vault account, claimant account) triple per reward mint.
type WithdrawArgs struct {
	RouteHash protocol.Bytes32
	Reward    protocol.Reward
	Payer     svm.Pubkey

	TokenAccounts []TokenTransferAccounts
}

// Withdraw pays the reward to the claimant recorded in the intent's proof.
// Native value and each reward token are paid up to the vault balance;
// token surplus beyond the reward goes back to the creator. Payout is
// best-effort per token so one pathological token cannot block a solver;
// everything else in the withdrawal is atomic.
func (p *Portal) Withdraw(args WithdrawArgs) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			return p.withdraw(tx, ld, args)
		})
	})
}

// BatchWithdraw withdraws several intents in one transaction. The arrays
// are strictly parallel; any item failure rolls back the whole batch.
func (p *Portal) BatchWithdraw(
	routeHashes []protocol.Bytes32,
	rewards []protocol.Reward,
	accounts [][]TokenTransferAccounts,
	payer svm.Pubkey,
) error {
	if len(routeHashes) != len(rewards) || len(accounts) != len(rewards) {
		return ErrArrayLengthMismatch
	}

	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			for i := range routeHashes {
				err := p.withdraw(tx, ld, WithdrawArgs{
					RouteHash:     routeHashes[i],
					Reward:        rewards[i],
					Payer:         payer,
					TokenAccounts: accounts[i],
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (p *Portal) withdraw(tx state.Txn, ld *token.Ledger, args WithdrawArgs) error {
	intentHash := protocol.IntentHashFromParts(args.RouteHash, protocol.RewardHash(args.Reward))

	cfg, err := p.config(tx)
	if err != nil {
		return err
	}
	// A non-zero authorized prover restricts whose proof records release
	// rewards; zero leaves every registered prover trusted.
	if authorized := pubkeyOf(protocol.Bytes32(cfg.AuthorizedProver)); !authorized.IsZero() &&
		pubkeyOf(args.Reward.Prover) != authorized {
		return ErrUnauthorizedWithdrawal
	}

	record, recordAddr, err := p.intentRecord(tx, intentHash)
	if err != nil {
		return err
	}
	switch record.Status {
	case state.StatusClaimed:
		return ErrRewardsAlreadyWithdrawn
	case state.StatusRefunded:
		return ErrUnauthorizedWithdrawal
	}

	withdrawnAddr, err := svm.WithdrawnMarkerAddress(p.programID, intentHash)
	if err != nil {
		return err
	}
	if exists, err := tx.HasAccount(withdrawnAddr); err != nil {
		return err
	} else if exists {
		return ErrRewardsAlreadyWithdrawn
	}

	claimantID, proven, err := p.proof(tx, args.Reward.Prover, intentHash)
	if err != nil {
		return err
	}
	if !proven || claimantID.IsZero() {
		return ErrUnauthorizedWithdrawal
	}
	claimant := pubkeyOf(claimantID)
	creator := pubkeyOf(args.Reward.Creator)

	if err := p.withdrawNative(tx, intentHash, args.Reward, claimant, creator); err != nil {
		return err
	}
	if err := p.withdrawTokens(ld, intentHash, args, claimant, creator); err != nil {
		return err
	}

	// Once the marker exists, withdraw is never allowed again, proof record
	// or not.
	record.Status = state.StatusClaimed
	record.Mode = state.ModeClaim
	record.Target = [32]uint8(claimant)
	if err := p.writeIntentRecord(tx, recordAddr, record); err != nil {
		return err
	}

	marker, err := state.WithdrawnMarker{}.Marshal()
	if err != nil {
		return err
	}
	if err := tx.CreateAccount(withdrawnAddr, marker, args.Payer); err != nil {
		if err == state.ErrAccountExists {
			return ErrRewardsAlreadyWithdrawn
		}
		return err
	}

	if err := p.closeProofRecord(tx, args.Reward.Prover, intentHash); err != nil {
		return err
	}

	p.metrics.IntentWithdrawn()
	p.events.Emit(events.IntentWithdrawn{IntentHash: intentHash, Claimant: claimant})
	p.log.Info("intent withdrawn",
		zap.String("intent_hash", intentHash.Hex()),
		zap.String("claimant", claimant.Base58()),
	)
	return nil
}

func (p *Portal) proof(view state.View, proverID protocol.Bytes32, intentHash protocol.Bytes32) (protocol.Bytes32, bool, error) {
	addr, err := svm.ProofAddress(pubkeyOf(proverID), intentHash)
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

func (p *Portal) withdrawNative(
	tx state.Txn,
	intentHash protocol.Bytes32,
	reward protocol.Reward,
	claimant, creator svm.Pubkey,
) error {
	vaultAddr, err := p.vaultNativeAddress(intentHash)
	if err != nil {
		return err
	}
	balance, err := tx.NativeBalance(vaultAddr)
	if err != nil {
		return err
	}

	pay := amountOrZero(reward.NativeValue)
	if balance.Lt(pay) {
		pay = balance
	}
	if err := tx.TransferNative(vaultAddr, claimant, pay); err != nil {
		return err
	}

	// The vault is terminal; whatever is left, overfunding included, goes
	// back to the creator.
	rest, err := tx.NativeBalance(vaultAddr)
	if err != nil {
		return err
	}
	return tx.TransferNative(vaultAddr, creator, rest)
}

func (p *Portal) withdrawTokens(
	ld *token.Ledger,
	intentHash protocol.Bytes32,
	args WithdrawArgs,
	claimant, creator svm.Pubkey,
) error {
	required, err := args.Reward.TokenAmounts()
	if err != nil {
		return err
	}
	if len(args.TokenAccounts) != len(required) {
		return ErrInvalidTokenTransferAccounts
	}

	for _, accounts := range args.TokenAccounts {
		amount, ok := required[protocol.Bytes32(accounts.Mint)]
		if !ok {
			return ErrInvalidMint
		}

		if err := p.withdrawToken(ld, intentHash, accounts, amount, claimant, creator); err != nil {
			// Best effort per token: a failing reward token must not block
			// the claimant's remaining payout.
			p.events.Emit(events.RewardTransferFailed{
				IntentHash: intentHash,
				Token:      accounts.Mint,
				Reason:     err.Error(),
			})
			p.log.Warn("reward token payout failed",
				zap.String("intent_hash", intentHash.Hex()),
				zap.String("mint", accounts.Mint.Base58()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (p *Portal) withdrawToken(
	ld *token.Ledger,
	intentHash protocol.Bytes32,
	accounts TokenTransferAccounts,
	required *uint256.Int,
	claimant, creator svm.Pubkey,
) error {
	vaultAddr, vaultATA, err := p.rewardVaultTokenAccount(intentHash, accounts.Mint)
	if err != nil {
		return err
	}
	if accounts.From != vaultATA {
		return ErrInvalidAta
	}

	to, err := ld.Account(accounts.To)
	if err != nil {
		return err
	}
	if to.Owner != claimant || to.Mint != accounts.Mint {
		return ErrInvalidClaimantToken
	}

	balance := ld.Balance(vaultATA)
	pay := new(uint256.Int).Set(required)
	if balance.Lt(pay) {
		pay = balance
	}
	if err := ld.Transfer(vaultAddr, vaultATA, accounts.To, pay); err != nil {
		return err
	}

	// Surplus beyond the reward belongs to the creator.
	if surplus := ld.Balance(vaultATA); !surplus.IsZero() {
		creatorATA, err := ld.EnsureAccount(creator, accounts.Mint)
		if err != nil {
			return err
		}
		if err := ld.Transfer(vaultAddr, vaultATA, creatorATA, surplus); err != nil {
			return err
		}
	}
	return ld.Close(vaultAddr, vaultATA)
}

func (p *Portal) closeProofRecord(tx state.Txn, proverID protocol.Bytes32, intentHash protocol.Bytes32) error {
	addr, err := svm.ProofAddress(pubkeyOf(proverID), intentHash)
	if err != nil {
		return err
	}
	payer, err := svm.ProverPayerAddress(pubkeyOf(proverID))
	if err != nil {
		return err
	}

	if err := tx.CloseAccount(addr, payer); err != nil {
		return err
	}
	p.events.Emit(events.ProofClosed{IntentHash: intentHash})
	return nil
}
