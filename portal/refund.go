package portal

import (
	"go.uber.org/zap"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// RefundArgs returns an expired, unproven reward to its creator.
// TokenAccounts carry one (mint, vault account, creator account) triple per
// reward mint still holding a balance.
type RefundArgs struct {
	RouteHash protocol.Bytes32
	Reward    protocol.Reward
	Payer     svm.Pubkey

	TokenAccounts []TokenTransferAccounts
}

// Refund requires the deadline to have passed and no proof record to
// exist. A zero deadline means unset, so such intents are refundable
// immediately.
func (p *Portal) Refund(args RefundArgs) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			return p.refund(tx, ld, args)
		})
	})
}

func (p *Portal) refund(tx state.Txn, ld *token.Ledger, args RefundArgs) error {
	intentHash := protocol.IntentHashFromParts(args.RouteHash, protocol.RewardHash(args.Reward))

	record, recordAddr, err := p.intentRecord(tx, intentHash)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return ErrRewardsAlreadyWithdrawn
	}

	if _, proven, err := p.proof(tx, args.Reward.Prover, intentHash); err != nil {
		return err
	} else if proven {
		return ErrIntentProven
	}

	if p.now() <= args.Reward.Deadline {
		return ErrIntentNotExpired
	}

	creator := pubkeyOf(args.Reward.Creator)

	if err := p.refundTokens(ld, intentHash, args, creator); err != nil {
		return err
	}

	// Native value goes back through vault teardown: the whole balance,
	// partial funding included.
	vaultAddr, err := p.vaultNativeAddress(intentHash)
	if err != nil {
		return err
	}
	balance, err := tx.NativeBalance(vaultAddr)
	if err != nil {
		return err
	}
	if err := tx.TransferNative(vaultAddr, creator, balance); err != nil {
		return err
	}

	record.Status = state.StatusRefunded
	record.Mode = state.ModeRefund
	record.Target = [32]uint8(creator)
	if err := p.writeIntentRecord(tx, recordAddr, record); err != nil {
		return err
	}

	p.metrics.IntentRefunded()
	p.events.Emit(events.IntentRefunded{IntentHash: intentHash, Creator: args.Reward.Creator})
	p.log.Info("intent refunded", zap.String("intent_hash", intentHash.Hex()))
	return nil
}

func (p *Portal) refundTokens(
	ld *token.Ledger,
	intentHash protocol.Bytes32,
	args RefundArgs,
	creator svm.Pubkey,
) error {
	required, err := args.Reward.TokenAmounts()
	if err != nil {
		return err
	}

	for _, accounts := range args.TokenAccounts {
		if _, ok := required[protocol.Bytes32(accounts.Mint)]; !ok {
			return ErrInvalidMint
		}

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
		if to.Owner != creator || to.Mint != accounts.Mint {
			return ErrInvalidCreatorToken
		}

		if balance := ld.Balance(vaultATA); !balance.IsZero() {
			if err := ld.Transfer(vaultAddr, vaultATA, accounts.To, balance); err != nil {
				return err
			}
		}
		if err := ld.Close(vaultAddr, vaultATA); err != nil && err != token.ErrUnknownAccount {
			return err
		}
	}
	return nil
}
