package portal

import (
	"go.uber.org/zap"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// RecoverTokenArgs returns a mistakenly sent, non-reward token stranded in
// the intent's vault to the creator.
type RecoverTokenArgs struct {
	RouteHash protocol.Bytes32
	Reward    protocol.Reward
	Mint      svm.Pubkey

	// From is the vault's account for the stray mint, To the creator's.
	From svm.Pubkey
	To   svm.Pubkey
}

// RecoverToken is blocked while a native reward is live and not yet
// terminal: tearing vault accounts down early would collapse the native
// funding discipline.
func (p *Portal) RecoverToken(args RecoverTokenArgs) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			return p.recoverToken(tx, ld, args)
		})
	})
}

func (p *Portal) recoverToken(tx state.Txn, ld *token.Ledger, args RecoverTokenArgs) error {
	intentHash := protocol.IntentHashFromParts(args.RouteHash, protocol.RewardHash(args.Reward))

	record, _, err := p.intentRecord(tx, intentHash)
	if err != nil {
		return err
	}

	required, err := args.Reward.TokenAmounts()
	if err != nil {
		return err
	}
	if _, isReward := required[protocol.Bytes32(args.Mint)]; isReward {
		return ErrTokenNotRecoverable
	}

	if amountOrZero(args.Reward.NativeValue).Sign() > 0 && !record.Status.Terminal() {
		return ErrRecoverBlocked
	}

	vaultAddr, vaultATA, err := p.rewardVaultTokenAccount(intentHash, args.Mint)
	if err != nil {
		return err
	}
	if args.From != vaultATA {
		return ErrInvalidAta
	}

	balance := ld.Balance(vaultATA)
	if balance.IsZero() {
		return ErrZeroRefundTokenBalance
	}

	creator := pubkeyOf(args.Reward.Creator)
	to, err := ld.Account(args.To)
	if err != nil {
		return err
	}
	if to.Owner != creator || to.Mint != args.Mint {
		return ErrInvalidCreatorToken
	}

	if err := ld.Transfer(vaultAddr, vaultATA, args.To, balance); err != nil {
		return err
	}
	if err := ld.Close(vaultAddr, vaultATA); err != nil {
		return err
	}

	record.Mode = state.ModeRecoverToken
	record.Target = [32]uint8(args.Mint)
	addr, err := svm.IntentRecordAddress(p.programID, intentHash)
	if err != nil {
		return err
	}
	if err := p.writeIntentRecord(tx, addr, record); err != nil {
		return err
	}

	p.events.Emit(events.TokenRecovered{IntentHash: intentHash, Token: args.Mint})
	p.log.Info("token recovered",
		zap.String("intent_hash", intentHash.Hex()),
		zap.String("mint", args.Mint.Base58()),
	)
	return nil
}
