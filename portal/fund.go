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

// FundRequest carries the funding actor and the token accounts feeding the
// vaults: one (mint, funder account, vault account) triple per reward mint
// being funded this call.
type FundRequest struct {
	Payer        svm.Pubkey
	Funder       svm.Pubkey
	AllowPartial bool
	// Permit, when set, moves the funder's tokens instead of a direct
	// transfer. UsePermit records the choice on the intent record.
	Permit        Permit
	TokenAccounts []TokenTransferAccounts
}

// Fund moves native value and reward tokens from the funder into the
// per-intent vaults. Without allow_partial the whole reward must be covered
// or the transaction aborts; with it, whatever the funder can cover is
// taken and the intent stays PartiallyFunded until complete.
func (p *Portal) Fund(routeHash protocol.Bytes32, reward protocol.Reward, req FundRequest) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			return p.fund(tx, ld, routeHash, reward, req)
		})
	})
}

// FundFor funds on behalf of req.Funder through an optional permit
// contract. Intents carrying native value with a live native vault cannot
// be funded by proxy; that would open premature reclamation.
func (p *Portal) FundFor(routeHash protocol.Bytes32, reward protocol.Reward, req FundRequest) error {
	return p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			intentHash := protocol.IntentHashFromParts(routeHash, protocol.RewardHash(reward))

			if amountOrZero(reward.NativeValue).Sign() > 0 {
				vaultAddr, err := p.vaultNativeAddress(intentHash)
				if err != nil {
					return err
				}
				balance, err := tx.NativeBalance(vaultAddr)
				if err != nil {
					return err
				}
				if !balance.IsZero() {
					return ErrFundForNative
				}
			}
			return p.fund(tx, ld, routeHash, reward, req)
		})
	})
}

func (p *Portal) fund(
	tx state.Txn,
	ld *token.Ledger,
	routeHash protocol.Bytes32,
	reward protocol.Reward,
	req FundRequest,
) error {
	intentHash := protocol.IntentHashFromParts(routeHash, protocol.RewardHash(reward))

	record, recordAddr, err := p.intentRecord(tx, intentHash)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		return ErrAlreadyExists
	}
	if record.Status == state.StatusFunded {
		return ErrAlreadyFunded
	}

	nativeCovered, err := p.fundNative(tx, intentHash, reward, req)
	if err != nil {
		return err
	}
	tokensCovered, err := p.fundTokens(tx, ld, intentHash, reward, req)
	if err != nil {
		return err
	}

	complete := nativeCovered && tokensCovered
	if complete {
		record.Status = state.StatusFunded
	} else {
		record.Status = state.StatusPartiallyFunded
	}
	record.Mode = state.ModeFund
	record.AllowPartial = req.AllowPartial
	record.UsePermit = req.Permit != nil
	record.Target = [32]uint8(req.Funder)
	if err := p.writeIntentRecord(tx, recordAddr, record); err != nil {
		return err
	}

	p.metrics.IntentFunded()
	p.events.Emit(events.IntentFunded{
		IntentHash: intentHash,
		Funder:     req.Funder,
		Complete:   complete,
	})
	p.log.Info("intent funded",
		zap.String("intent_hash", intentHash.Hex()),
		zap.Bool("complete", complete),
	)
	return nil
}

func (p *Portal) fundNative(
	tx state.Txn,
	intentHash protocol.Bytes32,
	reward protocol.Reward,
	req FundRequest,
) (bool, error) {
	required := amountOrZero(reward.NativeValue)
	if required.IsZero() {
		return true, nil
	}

	vaultAddr, err := p.vaultNativeAddress(intentHash)
	if err != nil {
		return false, err
	}
	have, err := tx.NativeBalance(vaultAddr)
	if err != nil {
		return false, err
	}
	if have.Cmp(required) >= 0 {
		return true, nil
	}

	needed := new(uint256.Int).Sub(required, have)
	available, err := tx.NativeBalance(req.Funder)
	if err != nil {
		return false, err
	}

	pay := needed
	if available.Lt(needed) {
		if !req.AllowPartial {
			return false, ErrInsufficientNativeReward
		}
		pay = available
	}
	if err := tx.TransferNative(req.Funder, vaultAddr, pay); err != nil {
		return false, err
	}

	return pay.Eq(needed), nil
}

func (p *Portal) fundTokens(
	tx state.Txn,
	ld *token.Ledger,
	intentHash protocol.Bytes32,
	reward protocol.Reward,
	req FundRequest,
) (bool, error) {
	required, err := reward.TokenAmounts()
	if err != nil {
		return false, err
	}

	for _, accounts := range req.TokenAccounts {
		amount, ok := required[protocol.Bytes32(accounts.Mint)]
		if !ok {
			return false, ErrInvalidMint
		}
		if err := p.fundToken(ld, intentHash, accounts, amount, req); err != nil {
			return false, err
		}
	}

	// Coverage is judged on vault balances, not on what this call moved, so
	// repeated partial funding is monotone.
	for mint, amount := range required {
		vaultAddr, err := svm.RewardVaultAddress(p.programID, intentHash, svm.Pubkey(mint))
		if err != nil {
			return false, err
		}
		ata, err := svm.AssociatedTokenAddress(vaultAddr, svm.Pubkey(mint))
		if err != nil {
			return false, err
		}
		if ld.Balance(ata).Lt(amount) {
			if !req.AllowPartial {
				return false, ErrInsufficientTokenAllowance
			}
			return false, nil
		}
	}
	return true, nil
}

func (p *Portal) fundToken(
	ld *token.Ledger,
	intentHash protocol.Bytes32,
	accounts TokenTransferAccounts,
	required *uint256.Int,
	req FundRequest,
) error {
	vaultAddr, err := svm.RewardVaultAddress(p.programID, intentHash, accounts.Mint)
	if err != nil {
		return err
	}
	vaultATA, err := ld.EnsureAccount(vaultAddr, accounts.Mint)
	if err != nil {
		return err
	}
	if accounts.To != vaultATA {
		return ErrInvalidAta
	}

	have := ld.Balance(vaultATA)
	if have.Cmp(required) >= 0 {
		return nil
	}
	needed := new(uint256.Int).Sub(required, have)

	if req.Permit != nil {
		moved, err := req.Permit.Transfer(ld, req.Funder, accounts.Mint, vaultATA, needed)
		if err != nil {
			return err
		}
		if !req.AllowPartial && moved.Lt(needed) {
			return ErrInsufficientTokenAllowance
		}
		return nil
	}

	from, err := ld.Account(accounts.From)
	if err != nil {
		return err
	}
	if from.Owner != req.Funder || from.Mint != accounts.Mint {
		return ErrInvalidTokenTransferAccounts
	}

	pay := needed
	if from.Balance.Lt(needed) {
		if !req.AllowPartial {
			return ErrInsufficientTokenAllowance
		}
		pay = from.Balance
	}
	return ld.Transfer(req.Funder, accounts.From, vaultATA, pay)
}
