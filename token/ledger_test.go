package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/openintents/portal/svm"
)

func key(b byte) svm.Pubkey {
	var out svm.Pubkey
	out[0] = b
	return out
}

func TestLedger_TransferRequiresOwnerAuthority(t *testing.T) {
	l := NewLedger()
	mint := key(1)
	alice, bob, mallory := key(2), key(3), key(4)

	require.NoError(t, l.CreateMint(mint, 6))
	require.NoError(t, l.MintTo(alice, mint, uint256.NewInt(1_000_000)))

	from, err := l.EnsureAccount(alice, mint)
	require.NoError(t, err)
	to, err := l.EnsureAccount(bob, mint)
	require.NoError(t, err)

	err = l.Transfer(mallory, from, to, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrNotAccountOwner)

	require.NoError(t, l.Transfer(alice, from, to, uint256.NewInt(400_000)))
	require.Equal(t, uint256.NewInt(600_000), l.Balance(from))
	require.Equal(t, uint256.NewInt(400_000), l.Balance(to))

	err = l.Transfer(alice, from, to, uint256.NewInt(600_001))
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestLedger_ZeroTransferIsNoop(t *testing.T) {
	l := NewLedger()
	mint := key(1)
	alice, bob := key(2), key(3)

	require.NoError(t, l.CreateMint(mint, 6))
	from, err := l.EnsureAccount(alice, mint)
	require.NoError(t, err)
	to, err := l.EnsureAccount(bob, mint)
	require.NoError(t, err)

	require.NoError(t, l.Transfer(alice, from, to, new(uint256.Int)))
	require.True(t, l.Balance(to).IsZero())
}

func TestLedger_TransactRollsBack(t *testing.T) {
	l := NewLedger()
	mint := key(1)
	alice, bob := key(2), key(3)

	require.NoError(t, l.CreateMint(mint, 6))
	require.NoError(t, l.MintTo(alice, mint, uint256.NewInt(100)))

	from, err := l.EnsureAccount(alice, mint)
	require.NoError(t, err)
	to, err := l.EnsureAccount(bob, mint)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = l.Transact(func(tx *Ledger) error {
		if err := tx.Transfer(alice, from, to, uint256.NewInt(100)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint256.NewInt(100), l.Balance(from))
	require.True(t, l.Balance(to).IsZero())
}

func TestLedger_CloseRejectsNonEmpty(t *testing.T) {
	l := NewLedger()
	mint := key(1)
	alice := key(2)

	require.NoError(t, l.CreateMint(mint, 6))
	require.NoError(t, l.MintTo(alice, mint, uint256.NewInt(1)))

	addr, err := l.EnsureAccount(alice, mint)
	require.NoError(t, err)

	err = l.Close(alice, addr)
	require.ErrorIs(t, err, ErrNonEmptyAccount)
}

func TestTransferInstruction_RoundTrip(t *testing.T) {
	to := key(9)
	amount := uint256.NewInt(123456789)

	data := EncodeTransfer(to, amount)
	gotTo, gotAmount, err := DecodeTransfer(data)
	require.NoError(t, err)
	require.Equal(t, to, gotTo)
	require.Equal(t, amount, gotAmount)

	_, _, err = DecodeTransfer(data[:10])
	require.ErrorIs(t, err, ErrInvalidInstruction)
}
