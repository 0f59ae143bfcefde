package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/openintents/portal/svm"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func addr(b byte) svm.Pubkey {
	var out svm.Pubkey
	out[0] = b
	return out
}

func TestStore_CreateAccountChargesRentOnce(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			payer, record := addr(1), addr(2)
			data := []byte("record-body")

			require.NoError(t, store.Transact(func(tx Txn) error {
				return tx.CreditNative(payer, uint256.NewInt(10_000_000))
			}))

			require.NoError(t, store.Transact(func(tx Txn) error {
				return tx.CreateAccount(record, data, payer)
			}))

			got, err := store.AccountData(record)
			require.NoError(t, err)
			require.Equal(t, data, got)

			balance, err := store.NativeBalance(record)
			require.NoError(t, err)
			require.Equal(t, Rent(len(data)), balance)

			err = store.Transact(func(tx Txn) error {
				return tx.CreateAccount(record, data, payer)
			})
			require.ErrorIs(t, err, ErrAccountExists)
		})
	}
}

func TestStore_TransactRollsBackOnError(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			payer, record := addr(1), addr(2)

			require.NoError(t, store.Transact(func(tx Txn) error {
				return tx.CreditNative(payer, uint256.NewInt(10_000_000))
			}))

			boom := errors.New("boom")
			err := store.Transact(func(tx Txn) error {
				if err := tx.CreateAccount(record, []byte("x"), payer); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			exists, err := store.HasAccount(record)
			require.NoError(t, err)
			require.False(t, exists)

			balance, err := store.NativeBalance(payer)
			require.NoError(t, err)
			require.Equal(t, uint256.NewInt(10_000_000), balance)
		})
	}
}

func TestStore_CloseAccountReleasesRent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			payer, record, creator := addr(1), addr(2), addr(3)
			data := []byte("to-be-closed")

			require.NoError(t, store.Transact(func(tx Txn) error {
				if err := tx.CreditNative(payer, uint256.NewInt(10_000_000)); err != nil {
					return err
				}
				return tx.CreateAccount(record, data, payer)
			}))

			require.NoError(t, store.Transact(func(tx Txn) error {
				return tx.CloseAccount(record, creator)
			}))

			exists, err := store.HasAccount(record)
			require.NoError(t, err)
			require.False(t, exists)

			balance, err := store.NativeBalance(creator)
			require.NoError(t, err)
			require.Equal(t, Rent(len(data)), balance)
		})
	}
}

func TestStore_TransferNative(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			from, to := addr(1), addr(2)

			require.NoError(t, store.Transact(func(tx Txn) error {
				return tx.CreditNative(from, uint256.NewInt(500))
			}))

			err := store.Transact(func(tx Txn) error {
				return tx.TransferNative(from, to, uint256.NewInt(501))
			})
			require.ErrorIs(t, err, ErrInsufficientNative)

			require.NoError(t, store.Transact(func(tx Txn) error {
				return tx.TransferNative(from, to, uint256.NewInt(200))
			}))

			fromBal, err := store.NativeBalance(from)
			require.NoError(t, err)
			require.Equal(t, uint256.NewInt(300), fromBal)

			toBal, err := store.NativeBalance(to)
			require.NoError(t, err)
			require.Equal(t, uint256.NewInt(200), toBal)
		})
	}
}

func TestRecords_RoundTripAndDiscriminators(t *testing.T) {
	record := IntentRecord{
		Status:       StatusPartiallyFunded,
		Mode:         ModeFund,
		AllowPartial: true,
	}
	record.Target[0] = 7

	raw, err := record.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalIntentRecord(raw)
	require.NoError(t, err)
	require.Equal(t, record, decoded)

	_, err = UnmarshalProofRecord(raw)
	require.ErrorIs(t, err, ErrInvalidDiscriminator)

	_, err = UnmarshalIntentRecord(raw[:4])
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestProverConfig_Whitelist(t *testing.T) {
	var a, b [32]uint8
	a[0], b[0] = 1, 2

	cfg := ProverConfig{Whitelist: [][32]uint8{a}}
	require.True(t, cfg.IsWhitelisted(a))
	require.False(t, cfg.IsWhitelisted(b))

	raw, err := cfg.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalProverConfig(raw)
	require.NoError(t, err)
	require.Equal(t, cfg, decoded)
}
