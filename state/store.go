package state

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/openintents/portal/svm"
)

// Store is the persistent account space of one chain: raw record bytes and
// native balances keyed by derived addresses.
//
// All mutation happens inside Transact, which commits atomically or not at
// all; that is what gives every engine operation its all-or-nothing
// semantics. The runtime is single-writer per chain, matching the host
// model where transactions touching the same records are totally ordered.
type Store interface {
	View
	Transact(fn func(Txn) error) error
	Close() error
}

// View is the read-only surface, also available inside a transaction.
type View interface {
	// AccountData returns the record bytes at addr, or ErrAccountNotFound.
	AccountData(addr svm.Pubkey) ([]byte, error)
	HasAccount(addr svm.Pubkey) (bool, error)
	// NativeBalance is zero for addresses that hold no account.
	NativeBalance(addr svm.Pubkey) (*uint256.Int, error)
}

// Txn is the mutable view inside Transact.
type Txn interface {
	View
	// CreateAccount writes a fresh record and charges rent from payer.
	// Creating over an existing record fails with ErrAccountExists; this is
	// what makes marker creation a single-winner operation.
	CreateAccount(addr svm.Pubkey, data []byte, payer svm.Pubkey) error
	SetAccountData(addr svm.Pubkey, data []byte) error
	// CloseAccount deletes the record and releases its entire native
	// balance, rent included, to rentTo.
	CloseAccount(addr svm.Pubkey, rentTo svm.Pubkey) error
	TransferNative(from, to svm.Pubkey, amount *uint256.Int) error
	// CreditNative mints balance at the system boundary (funding faucet,
	// fee refunds from outside the modelled space).
	CreditNative(addr svm.Pubkey, amount *uint256.Int) error
}

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInsufficientNative = errors.New("insufficient native balance")
)

// Rent charged when a record is created, released in full when it closes.
// The schedule mirrors the host chain's rent-exemption formula: a fixed
// 128-byte account overhead plus the record bytes, at the canonical
// lamports-per-byte rate.
const (
	rentOverheadBytes   = 128
	rentLamportsPerByte = 6960
)

func Rent(dataLen int) *uint256.Int {
	return uint256.NewInt(uint64(rentOverheadBytes+dataLen) * rentLamportsPerByte)
}
