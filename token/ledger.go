// Package token models the fungible token accounts the protocol moves route
// and reward tokens through: mints, owner-keyed associated accounts, and
// authority-checked transfers.
package token

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/openintents/portal/svm"
)

var (
	ErrMintExists         = errors.New("mint already exists")
	ErrUnknownMint        = errors.New("unknown mint")
	ErrUnknownAccount     = errors.New("unknown token account")
	ErrMintMismatch       = errors.New("token accounts have different mints")
	ErrNotAccountOwner    = errors.New("authority does not own the source account")
	ErrInsufficientFunds  = errors.New("insufficient token balance")
	ErrNonEmptyAccount    = errors.New("token account still holds a balance")
	ErrAccountExistsOther = errors.New("address already holds a different account")
)

type Mint struct {
	Address  svm.Pubkey
	Decimals uint8
}

type Account struct {
	Address svm.Pubkey
	Mint    svm.Pubkey
	Owner   svm.Pubkey
	Balance *uint256.Int
}

// Ledger is an in-memory token space. Transact gives the same
// all-or-nothing semantics as the account store: the callback runs against a
// copy which replaces the live state only on success.
type Ledger struct {
	mu       sync.RWMutex
	mints    map[svm.Pubkey]Mint
	accounts map[svm.Pubkey]*Account
}

func NewLedger() *Ledger {
	return &Ledger{
		mints:    make(map[svm.Pubkey]Mint),
		accounts: make(map[svm.Pubkey]*Account),
	}
}

func (l *Ledger) CreateMint(mint svm.Pubkey, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[mint]; ok {
		return ErrMintExists
	}
	l.mints[mint] = Mint{Address: mint, Decimals: decimals}
	return nil
}

func (l *Ledger) Mint(mint svm.Pubkey) (Mint, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.mints[mint]
	if !ok {
		return Mint{}, ErrUnknownMint
	}
	return m, nil
}

// EnsureAccount creates the owner's associated account for mint if it does
// not exist yet and returns its address.
func (l *Ledger) EnsureAccount(owner, mint svm.Pubkey) (svm.Pubkey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureAccountLocked(owner, mint)
}

func (l *Ledger) ensureAccountLocked(owner, mint svm.Pubkey) (svm.Pubkey, error) {
	if _, ok := l.mints[mint]; !ok {
		return svm.Pubkey{}, ErrUnknownMint
	}

	addr, err := svm.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return svm.Pubkey{}, err
	}

	if acc, ok := l.accounts[addr]; ok {
		if acc.Mint != mint || acc.Owner != owner {
			return svm.Pubkey{}, ErrAccountExistsOther
		}
		return addr, nil
	}

	l.accounts[addr] = &Account{
		Address: addr,
		Mint:    mint,
		Owner:   owner,
		Balance: new(uint256.Int),
	}
	return addr, nil
}

func (l *Ledger) Account(addr svm.Pubkey) (Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return Account{}, ErrUnknownAccount
	}
	out := *acc
	out.Balance = new(uint256.Int).Set(acc.Balance)
	return out, nil
}

// Balance is zero for addresses without an account.
func (l *Ledger) Balance(addr svm.Pubkey) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(acc.Balance)
}

// MintTo credits freshly issued supply; the system boundary for tests and
// funding fixtures.
func (l *Ledger) MintTo(owner, mint svm.Pubkey, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	addr, err := l.ensureAccountLocked(owner, mint)
	if err != nil {
		return err
	}
	acc := l.accounts[addr]
	acc.Balance.Add(acc.Balance, amount)
	return nil
}

// Transfer moves amount between accounts of the same mint. The authority
// must own the source account. Zero-amount transfers succeed without
// touching balances.
func (l *Ledger) Transfer(authority, from, to svm.Pubkey, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.IsZero() {
		return nil
	}

	src, ok := l.accounts[from]
	if !ok {
		return ErrUnknownAccount
	}
	dst, ok := l.accounts[to]
	if !ok {
		return ErrUnknownAccount
	}
	if src.Mint != dst.Mint {
		return ErrMintMismatch
	}
	if src.Owner != authority {
		return ErrNotAccountOwner
	}
	if src.Balance.Lt(amount) {
		return ErrInsufficientFunds
	}

	src.Balance.Sub(src.Balance, amount)
	dst.Balance.Add(dst.Balance, amount)
	return nil
}

// Close removes an empty account owned by authority; an account that still
// holds a balance is rejected with ErrNonEmptyAccount, mirroring the token
// program's close rule.
func (l *Ledger) Close(authority, addr svm.Pubkey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return ErrUnknownAccount
	}
	if acc.Owner != authority {
		return ErrNotAccountOwner
	}
	if !acc.Balance.IsZero() {
		return ErrNonEmptyAccount
	}
	delete(l.accounts, addr)
	return nil
}

// Transact runs fn against a copy of the ledger and swaps it in on success.
func (l *Ledger) Transact(fn func(*Ledger) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := &Ledger{
		mints:    make(map[svm.Pubkey]Mint, len(l.mints)),
		accounts: make(map[svm.Pubkey]*Account, len(l.accounts)),
	}
	for k, v := range l.mints {
		next.mints[k] = v
	}
	for k, v := range l.accounts {
		clone := *v
		clone.Balance = new(uint256.Int).Set(v.Balance)
		next.accounts[k] = &clone
	}

	if err := fn(next); err != nil {
		return err
	}

	l.mints = next.mints
	l.accounts = next.accounts
	return nil
}
