package state

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/openintents/portal/svm"
)

type memoryAccount struct {
	lamports uint256.Int
	data     []byte
	hasData  bool
}

// MemoryStore keeps the whole account space in a map. Transact runs against
// a copy and swaps it in on success, so a failed operation leaves no trace.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[svm.Pubkey]*memoryAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[svm.Pubkey]*memoryAccount)}
}

func (s *MemoryStore) AccountData(addr svm.Pubkey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memoryView{s.accounts}.AccountData(addr)
}

func (s *MemoryStore) HasAccount(addr svm.Pubkey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memoryView{s.accounts}.HasAccount(addr)
}

func (s *MemoryStore) NativeBalance(addr svm.Pubkey) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memoryView{s.accounts}.NativeBalance(addr)
}

func (s *MemoryStore) Transact(fn func(Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[svm.Pubkey]*memoryAccount, len(s.accounts))
	for addr, acc := range s.accounts {
		clone := &memoryAccount{hasData: acc.hasData}
		clone.lamports.Set(&acc.lamports)
		clone.data = append([]byte(nil), acc.data...)
		next[addr] = clone
	}

	if err := fn(&memoryTxn{accounts: next}); err != nil {
		return err
	}

	s.accounts = next
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryView struct {
	accounts map[svm.Pubkey]*memoryAccount
}

func (v memoryView) AccountData(addr svm.Pubkey) ([]byte, error) {
	acc, ok := v.accounts[addr]
	if !ok || !acc.hasData {
		return nil, ErrAccountNotFound
	}
	return append([]byte(nil), acc.data...), nil
}

func (v memoryView) HasAccount(addr svm.Pubkey) (bool, error) {
	acc, ok := v.accounts[addr]
	return ok && acc.hasData, nil
}

func (v memoryView) NativeBalance(addr svm.Pubkey) (*uint256.Int, error) {
	acc, ok := v.accounts[addr]
	if !ok {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Set(&acc.lamports), nil
}

type memoryTxn struct {
	accounts map[svm.Pubkey]*memoryAccount
}

func (t *memoryTxn) view() memoryView { return memoryView{t.accounts} }

func (t *memoryTxn) AccountData(addr svm.Pubkey) ([]byte, error) { return t.view().AccountData(addr) }

func (t *memoryTxn) HasAccount(addr svm.Pubkey) (bool, error) { return t.view().HasAccount(addr) }

func (t *memoryTxn) NativeBalance(addr svm.Pubkey) (*uint256.Int, error) {
	return t.view().NativeBalance(addr)
}

func (t *memoryTxn) account(addr svm.Pubkey) *memoryAccount {
	acc, ok := t.accounts[addr]
	if !ok {
		acc = &memoryAccount{}
		t.accounts[addr] = acc
	}
	return acc
}

func (t *memoryTxn) CreateAccount(addr svm.Pubkey, data []byte, payer svm.Pubkey) error {
	if acc, ok := t.accounts[addr]; ok && acc.hasData {
		return ErrAccountExists
	}
	if err := t.debit(payer, Rent(len(data))); err != nil {
		return err
	}

	acc := t.account(addr)
	acc.lamports.Add(&acc.lamports, Rent(len(data)))
	acc.data = append([]byte(nil), data...)
	acc.hasData = true
	return nil
}

func (t *memoryTxn) SetAccountData(addr svm.Pubkey, data []byte) error {
	acc, ok := t.accounts[addr]
	if !ok || !acc.hasData {
		return ErrAccountNotFound
	}
	acc.data = append([]byte(nil), data...)
	return nil
}

func (t *memoryTxn) CloseAccount(addr svm.Pubkey, rentTo svm.Pubkey) error {
	acc, ok := t.accounts[addr]
	if !ok || !acc.hasData {
		return ErrAccountNotFound
	}

	balance := new(uint256.Int).Set(&acc.lamports)
	delete(t.accounts, addr)

	recipient := t.account(rentTo)
	recipient.lamports.Add(&recipient.lamports, balance)
	return nil
}

func (t *memoryTxn) TransferNative(from, to svm.Pubkey, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := t.debit(from, amount); err != nil {
		return err
	}
	recipient := t.account(to)
	recipient.lamports.Add(&recipient.lamports, amount)
	return nil
}

func (t *memoryTxn) CreditNative(addr svm.Pubkey, amount *uint256.Int) error {
	acc := t.account(addr)
	acc.lamports.Add(&acc.lamports, amount)
	return nil
}

func (t *memoryTxn) debit(addr svm.Pubkey, amount *uint256.Int) error {
	acc, ok := t.accounts[addr]
	if !ok || acc.lamports.Lt(amount) {
		return ErrInsufficientNative
	}
	acc.lamports.Sub(&acc.lamports, amount)
	return nil
}
