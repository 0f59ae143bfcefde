package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"

	"github.com/openintents/portal/svm"
)

// SQLiteStore persists the account space in an embedded database. One row
// per account: the derived address, the native balance as a 32-byte
// big-endian blob, and the record bytes (NULL for balance-only accounts).
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// The store is single-writer by design; one connection keeps
	// transactions serialized without busy retries.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		address  BLOB PRIMARY KEY,
		lamports BLOB NOT NULL,
		data     BLOB
	) WITHOUT ROWID;
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type sqliteQuerier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) AccountData(addr svm.Pubkey) ([]byte, error) {
	return sqliteAccountData(s.db, addr)
}

func (s *SQLiteStore) HasAccount(addr svm.Pubkey) (bool, error) {
	return sqliteHasAccount(s.db, addr)
}

func (s *SQLiteStore) NativeBalance(addr svm.Pubkey) (*uint256.Int, error) {
	return sqliteNativeBalance(s.db, addr)
}

func (s *SQLiteStore) Transact(fn func(Txn) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(&sqliteTxn{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqliteTxn struct {
	tx *sql.Tx
}

func (t *sqliteTxn) AccountData(addr svm.Pubkey) ([]byte, error) {
	return sqliteAccountData(t.tx, addr)
}

func (t *sqliteTxn) HasAccount(addr svm.Pubkey) (bool, error) {
	return sqliteHasAccount(t.tx, addr)
}

func (t *sqliteTxn) NativeBalance(addr svm.Pubkey) (*uint256.Int, error) {
	return sqliteNativeBalance(t.tx, addr)
}

func (t *sqliteTxn) CreateAccount(addr svm.Pubkey, data []byte, payer svm.Pubkey) error {
	existing, err := sqliteHasAccount(t.tx, addr)
	if err != nil {
		return err
	}
	if existing {
		return ErrAccountExists
	}

	rent := Rent(len(data))
	if err := t.debit(payer, rent); err != nil {
		return err
	}

	balance, err := sqliteNativeBalance(t.tx, addr)
	if err != nil {
		return err
	}
	balance.Add(balance, rent)
	return t.upsert(addr, balance, data)
}

func (t *sqliteTxn) SetAccountData(addr svm.Pubkey, data []byte) error {
	res, err := t.tx.Exec(`UPDATE accounts SET data = ? WHERE address = ? AND data IS NOT NULL`,
		data, addr[:])
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (t *sqliteTxn) CloseAccount(addr svm.Pubkey, rentTo svm.Pubkey) error {
	existing, err := sqliteHasAccount(t.tx, addr)
	if err != nil {
		return err
	}
	if !existing {
		return ErrAccountNotFound
	}

	balance, err := sqliteNativeBalance(t.tx, addr)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(`DELETE FROM accounts WHERE address = ?`, addr[:]); err != nil {
		return err
	}
	return t.CreditNative(rentTo, balance)
}

func (t *sqliteTxn) TransferNative(from, to svm.Pubkey, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := t.debit(from, amount); err != nil {
		return err
	}
	return t.CreditNative(to, amount)
}

func (t *sqliteTxn) CreditNative(addr svm.Pubkey, amount *uint256.Int) error {
	balance, err := sqliteNativeBalance(t.tx, addr)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)

	data, err := sqliteAccountData(t.tx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		data = nil
	} else if err != nil {
		return err
	}
	return t.upsert(addr, balance, data)
}

func (t *sqliteTxn) debit(addr svm.Pubkey, amount *uint256.Int) error {
	balance, err := sqliteNativeBalance(t.tx, addr)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return ErrInsufficientNative
	}
	balance.Sub(balance, amount)

	lamports := balance.Bytes32()
	res, err := t.tx.Exec(`UPDATE accounts SET lamports = ? WHERE address = ?`,
		lamports[:], addr[:])
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientNative
	}
	return nil
}

func (t *sqliteTxn) upsert(addr svm.Pubkey, balance *uint256.Int, data []byte) error {
	lamports := balance.Bytes32()
	_, err := t.tx.Exec(`
		INSERT INTO accounts (address, lamports, data) VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET lamports = excluded.lamports, data = excluded.data`,
		addr[:], lamports[:], data)
	return err
}

func sqliteAccountData(q sqliteQuerier, addr svm.Pubkey) ([]byte, error) {
	var data []byte
	err := q.QueryRow(`SELECT data FROM accounts WHERE address = ? AND data IS NOT NULL`, addr[:]).
		Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func sqliteHasAccount(q sqliteQuerier, addr svm.Pubkey) (bool, error) {
	var one int
	err := q.QueryRow(`SELECT 1 FROM accounts WHERE address = ? AND data IS NOT NULL`, addr[:]).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func sqliteNativeBalance(q sqliteQuerier, addr svm.Pubkey) (*uint256.Int, error) {
	var lamports []byte
	err := q.QueryRow(`SELECT lamports FROM accounts WHERE address = ?`, addr[:]).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(lamports), nil
}
