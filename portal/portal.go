// Package portal implements the two halves of the intent settlement core:
// the destination-side fulfillment engine and the source-side intent
// lifecycle. One Portal instance serves one chain; which half of an
// intent's life it sees depends on whether the chain is the intent's source
// or destination.
package portal

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/metrics"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/prover"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

type Portal struct {
	programID         svm.Pubkey
	dispatchAuthority svm.Pubkey
	proofCloser       svm.Pubkey
	configAddress     svm.Pubkey

	store    state.Store
	tokens   *token.Ledger
	registry *Registry
	provers  map[svm.Pubkey]prover.Dispatcher

	clock   func() time.Time
	log     *zap.Logger
	events  events.Emitter
	metrics *metrics.Set
}

func New(
	programID svm.Pubkey,
	store state.Store,
	tokens *token.Ledger,
	registry *Registry,
	clock func() time.Time,
	log *zap.Logger,
	emitter events.Emitter,
	set *metrics.Set,
) (*Portal, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = events.NewLogEmitter(log)
	}

	dispatchAuthority, err := svm.DispatchAuthority(programID)
	if err != nil {
		return nil, fmt.Errorf("derive dispatch authority: %w", err)
	}
	proofCloser, err := svm.ProofCloserAuthority(programID)
	if err != nil {
		return nil, fmt.Errorf("derive proof closer: %w", err)
	}
	configAddress, err := svm.ConfigAddress(programID)
	if err != nil {
		return nil, fmt.Errorf("derive config address: %w", err)
	}

	return &Portal{
		programID:         programID,
		dispatchAuthority: dispatchAuthority,
		proofCloser:       proofCloser,
		configAddress:     configAddress,
		store:             store,
		tokens:            tokens,
		registry:          registry,
		provers:           make(map[svm.Pubkey]prover.Dispatcher),
		clock:             clock,
		log:               log.Named("portal"),
		events:            emitter,
		metrics:           set,
	}, nil
}

func (p *Portal) ProgramID() svm.Pubkey { return p.programID }

// InboxID is the portal's identity in Route.Inbox.
func (p *Portal) InboxID() protocol.Bytes32 { return protocol.Bytes32(p.programID) }

func (p *Portal) DispatchAuthority() svm.Pubkey { return p.dispatchAuthority }

func (p *Portal) Registry() *Registry { return p.registry }

// RegisterProver makes a prover dispatchable from fulfillments and bars it
// as a route call target.
func (p *Portal) RegisterProver(d prover.Dispatcher) {
	p.provers[d.ProgramID()] = d
	p.registry.RegisterProver(d.ProgramID())
}

// InitializeParams is the once-at-deployment configuration.
type InitializeParams struct {
	Authority        svm.Pubkey
	AuthorizedProver svm.Pubkey
	MailboxProgram   svm.Pubkey
	LocalDomain      uint64
	DefaultGasLimit  uint64
	Payer            svm.Pubkey
}

const defaultGasLimit = 200_000

// Initialize writes the portal config record. Runs once.
func (p *Portal) Initialize(params InitializeParams) error {
	if params.DefaultGasLimit == 0 {
		params.DefaultGasLimit = defaultGasLimit
	}

	cfg := state.PortalConfig{
		Authority:        [32]uint8(params.Authority),
		AuthorizedProver: [32]uint8(params.AuthorizedProver),
		MailboxProgram:   [32]uint8(params.MailboxProgram),
		LocalDomain:      params.LocalDomain,
		DefaultGasLimit:  params.DefaultGasLimit,
	}
	raw, err := cfg.Marshal()
	if err != nil {
		return err
	}

	return p.store.Transact(func(tx state.Txn) error {
		if err := tx.CreateAccount(p.configAddress, raw, params.Payer); err != nil {
			if err == state.ErrAccountExists {
				return ErrAlreadyInitialized
			}
			return err
		}
		return nil
	})
}

// SetAuthorizedProver is the one config field with an update path, gated by
// the authority recorded at initialization.
func (p *Portal) SetAuthorizedProver(caller, newProver svm.Pubkey) error {
	return p.store.Transact(func(tx state.Txn) error {
		cfg, err := p.config(tx)
		if err != nil {
			return err
		}
		if svm.Pubkey(cfg.Authority) != caller {
			return ErrInvalidAuthority
		}

		cfg.AuthorizedProver = [32]uint8(newProver)
		raw, err := cfg.Marshal()
		if err != nil {
			return err
		}
		return tx.SetAccountData(p.configAddress, raw)
	})
}

func (p *Portal) config(view state.View) (state.PortalConfig, error) {
	raw, err := view.AccountData(p.configAddress)
	if err != nil {
		if err == state.ErrAccountNotFound {
			return state.PortalConfig{}, ErrNotInitialized
		}
		return state.PortalConfig{}, err
	}
	return state.UnmarshalPortalConfig(raw)
}

// Config returns the live configuration record.
func (p *Portal) Config() (state.PortalConfig, error) {
	return p.config(p.store)
}

func (p *Portal) now() uint64 {
	return uint64(p.clock().Unix())
}

// IntentStatus reports the source-side lifecycle status of an intent.
func (p *Portal) IntentStatus(intentHash protocol.Bytes32) (state.IntentStatus, error) {
	record, _, err := p.intentRecord(p.store, intentHash)
	if err != nil {
		return 0, err
	}
	return record.Status, nil
}

func (p *Portal) intentRecord(view state.View, intentHash protocol.Bytes32) (state.IntentRecord, svm.Pubkey, error) {
	addr, err := svm.IntentRecordAddress(p.programID, intentHash)
	if err != nil {
		return state.IntentRecord{}, svm.Pubkey{}, err
	}

	raw, err := view.AccountData(addr)
	if err != nil {
		if err == state.ErrAccountNotFound {
			return state.IntentRecord{}, addr, ErrIntentNotPublished
		}
		return state.IntentRecord{}, addr, err
	}

	record, err := state.UnmarshalIntentRecord(raw)
	return record, addr, err
}

func (p *Portal) writeIntentRecord(tx state.Txn, addr svm.Pubkey, record state.IntentRecord) error {
	raw, err := record.Marshal()
	if err != nil {
		return err
	}
	return tx.SetAccountData(addr, raw)
}

// vaultNativeAddress is the account holding an intent's native reward: the
// reward vault derived with the zero token id.
func (p *Portal) vaultNativeAddress(intentHash protocol.Bytes32) (svm.Pubkey, error) {
	return svm.RewardVaultAddress(p.programID, intentHash, svm.Pubkey{})
}

// rewardVaultTokenAccount is the vault's associated account for one mint.
func (p *Portal) rewardVaultTokenAccount(intentHash protocol.Bytes32, mint svm.Pubkey) (vault svm.Pubkey, ata svm.Pubkey, err error) {
	vault, err = svm.RewardVaultAddress(p.programID, intentHash, mint)
	if err != nil {
		return svm.Pubkey{}, svm.Pubkey{}, err
	}
	ata, err = svm.AssociatedTokenAddress(vault, mint)
	if err != nil {
		return svm.Pubkey{}, svm.Pubkey{}, err
	}
	return vault, ata, nil
}

func pubkeyOf(id protocol.Bytes32) svm.Pubkey { return svm.Pubkey(id) }

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
