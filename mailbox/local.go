package mailbox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/openintents/portal/metrics"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/svm"
)

var (
	ErrNoRoute        = errors.New("no mailbox attached for destination domain")
	ErrNoHandler      = errors.New("no handler registered for recipient")
	ErrUnknownGasCost = errors.New("no gas price configured for destination domain")
)

const (
	processAuthoritySeed = "process_authority"
	feeCollectorSeed     = "fee_collector"
	defaultHookSeed      = "default_hook"
)

// Bus connects Local mailboxes across domains. Dispatched messages queue on
// the bus; DeliverAll drains the queue into the destination mailboxes'
// registered handlers. Cross-chain round trips are never awaited inside an
// operation; they are realised by later deliveries.
type Bus struct {
	mu        sync.Mutex
	mailboxes map[uint32]*Local
	queue     []Message
}

func NewBus() *Bus {
	return &Bus{mailboxes: make(map[uint32]*Local)}
}

func (b *Bus) attach(m *Local) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mailboxes[m.domain] = m
}

func (b *Bus) enqueue(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, msg)
}

// Pending returns the queued, undelivered messages.
func (b *Bus) Pending() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.queue...)
}

// DeliverAll processes every queued message in dispatch order. Delivery
// failures stop the drain and leave the failed message at the head of the
// queue.
func (b *Bus) DeliverAll() error {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return nil
		}
		msg := b.queue[0]
		target := b.mailboxes[msg.Destination]
		b.mu.Unlock()

		if target == nil {
			return fmt.Errorf("%w: %d", ErrNoRoute, msg.Destination)
		}
		if err := target.deliver(msg); err != nil {
			return err
		}

		b.mu.Lock()
		b.queue = b.queue[1:]
		b.mu.Unlock()
	}
}

// LocalConfig configures one domain's mailbox deployment.
type LocalConfig struct {
	ProgramID       svm.Pubkey
	Domain          uint32
	DefaultGasLimit uint64
	// GasPrices maps destination domains to their unit gas price. A
	// destination without an entry cannot be quoted.
	GasPrices map[uint32]uint64
}

// Local is the in-process mailbox deployment of a single domain.
type Local struct {
	programID        svm.Pubkey
	domain           uint32
	defaultGasLimit  uint64
	processAuthority svm.Pubkey
	feeAccount       svm.Pubkey
	defaultHook      protocol.Bytes32

	mu        sync.RWMutex
	gasPrices map[uint32]uint64
	handlers  map[protocol.Bytes32]Handler

	bus     *Bus
	log     *zap.Logger
	metrics *metrics.Set
}

func NewLocal(cfg LocalConfig, bus *Bus, log *zap.Logger, set *metrics.Set) (*Local, error) {
	if log == nil {
		log = zap.NewNop()
	}

	processAuthority, _, err := svm.FindProgramAddress(
		[][]byte{[]byte(processAuthoritySeed)}, cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive process authority: %w", err)
	}
	feeAccount, _, err := svm.FindProgramAddress(
		[][]byte{[]byte(feeCollectorSeed)}, cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive fee account: %w", err)
	}
	defaultHook, _, err := svm.FindProgramAddress(
		[][]byte{[]byte(defaultHookSeed)}, cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("derive default hook: %w", err)
	}

	gasPrices := make(map[uint32]uint64, len(cfg.GasPrices))
	for domain, price := range cfg.GasPrices {
		gasPrices[domain] = price
	}

	m := &Local{
		programID:        cfg.ProgramID,
		domain:           cfg.Domain,
		defaultGasLimit:  cfg.DefaultGasLimit,
		processAuthority: processAuthority,
		feeAccount:       feeAccount,
		defaultHook:      protocol.Bytes32(defaultHook),
		gasPrices:        gasPrices,
		handlers:         make(map[protocol.Bytes32]Handler),
		bus:              bus,
		log:              log,
		metrics:          set,
	}
	if bus != nil {
		bus.attach(m)
	}
	return m, nil
}

func (m *Local) ProgramID() svm.Pubkey        { return m.programID }
func (m *Local) Domain() uint32               { return m.domain }
func (m *Local) ProcessAuthority() svm.Pubkey { return m.processAuthority }
func (m *Local) FeeAccount() svm.Pubkey       { return m.feeAccount }
func (m *Local) DefaultHook() protocol.Bytes32 {
	return m.defaultHook
}

// Register binds the handler receiving messages addressed to recipient on
// this domain.
func (m *Local) Register(recipient protocol.Bytes32, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[recipient] = h
}

func (m *Local) Quote(destination uint32, body []byte) (*uint256.Int, error) {
	m.mu.RLock()
	price, ok := m.gasPrices[destination]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGasCost, destination)
	}
	return dispatchFee(m.defaultGasLimit, len(body), price)
}

func (m *Local) Dispatch(d Dispatch) (MessageID, error) {
	hook := d.Hook
	if hook.IsZero() {
		hook = m.defaultHook
	}

	msg := Message{
		ID:          MessageID(uuid.NewString()),
		Origin:      m.domain,
		Destination: d.Destination,
		Sender:      protocol.Bytes32(d.Sender),
		Recipient:   d.Recipient,
		Body:        append([]byte(nil), d.Body...),
		Hook:        hook,
	}

	if m.bus == nil {
		return "", ErrNoRoute
	}
	m.bus.enqueue(msg)
	m.metrics.MessageDispatched()
	m.log.Debug("message dispatched",
		zap.String("id", string(msg.ID)),
		zap.Uint32("destination", d.Destination),
		zap.Int("body_len", len(d.Body)),
	)
	return msg.ID, nil
}

func (m *Local) deliver(msg Message) error {
	m.mu.RLock()
	h, ok := m.handlers[msg.Recipient]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, msg.Recipient.Hex())
	}
	return h.Handle(m.processAuthority, msg.Origin, msg.Sender, msg.Body)
}
