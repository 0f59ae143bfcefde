// Package events defines the protocol's emitted events and the sinks they
// flow into. Event existence is observable behaviour: tests assert on it and
// off-chain indexers consume it.
package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/svm"
)

type Event interface {
	EventName() string
}

type Emitter interface {
	Emit(ev Event)
}

type IntentPublished struct {
	IntentHash protocol.Bytes32
	Route      protocol.Route
	Reward     protocol.Reward
}

func (IntentPublished) EventName() string { return "intent_published" }

type IntentFunded struct {
	IntentHash protocol.Bytes32
	Funder     svm.Pubkey
	Complete   bool
}

func (IntentFunded) EventName() string { return "intent_funded" }

type IntentFulfilled struct {
	IntentHash   protocol.Bytes32
	SourceDomain uint64
	Prover       protocol.Bytes32
	Claimant     protocol.Bytes32
}

func (IntentFulfilled) EventName() string { return "intent_fulfilled" }

type IntentProven struct {
	IntentHash protocol.Bytes32
	Claimant   protocol.Bytes32
}

func (IntentProven) EventName() string { return "intent_proven" }

type AlreadyProven struct {
	IntentHash protocol.Bytes32
}

func (AlreadyProven) EventName() string { return "already_proven" }

type IntentWithdrawn struct {
	IntentHash protocol.Bytes32
	Claimant   svm.Pubkey
}

func (IntentWithdrawn) EventName() string { return "intent_withdrawn" }

type RewardTransferFailed struct {
	IntentHash protocol.Bytes32
	Token      svm.Pubkey
	Reason     string
}

func (RewardTransferFailed) EventName() string { return "reward_transfer_failed" }

type IntentRefunded struct {
	IntentHash protocol.Bytes32
	Creator    protocol.Bytes32
}

func (IntentRefunded) EventName() string { return "intent_refunded" }

type TokenRecovered struct {
	IntentHash protocol.Bytes32
	Token      svm.Pubkey
}

func (TokenRecovered) EventName() string { return "token_recovered" }

type ProofClosed struct {
	IntentHash protocol.Bytes32
}

func (ProofClosed) EventName() string { return "proof_closed" }

type ProofDispatched struct {
	Destination uint32
	MessageID   string
	Count       int
}

func (ProofDispatched) EventName() string { return "proof_dispatched" }

// LogEmitter writes every event as a structured log line.
type LogEmitter struct {
	log *zap.Logger
}

func NewLogEmitter(log *zap.Logger) *LogEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogEmitter{log: log}
}

func (e *LogEmitter) Emit(ev Event) {
	e.log.Info("event", zap.String("name", ev.EventName()), zap.Any("event", ev))
}

// Recorder collects events for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded events with the given name, in order.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, ev := range r.events {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}
