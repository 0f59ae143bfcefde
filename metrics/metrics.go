// Package metrics exposes operation counters for the protocol engines. A
// nil *Set is valid and counts nothing, so engines stay metrics-optional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Set struct {
	intentsPublished   prometheus.Counter
	intentsFunded      prometheus.Counter
	intentsFulfilled   prometheus.Counter
	intentsWithdrawn   prometheus.Counter
	intentsRefunded    prometheus.Counter
	proofsDispatched   prometheus.Counter
	proofsRecorded     prometheus.Counter
	messagesDispatched prometheus.Counter
}

func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		intentsPublished:   counter("portal_intents_published_total", "Intents published."),
		intentsFunded:      counter("portal_intents_funded_total", "Intent funding operations applied."),
		intentsFulfilled:   counter("portal_intents_fulfilled_total", "Intents fulfilled on this chain."),
		intentsWithdrawn:   counter("portal_intents_withdrawn_total", "Rewards withdrawn to claimants."),
		intentsRefunded:    counter("portal_intents_refunded_total", "Rewards refunded to creators."),
		proofsDispatched:   counter("prover_proofs_dispatched_total", "Outbound proof messages dispatched."),
		proofsRecorded:     counter("prover_proofs_recorded_total", "Inbound proof records created."),
		messagesDispatched: counter("mailbox_messages_dispatched_total", "Messages handed to the mailbox."),
	}

	if reg != nil {
		reg.MustRegister(
			s.intentsPublished, s.intentsFunded, s.intentsFulfilled,
			s.intentsWithdrawn, s.intentsRefunded,
			s.proofsDispatched, s.proofsRecorded, s.messagesDispatched,
		)
	}
	return s
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
}

func (s *Set) IntentPublished() {
	if s != nil {
		s.intentsPublished.Inc()
	}
}

func (s *Set) IntentFunded() {
	if s != nil {
		s.intentsFunded.Inc()
	}
}

func (s *Set) IntentFulfilled() {
	if s != nil {
		s.intentsFulfilled.Inc()
	}
}

func (s *Set) IntentWithdrawn() {
	if s != nil {
		s.intentsWithdrawn.Inc()
	}
}

func (s *Set) IntentRefunded() {
	if s != nil {
		s.intentsRefunded.Inc()
	}
}

func (s *Set) ProofDispatched() {
	if s != nil {
		s.proofsDispatched.Inc()
	}
}

func (s *Set) ProofRecorded() {
	if s != nil {
		s.proofsRecorded.Inc()
	}
}

func (s *Set) MessageDispatched() {
	if s != nil {
		s.messagesDispatched.Inc()
	}
}
