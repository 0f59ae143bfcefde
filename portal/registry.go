package portal

import (
	"fmt"
	"sync"

	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// CallEnv is what an executable call target sees during the call phase of a
// fulfillment: the transaction's state, the token ledger, and the execution
// authority signing the call.
type CallEnv struct {
	Store     state.Txn
	Tokens    *token.Ledger
	Authority svm.Pubkey
	Call      protocol.Call
}

// Program is an executable call target on this chain.
type Program interface {
	Execute(env CallEnv) error
}

// Registry maps target addresses to executable programs and records which
// addresses publicly identify as provers; those are rejected as call
// targets to prevent self-proving forgery.
type Registry struct {
	mu       sync.RWMutex
	programs map[svm.Pubkey]Program
	provers  map[svm.Pubkey]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		programs: make(map[svm.Pubkey]Program),
		provers:  make(map[svm.Pubkey]struct{}),
	}
}

func (r *Registry) Register(id svm.Pubkey, p Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = p
}

func (r *Registry) RegisterProver(id svm.Pubkey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provers[id] = struct{}{}
}

func (r *Registry) Program(id svm.Pubkey) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

func (r *Registry) IsProver(id svm.Pubkey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.provers[id]
	return ok
}

// TokenProgram makes a mint's token operations callable as a route call
// target: the call data encodes a transfer funded from the execution
// authority's associated account.
type TokenProgram struct {
	Mint svm.Pubkey
}

func (p TokenProgram) Execute(env CallEnv) error {
	to, amount, err := token.DecodeTransfer(env.Call.Data)
	if err != nil {
		return err
	}

	from, err := env.Tokens.EnsureAccount(env.Authority, p.Mint)
	if err != nil {
		return err
	}
	dst, err := env.Tokens.EnsureAccount(to, p.Mint)
	if err != nil {
		return err
	}

	if err := env.Tokens.Transfer(env.Authority, from, dst, amount); err != nil {
		return fmt.Errorf("token transfer: %w", err)
	}
	return nil
}
