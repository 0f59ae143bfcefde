// Package mailbox abstracts the cross-chain messaging bus. The protocol
// only ever quotes a dispatch fee, hands a message over, and receives
// inbound messages through a handler registered for a (domain, recipient)
// pair; everything else about transport is the bus's business.
package mailbox

import (
	"github.com/holiman/uint256"

	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/svm"
)

type MessageID string

type Dispatch struct {
	// Sender is the dispatch authority presenting the message; it becomes
	// the wire-level sender the receiving side validates.
	Sender      svm.Pubkey
	Destination uint32
	Recipient   protocol.Bytes32
	Body        []byte
	// Hook selects the post-dispatch hook; zero selects the default.
	Hook protocol.Bytes32
}

type Message struct {
	ID          MessageID
	Origin      uint32
	Destination uint32
	Sender      protocol.Bytes32
	Recipient   protocol.Bytes32
	Body        []byte
	Hook        protocol.Bytes32
}

// Handler receives inbound messages. The caller argument carries the
// mailbox's process authority so receivers can verify the direct caller is
// the mailbox and nothing else.
type Handler interface {
	Handle(caller svm.Pubkey, origin uint32, sender protocol.Bytes32, body []byte) error
}

type Mailbox interface {
	// Quote prices a dispatch to the destination domain.
	Quote(destination uint32, body []byte) (*uint256.Int, error)
	Dispatch(d Dispatch) (MessageID, error)
	// ProcessAuthority identifies this mailbox on inbound delivery.
	ProcessAuthority() svm.Pubkey
	// FeeAccount is where dispatch fees are paid.
	FeeAccount() svm.Pubkey
}
