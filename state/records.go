package state

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/near/borsh-go"
)

// Persistent record layouts. Every record is stored as an 8-byte
// discriminator followed by the borsh encoding of its body; the
// discriminator is the first 8 bytes of sha256("record:<Name>") so layouts
// stay versioned and mutually exclusive.

var (
	ErrInvalidDiscriminator = errors.New("record discriminator mismatch")
	ErrInvalidRecord        = errors.New("invalid record data")
)

type IntentStatus uint8

const (
	StatusInitial IntentStatus = iota
	StatusPartiallyFunded
	StatusFunded
	StatusClaimed
	StatusRefunded
)

func (s IntentStatus) Terminal() bool {
	return s == StatusClaimed || s == StatusRefunded
}

func (s IntentStatus) String() string {
	switch s {
	case StatusInitial:
		return "initial"
	case StatusPartiallyFunded:
		return "partially_funded"
	case StatusFunded:
		return "funded"
	case StatusClaimed:
		return "claimed"
	case StatusRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

type VaultMode uint8

const (
	ModeFund VaultMode = iota
	ModeClaim
	ModeRefund
	ModeRecoverToken
)

// IntentRecord is the source-side per-intent record. Vault balances live in
// the derived vault accounts; the record tracks status and the parameters of
// the operation currently materialising the vault.
type IntentRecord struct {
	Status         IntentStatus
	Mode           VaultMode
	PermitContract [32]uint8
	Target         [32]uint8
	AllowPartial   bool
	UsePermit      bool
}

// FulfillMarker is the destination-side per-intent record whose existence
// asserts the intent has been fulfilled on this chain.
type FulfillMarker struct {
	Claimant [32]uint8
}

// WithdrawnMarker survives proof cleanup so a second withdrawal attempt
// still fails after the proof record is gone.
type WithdrawnMarker struct{}

// ProofRecord asserts that the trusted prover attested the claimant
// fulfilled the intent.
type ProofRecord struct {
	Claimant [32]uint8
}

// PortalConfig is written once at initialization. AuthorizedProver is the
// only field with an update path, gated by Authority.
type PortalConfig struct {
	Authority        [32]uint8
	AuthorizedProver [32]uint8
	MailboxProgram   [32]uint8
	LocalDomain      uint64
	DefaultGasLimit  uint64
}

// ProverConfig holds the inbound sender whitelist, fixed at deployment.
type ProverConfig struct {
	Whitelist [][32]uint8
}

func (c ProverConfig) IsWhitelisted(sender [32]byte) bool {
	for _, entry := range c.Whitelist {
		if entry == sender {
			return true
		}
	}
	return false
}

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("record:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

var (
	intentRecordTag    = discriminator("IntentRecord")
	fulfillMarkerTag   = discriminator("FulfillMarker")
	withdrawnMarkerTag = discriminator("WithdrawnMarker")
	proofRecordTag     = discriminator("ProofRecord")
	portalConfigTag    = discriminator("PortalConfig")
	proverConfigTag    = discriminator("ProverConfig")
)

func marshalRecord(tag [8]byte, body interface{}) ([]byte, error) {
	raw, err := borsh.Serialize(body)
	if err != nil {
		return nil, fmt.Errorf("serialize record: %w", err)
	}
	return append(tag[:], raw...), nil
}

func unmarshalRecord(tag [8]byte, data []byte, body interface{}) error {
	if len(data) < 8 {
		return ErrInvalidRecord
	}
	if !bytes.Equal(data[:8], tag[:]) {
		return ErrInvalidDiscriminator
	}
	if err := borsh.Deserialize(body, data[8:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

func (r IntentRecord) Marshal() ([]byte, error) { return marshalRecord(intentRecordTag, r) }

func UnmarshalIntentRecord(data []byte) (IntentRecord, error) {
	var out IntentRecord
	err := unmarshalRecord(intentRecordTag, data, &out)
	return out, err
}

func (r FulfillMarker) Marshal() ([]byte, error) { return marshalRecord(fulfillMarkerTag, r) }

func UnmarshalFulfillMarker(data []byte) (FulfillMarker, error) {
	var out FulfillMarker
	err := unmarshalRecord(fulfillMarkerTag, data, &out)
	return out, err
}

func (r WithdrawnMarker) Marshal() ([]byte, error) { return marshalRecord(withdrawnMarkerTag, r) }

func UnmarshalWithdrawnMarker(data []byte) (WithdrawnMarker, error) {
	var out WithdrawnMarker
	err := unmarshalRecord(withdrawnMarkerTag, data, &out)
	return out, err
}

func (r ProofRecord) Marshal() ([]byte, error) { return marshalRecord(proofRecordTag, r) }

func UnmarshalProofRecord(data []byte) (ProofRecord, error) {
	var out ProofRecord
	err := unmarshalRecord(proofRecordTag, data, &out)
	return out, err
}

func (r PortalConfig) Marshal() ([]byte, error) { return marshalRecord(portalConfigTag, r) }

func UnmarshalPortalConfig(data []byte) (PortalConfig, error) {
	var out PortalConfig
	err := unmarshalRecord(portalConfigTag, data, &out)
	return out, err
}

func (r ProverConfig) Marshal() ([]byte, error) { return marshalRecord(proverConfigTag, r) }

func UnmarshalProverConfig(data []byte) (ProverConfig, error) {
	var out ProverConfig
	err := unmarshalRecord(proverConfigTag, data, &out)
	return out, err
}
