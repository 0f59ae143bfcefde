package protocol

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAddressCodec_EVMRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")

	id := FromEVMAddress(addr)
	for _, b := range id[:12] {
		if b != 0 {
			t.Fatalf("expected zero prefix, got %s", id.Hex())
		}
	}

	back, err := id.EVMAddress()
	if err != nil {
		t.Fatalf("EVMAddress: %v", err)
	}
	if back != addr {
		t.Fatalf("round trip: got %s want %s", back, addr)
	}
}

func TestAddressCodec_RejectsWideIdentifier(t *testing.T) {
	id := repeatByte32(0x11)
	if _, err := id.EVMAddress(); err != ErrNotAnEVMAddress {
		t.Fatalf("want ErrNotAnEVMAddress, got %v", err)
	}
}

func TestAddressCodec_Base58RoundTrip(t *testing.T) {
	id := repeatByte32(0x2A)

	parsed, err := ParseBytes32Base58(id.Base58())
	if err != nil {
		t.Fatalf("ParseBytes32Base58: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip: got %s want %s", parsed.Hex(), id.Hex())
	}

	if _, err := ParseBytes32Base58("tooshort"); err == nil {
		t.Fatalf("expected error for short input")
	}
}
