package svm

import "testing"

func TestDerivedAddresses_DistinctPerSeed(t *testing.T) {
	program := MustParsePubkey("11111111111111111111111111111112")
	var hash [32]byte
	for i := range hash {
		hash[i] = byte(i)
	}

	intent, err := IntentRecordAddress(program, hash)
	if err != nil {
		t.Fatalf("IntentRecordAddress: %v", err)
	}
	marker, err := FulfillMarkerAddress(program, hash)
	if err != nil {
		t.Fatalf("FulfillMarkerAddress: %v", err)
	}
	withdrawn, err := WithdrawnMarkerAddress(program, hash)
	if err != nil {
		t.Fatalf("WithdrawnMarkerAddress: %v", err)
	}
	proof, err := ProofAddress(program, hash)
	if err != nil {
		t.Fatalf("ProofAddress: %v", err)
	}

	addrs := map[Pubkey]string{
		intent:    "intent",
		marker:    "marker",
		withdrawn: "withdrawn",
		proof:     "proof",
	}
	if len(addrs) != 4 {
		t.Fatalf("seed collision across record kinds: %v", addrs)
	}
}

func TestExecutionAuthority_SaltOnly(t *testing.T) {
	program := MustParsePubkey("11111111111111111111111111111112")

	var saltA, saltB [32]byte
	saltA[0] = 1
	saltB[0] = 2

	a, err := ExecutionAuthority(program, saltA)
	if err != nil {
		t.Fatalf("ExecutionAuthority: %v", err)
	}
	b, err := ExecutionAuthority(program, saltB)
	if err != nil {
		t.Fatalf("ExecutionAuthority: %v", err)
	}
	if a == b {
		t.Fatalf("authorities for distinct salts must not collide")
	}

	again, err := ExecutionAuthority(program, saltA)
	if err != nil {
		t.Fatalf("ExecutionAuthority: %v", err)
	}
	if a != again {
		t.Fatalf("authority derivation not deterministic")
	}
}

func TestAssociatedTokenAddress_Deterministic(t *testing.T) {
	owner := MustParsePubkey("11111111111111111111111111111112")
	mint := MustParsePubkey("11111111111111111111111111111113")

	a, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	b, err := AssociatedTokenAddress(owner, mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	if a != b {
		t.Fatalf("ATA derivation not deterministic")
	}

	other, err := AssociatedTokenAddress(mint, owner)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	if a == other {
		t.Fatalf("ATA must depend on owner/mint order")
	}
}
