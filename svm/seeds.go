package svm

// Seeds for every record and signing identity the protocol derives. All
// persistent records live at addresses derived from these stable seeds, so
// the source contract and any off-chain tool can locate them without state
// lookups.
const (
	IntentSeed          = "intent"
	RewardSeed          = "reward"
	FulfillMarkerSeed   = "intent_fulfillment_marker"
	WithdrawnMarkerSeed = "intent_withdrawn_marker"
	ProofSeed           = "proof"
	ConfigSeed          = "portal_config"
	ProverConfigSeed    = "prover_config"
	ProverPayerSeed     = "pda_payer"

	ExecutionAuthoritySeed = "execution_authority"
	DispatchAuthoritySeed  = "dispatch_authority"
	ProofCloserSeed        = "proof_closer"
)

// IntentRecordAddress locates the source-side intent record.
func IntentRecordAddress(programID Pubkey, intentHash [32]byte) (Pubkey, error) {
	return derive(programID, []byte(IntentSeed), intentHash[:])
}

// RewardVaultAddress locates the per-(intent, token) reward vault.
func RewardVaultAddress(programID Pubkey, intentHash [32]byte, token Pubkey) (Pubkey, error) {
	return derive(programID, []byte(RewardSeed), intentHash[:], token[:])
}

// FulfillMarkerAddress locates the destination-side fulfillment marker.
func FulfillMarkerAddress(programID Pubkey, intentHash [32]byte) (Pubkey, error) {
	return derive(programID, []byte(FulfillMarkerSeed), intentHash[:])
}

// WithdrawnMarkerAddress locates the source-side withdrawn marker.
func WithdrawnMarkerAddress(programID Pubkey, intentHash [32]byte) (Pubkey, error) {
	return derive(programID, []byte(WithdrawnMarkerSeed), intentHash[:])
}

// ProofAddress locates a proof record under the prover that owns it.
func ProofAddress(proverID Pubkey, intentHash [32]byte) (Pubkey, error) {
	return derive(proverID, []byte(ProofSeed), intentHash[:])
}

func ConfigAddress(programID Pubkey) (Pubkey, error) {
	return derive(programID, []byte(ConfigSeed))
}

func ProverConfigAddress(proverID Pubkey) (Pubkey, error) {
	return derive(proverID, []byte(ProverConfigSeed))
}

// ProverPayerAddress locates the prover-owned account that pays rent for
// inbound proof records.
func ProverPayerAddress(proverID Pubkey) (Pubkey, error) {
	return derive(proverID, []byte(ProverPayerSeed))
}

// ExecutionAuthority derives the signing identity for a route's call phase.
// The derivation is salt-only so unrelated intents never contend on the same
// authority.
func ExecutionAuthority(programID Pubkey, salt [32]byte) (Pubkey, error) {
	return derive(programID, []byte(ExecutionAuthoritySeed), salt[:])
}

// DispatchAuthority derives the identity allowed to submit outbound proof
// messages on behalf of a program.
func DispatchAuthority(programID Pubkey) (Pubkey, error) {
	return derive(programID, []byte(DispatchAuthoritySeed))
}

// ProofCloserAuthority derives the identity allowed to close proof records
// on behalf of the portal once a reward has been withdrawn.
func ProofCloserAuthority(programID Pubkey) (Pubkey, error) {
	return derive(programID, []byte(ProofCloserSeed))
}

func derive(programID Pubkey, seeds ...[]byte) (Pubkey, error) {
	pda, _, err := FindProgramAddress(seeds, programID)
	return pda, err
}
