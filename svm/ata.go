package svm

var (
	SystemProgramID          = MustParsePubkey("11111111111111111111111111111111")
	TokenProgramID           = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID       = MustParsePubkey("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID = MustParsePubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// AssociatedTokenAddress derives the canonical token account of an owner for
// a mint under the standard token program.
func AssociatedTokenAddress(owner, mint Pubkey) (Pubkey, error) {
	pda, _, err := FindProgramAddress(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		AssociatedTokenProgramID,
	)
	return pda, err
}
