package prover

import "errors"

var (
	// Validation.
	ErrChainIDTooLarge = errors.New("source domain exceeds the 32-bit wire domain")
	ErrEmptyBatch      = errors.New("empty intent hash batch")

	// Authorization.
	ErrUnauthorizedProve         = errors.New("prove caller is not the portal dispatch authority")
	ErrUnauthorizedHandle        = errors.New("handle caller is not the mailbox")
	ErrInvalidOriginChainID      = errors.New("origin domain is zero")
	ErrUnauthorizedIncomingProof = errors.New("sender is not a whitelisted prover")
	ErrUnauthorizedClose         = errors.New("caller may not close this proof record")

	// Resource.
	ErrInsufficientFee = errors.New("supplied funds below the quoted dispatch fee")

	// Configuration.
	ErrAlreadyInitialized = errors.New("prover already initialized")
	ErrNotInitialized     = errors.New("prover not initialized")
	ErrWhitelistEmpty     = errors.New("whitelist must not be empty")
	ErrWhitelistTooLarge  = errors.New("whitelist exceeds the maximum size")
	ErrUnknownRecipient   = errors.New("no source prover configured for domain")

	// Temporal.
	ErrIntentNotClaimed = errors.New("reward has not been withdrawn")

	// Local proving.
	ErrWrongSourceDomain = errors.New("local prover only serves same-chain intents")
)
