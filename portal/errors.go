package portal

import "errors"

var (
	// Validation: fail fast, no state change.
	ErrInvalidHash                  = errors.New("recomputed intent hash does not match")
	ErrWrongChain                   = errors.New("route is not for this chain")
	ErrInvalidInbox                 = errors.New("route inbox is not this portal")
	ErrZeroClaimant                 = errors.New("claimant must not be zero")
	ErrArrayLengthMismatch          = errors.New("batch arrays differ in length")
	ErrCallValueNotSupported        = errors.New("calls cannot carry native value on this chain")
	ErrInvalidTokenTransferAccounts = errors.New("token transfer accounts do not match the token list")
	ErrInvalidMint                  = errors.New("mint is not part of the token list")
	ErrInvalidAta                   = errors.New("token account is not the expected associated account")
	ErrInvalidClaimantToken         = errors.New("token account is not owned by the claimant")
	ErrInvalidCreatorToken          = errors.New("token account is not owned by the creator")

	// Duplicate.
	ErrAlreadyFulfilled        = errors.New("intent already fulfilled")
	ErrAlreadyFunded           = errors.New("intent already fully funded")
	ErrAlreadyExists           = errors.New("intent record already reached a terminal state")
	ErrRewardsAlreadyWithdrawn = errors.New("rewards already withdrawn")

	// Authorization.
	ErrUnauthorizedWithdrawal = errors.New("no valid proof authorises this withdrawal")
	ErrInvalidProver          = errors.New("prover is not registered with this portal")
	ErrInvalidAuthority       = errors.New("caller is not the portal authority")
	ErrInvalidCreator         = errors.New("caller is not the reward creator")
	ErrFundForNative          = errors.New("fund-for is not allowed once a native vault is live")

	// Resource.
	ErrInsufficientNativeReward   = errors.New("funder cannot cover the native reward")
	ErrInsufficientTokenAllowance = errors.New("funder cannot cover the token reward")
	ErrZeroRefundTokenBalance     = errors.New("vault holds none of this token")

	// Temporal.
	ErrDeadlinePassed   = errors.New("reward deadline has passed")
	ErrIntentNotExpired = errors.New("reward deadline has not passed")
	ErrIntentProven     = errors.New("a proof record exists for this intent")

	// Execution.
	ErrIntentCallFailed = errors.New("route call failed")
	ErrCallToProver     = errors.New("route calls may not target a prover")
	ErrCallToEOA        = errors.New("route calls with data require an executable target")

	// Lifecycle.
	ErrNotInitialized      = errors.New("portal not initialized")
	ErrAlreadyInitialized  = errors.New("portal already initialized")
	ErrIntentNotPublished  = errors.New("intent record does not exist")
	ErrTokenNotRecoverable = errors.New("token is part of the reward and cannot be recovered")
	ErrRecoverBlocked      = errors.New("recover would collapse live native funding")
)
