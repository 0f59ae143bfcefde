package portal

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

func TestFulfill_PreconditionOrder(t *testing.T) {
	f := newFixture(t)
	f.fundSolverUSDC(1_000_000)

	t.Run("wrong chain", func(t *testing.T) {
		intent := f.intent()
		intent.Route.DestinationDomain = 999
		args := f.fulfillArgs(intent)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrWrongChain)
	})

	t.Run("wrong inbox", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Inbox = id32(0xBD)
		args := f.fulfillArgs(intent)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrInvalidInbox)
	})

	t.Run("zero claimant", func(t *testing.T) {
		intent := f.intent()
		args := f.fulfillArgs(intent)
		args.Claimant = protocol.Bytes32{}
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrZeroClaimant)
	})

	t.Run("deadline passed", func(t *testing.T) {
		intent := f.intent()
		intent.Reward.Deadline = uint64(f.now.Add(-time.Hour).Unix())
		args := f.fulfillArgs(intent)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrDeadlinePassed)
	})

	t.Run("zero deadline means no deadline", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Salt = id32(0x42)
		intent.Reward.Deadline = 0
		args := f.fulfillArgs(intent)
		require.NoError(t, f.dst.portal.Fulfill(args))
	})
}

func TestFulfill_RejectsCallValueAndBadTargets(t *testing.T) {
	f := newFixture(t)
	f.fundSolverUSDC(3_000_000)

	t.Run("non-zero call value", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Calls[0].Value = uint256.NewInt(1)
		args := f.fulfillArgs(intent)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrCallValueNotSupported)
	})

	t.Run("call to prover", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Calls[0].Target = protocol.Bytes32(f.dst.hyper.ProgramID())
		args := f.fulfillArgs(intent)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrCallToProver)

		// The failed call phase unwound the marker and the transfers.
		_, fulfilled, err := f.dst.portal.Fulfilled(intent.Hash())
		require.NoError(t, err)
		require.False(t, fulfilled)

		solverATA, err := svm.AssociatedTokenAddress(f.solver, f.usdc)
		require.NoError(t, err)
		require.Equal(t, uint256.NewInt(3_000_000), f.dst.tokens.Balance(solverATA))
	})

	t.Run("call with data to code-less target", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Calls[0].Target = id32(0xE0)
		args := f.fulfillArgs(intent)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrCallToEOA)
	})

	t.Run("empty call to code-less target is a no-op", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Salt = id32(0x43)
		intent.Route.Calls = []protocol.Call{{Target: id32(0xE0), Value: new(uint256.Int)}}
		args := f.fulfillArgs(intent)
		require.NoError(t, f.dst.portal.Fulfill(args))
	})
}

func TestFulfill_TokenAccountChecks(t *testing.T) {
	f := newFixture(t)
	f.fundSolverUSDC(1_000_000)

	t.Run("missing accounts", func(t *testing.T) {
		intent := f.intent()
		args := f.fulfillArgs(intent)
		args.TokenAccounts = nil
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrInvalidTokenTransferAccounts)
	})

	t.Run("wrong mint", func(t *testing.T) {
		intent := f.intent()
		args := f.fulfillArgs(intent)
		args.TokenAccounts[0].Mint = pk(0x01)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrInvalidMint)
	})

	t.Run("unregistered prover", func(t *testing.T) {
		intent := f.intent()
		args := f.fulfillArgs(intent)
		args.Prover = pk(0x0F)
		require.ErrorIs(t, f.dst.portal.Fulfill(args), ErrInvalidProver)
	})

	t.Run("insufficient solver balance", func(t *testing.T) {
		intent := f.intent()
		intent.Route.Tokens[0].Amount = uint256.NewInt(2_000_000)
		args := f.fulfillArgs(intent)
		err := f.dst.portal.Fulfill(args)
		require.ErrorIs(t, err, token.ErrInsufficientFunds)
	})
}

func TestFulfill_ZeroAmountTokenStillNeedsAccounts(t *testing.T) {
	f := newFixture(t)

	intent := f.intent()
	intent.Route.Salt = id32(0x44)
	intent.Route.Tokens[0].Amount = new(uint256.Int)
	intent.Route.Calls = nil

	args := f.fulfillArgs(intent)
	require.NoError(t, f.dst.portal.Fulfill(args))

	// The transfer step was skipped; the authority account exists empty.
	authority, err := svm.ExecutionAuthority(f.dst.portal.ProgramID(), intent.Route.Salt)
	require.NoError(t, err)
	authorityATA, err := svm.AssociatedTokenAddress(authority, f.usdc)
	require.NoError(t, err)
	require.True(t, f.dst.tokens.Balance(authorityATA).IsZero())
}
