package portal

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/mailbox"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/prover"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// The fixture stands up both chains of one protocol deployment: a source
// portal on domain 10 and a destination portal on domain 1399811149,
// connected by a local mailbox bus.
const (
	testSrcDomain = uint64(10)
	testDstDomain = uint64(1399811149)
)

type chain struct {
	portal  *Portal
	store   *state.MemoryStore
	tokens  *token.Ledger
	mailbox *mailbox.Local
	hyper   *prover.HyperProver
}

type fixture struct {
	t   *testing.T
	now time.Time

	bus      *mailbox.Bus
	src, dst *chain
	recorder *events.Recorder

	creator   svm.Pubkey
	solver    svm.Pubkey
	recipient svm.Pubkey
	usdc      svm.Pubkey
}

func pk(b byte) svm.Pubkey {
	var out svm.Pubkey
	out[0] = b
	return out
}

func id32(b byte) protocol.Bytes32 {
	var out protocol.Bytes32
	out[0] = b
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:         t,
		now:       time.Unix(1_000_000, 0),
		bus:       mailbox.NewBus(),
		recorder:  &events.Recorder{},
		creator:   pk(0xC1),
		solver:    pk(0x50),
		recipient: pk(0x09),
		usdc:      pk(0xDC),
	}

	f.src = f.newChain(pk(0xA1), pk(0xA3), uint32(testSrcDomain), uint32(testDstDomain))
	f.dst = f.newChain(pk(0xB1), pk(0xB3), uint32(testDstDomain), uint32(testSrcDomain))

	// Source-side prover accepts messages signed by the destination
	// prover's dispatch authority; destination-side outbound addresses the
	// source prover.
	f.wireProvers()

	for _, c := range []*chain{f.src, f.dst} {
		require.NoError(t, c.store.Transact(func(tx state.Txn) error {
			for _, addr := range []svm.Pubkey{f.creator, f.solver, c.hyper.PayerAccount()} {
				if err := tx.CreditNative(addr, uint256.NewInt(1_000_000_000_000)); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	require.NoError(t, f.dst.tokens.CreateMint(f.usdc, 6))
	f.dst.portal.Registry().Register(f.usdc, TokenProgram{Mint: f.usdc})

	return f
}

func (f *fixture) newChain(portalID, mailboxID svm.Pubkey, domain, peerDomain uint32) *chain {
	store := state.NewMemoryStore()
	tokens := token.NewLedger()

	mbox, err := mailbox.NewLocal(mailbox.LocalConfig{
		ProgramID:       mailboxID,
		Domain:          domain,
		DefaultGasLimit: 200_000,
		GasPrices:       map[uint32]uint64{peerDomain: 2, domain: 1},
	}, f.bus, nil, nil)
	require.NoError(f.t, err)

	p, err := New(portalID, store, tokens, NewRegistry(), func() time.Time { return f.now }, nil, f.recorder, nil)
	require.NoError(f.t, err)

	require.NoError(f.t, p.Initialize(InitializeParams{
		Authority:      pk(0xAD),
		MailboxProgram: mailboxID,
		LocalDomain:    uint64(domain),
		Payer:          f.creatorOrBoot(store),
	}))

	return &chain{portal: p, store: store, tokens: tokens, mailbox: mbox}
}

// creatorOrBoot funds a bootstrap payer for config rent before the fixture
// seeds the real balances.
func (f *fixture) creatorOrBoot(store *state.MemoryStore) svm.Pubkey {
	boot := pk(0xEE)
	require.NoError(f.t, store.Transact(func(tx state.Txn) error {
		return tx.CreditNative(boot, uint256.NewInt(1_000_000_000_000))
	}))
	return boot
}

func (f *fixture) wireProvers() {
	srcHyper, err := prover.NewHyperProver(prover.HyperProverConfig{
		ProgramID: pk(0xA2),
		PortalID:  f.src.portal.ProgramID(),
		SourceProvers: map[uint64]protocol.Bytes32{
			testDstDomain: protocol.Bytes32(pk(0xB2)),
		},
	}, f.src.store, f.src.mailbox, nil, f.recorder, nil)
	require.NoError(f.t, err)
	f.src.hyper = srcHyper

	dstHyper, err := prover.NewHyperProver(prover.HyperProverConfig{
		ProgramID: pk(0xB2),
		PortalID:  f.dst.portal.ProgramID(),
		SourceProvers: map[uint64]protocol.Bytes32{
			testSrcDomain: protocol.Bytes32(pk(0xA2)),
		},
	}, f.dst.store, f.dst.mailbox, nil, f.recorder, nil)
	require.NoError(f.t, err)
	f.dst.hyper = dstHyper

	boot := pk(0xEE)
	require.NoError(f.t, srcHyper.Init(boot, []protocol.Bytes32{protocol.Bytes32(dstHyper.DispatchAuthority())}))
	require.NoError(f.t, dstHyper.Init(boot, []protocol.Bytes32{protocol.Bytes32(srcHyper.DispatchAuthority())}))

	f.src.mailbox.Register(protocol.Bytes32(pk(0xA2)), srcHyper)
	f.dst.mailbox.Register(protocol.Bytes32(pk(0xB2)), dstHyper)

	f.src.portal.RegisterProver(srcHyper)
	f.dst.portal.RegisterProver(dstHyper)
}

// intent builds the S1-style intent: one route token, one call paying the
// recipient, a native reward on the source chain.
func (f *fixture) intent() protocol.Intent {
	var salt protocol.Bytes32
	copy(salt[:], "evm-svm-e2e")

	usdcID := protocol.Bytes32(f.usdc)
	return protocol.Intent{
		Route: protocol.Route{
			Salt:              salt,
			SourceDomain:      testSrcDomain,
			DestinationDomain: testDstDomain,
			Inbox:             f.dst.portal.InboxID(),
			Tokens: []protocol.TokenAmount{
				{Token: usdcID, Amount: uint256.NewInt(1_000_000)},
			},
			Calls: []protocol.Call{
				{
					Target: usdcID,
					Data:   token.EncodeTransfer(f.recipient, uint256.NewInt(1_000_000)),
					Value:  new(uint256.Int),
				},
			},
		},
		Reward: protocol.Reward{
			Creator:     protocol.Bytes32(f.creator),
			Prover:      protocol.Bytes32(f.src.hyper.ProgramID()),
			Deadline:    uint64(f.now.Unix()) + 3_600,
			NativeValue: uint256.NewInt(100_000),
		},
	}
}

func (f *fixture) fulfillArgs(intent protocol.Intent) FulfillArgs {
	args := FulfillArgs{
		IntentHash:  intent.Hash(),
		Route:       intent.Route,
		Reward:      intent.Reward,
		Claimant:    protocol.Bytes32(f.solver),
		Payer:       f.solver,
		Solver:      f.solver,
		Prover:      f.dst.hyper.ProgramID(),
		ProverFunds: uint256.NewInt(10_000_000_000),
	}

	authority, err := svm.ExecutionAuthority(f.dst.portal.ProgramID(), intent.Route.Salt)
	require.NoError(f.t, err)

	for _, want := range intent.Route.Tokens {
		mint := svm.Pubkey(want.Token)
		from, err := f.dst.tokens.EnsureAccount(f.solver, mint)
		require.NoError(f.t, err)
		to, err := svm.AssociatedTokenAddress(authority, mint)
		require.NoError(f.t, err)
		args.TokenAccounts = append(args.TokenAccounts, TokenTransferAccounts{
			Mint: mint,
			From: from,
			To:   to,
		})
	}
	return args
}

func (f *fixture) fundSolverUSDC(amount uint64) {
	require.NoError(f.t, f.dst.tokens.MintTo(f.solver, f.usdc, uint256.NewInt(amount)))
}

// publishAndFundNative drives the source side to a fully funded intent.
func (f *fixture) publishAndFundNative(intent protocol.Intent) protocol.Bytes32 {
	hash, err := f.src.portal.PublishAndFund(intent, FundRequest{
		Payer:  f.creator,
		Funder: f.creator,
	})
	require.NoError(f.t, err)

	status, err := f.src.portal.IntentStatus(hash)
	require.NoError(f.t, err)
	require.Equal(f.t, state.StatusFunded, status)
	return hash
}

func (f *fixture) withdrawArgs(intent protocol.Intent) WithdrawArgs {
	return WithdrawArgs{
		RouteHash: protocol.RouteHash(intent.Route),
		Reward:    intent.Reward,
		Payer:     f.creator,
	}
}
