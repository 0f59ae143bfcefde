package portal

import (
	"go.uber.org/zap"

	"github.com/openintents/portal/events"
	"github.com/openintents/portal/protocol"
	"github.com/openintents/portal/state"
	"github.com/openintents/portal/svm"
	"github.com/openintents/portal/token"
)

// Publish creates the source-side intent record in its Initial state and
// returns the intent hash. Publishing the same intent again before a
// terminal transition is a no-op returning the same hash; once the intent
// is Claimed or Refunded the hash is burned and publishing fails.
func (p *Portal) Publish(intent protocol.Intent, payer svm.Pubkey) (protocol.Bytes32, error) {
	intentHash := intent.Hash()

	err := p.store.Transact(func(tx state.Txn) error {
		return p.publish(tx, intent, intentHash, payer)
	})
	if err != nil {
		return protocol.Bytes32{}, err
	}
	return intentHash, nil
}

func (p *Portal) publish(tx state.Txn, intent protocol.Intent, intentHash protocol.Bytes32, payer svm.Pubkey) error {
	record, addr, err := p.intentRecord(tx, intentHash)
	switch err {
	case nil:
		if record.Status.Terminal() {
			return ErrAlreadyExists
		}
		return nil
	case ErrIntentNotPublished:
	default:
		return err
	}

	raw, err := state.IntentRecord{Status: state.StatusInitial, Mode: state.ModeFund}.Marshal()
	if err != nil {
		return err
	}
	if err := tx.CreateAccount(addr, raw, payer); err != nil {
		return err
	}

	p.metrics.IntentPublished()
	p.events.Emit(events.IntentPublished{
		IntentHash: intentHash,
		Route:      intent.Route,
		Reward:     intent.Reward,
	})
	p.log.Info("intent published", zap.String("intent_hash", intentHash.Hex()))
	return nil
}

// PublishAndFund publishes and funds in one transaction.
func (p *Portal) PublishAndFund(intent protocol.Intent, req FundRequest) (protocol.Bytes32, error) {
	intentHash := intent.Hash()
	routeHash := protocol.RouteHash(intent.Route)

	err := p.store.Transact(func(tx state.Txn) error {
		return p.tokens.Transact(func(ld *token.Ledger) error {
			if err := p.publish(tx, intent, intentHash, req.Payer); err != nil {
				return err
			}
			return p.fund(tx, ld, routeHash, intent.Reward, req)
		})
	})
	if err != nil {
		return protocol.Bytes32{}, err
	}
	return intentHash, nil
}
