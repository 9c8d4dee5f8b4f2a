// Package projection folds ordered client events into derived reports.
package projection

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

type account struct {
	available decimal.Decimal
	held      decimal.Decimal
	disputed  map[models.TxID]struct{}
	locked    bool
}

type movementKey struct {
	client models.ClientID
	tx     models.TxID
}

// AccountProjector keeps one account per client. It remembers every movement
// it has seen, so it can be fed raw events directly as well as events that an
// event log has already enriched.
type AccountProjector struct {
	accounts  map[models.ClientID]*account
	movements map[movementKey]decimal.Decimal
	owners    map[models.TxID]models.ClientID
}

func NewAccountProjector() *AccountProjector {
	return &AccountProjector{
		accounts:  make(map[models.ClientID]*account),
		movements: make(map[movementKey]decimal.Decimal),
		owners:    make(map[models.TxID]models.ClientID),
	}
}

// Project applies one event to the client's account. A returned error means
// the event was rejected and the account is unchanged, apart from being
// created if this was its first reference.
func (p *AccountProjector) Project(event models.Event) error {
	acc := p.account(event.Client)

	// Movements are remembered even when rejected below, matching the event
	// log index which records every stored movement.
	if event.Kind.IsMovement() {
		p.movements[movementKey{client: event.Client, tx: event.Tx}] = event.AmountOrZero()
		p.owners[event.Tx] = event.Client
	}

	if acc.locked {
		return fmt.Errorf("client %d: %w", event.Client, errors.ErrAccountLocked)
	}

	amount := event.AmountOrZero()
	if event.Kind.IsDisputeClass() {
		original, err := p.original(event)
		if err != nil {
			return err
		}
		amount = original
	}

	switch event.Kind {
	case models.KindDeposit:
		acc.available = acc.available.Add(amount)

	case models.KindWithdrawal:
		if acc.available.LessThan(amount) {
			return fmt.Errorf("withdrawal of %s by client %d: %w", amount, event.Client, errors.ErrInsufficientFunds)
		}
		acc.available = acc.available.Sub(amount)

	case models.KindDispute:
		if _, ok := acc.disputed[event.Tx]; ok {
			return fmt.Errorf("tx %d: %w", event.Tx, errors.ErrAlreadyDisputed)
		}
		acc.disputed[event.Tx] = struct{}{}
		acc.available = acc.available.Sub(amount)
		acc.held = acc.held.Add(amount)

	case models.KindResolve:
		if _, ok := acc.disputed[event.Tx]; !ok {
			return fmt.Errorf("resolve of tx %d: %w", event.Tx, errors.ErrNotDisputed)
		}
		delete(acc.disputed, event.Tx)
		acc.available = acc.available.Add(amount)
		acc.held = acc.held.Sub(amount)

	case models.KindChargeback:
		if _, ok := acc.disputed[event.Tx]; !ok {
			return fmt.Errorf("chargeback of tx %d: %w", event.Tx, errors.ErrNotDisputed)
		}
		delete(acc.disputed, event.Tx)
		acc.held = acc.held.Sub(amount)
		acc.locked = true

	default:
		return errors.NewValidationError("type", fmt.Sprintf("unknown event type %q", event.Kind))
	}
	return nil
}

// original resolves the amount of the movement a dispute-class event refers to.
func (p *AccountProjector) original(event models.Event) (decimal.Decimal, error) {
	amount, ok := p.movements[movementKey{client: event.Client, tx: event.Tx}]
	if ok {
		return amount, nil
	}
	if owner, known := p.owners[event.Tx]; known && owner != event.Client {
		return decimal.Zero, fmt.Errorf("tx %d disputed by client %d: %w", event.Tx, event.Client, errors.ErrForeignTransaction)
	}
	return decimal.Zero, fmt.Errorf("tx %d for client %d: %w", event.Tx, event.Client, errors.ErrTransactionNotFound)
}

func (p *AccountProjector) account(client models.ClientID) *account {
	acc, ok := p.accounts[client]
	if !ok {
		acc = &account{disputed: make(map[models.TxID]struct{})}
		p.accounts[client] = acc
	}
	return acc
}

// Balances returns one record per client ordered by client ID. Total is
// computed here and never stored.
func (p *AccountProjector) Balances() []models.AccountBalance {
	out := make([]models.AccountBalance, 0, len(p.accounts))
	for client, acc := range p.accounts {
		out = append(out, models.AccountBalance{
			Client:    client,
			Available: acc.available,
			Held:      acc.held,
			Total:     acc.available.Add(acc.held),
			Locked:    acc.locked,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}
