// Package eventlog holds the append-only, indexed log of client events and
// drives projectors over it in insertion order.
package eventlog

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

// Projector folds one event into derived state.
type Projector interface {
	Project(event models.Event) error
}

// EventSource yields events one at a time and returns io.EOF when exhausted.
// A *errors.ValidationError marks a single bad record; the source must still
// be readable afterwards.
type EventSource interface {
	Next() (models.Event, error)
}

type entryKey struct {
	client models.ClientID
	tx     models.TxID
}

// Log is not safe for concurrent use. It is filled during ingestion and only
// read during Replay.
type Log struct {
	events []models.Event
	index  map[entryKey]int
}

func New() *Log {
	return &Log{
		index: make(map[entryKey]int),
	}
}

// Record validates the event, resolves the amount of dispute-class events from
// the movement they reference, and appends it. A rejected event is not stored.
func (l *Log) Record(event models.Event) error {
	if !event.Kind.Valid() {
		return errors.NewValidationError("type", fmt.Sprintf("unknown event type %q", event.Kind))
	}

	if event.Kind.IsDisputeClass() {
		pos, ok := l.index[entryKey{client: event.Client, tx: event.Tx}]
		if !ok {
			return fmt.Errorf("%s of tx %d for client %d: %w", event.Kind, event.Tx, event.Client, errors.ErrTransactionNotFound)
		}
		event.Amount = copyAmount(l.events[pos])
	} else {
		event.Amount = copyAmount(event)
	}

	l.events = append(l.events, event)

	if event.Kind.IsMovement() {
		l.index[entryKey{client: event.Client, tx: event.Tx}] = len(l.events) - 1
	}
	return nil
}

// Load records every event from src. Bad records and rejected events are
// returned as failures and do not stop the load; only a source error that is
// not a validation error aborts it.
func (l *Log) Load(src EventSource) ([]*errors.EventError, error) {
	var failures []*errors.EventError
	for pos := 0; ; pos++ {
		event, err := src.Next()
		if err == io.EOF {
			return failures, nil
		}
		if err != nil {
			if errors.IsValidationError(err) {
				failures = append(failures, errors.NewEventError(pos, nil, err))
				continue
			}
			return failures, fmt.Errorf("failed to read event #%d: %w", pos, err)
		}

		if err := l.Record(event); err != nil {
			failures = append(failures, errors.NewEventError(pos, &event, err))
		}
	}
}

// Replay feeds every stored event, in insertion order, to every projector.
// A projector error is collected and the pass continues.
func (l *Log) Replay(projectors ...Projector) []*errors.EventError {
	var failures []*errors.EventError
	for pos, stored := range l.events {
		for _, p := range projectors {
			event := stored
			event.Amount = copyAmount(stored)
			if err := p.Project(event); err != nil {
				failures = append(failures, errors.NewEventError(pos, &event, err))
			}
		}
	}
	return failures
}

func (l *Log) Len() int {
	return len(l.events)
}

// Events returns a copy of the stored events in insertion order.
func (l *Log) Events() []models.Event {
	out := make([]models.Event, len(l.events))
	for i, event := range l.events {
		event.Amount = copyAmount(event)
		out[i] = event
	}
	return out
}

// copyAmount detaches the stored amount from the caller's pointer so stored
// events stay immutable.
func copyAmount(event models.Event) *decimal.Decimal {
	if event.Amount == nil {
		return nil
	}
	amount := *event.Amount
	return &amount
}
