package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ClientID uint16

type TxID uint32

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// ParseKind accepts the five event tokens, ignoring case and surrounding whitespace.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", false
	}
	return k, true
}

func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return true
	}
	return false
}

// IsMovement reports whether the kind moves funds on its own (deposit or withdrawal).
func (k Kind) IsMovement() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// IsDisputeClass reports whether the kind refers back to an earlier movement.
func (k Kind) IsDisputeClass() bool {
	return k == KindDispute || k == KindResolve || k == KindChargeback
}

// Event is one client action. Amount is nil for dispute-class events until the
// event log resolves it from the referenced movement.
type Event struct {
	Kind   Kind             `json:"type"`
	Client ClientID         `json:"client"`
	Tx     TxID             `json:"tx"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// AmountOrZero returns the event amount, or zero when it is absent.
func (e Event) AmountOrZero() decimal.Decimal {
	if e.Amount == nil {
		return decimal.Zero
	}
	return *e.Amount
}

func Deposit(client ClientID, tx TxID, amount decimal.Decimal) Event {
	return Event{Kind: KindDeposit, Client: client, Tx: tx, Amount: &amount}
}

func Withdrawal(client ClientID, tx TxID, amount decimal.Decimal) Event {
	return Event{Kind: KindWithdrawal, Client: client, Tx: tx, Amount: &amount}
}

func Dispute(client ClientID, tx TxID) Event {
	return Event{Kind: KindDispute, Client: client, Tx: tx}
}

func Resolve(client ClientID, tx TxID) Event {
	return Event{Kind: KindResolve, Client: client, Tx: tx}
}

func Chargeback(client ClientID, tx TxID) Event {
	return Event{Kind: KindChargeback, Client: client, Tx: tx}
}

// AccountBalance is the exported view of one client account.
type AccountBalance struct {
	Client    ClientID        `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// ClientActivity counts the events observed for one client, per kind.
type ClientActivity struct {
	Client      ClientID `json:"client"`
	Deposits    int      `json:"deposits"`
	Withdrawals int      `json:"withdrawals"`
	Disputes    int      `json:"disputes"`
	Resolves    int      `json:"resolves"`
	Chargebacks int      `json:"chargebacks"`
}

type Rejection struct {
	Stage    string    `json:"stage"`
	Position int       `json:"position"`
	Kind     Kind      `json:"type,omitempty"`
	Client   *ClientID `json:"client,omitempty"`
	Tx       *TxID     `json:"tx,omitempty"`
	Reason   string    `json:"reason"`
}

const (
	StageLoad   = "load"
	StageReplay = "replay"
)

type ReplayResult struct {
	ID        string           `json:"id"`
	Accounts  []AccountBalance `json:"accounts"`
	Activity  []ClientActivity `json:"activity"`
	Rejected  []Rejection      `json:"rejected"`
	Events    int              `json:"events"`
	CreatedAt time.Time        `json:"created_at"`
}

type ReplayResponse struct {
	ID        string           `json:"id"`
	Accounts  []AccountBalance `json:"accounts"`
	Activity  []ClientActivity `json:"activity,omitempty"`
	Rejected  []Rejection      `json:"rejected,omitempty"`
	Events    int              `json:"events"`
	CreatedAt time.Time        `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
