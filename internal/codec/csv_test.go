package codec

import (
	"bytes"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

func readAll(t *testing.T, input string) ([]models.Event, []error) {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var (
		events []models.Event
		bad    []error
	)
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events, bad
		}
		if err != nil {
			if !errors.IsValidationError(err) {
				t.Fatalf("Next() unexpected error: %v", err)
			}
			bad = append(bad, err)
			continue
		}
		events = append(events, e)
	}
}

func TestReader_DecodesRows(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit, 1, 1, 1.0\n" +
		"  Withdrawal ,2,5,0.1234\n" +
		"dispute, 1, 1,\n" +
		"resolve,1,1\n" +
		"CHARGEBACK, 65535, 4294967295, \n"

	events, bad := readAll(t, input)
	if len(bad) != 0 {
		t.Fatalf("unexpected bad rows: %v", bad)
	}

	want := []struct {
		kind   models.Kind
		client models.ClientID
		tx     models.TxID
		amount string
	}{
		{models.KindDeposit, 1, 1, "1.0"},
		{models.KindWithdrawal, 2, 5, "0.1234"},
		{models.KindDispute, 1, 1, ""},
		{models.KindResolve, 1, 1, ""},
		{models.KindChargeback, 65535, 4294967295, ""},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, w := range want {
		e := events[i]
		if e.Kind != w.kind || e.Client != w.client || e.Tx != w.tx {
			t.Fatalf("event %d = %+v, want %+v", i, e, w)
		}
		if w.amount == "" {
			if e.Amount != nil {
				t.Fatalf("event %d amount = %s, want none", i, e.Amount)
			}
			continue
		}
		if e.Amount == nil || !e.Amount.Equal(decimal.RequireFromString(w.amount)) {
			t.Fatalf("event %d amount = %v, want %s", i, e.Amount, w.amount)
		}
	}
}

func TestReader_ColumnOrder(t *testing.T) {
	events, bad := readAll(t, "amount,tx,client,type\n3.5,9,4,deposit\n")
	if len(bad) != 0 || len(events) != 1 {
		t.Fatalf("events=%v bad=%v", events, bad)
	}
	if events[0].Client != 4 || events[0].Tx != 9 || !events[0].Amount.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("event = %+v", events[0])
	}
}

func TestReader_BadRows(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		field string
	}{
		{name: "unknown type", row: "transfer,1,1,1", field: "type"},
		{name: "negative client", row: "deposit,-1,1,1", field: "client"},
		{name: "client overflow", row: "deposit,65536,1,1", field: "client"},
		{name: "tx overflow", row: "deposit,1,4294967296,1", field: "tx"},
		{name: "bad amount", row: "deposit,1,1,abc", field: "amount"},
		{name: "negative amount", row: "withdrawal,1,1,-2", field: "amount"},
		{name: "missing amount", row: "deposit,1,1,", field: "amount"},
		{name: "missing amount column", row: "withdrawal,1,1", field: "amount"},
		{name: "bare quote", row: "deposit,1,\"1,1", field: "row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader("type,client,tx,amount\n" + tt.row + "\n"))
			_, err := r.Next()
			var validationErr *errors.ValidationError
			if !stderrors.As(err, &validationErr) {
				t.Fatalf("Next() error = %v, want validation error", err)
			}
			if validationErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", validationErr.Field, tt.field)
			}
		})
	}
}

func TestReader_ContinuesAfterBadRow(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,1\n" +
		"deposit,x,2,1\n" +
		"\n" +
		"deposit,1,3,2\n"

	events, bad := readAll(t, input)
	if len(events) != 2 || len(bad) != 1 {
		t.Fatalf("got %d events and %d bad rows, want 2 and 1", len(events), len(bad))
	}
	if events[1].Tx != 3 {
		t.Fatalf("second event tx = %d, want 3", events[1].Tx)
	}
}

func TestReader_Line(t *testing.T) {
	r := NewReader(strings.NewReader("type,client,tx,amount\n\ndeposit,1,1,1\n"))
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() unexpected error: %v", err)
	}
	if r.Line() != 3 {
		t.Fatalf("Line() = %d, want 3", r.Line())
	}
}

func TestReader_Header(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("empty input: error = %v, want io.EOF", err)
	}

	r = NewReader(strings.NewReader("kind,client,tx\ndeposit,1,1\n"))
	_, err := r.Next()
	if !errors.IsMalformedInput(err) {
		t.Fatalf("missing column: error = %v, want malformed input", err)
	}
}

func TestWriter_WriteAll(t *testing.T) {
	var buf bytes.Buffer
	balances := []models.AccountBalance{
		{
			Client:    1,
			Available: decimal.RequireFromString("1.50"),
			Held:      decimal.RequireFromString("0.0"),
			Total:     decimal.RequireFromString("1.50"),
		},
		{
			Client:    2,
			Available: decimal.RequireFromString("-4"),
			Held:      decimal.RequireFromString("5.0001"),
			Total:     decimal.RequireFromString("1.0001"),
			Locked:    true,
		},
	}

	if err := NewWriter(&buf).WriteAll(balances); err != nil {
		t.Fatalf("WriteAll() unexpected error: %v", err)
	}

	want := "client,available,held,total,locked\n" +
		"1,1.5,0,1.5,false\n" +
		"2,-4,5.0001,1.0001,true\n"
	if buf.String() != want {
		t.Fatalf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriter_EmptyStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteAll(nil); err != nil {
		t.Fatalf("WriteAll() unexpected error: %v", err)
	}
	if buf.String() != "client,available,held,total,locked\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
