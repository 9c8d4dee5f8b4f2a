// Package codec reads client events from CSV and writes account balances back out.
package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

var (
	eventHeader   = []string{"type", "client", "tx", "amount"}
	balanceHeader = []string{"client", "available", "held", "total", "locked"}
)

// Reader decodes one event per CSV row. The header row is required and its
// columns may come in any order; the amount column may be omitted on rows
// that carry none.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	line    int
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Next returns io.EOF once the input is exhausted. A malformed row yields a
// *errors.ValidationError and the reader moves on to the next row.
func (r *Reader) Next() (models.Event, error) {
	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			return models.Event{}, err
		}
	}

	for {
		record, err := r.csv.Read()
		if err == io.EOF {
			return models.Event{}, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.line = parseErr.Line
				return models.Event{}, apperrors.NewValidationError("row", parseErr.Error())
			}
			return models.Event{}, fmt.Errorf("failed to read csv: %w", err)
		}
		r.line, _ = r.csv.FieldPos(0)
		if isBlank(record) {
			continue
		}
		return r.decode(record)
	}
}

// Line is the 1-based input line of the last row read.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) readHeader() error {
	record, err := r.csv.Read()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return fmt.Errorf("%w: csv header: %v", apperrors.ErrMalformedInput, parseErr)
		}
		return fmt.Errorf("failed to read csv header: %w", err)
	}
	r.line, _ = r.csv.FieldPos(0)

	columns := make(map[string]int, len(record))
	for i, name := range record {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range eventHeader[:3] {
		if _, ok := columns[name]; !ok {
			return fmt.Errorf("csv header is missing column %q: %w", name, apperrors.ErrMalformedInput)
		}
	}
	r.columns = columns
	return nil
}

func (r *Reader) decode(record []string) (models.Event, error) {
	kind, ok := models.ParseKind(r.field(record, "type"))
	if !ok {
		return models.Event{}, apperrors.NewValidationError("type",
			fmt.Sprintf("line %d: unknown event type %q", r.line, r.field(record, "type")))
	}

	client, err := strconv.ParseUint(r.field(record, "client"), 10, 16)
	if err != nil {
		return models.Event{}, apperrors.NewValidationError("client", fmt.Sprintf("line %d: %v", r.line, err))
	}

	tx, err := strconv.ParseUint(r.field(record, "tx"), 10, 32)
	if err != nil {
		return models.Event{}, apperrors.NewValidationError("tx", fmt.Sprintf("line %d: %v", r.line, err))
	}

	event := models.Event{
		Kind:   kind,
		Client: models.ClientID(client),
		Tx:     models.TxID(tx),
	}

	if raw := r.field(record, "amount"); raw != "" && kind.IsMovement() {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return models.Event{}, apperrors.NewValidationError("amount", fmt.Sprintf("line %d: %v", r.line, err))
		}
		if amount.IsNegative() {
			return models.Event{}, apperrors.NewValidationError("amount", fmt.Sprintf("line %d: must not be negative", r.line))
		}
		event.Amount = &amount
	}
	if kind.IsMovement() && event.Amount == nil {
		return models.Event{}, apperrors.NewValidationError("amount", fmt.Sprintf("line %d: required for %s", r.line, kind))
	}
	return event, nil
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Writer encodes account balances as CSV.
type Writer struct {
	csv         *csv.Writer
	wroteHeader bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

func (w *Writer) Write(balance models.AccountBalance) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	row := []string{
		strconv.FormatUint(uint64(balance.Client), 10),
		balance.Available.String(),
		balance.Held.String(),
		balance.Total.String(),
		strconv.FormatBool(balance.Locked),
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("failed to write balance for client %d: %w", balance.Client, err)
	}
	return nil
}

// WriteAll writes the header, every balance and flushes. The header is written
// even when there are no balances.
func (w *Writer) WriteAll(balances []models.AccountBalance) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	for _, balance := range balances {
		if err := w.Write(balance); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func (w *Writer) writeHeader() error {
	if w.wroteHeader {
		return nil
	}
	if err := w.csv.Write(balanceHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	w.wroteHeader = true
	return nil
}
