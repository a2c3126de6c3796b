// Package ofx parses OFX/QFX cash statements. Banks export these for
// checking and savings accounts; brokers use them for the cash side of an
// account. Security trades are out of scope here, only cash movements and
// the closing balance are extracted.
package ofx

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/etnz/bookkeeper"
)

// Adapter turns an OFX bank statement into source events.
type Adapter struct {
	Pattern string // filename glob selecting this adapter, e.g. "*.ofx"
}

// New returns an adapter selecting files whose base name matches pattern.
func New(pattern string) *Adapter {
	return &Adapter{Pattern: pattern}
}

func (a *Adapter) Name() string { return "ofx" }

func (a *Adapter) Match(filename string) bool {
	if ok, err := filepath.Match(a.Pattern, filepath.Base(filename)); err == nil && ok {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".ofx" || ext == ".qfx"
}

// Parse extracts the cash movements of the first bank statement in the file,
// plus one balance assertion from the statement's ledger balance.
func (a *Adapter) Parse(filename string, content []byte) ([]bookkeeper.SourceEvent, []bookkeeper.RowError, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OFX file %s (%d bytes): %w", filename, len(content), err)
	}
	if len(resp.Bank) == 0 {
		return nil, nil, fmt.Errorf("%s: no bank statement in OFX file", filename)
	}
	stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
	if !ok {
		return nil, nil, fmt.Errorf("%s: unexpected statement type %T", filename, resp.Bank[0])
	}
	if stmt.BankTranList == nil {
		return nil, nil, fmt.Errorf("%s: missing transaction list", filename)
	}

	currency := stmt.CurDef.String()
	var events []bookkeeper.SourceEvent
	var rowErrs []bookkeeper.RowError

	for i, txn := range stmt.BankTranList.Transactions {
		ev, err := a.extractTransaction(txn, currency)
		if err != nil {
			rowErrs = append(rowErrs, bookkeeper.RowError{
				File: filename,
				Line: i,
				Row:  txn.FiTID.String(),
				Err:  err,
			})
			continue
		}
		events = append(events, ev)
	}

	// The ledger balance holds at the end of DtAsOf; the assertion is made at
	// the start of the following day.
	if !stmt.DtAsOf.Time.IsZero() {
		balance, err := ratAmount(stmt.BalAmt, currency)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: ledger balance: %w", filename, err)
		}
		day := bookkeeper.NewDate(stmt.DtAsOf.Time.Date()).Add(1)
		events = append(events, bookkeeper.SourceEvent{
			Category: bookkeeper.CategoryBalance,
			Day:      day,
			Amount:   balance,
		})
	}

	return events, rowErrs, nil
}

func (a *Adapter) extractTransaction(txn ofxgo.Transaction, currency string) (bookkeeper.SourceEvent, error) {
	id := txn.FiTID.String()
	if id == "" {
		return bookkeeper.SourceEvent{}, fmt.Errorf("transaction missing required ID field")
	}

	date := txn.DtPosted.Time
	if date.IsZero() {
		date = txn.DtUser.Time
	}
	if date.IsZero() {
		return bookkeeper.SourceEvent{}, fmt.Errorf("transaction %s missing both posted date and user date", id)
	}

	description := strings.TrimSpace(txn.Name.String())
	if description == "" {
		description = strings.TrimSpace(txn.Memo.String())
	}

	amount, err := ratAmount(txn.TrnAmt, currency)
	if err != nil {
		return bookkeeper.SourceEvent{}, fmt.Errorf("transaction %s amount: %w", id, err)
	}

	return bookkeeper.SourceEvent{
		ID:          id,
		Day:         bookkeeper.NewDate(date.Date()),
		Category:    categorize(txn),
		Amount:      amount,
		Description: description,
	}, nil
}

// categorize maps the OFX transaction type to a pipeline category. Anything
// that is not a fee or interest is a plain cash movement.
func categorize(txn ofxgo.Transaction) bookkeeper.Category {
	switch txn.TrnType {
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return bookkeeper.CategoryFee
	case ofxgo.TrnTypeInt:
		return bookkeeper.CategoryInterest
	default:
		return bookkeeper.CategoryDeposit
	}
}

// ratAmount converts an OFX rational amount to an exact decimal Amount.
func ratAmount(rat ofxgo.Amount, currency string) (bookkeeper.Amount, error) {
	value, err := decimal.NewFromString(rat.FloatString(2))
	if err != nil {
		return bookkeeper.Amount{}, err
	}
	return bookkeeper.A(value, currency), nil
}
