package bookkeeper

import (
	"fmt"
	"log"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category classifies a statement row for the assembler.
type Category string

const (
	CategoryDeposit     Category = "deposit"     // cash in or out of the brokerage account
	CategoryDividend    Category = "dividend"    // gross dividend payout
	CategoryWithholding Category = "withholding" // withholding tax on a dividend, or its refund
	CategoryInterest    Category = "interest"    // broker interest received
	CategoryFee         Category = "fee"         // standalone fee
	CategoryFx          Category = "fx"          // currency pair trade
	CategoryBuy         Category = "buy"         // security acquisition
	CategorySell        Category = "sell"        // security disposal
	CategoryBalance     Category = "balance"     // cash balance assertion

	// Accrued categories are not posted individually: they are folded into a
	// running total and flushed as one summary transaction at each deposit
	// boundary and at the end of the batch.
	CategoryAccruedInterest Category = "accrued-interest"
	CategoryAccruedFee      Category = "accrued-fee"
	CategoryAccruedFlow     Category = "accrued-flow"
)

// SourceEvent is one categorized statement row, the adapter-independent input
// of the assembler.
type SourceEvent struct {
	ID          string // stable row identifier, becomes source_id metadata
	Day         Date
	Category    Category
	Security    string   // ticker, or currency pair for fx events
	Units       Quantity // units traded, or source amount for fx events
	Amount      Amount   // main cash amount of the row
	Price       Amount   // per-unit trade price or fx rate
	Commission  Amount   // negative or zero
	FxRate      decimal.Decimal // trade currency to base rate when the statement provides one
	Description string
	Meta        Metadata
}

// StatementAdapter turns one statement format into categorized events.
// Adapters are selected by filename, never by content sniffing.
type StatementAdapter interface {
	Name() string
	Match(filename string) bool
	Parse(filename string, content []byte) ([]SourceEvent, []RowError, error)
}

// Extractor assembles bookkeeping directives from brokerage statements.
type Extractor struct {
	Adapters []StatementAdapter
	Accounts AccountMap
	Base     string // base currency of the ledger
	Rates    RateSource
	Payee    string // payee recorded on assembled transactions
}

// accrual is the running total threaded through the batch fold. Amounts
// start with no currency and adopt the statement's on first add.
type accrual struct {
	fees     Amount
	interest Amount
	cashflow Amount // principal moved in and out of holdings
	day      Date   // date of the last accumulated row
}

func (a accrual) isZero() bool {
	return a.fees.IsZero() && a.interest.IsZero() && a.cashflow.IsZero()
}

// Extract runs one statement through its adapter and assembles directives
// against the existing ledger. Row-level problems are collected in the
// returned Report; only malformed input or configuration faults return an
// error.
func (x *Extractor) Extract(filename string, content []byte, existing *Ledger) ([]Directive, *Report, error) {
	if err := x.Accounts.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid account map: %w", err)
	}
	if err := ValidateCurrency(x.Base); err != nil {
		return nil, nil, fmt.Errorf("invalid base currency: %w", err)
	}
	adapter := x.adapterFor(filename)
	if adapter == nil {
		return nil, nil, fmt.Errorf("no adapter matches %q", filename)
	}
	if existing == nil {
		existing = NewLedger()
	}

	events, rowErrs, err := adapter.Parse(filename, content)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", adapter.Name(), err)
	}

	report := &Report{
		Batch:     uuid.NewString(),
		File:      filename,
		RowErrors: rowErrs,
	}

	// Statements exported newest-first are replayed oldest-first. Dateless
	// rows can sit at either end of the export, so the order is probed on
	// the first and last dated events.
	var firstDay, lastDay Date
	for _, ev := range events {
		if !ev.Day.IsZero() {
			firstDay = ev.Day
			break
		}
	}
	for i := len(events) - 1; i >= 0; i-- {
		if !events[i].Day.IsZero() {
			lastDay = events[i].Day
			break
		}
	}
	if firstDay.After(lastDay) {
		slices.Reverse(events)
	}

	seen := existing.SourceIDs()
	var entries []Directive
	var taxes []WithholdingTax
	acc := x.newAccrual()

	for _, ev := range events {
		if ev.ID != "" && seen[ev.ID] {
			report.Skipped++
			continue
		}
		if ev.ID != "" {
			seen[ev.ID] = true
		}

		switch ev.Category {
		case CategoryDeposit:
			entries = x.flush(entries, &acc, ev.Day)
			entries = append(entries, x.deposit(ev))

		case CategoryDividend:
			entries = append(entries, x.dividend(ev))

		case CategoryWithholding:
			taxes = append(taxes, WithholdingTax{
				ID:       ev.ID,
				Security: ev.Security,
				Day:      ev.Day,
				Amount:   ev.Amount,
				Meta:     ev.Meta,
			})

		case CategoryInterest:
			entries = append(entries, x.interest(ev))

		case CategoryFee:
			entries = append(entries, x.fee(ev))

		case CategoryFx:
			entries = append(entries, x.fxExchange(ev))

		case CategoryBuy:
			tx, err := x.buy(ev)
			if err != nil {
				report.RowErrors = append(report.RowErrors, RowError{File: filename, Row: ev.ID, Err: err})
				continue
			}
			entries = append(entries, tx)

		case CategorySell:
			tx, warning, err := x.sell(ev, existing, entries)
			if err != nil {
				report.RowErrors = append(report.RowErrors, RowError{File: filename, Row: ev.ID, Err: err})
				continue
			}
			if warning != nil {
				log.Printf("%s: %s", filename, warning)
				report.Mismatches = append(report.Mismatches, *warning)
			}
			entries = append(entries, tx)

		case CategoryBalance:
			b := NewBalance(ev.Day, x.Accounts.Cash(), ev.Amount)
			b.Meta = ev.Meta
			entries = append(entries, b)

		case CategoryAccruedInterest:
			acc.interest = acc.interest.Add(ev.Amount)
			acc.accumulatedOn(ev.Day)

		case CategoryAccruedFee:
			acc.fees = acc.fees.Add(ev.Amount)
			acc.accumulatedOn(ev.Day)

		case CategoryAccruedFlow:
			acc.cashflow = acc.cashflow.Add(ev.Amount)
			acc.accumulatedOn(ev.Day)

		default:
			report.RowErrors = append(report.RowErrors, RowError{
				File: filename,
				Row:  ev.ID,
				Err:  UnknownCategoryError{Category: string(ev.Category)},
			})
		}
	}

	entries = x.flush(entries, &acc, acc.day)

	entries, unmatched, err := reconcileWithholding(entries, existing, x.Accounts, x.Payee, taxes)
	if err != nil {
		return nil, nil, err
	}
	for _, u := range unmatched {
		log.Printf("%s: %s", filename, u)
	}
	report.Unmatched = unmatched
	report.Directives = len(entries)

	return entries, report, nil
}

func (x *Extractor) adapterFor(filename string) StatementAdapter {
	for _, a := range x.Adapters {
		if a.Match(filename) {
			return a
		}
	}
	return nil
}

func (x *Extractor) newAccrual() accrual {
	return accrual{}
}

// accumulatedOn records the date of an accumulated row. Rows without a date
// (loan-part repurchases) accrue without moving the summary date.
func (a *accrual) accumulatedOn(day Date) {
	if !day.IsZero() {
		a.day = day
	}
}

// newTx builds a transaction carrying the event's identity metadata.
func (x *Extractor) newTx(ev SourceEvent, narration string, postings ...Posting) Transaction {
	tx := NewTransaction(ev.Day, x.Payee, narration, postings...)
	tx.Meta = ev.Meta
	if ev.ID != "" {
		tx = tx.WithMeta(MetaSourceID, ev.ID)
	}
	return tx
}

func (x *Extractor) deposit(ev SourceEvent) Transaction {
	narration := "Deposit"
	if ev.Amount.IsNegative() {
		narration = "Withdrawal"
	}
	postings := []Posting{P(x.Accounts.Cash(), ev.Amount)}
	if x.Accounts.External != "" {
		postings = append(postings, P(x.Accounts.External, ev.Amount.Neg()))
	}
	return x.newTx(ev, narration, postings...)
}

func (x *Extractor) dividend(ev SourceEvent) Transaction {
	return x.newTx(ev, dividendNarration(ev.Security),
		P(x.Accounts.Cash(), ev.Amount),
		P(x.Accounts.Dividends(ev.Security), ev.Amount.Neg()),
	)
}

func (x *Extractor) interest(ev SourceEvent) Transaction {
	return x.newTx(ev, "Interests",
		P(x.Accounts.Cash(), ev.Amount),
		P(x.Accounts.Interests(), ev.Amount.Neg()),
	)
}

func (x *Extractor) fee(ev SourceEvent) Transaction {
	narration := "Fee"
	if ev.Description != "" {
		narration = ev.Description
	}
	return x.newTx(ev, narration,
		P(x.Accounts.Cash(), ev.Amount),
		P(x.Accounts.Fees, ev.Amount.Neg()),
	)
}

// fxExchange posts both currency legs of a pair trade to the cash account,
// pricing the source leg at the trade rate.
func (x *Extractor) fxExchange(ev SourceEvent) Transaction {
	pair := ev.Security
	source := A(ev.Units.Decimal(), fxSourceCurrency(pair))
	rate := ev.Price

	postings := []Posting{
		{Account: x.Accounts.Cash(), Units: source, Price: &rate},
		P(x.Accounts.Cash(), ev.Amount),
	}
	if !ev.Commission.IsZero() {
		postings = append(postings,
			P(x.Accounts.Cash(), ev.Commission),
			P(x.Accounts.Fees, ev.Commission.Neg()),
		)
	}
	return x.newTx(ev, "FX Exchange "+pair, postings...)
}

func (x *Extractor) buy(ev SourceEvent) (Transaction, error) {
	fx, err := x.rateToBase(ev)
	if err != nil {
		return Transaction{}, err
	}

	// The acquisition basis is kept in the base currency so later disposals
	// realize their result in base regardless of the trade currency.
	costPerUnit := ev.Price.Convert(fx, x.Base)
	cost := Cost{PerUnit: costPerUnit, Day: ev.Day}

	// Proceeds is negative for a buy; commission makes the cash out larger.
	cash := ev.Amount
	if !ev.Commission.IsZero() && ev.Commission.Currency() == ev.Amount.Currency() {
		cash = cash.Add(ev.Commission)
	}

	postings := []Posting{
		P(x.Accounts.Cash(), cash),
		{
			Account: x.Accounts.Security(ev.Security),
			Units:   A(ev.Units.Decimal(), ev.Security),
			Cost:    &cost,
		},
	}
	if !ev.Commission.IsZero() {
		postings = append(postings, P(x.Accounts.Fees, ev.Commission.Neg()))
	}
	return x.newTx(ev, "Buy "+ev.Security, postings...), nil
}

func (x *Extractor) sell(ev SourceEvent, existing *Ledger, batch []Directive) (Transaction, *MismatchWarning, error) {
	fx, err := x.rateToBase(ev)
	if err != nil {
		return Transaction{}, nil, err
	}
	req := SellRequest{
		ID:         ev.ID,
		Day:        ev.Day,
		Security:   ev.Security,
		Units:      ev.Units.Abs(),
		Proceeds:   ev.Amount,
		Price:      ev.Price,
		Commission: ev.Commission,
		FxRate:     fx,
	}
	postings, warning := sellPostings(existing, batch, x.Accounts, x.Base, req)
	return x.newTx(ev, "Sell "+ev.Security, postings...), warning, nil
}

// rateToBase resolves the trade currency to base conversion rate for an
// event, preferring the rate the statement itself carries.
func (x *Extractor) rateToBase(ev SourceEvent) (decimal.Decimal, error) {
	if !ev.FxRate.IsZero() {
		return ev.FxRate, nil
	}
	cur := ev.Amount.Currency()
	if cur == x.Base || cur == "" {
		return decimal.NewFromInt(1), nil
	}
	if x.Rates == nil {
		return decimal.Decimal{}, fmt.Errorf("no rate source for %s to %s on %s", cur, x.Base, ev.Day)
	}
	rate, err := x.Rates.Rate(cur, x.Base, ev.Day)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate %s to %s on %s: %w", cur, x.Base, ev.Day, err)
	}
	return rate, nil
}

// flush drains the accrual into one summary transaction dated at the
// boundary that triggered it: interest to income, fees to expenses, principal
// to the loan asset account, and the net total to cash.
func (x *Extractor) flush(entries []Directive, acc *accrual, day Date) []Directive {
	if acc.isZero() {
		return entries
	}
	total := acc.cashflow.Add(acc.fees).Add(acc.interest)
	var postings []Posting
	if !acc.interest.IsZero() {
		postings = append(postings, P(x.Accounts.Interests(), acc.interest.Neg()))
	}
	if !acc.fees.IsZero() {
		postings = append(postings, P(x.Accounts.Fees, acc.fees.Neg()))
	}
	if !acc.cashflow.IsZero() {
		postings = append(postings, P(x.Accounts.Loans(), acc.cashflow.Neg()))
	}
	if !total.IsZero() {
		postings = append(postings, P(x.Accounts.Cash(), total))
	}
	tx := NewTransaction(day, x.Payee, "Summary", postings...)
	*acc = x.newAccrual()
	return append(entries, tx)
}

// fxSourceCurrency returns the source currency of a dotted pair like "EUR.USD".
func fxSourceCurrency(pair string) string {
	if len(pair) >= 3 {
		return pair[:3]
	}
	return pair
}
