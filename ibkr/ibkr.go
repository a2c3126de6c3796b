// Package ibkr parses Interactive Brokers flex-query activity exports in
// their eleven-column CSV form.
package ibkr

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/etnz/bookkeeper"
)

// column indexes of the flex-query CSV. The export carries no header row.
const (
	colID = iota
	colDate
	colType
	colCurrency
	colProceeds
	colSecurity
	colAmount
	colCostBasis
	colTradePrice
	colCommission
	colCommissionCurrency
	columns
)

// Adapter turns an Interactive Brokers activity CSV into source events.
type Adapter struct {
	Pattern string // filename glob selecting this adapter, e.g. "*ActivityStatement*.csv"
}

// New returns an adapter selecting files whose base name matches pattern.
func New(pattern string) *Adapter {
	return &Adapter{Pattern: pattern}
}

func (a *Adapter) Name() string { return "ibkr" }

func (a *Adapter) Match(filename string) bool {
	ok, err := filepath.Match(a.Pattern, filepath.Base(filename))
	return err == nil && ok
}

// Parse reads the activity rows. Rows that fail to parse or carry an unknown
// category are collected as RowErrors; only unreadable CSV is an error.
func (a *Adapter) Parse(filename string, content []byte) ([]bookkeeper.SourceEvent, []bookkeeper.RowError, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = columns

	var events []bookkeeper.SourceEvent
	var rowErrs []bookkeeper.RowError
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s line %d: %w", filename, line, err)
		}

		ev, err := a.parseRow(record)
		if err != nil {
			rowErrs = append(rowErrs, bookkeeper.RowError{
				File: filename,
				Line: line,
				Row:  strings.Join(record, ","),
				Err:  err,
			})
			continue
		}
		events = append(events, ev)
	}
	return events, rowErrs, nil
}

func (a *Adapter) parseRow(record []string) (bookkeeper.SourceEvent, error) {
	day, err := bookkeeper.ParseDate(record[colDate])
	if err != nil {
		return bookkeeper.SourceEvent{}, err
	}
	cashFlow, err := bookkeeper.ParseAmount(record[colProceeds], record[colCurrency])
	if err != nil {
		return bookkeeper.SourceEvent{}, fmt.Errorf("proceeds: %w", err)
	}

	security := record[colSecurity]
	category := record[colType]
	ev := bookkeeper.SourceEvent{
		ID:       record[colID],
		Day:      day,
		Security: security,
		Amount:   cashFlow,
		Meta: bookkeeper.Metadata{
			"document": fmt.Sprintf("%d-12-31-InteractiveBrokers_ActivityReport.pdf", day.Year()),
		},
	}

	switch {
	case category == "Deposits/Withdrawals":
		ev.Category = bookkeeper.CategoryDeposit
		ev.Security = ""

	case category == "Dividends":
		ev.Category = bookkeeper.CategoryDividend

	case category == "Withholding Tax":
		ev.Category = bookkeeper.CategoryWithholding

	case category == "Broker Interest Received":
		ev.Category = bookkeeper.CategoryInterest
		ev.Security = ""

	case (category == "BUY" || category == "SELL") && strings.Contains(security, "."):
		// A dotted security like "EUR.USD" is a currency pair trade.
		ev.Category = bookkeeper.CategoryFx
		if err := a.parseFx(&ev, record); err != nil {
			return bookkeeper.SourceEvent{}, err
		}

	case category == "BUY":
		ev.Category = bookkeeper.CategoryBuy
		if err := a.parseTrade(&ev, record); err != nil {
			return bookkeeper.SourceEvent{}, err
		}

	case category == "SELL":
		ev.Category = bookkeeper.CategorySell
		if err := a.parseTrade(&ev, record); err != nil {
			return bookkeeper.SourceEvent{}, err
		}

	default:
		return bookkeeper.SourceEvent{}, bookkeeper.UnknownCategoryError{Category: category}
	}
	return ev, nil
}

// parseTrade fills the share count, trade price and commission of a BUY or
// SELL row.
func (a *Adapter) parseTrade(ev *bookkeeper.SourceEvent, record []string) error {
	units, err := bookkeeper.ParseQuantity(record[colAmount])
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	price, err := bookkeeper.ParseAmount(record[colTradePrice], record[colCurrency])
	if err != nil {
		return fmt.Errorf("trade price: %w", err)
	}
	commission, err := parseCommission(record)
	if err != nil {
		return err
	}
	ev.Units = units
	ev.Price = price
	ev.Commission = commission
	return nil
}

// parseFx fills the legs of a currency pair trade. Amount holds the source
// currency quantity, Proceeds the destination cash, TradePrice the rate in
// destination currency.
func (a *Adapter) parseFx(ev *bookkeeper.SourceEvent, record []string) error {
	pair := record[colSecurity]
	if len(pair) < 7 {
		return fmt.Errorf("invalid currency pair %q", pair)
	}
	dest := pair[4:]
	units, err := bookkeeper.ParseQuantity(record[colAmount])
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	destCash, err := bookkeeper.ParseAmount(record[colProceeds], dest)
	if err != nil {
		return fmt.Errorf("proceeds: %w", err)
	}
	rate, err := bookkeeper.ParseAmount(record[colTradePrice], dest)
	if err != nil {
		return fmt.Errorf("trade price: %w", err)
	}
	commission, err := parseCommission(record)
	if err != nil {
		return err
	}
	ev.Units = units
	ev.Amount = destCash
	ev.Price = rate
	ev.Commission = commission
	return nil
}

func parseCommission(record []string) (bookkeeper.Amount, error) {
	if record[colCommission] == "" {
		return bookkeeper.A(0, record[colCommissionCurrency]), nil
	}
	commission, err := bookkeeper.ParseAmount(record[colCommission], record[colCommissionCurrency])
	if err != nil {
		return bookkeeper.Amount{}, fmt.Errorf("commission: %w", err)
	}
	return commission, nil
}
