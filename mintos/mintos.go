// Package mintos parses Mintos account statement CSV exports. Individual
// loan-level rows are not worth one transaction each: the adapter maps them
// to accrued categories that the assembler folds into summary transactions
// at each deposit or withdrawal boundary.
package mintos

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/etnz/bookkeeper"
)

// Adapter turns a Mintos account statement CSV into source events.
type Adapter struct {
	Pattern string // filename glob selecting this adapter, e.g. "*mintos*.csv"
}

// New returns an adapter selecting files whose base name matches pattern.
func New(pattern string) *Adapter {
	return &Adapter{Pattern: pattern}
}

func (a *Adapter) Name() string { return "mintos" }

func (a *Adapter) Match(filename string) bool {
	ok, err := filepath.Match(a.Pattern, filepath.Base(filename))
	return err == nil && ok
}

// Parse reads the statement rows. The first row is the header; columns are
// located by name so Mintos can keep reshuffling the export.
func (a *Adapter) Parse(filename string, content []byte) ([]bookkeeper.SourceEvent, []bookkeeper.RowError, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s header: %w", filename, err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"Date", "Details", "Turnover"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("%s: missing column %q", filename, required)
		}
	}

	var events []bookkeeper.SourceEvent
	var rowErrs []bookkeeper.RowError
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s line %d: %w", filename, line, err)
		}

		ev, err := a.parseRow(cols, record)
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

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func field(cols map[string]int, record []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (a *Adapter) parseRow(cols map[string]int, record []string) (bookkeeper.SourceEvent, error) {
	currency := field(cols, record, "Currency")
	if currency == "" {
		currency = "EUR"
	}
	turnover, err := bookkeeper.ParseAmount(field(cols, record, "Turnover"), currency)
	if err != nil {
		return bookkeeper.SourceEvent{}, fmt.Errorf("turnover: %w", err)
	}

	details := strings.ToLower(field(cols, record, "Details"))
	category, dated, err := categorize(details, turnover)
	if err != nil {
		return bookkeeper.SourceEvent{}, err
	}

	ev := bookkeeper.SourceEvent{
		ID:          field(cols, record, "Transaction ID"),
		Category:    category,
		Amount:      turnover,
		Description: field(cols, record, "Details"),
	}
	if dated {
		ev.Day, err = bookkeeper.ParseDate(field(cols, record, "Date"))
		if err != nil {
			return bookkeeper.SourceEvent{}, err
		}
	}
	return ev, nil
}

// categorize maps the free-text row details to a category. The returned
// dated flag is false for loan-part repurchases, which accrue without moving
// the summary date.
func categorize(details string, turnover bookkeeper.Amount) (bookkeeper.Category, bool, error) {
	switch {
	case strings.Contains(details, " - discount/premium for secondary market transaction"):
		if !turnover.IsPositive() {
			return "", false, fmt.Errorf("negative discount: %q", details)
		}
		return bookkeeper.CategoryAccruedInterest, true, nil

	case strings.Contains(details, "repurchase of small loan parts"):
		return bookkeeper.CategoryAccruedInterest, false, nil

	case strings.Contains(details, " - secondary market fee"):
		return bookkeeper.CategoryAccruedFee, true, nil

	case strings.Contains(details, " - secondary market transaction"):
		return bookkeeper.CategoryAccruedFlow, true, nil

	case strings.Contains(details, "deposits"):
		return bookkeeper.CategoryDeposit, true, nil

	case strings.Contains(details, "withdrawal"):
		return bookkeeper.CategoryDeposit, true, nil

	case strings.Contains(details, " - investment in loan"):
		return bookkeeper.CategoryAccruedFlow, true, nil

	case strings.Contains(details, "interest received"),
		strings.Contains(details, " - late fees received"):
		return bookkeeper.CategoryAccruedInterest, true, nil

	case strings.Contains(details, "principal received"):
		return bookkeeper.CategoryAccruedFlow, true, nil

	case strings.Contains(details, "refer a friend bonus"),
		strings.Contains(details, "cashback bonus"):
		if !turnover.IsPositive() {
			return "", false, fmt.Errorf("negative bonus: %q", details)
		}
		return bookkeeper.CategoryAccruedInterest, true, nil

	case strings.Contains(details, "deposit reversed"):
		return bookkeeper.CategoryAccruedFee, true, nil
	}
	return "", false, bookkeeper.UnknownCategoryError{Category: details}
}
