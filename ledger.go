package bookkeeper

import (
	"iter"
	"sort"
)

// Ledger represents a list of directives.
//
// In a Ledger directives are always in chronological order.
type Ledger struct {
	directives []Directive
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{directives: make([]Directive, 0)}
}

// Len returns the number of directives in the ledger.
func (l *Ledger) Len() int { return len(l.directives) }

// Get returns the directive at index i.
func (l *Ledger) Get(i int) Directive { return l.directives[i] }

// Append adds directives to the ledger, keeping chronological order.
func (l *Ledger) Append(ds ...Directive) {
	l.directives = append(l.directives, ds...)
	l.stableSort()
}

// ReplaceAt replaces the directive at index i. The index refers to the
// current chronological order; replacement keeps the date so order holds.
func (l *Ledger) ReplaceAt(i int, d Directive) {
	l.directives[i] = d
}

// Directives returns an iterator over (index, directive) pairs that match all
// the given filters.
func (l *Ledger) Directives(filters ...func(Directive) bool) iter.Seq2[int, Directive] {
	return func(yield func(int, Directive) bool) {
	nextDirective:
		for i, d := range l.directives {
			for _, filter := range filters {
				if !filter(d) {
					continue nextDirective
				}
			}
			if !yield(i, d) {
				return
			}
		}
	}
}

// Transactions returns an iterator over (index, transaction) pairs. The index
// is the directive's position in the ledger, usable with ReplaceAt.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
	nextDirective:
		for i, d := range l.directives {
			tx, ok := d.(Transaction)
			if !ok {
				continue
			}
			for _, filter := range filters {
				if !filter(tx) {
					continue nextDirective
				}
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// stableSort sorts directives chronologically; same-day directives keep their
// relative order.
func (l *Ledger) stableSort() {
	sort.SliceStable(l.directives, func(i, j int) bool {
		return l.directives[i].When().Before(l.directives[j].When())
	})
}

// OldestDate returns the date of the oldest directive in the ledger.
func (l *Ledger) OldestDate() Date {
	if len(l.directives) == 0 {
		return Date{}
	}
	return l.directives[0].When()
}

// NewestDate returns the date of the newest directive in the ledger.
func (l *Ledger) NewestDate() Date {
	if len(l.directives) == 0 {
		return Date{}
	}
	return l.directives[len(l.directives)-1].When()
}

// SourceIDs returns the set of statement row identifiers already recorded in
// the ledger. Rows whose identifier is present here are skipped on re-import.
func (l *Ledger) SourceIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, tx := range l.Transactions() {
		if id := tx.SourceID(); id != "" {
			ids[id] = true
		}
	}
	return ids
}

// ByAccount filters transactions touching the given account.
func ByAccount(account string) func(Transaction) bool {
	return func(tx Transaction) bool {
		return tx.PostingFor(account) != nil
	}
}

// OnOrBefore filters transactions dated on or before day.
func OnOrBefore(day Date) func(Transaction) bool {
	return func(tx Transaction) bool {
		return !tx.Day.After(day)
	}
}
