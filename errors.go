package bookkeeper

import "fmt"

// RowError reports a statement row that could not be turned into a directive.
// Rows errors are collected, never fatal: the batch continues past them.
type RowError struct {
	File string
	Line int
	Row  string // raw row content, for the report
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// UnknownCategoryError reports a statement row whose category the pipeline
// does not handle.
type UnknownCategoryError struct {
	Category string
}

func (e UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Category)
}

// DoubleMatchError reports a withholding-tax record matched by more than one
// dividend. This is a hard fault: it means the books already disagree with
// the statement and no automatic netting is safe.
type DoubleMatchError struct {
	Security string
	Day      Date
}

func (e DoubleMatchError) Error() string {
	return fmt.Sprintf("withholding tax for %s on %s matched twice", e.Security, e.Day)
}

// MismatchWarning reports a sale that consumed more units than the
// reconstructed inventory held. The sale is still recorded with the lots that
// were available; the shortfall is what could not be costed.
type MismatchWarning struct {
	Security  string
	Day       Date
	Requested Quantity
	Shortfall Quantity
}

func (w MismatchWarning) String() string {
	return fmt.Sprintf("sale of %s %s on %s exceeds inventory by %s units",
		w.Requested.Abs(), w.Security, w.Day, w.Shortfall)
}

// UnmatchedTax reports a withholding-tax record that no dividend claimed.
type UnmatchedTax struct {
	Security string
	Day      Date
	Amount   Amount
}

func (u UnmatchedTax) String() string {
	return fmt.Sprintf("no dividend found for withholding tax %s %s on %s", u.Amount, u.Security, u.Day)
}

// Report collects everything non-fatal an extraction run wants a human to
// see: inventory mismatches, unmatched tax records and rows that failed.
type Report struct {
	Batch      string // unique identifier of this extraction run
	File       string
	Directives int
	Skipped    int // rows skipped because their source id was already in the ledger
	Mismatches []MismatchWarning
	Unmatched  []UnmatchedTax
	RowErrors  []RowError
}

// HasFindings reports whether the report carries anything worth printing.
func (r *Report) HasFindings() bool {
	return len(r.Mismatches) > 0 || len(r.Unmatched) > 0 || len(r.RowErrors) > 0
}
