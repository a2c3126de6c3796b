package bookkeeper

import (
	"errors"
	"testing"
)

// stubAdapter feeds pre-built events to the assembler.
type stubAdapter struct {
	events  []SourceEvent
	rowErrs []RowError
}

func (stubAdapter) Name() string              { return "stub" }
func (stubAdapter) Match(filename string) bool { return true }
func (s stubAdapter) Parse(filename string, content []byte) ([]SourceEvent, []RowError, error) {
	return s.events, s.rowErrs, nil
}

func testExtractor(events ...SourceEvent) *Extractor {
	return &Extractor{
		Adapters: []StatementAdapter{stubAdapter{events: events}},
		Accounts: testAccounts(),
		Base:     "USD",
		Payee:    "Test Broker",
	}
}

func mustExtract(t *testing.T, x *Extractor, existing *Ledger) ([]Directive, *Report) {
	t.Helper()
	directives, report, err := x.Extract("statement.csv", nil, existing)
	if err != nil {
		t.Fatal(err)
	}
	return directives, report
}

func TestExtractDeposit(t *testing.T) {
	x := testExtractor(SourceEvent{
		ID:       "r1",
		Day:      MustParse("2023-01-05"),
		Category: CategoryDeposit,
		Amount:   A(1000, "USD"),
	})
	directives, _ := mustExtract(t, x, nil)
	if len(directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(directives))
	}

	tx := directives[0].(Transaction)
	if tx.Narration != "Deposit" {
		t.Errorf("narration = %q, want Deposit", tx.Narration)
	}
	if tx.SourceID() != "r1" {
		t.Errorf("source id = %q, want r1", tx.SourceID())
	}
	cash := findPosting(t, tx.Postings, x.Accounts.Cash())
	if !cash.Units.Equal(A(1000, "USD")) {
		t.Errorf("cash = %s, want 1000 USD", cash.Units)
	}
	external := findPosting(t, tx.Postings, x.Accounts.External)
	if !external.Units.Equal(A(-1000, "USD")) {
		t.Errorf("external = %s, want -1000 USD", external.Units)
	}
}

func TestExtractWithdrawalWithoutExternal(t *testing.T) {
	x := testExtractor(SourceEvent{
		ID:       "r1",
		Day:      MustParse("2023-01-05"),
		Category: CategoryDeposit,
		Amount:   A(-500, "USD"),
	})
	x.Accounts.External = ""
	directives, _ := mustExtract(t, x, nil)

	tx := directives[0].(Transaction)
	if tx.Narration != "Withdrawal" {
		t.Errorf("narration = %q, want Withdrawal", tx.Narration)
	}
	if len(tx.Postings) != 1 {
		t.Errorf("postings = %d, want the cash leg only", len(tx.Postings))
	}
}

func TestExtractSkipsRecordedRows(t *testing.T) {
	accounts := testAccounts()
	existing := NewLedger()
	existing.Append(buyTx(t, accounts, "r1", "2023-01-01", "VTI", 10, 100, "USD"))

	x := testExtractor(
		SourceEvent{ID: "r1", Day: MustParse("2023-01-01"), Category: CategoryDeposit, Amount: A(1000, "USD")},
		SourceEvent{ID: "r2", Day: MustParse("2023-01-02"), Category: CategoryDeposit, Amount: A(200, "USD")},
		SourceEvent{ID: "r2", Day: MustParse("2023-01-02"), Category: CategoryDeposit, Amount: A(200, "USD")},
	)
	directives, report := mustExtract(t, x, existing)

	if report.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", report.Skipped)
	}
	if len(directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(directives))
	}
	if directives[0].(Transaction).SourceID() != "r2" {
		t.Errorf("kept row = %q, want r2", directives[0].(Transaction).SourceID())
	}
}

func TestExtractReversesNewestFirstStatements(t *testing.T) {
	x := testExtractor(
		SourceEvent{ID: "r2", Day: MustParse("2023-02-01"), Category: CategoryDeposit, Amount: A(200, "USD")},
		SourceEvent{ID: "r1", Day: MustParse("2023-01-01"), Category: CategoryDeposit, Amount: A(100, "USD")},
	)
	directives, _ := mustExtract(t, x, nil)
	if len(directives) != 2 {
		t.Fatalf("directives = %d, want 2", len(directives))
	}
	if directives[0].When().After(directives[1].When()) {
		t.Errorf("directives not replayed oldest first: %s then %s", directives[0].When(), directives[1].When())
	}
}

func TestExtractUnknownCategory(t *testing.T) {
	x := testExtractor(SourceEvent{ID: "r1", Day: MustParse("2023-01-01"), Category: "mystery"})
	directives, report := mustExtract(t, x, nil)
	if len(directives) != 0 {
		t.Errorf("directives = %d, want none", len(directives))
	}
	if len(report.RowErrors) != 1 {
		t.Fatalf("row errors = %d, want 1", len(report.RowErrors))
	}
	var uce UnknownCategoryError
	if !errors.As(report.RowErrors[0].Err, &uce) {
		t.Errorf("err = %v, want UnknownCategoryError", report.RowErrors[0].Err)
	}
}

func TestExtractNoAdapter(t *testing.T) {
	x := testExtractor()
	x.Adapters = nil
	_, _, err := x.Extract("statement.csv", nil, nil)
	if err == nil {
		t.Fatal("want an error when no adapter matches")
	}
}

func TestExtractAccrualFlush(t *testing.T) {
	x := testExtractor(
		SourceEvent{ID: "r1", Day: MustParse("2023-01-03"), Category: CategoryAccruedInterest, Amount: A(5, "EUR")},
		SourceEvent{ID: "r2", Day: MustParse("2023-01-04"), Category: CategoryAccruedFlow, Amount: A(-100, "EUR")},
		SourceEvent{ID: "r3", Day: MustParse("2023-01-10"), Category: CategoryDeposit, Amount: A(1000, "EUR")},
		SourceEvent{ID: "r4", Day: MustParse("2023-01-15"), Category: CategoryAccruedFee, Amount: A(-2, "EUR")},
	)
	directives, _ := mustExtract(t, x, nil)
	if len(directives) != 3 {
		t.Fatalf("directives = %d, want 2 summaries around a deposit", len(directives))
	}

	// First summary flushes at the deposit boundary, dated at the deposit.
	first := directives[0].(Transaction)
	if first.Narration != "Summary" || first.Day != MustParse("2023-01-10") {
		t.Errorf("first = %q on %s, want Summary on 2023-01-10", first.Narration, first.Day)
	}
	interest := findPosting(t, first.Postings, x.Accounts.Interests())
	if !interest.Units.Equal(A(-5, "EUR")) {
		t.Errorf("interest = %s, want -5 EUR", interest.Units)
	}
	loans := findPosting(t, first.Postings, x.Accounts.Loans())
	if !loans.Units.Equal(A(100, "EUR")) {
		t.Errorf("loans = %s, want 100 EUR", loans.Units)
	}
	cash := findPosting(t, first.Postings, x.Accounts.Cash())
	if !cash.Units.Equal(A(-95, "EUR")) {
		t.Errorf("cash = %s, want -95 EUR", cash.Units)
	}

	// The trailing fee is flushed at the end, dated at its own row.
	last := directives[2].(Transaction)
	if last.Narration != "Summary" || last.Day != MustParse("2023-01-15") {
		t.Errorf("last = %q on %s, want Summary on 2023-01-15", last.Narration, last.Day)
	}
	fee := findPosting(t, last.Postings, x.Accounts.Fees)
	if !fee.Units.Equal(A(2, "EUR")) {
		t.Errorf("fee = %s, want 2 EUR", fee.Units)
	}
}

func TestExtractAccrualDatelessRow(t *testing.T) {
	// A dateless accrued row contributes its amount without moving the
	// summary date.
	x := testExtractor(
		SourceEvent{ID: "r1", Day: MustParse("2023-01-03"), Category: CategoryAccruedInterest, Amount: A(5, "EUR")},
		SourceEvent{ID: "r2", Category: CategoryAccruedInterest, Amount: A(1, "EUR")},
	)
	directives, _ := mustExtract(t, x, nil)
	if len(directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(directives))
	}
	tx := directives[0].(Transaction)
	if tx.Day != MustParse("2023-01-03") {
		t.Errorf("summary day = %s, want 2023-01-03", tx.Day)
	}
	interest := findPosting(t, tx.Postings, x.Accounts.Interests())
	if !interest.Units.Equal(A(-6, "EUR")) {
		t.Errorf("interest = %s, want -6 EUR", interest.Units)
	}
}

func TestExtractBalance(t *testing.T) {
	x := testExtractor(SourceEvent{
		Day:      MustParse("2023-02-01"),
		Category: CategoryBalance,
		Amount:   A(2000, "USD"),
		Meta:     Metadata{"document": "statement.pdf"},
	})
	directives, _ := mustExtract(t, x, nil)
	b := directives[0].(Balance)
	if b.Account != x.Accounts.Cash() || !b.Amount.Equal(A(2000, "USD")) {
		t.Errorf("balance = %+v", b)
	}
	if b.Meta["document"] != "statement.pdf" {
		t.Errorf("meta = %v", b.Meta)
	}
}

func TestExtractDividendWithWithholding(t *testing.T) {
	x := testExtractor(
		SourceEvent{ID: "r1", Day: MustParse("2023-03-15"), Category: CategoryDividend, Security: "VTI", Amount: A(100, "USD")},
		SourceEvent{ID: "r2", Day: MustParse("2023-03-15"), Category: CategoryWithholding, Security: "VTI", Amount: A(-15, "USD")},
	)
	directives, report := mustExtract(t, x, nil)
	if len(report.Unmatched) != 0 {
		t.Fatalf("unmatched = %v, want none", report.Unmatched)
	}
	if len(directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(directives))
	}

	tx := directives[0].(Transaction)
	cash := findPosting(t, tx.Postings, x.Accounts.Cash())
	if !cash.Units.Equal(A(85, "USD")) {
		t.Errorf("net cash = %s, want 85 USD", cash.Units)
	}
	tax := findPosting(t, tx.Postings, x.Accounts.Tax)
	if !tax.Units.Equal(A(15, "USD")) {
		t.Errorf("tax = %s, want 15 USD", tax.Units)
	}
}

func TestExtractRefundCorrectionOnce(t *testing.T) {
	accounts := testAccounts()
	payee := "Test Broker"
	existing := NewLedger()
	existing.Append(NewTransaction(MustParse("2023-03-15"), payee, dividendNarration("VTI"),
		P(accounts.Cash(), A(85, "USD")),
		P(accounts.Dividends("VTI"), A(-100, "USD")),
		P(accounts.Tax, A(15, "USD")),
	))

	// A statement carrying a refund of last year's tax and its replacement.
	x := testExtractor(
		SourceEvent{ID: "wt-r", Day: MustParse("2024-02-01"), Category: CategoryWithholding, Security: "VTI", Amount: A(15, "USD")},
		SourceEvent{ID: "wt-n", Day: MustParse("2024-02-01"), Category: CategoryWithholding, Security: "VTI", Amount: A(-12, "USD")},
	)
	directives, _ := mustExtract(t, x, existing)
	if len(directives) != 1 {
		t.Fatalf("directives = %d, want 1 correction", len(directives))
	}
	correction := directives[0].(Transaction)
	if correction.SourceID() != "wt-r" {
		t.Errorf("source id = %q, want the refund row id wt-r", correction.SourceID())
	}
	existing.Append(directives...)

	// Importing the same statement again must not pair the refund against
	// the still-present original dividend a second time.
	directives, report := mustExtract(t, x, existing)
	if len(directives) != 0 {
		t.Fatalf("second import directives = %v, want none", directives)
	}
	if report.Skipped != 1 {
		t.Errorf("skipped = %d, want the refund row", report.Skipped)
	}
}

func TestExtractOrderIgnoresDatelessRows(t *testing.T) {
	// An oldest-first statement ending with a dateless row must not be
	// mistaken for a newest-first export.
	x := testExtractor(
		SourceEvent{ID: "r1", Day: MustParse("2023-01-03"), Category: CategoryAccruedInterest, Amount: A(5, "EUR")},
		SourceEvent{ID: "r2", Day: MustParse("2023-01-10"), Category: CategoryDeposit, Amount: A(1000, "EUR")},
		SourceEvent{ID: "r3", Category: CategoryAccruedInterest, Amount: A(1, "EUR")},
	)
	directives, _ := mustExtract(t, x, nil)
	if len(directives) != 3 {
		t.Fatalf("directives = %d, want summary, deposit, summary", len(directives))
	}
	first := directives[0].(Transaction)
	if first.Narration != "Summary" || first.Day != MustParse("2023-01-10") {
		t.Fatalf("first = %q on %s, want Summary on 2023-01-10", first.Narration, first.Day)
	}
	interest := findPosting(t, first.Postings, x.Accounts.Interests())
	if !interest.Units.Equal(A(-5, "EUR")) {
		t.Errorf("interest = %s, want the dated accrual only", interest.Units)
	}
	if directives[1].(Transaction).Narration != "Deposit" {
		t.Errorf("second = %q, want the deposit", directives[1].(Transaction).Narration)
	}
}

func TestExtractSellMismatchReported(t *testing.T) {
	accounts := testAccounts()
	existing := NewLedger()
	existing.Append(buyTx(t, accounts, "b1", "2023-01-01", "VTI", 10, 100, "USD"))

	x := testExtractor(SourceEvent{
		ID:       "s1",
		Day:      MustParse("2023-02-01"),
		Category: CategorySell,
		Security: "VTI",
		Units:    Q(-15),
		Amount:   A(1650, "USD"),
		Price:    A(110, "USD"),
	})
	directives, report := mustExtract(t, x, existing)
	if len(directives) != 1 {
		t.Fatalf("directives = %d, want the partial sale", len(directives))
	}
	if len(report.Mismatches) != 1 {
		t.Fatalf("mismatches = %d, want 1", len(report.Mismatches))
	}
	if !report.Mismatches[0].Shortfall.Equal(Q(5)) {
		t.Errorf("shortfall = %s, want 5", report.Mismatches[0].Shortfall)
	}
}

func TestExtractBuyWithoutRateSource(t *testing.T) {
	x := testExtractor(SourceEvent{
		ID:       "b1",
		Day:      MustParse("2023-01-01"),
		Category: CategoryBuy,
		Security: "VT",
		Units:    Q(10),
		Amount:   A(-900, "EUR"),
		Price:    A(90, "EUR"),
	})
	directives, report := mustExtract(t, x, nil)
	if len(directives) != 0 {
		t.Errorf("directives = %d, want none", len(directives))
	}
	if len(report.RowErrors) != 1 {
		t.Fatalf("row errors = %d, want 1", len(report.RowErrors))
	}
}

func TestExtractFxExchange(t *testing.T) {
	rate := A(1.08, "USD")
	x := testExtractor(SourceEvent{
		ID:         "fx1",
		Day:        MustParse("2023-01-01"),
		Category:   CategoryFx,
		Security:   "EUR.USD",
		Units:      Q(-1000),
		Amount:     A(1080, "USD"),
		Price:      rate,
		Commission: A(-2, "USD"),
	})
	directives, _ := mustExtract(t, x, nil)
	tx := directives[0].(Transaction)
	if tx.Narration != "FX Exchange EUR.USD" {
		t.Errorf("narration = %q", tx.Narration)
	}
	if len(tx.Postings) != 4 {
		t.Fatalf("postings = %d, want 4", len(tx.Postings))
	}
	source := tx.Postings[0]
	if !source.Units.Equal(A(-1000, "EUR")) {
		t.Errorf("source leg = %s, want -1000 EUR", source.Units)
	}
	if source.Price == nil || !source.Price.Equal(rate) {
		t.Errorf("source price = %v, want 1.08 USD", source.Price)
	}
	fee := findPosting(t, tx.Postings, x.Accounts.Fees)
	if !fee.Units.Equal(A(2, "USD")) {
		t.Errorf("fee = %s, want 2 USD", fee.Units)
	}
}

func TestExtractInvalidConfiguration(t *testing.T) {
	x := testExtractor()
	x.Base = "XQZ"
	if _, _, err := x.Extract("statement.csv", nil, nil); err == nil {
		t.Error("want an error for an unknown base currency")
	}

	x = testExtractor()
	x.Accounts.Parent = ""
	if _, _, err := x.Extract("statement.csv", nil, nil); err == nil {
		t.Error("want an error for a missing parent account")
	}
}
