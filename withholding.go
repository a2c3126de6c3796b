package bookkeeper

import (
	"strings"

	"github.com/samber/lo"
)

// WithholdingTax is one withholding-tax statement row, held back from the
// batch until a dividend claims it.
type WithholdingTax struct {
	ID       string // stable statement row identifier
	Security string
	Day      Date
	Amount   Amount // negative when tax was withheld, positive for a refund
	Matched  bool
	Meta     Metadata
}

const dividendPrefix = "Dividends "

func dividendNarration(security string) string { return dividendPrefix + security }

// dividendSecurity extracts the security ticker from a dividend narration,
// or "" when the narration is not one.
func dividendSecurity(narration string) string {
	if !strings.HasPrefix(narration, dividendPrefix) {
		return ""
	}
	return strings.TrimPrefix(narration, dividendPrefix)
}

// reconcileWithholding folds withholding-tax rows into the dividend
// transactions of the batch.
//
// The first pass matches each dividend to a tax row by security and date and
// rewrites the dividend in place: the cash leg is netted down by the tax and
// a tax leg is added. A tax row claimed twice is a hard DoubleMatchError.
//
// The second pass pairs a refund row (positive) with a replacement row
// (negative) of the same security among the rows nothing claimed, locates the
// previously recorded dividend whose tax leg the refund reverses, and appends
// a correcting transaction dated at the refund row. The original payout date
// is preserved as effective_date metadata on the tax leg.
//
// Rows still unmatched after both passes are returned for the report; they
// are not an error.
func reconcileWithholding(entries []Directive, existing *Ledger, accounts AccountMap, payee string, taxes []WithholdingTax) ([]Directive, []UnmatchedTax, error) {
	// Pass 1: direct match on security and date.
	for i, d := range entries {
		tx, ok := d.(Transaction)
		if !ok {
			continue
		}
		security := dividendSecurity(tx.Narration)
		if security == "" {
			continue
		}
		for j := range taxes {
			tax := &taxes[j]
			if tax.Security != security || tax.Day != tx.Day {
				continue
			}
			if tax.Matched {
				return entries, nil, DoubleMatchError{Security: security, Day: tx.Day}
			}
			tax.Matched = true

			// Rewrite the dividend: net cash, original income leg, tax leg.
			netCash := tax.Amount.Add(tx.Postings[0].Units)
			rewritten := tx
			rewritten.Postings = []Posting{
				P(accounts.Cash(), netCash),
				tx.Postings[1],
				P(accounts.Tax, tax.Amount.Neg()),
			}
			entries[i] = rewritten
			break
		}
	}

	// Pass 2: refund and replacement pairs.
	for i := range taxes {
		refund := &taxes[i]
		if refund.Matched || !refund.Amount.IsPositive() {
			continue
		}
		for j := range taxes {
			replacement := &taxes[j]
			if i == j || replacement.Matched || replacement.Security != refund.Security || !replacement.Amount.IsNegative() {
				continue
			}
			payout, found := originalPayoutDate(entries, existing, accounts, refund.Security, refund.Amount)
			if !found {
				continue
			}

			net := refund.Amount.Add(replacement.Amount)
			correction := Transaction{
				Day:       refund.Day,
				Flag:      "*",
				Payee:     payee,
				Narration: dividendNarration(refund.Security),
				Meta:      refund.Meta,
				Postings: []Posting{
					P(accounts.Cash(), net),
					P(accounts.Dividends(refund.Security), A(0, refund.Amount.Currency())),
					{
						Account: accounts.Tax,
						Units:   net.Neg(),
						Meta:    Metadata{MetaEffectiveDate: payout.String()},
					},
				},
			}
			// The correction records the refund row's identifier so that
			// re-importing the statement skips the row instead of pairing it
			// again against the still-present original dividend.
			if refund.ID != "" {
				correction = correction.WithMeta(MetaSourceID, refund.ID)
			}
			entries = append(entries, correction)
			refund.Matched = true
			replacement.Matched = true
			break
		}
	}

	unmatched := lo.FilterMap(taxes, func(t WithholdingTax, _ int) (UnmatchedTax, bool) {
		return UnmatchedTax{Security: t.Security, Day: t.Day, Amount: t.Amount}, !t.Matched
	})
	return entries, unmatched, nil
}

// originalPayoutDate finds the dividend, in the current batch or the existing
// ledger, whose withholding-tax leg the refund amount exactly reverses, and
// returns its payout date.
func originalPayoutDate(entries []Directive, existing *Ledger, accounts AccountMap, security string, refund Amount) (Date, bool) {
	match := func(tx Transaction) (Date, bool) {
		if dividendSecurity(tx.Narration) != security {
			return Date{}, false
		}
		for _, p := range tx.Postings {
			if p.Account == accounts.Tax && p.Units.Equal(refund) {
				return tx.Day, true
			}
		}
		return Date{}, false
	}

	for _, d := range entries {
		if tx, ok := d.(Transaction); ok {
			if day, ok := match(tx); ok {
				return day, true
			}
		}
	}
	for _, tx := range existing.Transactions() {
		if day, ok := match(tx); ok {
			return day, true
		}
	}
	return Date{}, false
}
