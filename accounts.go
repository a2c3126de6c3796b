package bookkeeper

import (
	"errors"
	"fmt"
	"strings"
)

// AccountMap names the bookkeeping accounts an extraction run posts to.
// There is no default map: every caller states its accounts explicitly.
type AccountMap struct {
	Parent   string // asset parent, e.g. "Assets:Invest:IB"; cash and security accounts hang below it
	Income   string // income parent, e.g. "Income:Invest:IB"
	Tax      string // withholding-tax account, e.g. "Expenses:Invest:Tax"
	Fees     string // fee account, e.g. "Expenses:Invest:Fees"
	External string // optional counterpart of deposits and withdrawals, e.g. "Assets:Bank:Checking"
}

// Cash returns the account holding the brokerage cash balance.
func (a AccountMap) Cash() string { return a.Parent + ":Cash" }

// Security returns the sub-account holding units of the given security.
func (a AccountMap) Security(ticker string) string { return a.Parent + ":" + ticker }

// Dividends returns the dividend income account for a security.
func (a AccountMap) Dividends(security string) string { return a.Income + ":" + security + ":Dividends" }

// PnL returns the realized profit-and-loss account for a security.
func (a AccountMap) PnL(security string) string { return a.Income + ":" + security + ":PnL" }

// Interests returns the broker interest income account.
func (a AccountMap) Interests() string { return a.Income + ":Interests" }

// Loans returns the asset account holding outstanding loan principal, used
// by platforms that report principal movements instead of security trades.
func (a AccountMap) Loans() string { return a.Parent + ":Loans" }

// Validate checks that every required account name is present and well-formed.
// External may be empty: deposits and withdrawals are then recorded single-legged.
func (a AccountMap) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"parent": a.Parent,
		"income": a.Income,
		"tax":    a.Tax,
		"fees":   a.Fees,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("account %q is not set", name))
		}
	}
	for name, v := range map[string]string{
		"parent":   a.Parent,
		"income":   a.Income,
		"tax":      a.Tax,
		"fees":     a.Fees,
		"external": a.External,
	} {
		if strings.HasSuffix(v, ":") {
			errs = append(errs, fmt.Errorf("account %q must not end with ':'", name))
		}
	}
	return errors.Join(errs...)
}
