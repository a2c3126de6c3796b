package bookkeeper

import "testing"

// testAccounts returns the account map used across the package tests.
func testAccounts() AccountMap {
	return AccountMap{
		Parent:   "Assets:Invest:IB",
		Income:   "Income:Invest:IB",
		Tax:      "Expenses:Invest:Tax",
		Fees:     "Expenses:Invest:Fees",
		External: "Assets:Bank:Checking",
	}
}

// buyTx builds a recorded acquisition the way the extraction pipeline does:
// cash out, security units in at cost, tagged with its statement row id.
func buyTx(t *testing.T, accounts AccountMap, id, day, security string, units int, costPerUnit float64, currency string) Transaction {
	t.Helper()
	d := MustParse(day)
	cost := Cost{PerUnit: A(costPerUnit, currency), Day: d}
	tx := NewTransaction(d, "Test Broker", "Buy "+security,
		P(accounts.Cash(), A(-float64(units)*costPerUnit, currency)),
		Posting{Account: accounts.Security(security), Units: A(units, security), Cost: &cost},
	)
	return tx.WithMeta(MetaSourceID, id)
}

// dividendTx builds a gross dividend the way the extraction pipeline does.
func dividendTx(t *testing.T, accounts AccountMap, id, day, security string, gross float64, currency string) Transaction {
	t.Helper()
	d := MustParse(day)
	tx := NewTransaction(d, "Test Broker", dividendNarration(security),
		P(accounts.Cash(), A(gross, currency)),
		P(accounts.Dividends(security), A(-gross, currency)),
	)
	return tx.WithMeta(MetaSourceID, id)
}

// findPosting returns the single posting on the given account, failing the
// test when it is absent or ambiguous.
func findPosting(t *testing.T, postings []Posting, account string) Posting {
	t.Helper()
	var found []Posting
	for _, p := range postings {
		if p.Account == account {
			found = append(found, p)
		}
	}
	if len(found) != 1 {
		t.Fatalf("want exactly one posting on %s, got %d in %v", account, len(found), postings)
	}
	return found[0]
}
