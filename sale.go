package bookkeeper

import (
	"github.com/shopspring/decimal"
)

// SellRequest describes one disposal taken from a statement.
type SellRequest struct {
	ID         string          // statement row identifier
	Day        Date            // settlement date
	Security   string          // ticker
	Units      Quantity        // units sold, positive
	Proceeds   Amount          // gross proceeds in the trade currency
	Price      Amount          // per-unit sale price in the trade currency
	Commission Amount          // commission in its own currency, negative or zero
	FxRate     decimal.Decimal // trade currency to base currency rate; 1 when the trade is in base
}

// rebuildInventory replays all recorded activity on one security account and
// returns the open FIFO inventory as of day. The replay walks the existing
// ledger first, then the directives produced earlier in the current batch,
// skipping the transaction identified by excludeID (the sale under
// construction) and any row id it has already seen.
func rebuildInventory(existing *Ledger, batch []Directive, accounts AccountMap, security string, day Date, excludeID string) lots {
	account := accounts.Security(security)
	seen := make(map[string]bool)
	var buys, sells lots

	collect := func(tx Transaction) {
		if tx.Day.After(day) {
			return
		}
		id := tx.SourceID()
		if id != "" {
			if id == excludeID || seen[id] {
				return
			}
			seen[id] = true
		}
		for _, p := range tx.Postings {
			if p.Account != account {
				continue
			}
			lot := costLot{id: id, day: tx.Day, units: p.Units.Quantity()}
			if p.Cost != nil {
				lot.cost = p.Cost.PerUnit
			}
			if lot.units.IsPositive() {
				buys = append(buys, lot)
			} else if lot.units.IsNegative() {
				sells = append(sells, lot)
			}
		}
	}

	for _, tx := range existing.Transactions() {
		collect(tx)
	}
	for _, d := range batch {
		if tx, ok := d.(Transaction); ok {
			collect(tx)
		}
	}

	buys.sortByDate()
	sells.sortByDate()

	// Fold the recorded disposals into the acquisitions. Shortfalls here were
	// already reported when the disposal was first imported.
	for _, sale := range sells {
		buys, _, _ = buys.consume(sale)
	}
	return buys
}

// sellPostings builds the posting legs of a sale: net cash in, the realized
// profit and loss in the base currency, the commission expense, and one
// reducing leg per consumed lot carrying its original cost and the sale
// price. When the inventory cannot cover the sale, the available lots are
// still posted and a MismatchWarning is returned alongside.
func sellPostings(existing *Ledger, batch []Directive, accounts AccountMap, base string, req SellRequest) ([]Posting, *MismatchWarning) {
	inventory := rebuildInventory(existing, batch, accounts, req.Security, req.Day, req.ID)

	_, sold, short := inventory.consume(costLot{id: req.ID, day: req.Day, units: req.Units.Neg()})

	// Realized result in the base currency: acquisition cost of the sold lots
	// less the gross proceeds converted at the trade rate.
	lotCost := A(0, base)
	for _, lot := range sold {
		lotCost = lotCost.Add(lot.cost.Mul(lot.units))
	}
	proceeds := req.Proceeds.Convert(req.FxRate, base)

	// Net cash received: gross proceeds less commission, in the trade currency.
	cash := req.Proceeds
	if !req.Commission.IsZero() && req.Commission.Currency() == req.Proceeds.Currency() {
		cash = cash.Add(req.Commission)
	}

	postings := []Posting{
		P(accounts.Cash(), cash),
		P(accounts.PnL(req.Security), lotCost.Sub(proceeds)),
	}
	if !req.Commission.IsZero() {
		postings = append(postings, P(accounts.Fees, req.Commission.Neg()))
	}

	// One reducing leg per consumed lot, keeping the acquisition basis.
	account := accounts.Security(req.Security)
	price := req.Price
	for _, lot := range sold {
		cost := Cost{PerUnit: lot.cost, Day: lot.day}
		postings = append(postings, Posting{
			Account: account,
			Units:   A(lot.units.Neg().Decimal(), req.Security),
			Cost:    &cost,
			Price:   &price,
		})
	}

	if !short.IsZero() {
		return postings, &MismatchWarning{
			Security:  req.Security,
			Day:       req.Day,
			Requested: req.Units,
			Shortfall: short,
		}
	}
	return postings, nil
}
