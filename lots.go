package bookkeeper

import (
	"slices"
	"sort"
)

// costLot is a number of units of one security acquired on one day at one
// per-unit cost. Inventories and disposals share the type: acquisitions carry
// positive units, disposals negative.
type costLot struct {
	id    string   // source id of the originating statement row
	day   Date
	units Quantity
	cost  Amount // per-unit acquisition cost, in the ledger base currency
}

// lots is a date-ordered security inventory.
type lots []costLot

// sortByDate orders lots chronologically; same-day lots keep their relative
// order so replaying a ledger is deterministic.
func (l lots) sortByDate() {
	sort.SliceStable(l, func(i, j int) bool { return l[i].day.Before(l[j].day) })
}

// totalUnits sums the units held across all lots.
func (l lots) totalUnits() Quantity {
	total := Q(0)
	for _, lot := range l {
		total = total.Add(lot.units)
	}
	return total
}

// consume applies one disposal to the inventory, oldest lot first. The sale
// carries negative units. It returns the surviving inventory, one sold lot
// per consumed (possibly partial) acquisition, and the shortfall: the units
// the sale requested beyond what the inventory held. A shortfall empties the
// inventory but is not an error; callers surface it as a warning.
func (l lots) consume(sale costLot) (remaining, sold lots, short Quantity) {
	remaining = slices.Clone(l)
	want := sale.units
	for len(remaining) > 0 && want.IsNegative() {
		lot := remaining[0]
		leftover := lot.units.Add(want)
		switch {
		case leftover.IsZero():
			// Exact match: the lot is fully consumed.
			sold = append(sold, lot)
			return remaining[1:], sold, Q(0)
		case leftover.IsPositive():
			// Partial match: the lot survives with the leftover units.
			consumed := lot
			consumed.units = want.Neg()
			sold = append(sold, consumed)
			remaining[0].units = leftover
			return remaining, sold, Q(0)
		default:
			// The lot is exhausted and the sale still has units to place.
			sold = append(sold, lot)
			remaining = remaining[1:]
			want = leftover
		}
	}
	if want.IsNegative() {
		return lots{}, sold, want.Neg()
	}
	return remaining, sold, Q(0)
}
