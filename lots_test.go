package bookkeeper

import "testing"

func lot(day string, units float64, cost float64) costLot {
	return costLot{day: MustParse(day), units: Q(units), cost: A(cost, "USD")}
}

func TestConsume(t *testing.T) {
	inventory := lots{
		lot("2023-01-01", 10, 100),
		lot("2023-02-01", 10, 120),
	}

	tests := []struct {
		name          string
		sell          float64
		wantRemaining []float64 // units left per surviving lot
		wantSold      []float64 // units per sold lot
		wantShort     float64
	}{
		{name: "exact first lot", sell: -10, wantRemaining: []float64{10}, wantSold: []float64{10}},
		{name: "partial first lot", sell: -4, wantRemaining: []float64{6, 10}, wantSold: []float64{4}},
		{name: "across lots", sell: -15, wantRemaining: []float64{5}, wantSold: []float64{10, 5}},
		{name: "exact everything", sell: -20, wantRemaining: []float64{}, wantSold: []float64{10, 10}},
		{name: "more than held", sell: -25, wantRemaining: []float64{}, wantSold: []float64{10, 10}, wantShort: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			remaining, sold, short := inventory.consume(costLot{day: MustParse("2023-03-01"), units: Q(tc.sell)})

			if len(remaining) != len(tc.wantRemaining) {
				t.Fatalf("remaining lots = %d, want %d", len(remaining), len(tc.wantRemaining))
			}
			for i, want := range tc.wantRemaining {
				if !remaining[i].units.Equal(Q(want)) {
					t.Errorf("remaining[%d].units = %s, want %v", i, remaining[i].units, want)
				}
			}
			if len(sold) != len(tc.wantSold) {
				t.Fatalf("sold lots = %d, want %d", len(sold), len(tc.wantSold))
			}
			for i, want := range tc.wantSold {
				if !sold[i].units.Equal(Q(want)) {
					t.Errorf("sold[%d].units = %s, want %v", i, sold[i].units, want)
				}
			}
			if !short.Equal(Q(tc.wantShort)) {
				t.Errorf("short = %s, want %v", short, tc.wantShort)
			}
		})
	}
}

func TestConsumeKeepsCostAndDate(t *testing.T) {
	inventory := lots{lot("2023-01-01", 10, 100), lot("2023-02-01", 10, 120)}
	_, sold, _ := inventory.consume(costLot{day: MustParse("2023-03-01"), units: Q(-15)})

	if !sold[0].cost.Equal(A(100, "USD")) || sold[0].day != MustParse("2023-01-01") {
		t.Errorf("first sold lot = %+v, want 10 units at 100 USD from 2023-01-01", sold[0])
	}
	if !sold[1].cost.Equal(A(120, "USD")) || sold[1].day != MustParse("2023-02-01") {
		t.Errorf("second sold lot = %+v, want 5 units at 120 USD from 2023-02-01", sold[1])
	}
}

func TestConsumeDoesNotMutateInventory(t *testing.T) {
	inventory := lots{lot("2023-01-01", 10, 100)}
	inventory.consume(costLot{day: MustParse("2023-03-01"), units: Q(-4)})
	if !inventory[0].units.Equal(Q(10)) {
		t.Errorf("inventory mutated: units = %s, want 10", inventory[0].units)
	}
}

func TestSortByDateIsStable(t *testing.T) {
	l := lots{
		{id: "a", day: MustParse("2023-02-01")},
		{id: "b", day: MustParse("2023-01-01")},
		{id: "c", day: MustParse("2023-02-01")},
	}
	l.sortByDate()
	if l[0].id != "b" || l[1].id != "a" || l[2].id != "c" {
		t.Errorf("order = %s %s %s, want b a c", l[0].id, l[1].id, l[2].id)
	}
}
