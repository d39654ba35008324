package seating

import "testing"

func TestPrice_TierSteps(t *testing.T) {
	for _, base := range []int64{0, 150, 200, 999} {
		std, prem, vip := Price(base, Standard), Price(base, Premium), Price(base, VIP)
		if std != base {
			t.Fatalf("base %d: standard price %d", base, std)
		}
		if prem-std != 100 || vip-prem != 100 {
			t.Fatalf("base %d: unexpected steps %d/%d/%d", base, std, prem, vip)
		}
	}
}

func TestTotal_MixedTiers(t *testing.T) {
	l := NewLayout(MaxSeats)
	var seats []Seat
	for _, label := range []string{"A1", "D2", "I3"} {
		s, ok := l.Lookup(label)
		if !ok {
			t.Fatalf("seat %s missing from layout", label)
		}
		seats = append(seats, s)
	}
	if got := Total(200, seats); got != 900 {
		t.Fatalf("expected total 900, got %d", got)
	}
}

func TestPriceTable(t *testing.T) {
	pt := PriceTable(250)
	if pt["standard"] != 250 || pt["premium"] != 350 || pt["vip"] != 450 {
		t.Fatalf("unexpected table: %+v", pt)
	}
}
