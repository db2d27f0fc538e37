package routing

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradecore/model"
)

func au(x, y, z float64) model.Position {
	return model.Position{X: x, Y: y, Z: z, Unit: model.Interplanetary}
}

func ly(x, y, z float64) model.Position {
	return model.Position{X: x, Y: y, Z: z, Unit: model.Interstellar}
}

func TestDistanceSymmetry(t *testing.T) {
	positions := []model.Position{
		au(0, 0, 0), au(1, 0, 0), au(1.52, 0.3, -0.1), au(9.5, 2, 0.4),
		ly(4.24, 0, 0), ly(5.96, 1.1, -0.3), ly(0.2, 0, 0),
	}
	for i, a := range positions {
		for j, b := range positions {
			ab := Distance(a, b)
			ba := Distance(b, a)
			if ab != ba {
				t.Errorf("Distance(%d,%d) = %+v, Distance(%d,%d) = %+v", i, j, ab, j, i, ba)
			}
			if ab.Value < 0 {
				t.Errorf("Distance(%d,%d) = %v, want non-negative", i, j, ab.Value)
			}
		}
	}
}

func TestDistanceUnits(t *testing.T) {
	d := Distance(au(0, 0, 0), au(3, 4, 0))
	if d.Unit != model.Interplanetary || d.Value != 5 {
		t.Errorf("Distance = %+v, want 5 AU", d)
	}

	d = Distance(ly(0, 0, 0), ly(4.24, 0, 0))
	if d.Unit != model.Interstellar || math.Abs(d.Value-4.24) > 1e-9 {
		t.Errorf("Distance = %+v, want 4.24 ly", d)
	}

	// Half a light-year between interstellar nodes stays in light-years.
	d = Distance(ly(0, 0, 0), ly(0.5, 0, 0))
	if d.Unit != model.Interstellar || math.Abs(d.Value-0.5) > 1e-9 {
		t.Errorf("Distance = %+v, want 0.5 ly", d)
	}

	// Far-apart interplanetary coordinates switch to light-years.
	d = Distance(au(0, 0, 0), au(2*model.AUPerLightYear, 0, 0))
	if d.Unit != model.Interstellar || math.Abs(d.Value-2) > 1e-9 {
		t.Errorf("Distance = %+v, want 2 ly", d)
	}

	// Mixed units: Earth to Proxima.
	d = Distance(au(1, 0, 0), ly(4.24, 0, 0))
	if d.Unit != model.Interstellar {
		t.Errorf("unit = %q, want %q", d.Unit, model.Interstellar)
	}
	want := 4.24 - 1/model.AUPerLightYear
	if math.Abs(d.Value-want) > 1e-9 {
		t.Errorf("value = %v, want %v", d.Value, want)
	}
}

func TestSelectTier(t *testing.T) {
	tests := []struct {
		d    model.Distance
		want model.ShippingTier
	}{
		{model.Distance{Value: 0, Unit: model.Interplanetary}, model.TierLocalRocket},
		{model.Distance{Value: 9.99, Unit: model.Interplanetary}, model.TierLocalRocket},
		{model.Distance{Value: 10, Unit: model.Interplanetary}, model.TierFusionDrive},
		{model.Distance{Value: 99.9, Unit: model.Interplanetary}, model.TierFusionDrive},
		{model.Distance{Value: 100, Unit: model.Interplanetary}, model.TierQuantumTransport},
		{model.Distance{Value: 60000, Unit: model.Interplanetary}, model.TierQuantumTransport},
		{model.Distance{Value: 1, Unit: model.Interstellar}, model.TierWormholeGate},
		{model.Distance{Value: 4.24, Unit: model.Interstellar}, model.TierWormholeGate},
	}
	for _, tt := range tests {
		if got := SelectTier(tt.d); got != tt.want {
			t.Errorf("SelectTier(%+v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTierMonotonicity(t *testing.T) {
	origin := au(0, 0, 0)
	prev := 0
	// Walk outward from 0.1 AU to ~20 ly on a geometric scale.
	for x := 0.1; x < 20*model.AUPerLightYear; x *= 1.3 {
		tier := SelectTier(Distance(origin, au(x, 0, 0)))
		if tier.Rank() < prev {
			t.Fatalf("tier at %v AU = %q (rank %d), previous rank %d", x, tier, tier.Rank(), prev)
		}
		prev = tier.Rank()
	}
	if prev != model.TierWormholeGate.Rank() {
		t.Errorf("final rank = %d, want wormhole", prev)
	}
}

func TestEstimateDeliveryDays(t *testing.T) {
	tests := []struct {
		d    model.Distance
		tier model.ShippingTier
		want int
	}{
		{model.Distance{Value: 1.5}, model.TierLocalRocket, 3},
		{model.Distance{Value: 12}, model.TierFusionDrive, 84},
		{model.Distance{Value: 100}, model.TierQuantumTransport, 3000},
		{model.Distance{Value: 4.24, Unit: model.Interstellar}, model.TierWormholeGate, 155},
		{model.Distance{Value: 0}, model.TierLocalRocket, 1},
	}
	for _, tt := range tests {
		if got := EstimateDeliveryDays(tt.d, tt.tier); got != tt.want {
			t.Errorf("EstimateDeliveryDays(%v, %s) = %d, want %d", tt.d.Value, tt.tier, got, tt.want)
		}
	}
}

func TestDeliveryDaysPositive(t *testing.T) {
	for _, v := range []float64{1e-12, 1e-6, 0.01, 0.4, 3, 55, 700, 1, 8.6} {
		for _, unit := range []model.Unit{model.Interplanetary, model.Interstellar} {
			d := model.Distance{Value: v, Unit: unit}
			if got := EstimateDeliveryDays(d, SelectTier(d)); got < 1 {
				t.Errorf("EstimateDeliveryDays(%v %s) = %d, want >= 1", v, unit, got)
			}
		}
	}
}

func TestEstimateCost(t *testing.T) {
	items := []model.LineItem{
		{ProductID: "ore", Quantity: 3, UniversalPrice: decimal.NewFromInt(10)},
		{ProductID: "ice", Quantity: 2, UniversalPrice: decimal.RequireFromString("2.5")},
	}
	d := model.Distance{Value: 2, Unit: model.Interplanetary}
	got := EstimateCost(items, d, decimal.NewFromInt(50))
	want := decimal.NewFromInt(135)
	if !got.Equal(want) {
		t.Errorf("cost = %s, want %s", got, want)
	}
}

func TestCostAdditivity(t *testing.T) {
	d := model.Distance{Value: 1.5, Unit: model.Interplanetary}
	prev := decimal.Zero
	for q := 1; q <= 20; q++ {
		items := []model.LineItem{{ProductID: "ore", Quantity: q, UniversalPrice: decimal.NewFromInt(7)}}
		cost := EstimateCost(items, d, DefaultShippingRate)
		if q > 1 && !cost.GreaterThan(prev) {
			t.Fatalf("cost at qty %d = %s, not greater than %s", q, cost, prev)
		}
		prev = cost
	}
}

func TestSelectCurrency(t *testing.T) {
	if got := SelectCurrency(model.ZoneSolInner, model.ZoneSolInner); got != "SOL" {
		t.Errorf("same zone = %q, want SOL", got)
	}
	if got := SelectCurrency(model.ZoneSolInner, model.ZoneCentauri); got != UniversalCurrency {
		t.Errorf("cross zone = %q, want %q", got, UniversalCurrency)
	}
	for _, z := range model.Zones {
		if got := SelectCurrency(z, z); got == UniversalCurrency {
			t.Errorf("zone %q has no designated currency", z)
		}
	}
}

func TestRouterQuote(t *testing.T) {
	earth := model.Node{ID: "earth", Position: au(1, 0, 0), Zone: model.ZoneSolInner}
	mars := model.Node{ID: "mars", Position: au(1.5, 0, 0), Zone: model.ZoneSolInner}
	items := []model.LineItem{{ProductID: "water", Quantity: 3, UniversalPrice: decimal.NewFromInt(10)}}

	r := NewRouter(decimal.Zero)
	if !r.Rate().Equal(DefaultShippingRate) {
		t.Fatalf("rate = %s, want default", r.Rate())
	}
	at := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	q := r.Quote(earth, mars, items, at)
	if q.Tier != model.TierLocalRocket {
		t.Errorf("tier = %q", q.Tier)
	}
	if q.Days != 1 {
		t.Errorf("days = %d, want 1", q.Days)
	}
	if !q.EstimatedDelivery.Equal(at.AddDate(0, 0, 1)) {
		t.Errorf("eta = %v", q.EstimatedDelivery)
	}
	if !q.Cost.Equal(decimal.NewFromInt(55)) {
		t.Errorf("cost = %s, want 55", q.Cost)
	}
	if q.Currency != "SOL" {
		t.Errorf("currency = %q", q.Currency)
	}
}

func TestShortInterstellarHop(t *testing.T) {
	proxima := model.Node{ID: "proxima-b", Position: ly(-1.55, -1.18, -3.77), Zone: model.ZoneCentauri}
	centauri := model.Node{ID: "centauri-a", Position: ly(-1.64, -1.37, -3.84), Zone: model.ZoneCentauri}
	earth := model.Node{ID: "earth", Position: au(1, 0, 0), Zone: model.ZoneSolInner}
	at := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRouter(DefaultShippingRate)

	q := r.Quote(proxima, centauri, nil, at)
	want := math.Sqrt(0.09*0.09 + 0.19*0.19 + 0.07*0.07)
	if q.Distance.Unit != model.Interstellar || math.Abs(q.Distance.Value-want) > 1e-9 {
		t.Errorf("distance = %+v, want %v ly", q.Distance, want)
	}
	if q.Tier != model.TierWormholeGate {
		t.Errorf("tier = %q, want %q", q.Tier, model.TierWormholeGate)
	}
	if q.Days != 9 {
		t.Errorf("days = %d, want 9", q.Days)
	}
	if q.Currency != "CEN" {
		t.Errorf("currency = %q, want CEN", q.Currency)
	}

	long := r.Quote(earth, proxima, nil, at)
	if q.Days > long.Days {
		t.Errorf("proxima-b->centauri-a days = %d, more than earth->proxima-b %d", q.Days, long.Days)
	}
	if q.Cost.GreaterThan(long.Cost) {
		t.Errorf("proxima-b->centauri-a cost = %s, more than earth->proxima-b %s", q.Cost, long.Cost)
	}
}

func TestInterstellarDaysMonotonic(t *testing.T) {
	origin := ly(0, 0, 0)
	prev := 0
	for x := 0.001; x < 30; x *= 1.2 {
		d := Distance(origin, ly(x, 0, 0))
		days := EstimateDeliveryDays(d, SelectTier(d))
		if days < prev {
			t.Fatalf("days at %v ly = %d, previous %d", x, days, prev)
		}
		prev = days
	}
}
