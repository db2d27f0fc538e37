// Package routing computes distances between nodes and derives the shipping
// tier, delivery estimate, cost and settlement currency of an order.
//
// Distances carry their unit. Interplanetary separations are measured in AU.
// Once a separation reaches one light-year it is reported in light-years and
// always routed through a wormhole gate; the per-unit formulas below apply to
// the value in whichever unit the distance carries.
package routing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tradecore/model"
)

// Tier thresholds in AU for interplanetary distances.
const (
	LocalRocketMaxAU = 10.0
	FusionDriveMaxAU = 100.0
)

// DefaultShippingRate is the surcharge per distance unit.
var DefaultShippingRate = decimal.NewFromInt(50)

// UniversalCurrency settles trades that cross economic zones.
const UniversalCurrency = "UCR"

var zoneCurrency = map[model.Zone]string{
	model.ZoneSolInner: "SOL",
	model.ZoneSolOuter: "BELT",
	model.ZoneCentauri: "CEN",
	model.ZoneBarnard:  "BRN",
	model.ZoneFrontier: "FRT",
}

// Distance returns the Euclidean distance between a and b.
// Two interplanetary positions are measured in AU, switching to light-years
// once the separation reaches one light-year. Any route touching an
// interstellar position is measured in light-years, however short.
func Distance(a, b model.Position) model.Distance {
	if a.Unit == model.Interplanetary && b.Unit == model.Interplanetary {
		d := norm(a.X-b.X, a.Y-b.Y, a.Z-b.Z)
		if d/model.AUPerLightYear >= 1 {
			return model.Distance{Value: d / model.AUPerLightYear, Unit: model.Interstellar}
		}
		return model.Distance{Value: d, Unit: model.Interplanetary}
	}
	ax, ay, az := a.InLightYears()
	bx, by, bz := b.InLightYears()
	return model.Distance{Value: norm(ax-bx, ay-by, az-bz), Unit: model.Interstellar}
}

func norm(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// SelectTier maps a distance to its shipping tier.
func SelectTier(d model.Distance) model.ShippingTier {
	if d.Unit == model.Interstellar {
		return model.TierWormholeGate
	}
	switch {
	case d.Value < LocalRocketMaxAU:
		return model.TierLocalRocket
	case d.Value < FusionDriveMaxAU:
		return model.TierFusionDrive
	default:
		return model.TierQuantumTransport
	}
}

// EstimateDeliveryDays returns the transit time in whole days, at least one.
func EstimateDeliveryDays(d model.Distance, tier model.ShippingTier) int {
	var days float64
	switch tier {
	case model.TierWormholeGate:
		days = d.Value * 365 * 0.1
	case model.TierQuantumTransport:
		days = d.Value * 30
	case model.TierFusionDrive:
		days = d.Value * 7
	default:
		days = d.Value * 2
	}
	n := int(math.Ceil(days))
	if n < 1 {
		return 1
	}
	return n
}

// EstimateCost sums universal price × quantity and adds the distance surcharge.
func EstimateCost(items []model.LineItem, d model.Distance, rate decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UniversalPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Add(decimal.NewFromFloat(d.Value).Mul(rate))
}

// SelectCurrency returns the zone currency when both sides share a zone and
// the universal currency otherwise.
func SelectCurrency(origin, destination model.Zone) string {
	if origin == destination {
		if c, ok := zoneCurrency[origin]; ok {
			return c
		}
	}
	return UniversalCurrency
}

// Quote is everything the order manager derives from a pair of nodes.
type Quote struct {
	Distance          model.Distance
	Tier              model.ShippingTier
	Days              int
	EstimatedDelivery time.Time
	Cost              decimal.Decimal
	Currency          string
}

// Router prices shipments at a fixed rate per distance unit.
type Router struct {
	rate decimal.Decimal
}

// NewRouter creates a router. A non-positive rate falls back to DefaultShippingRate.
func NewRouter(rate decimal.Decimal) *Router {
	if !rate.IsPositive() {
		rate = DefaultShippingRate
	}
	return &Router{rate: rate}
}

// Rate returns the shipping surcharge per distance unit.
func (r *Router) Rate() decimal.Decimal { return r.rate }

// Quote derives tier, ETA, cost and currency for shipping items from origin
// to destination, starting at the given time.
func (r *Router) Quote(origin, destination model.Node, items []model.LineItem, at time.Time) Quote {
	d := Distance(origin.Position, destination.Position)
	tier := SelectTier(d)
	days := EstimateDeliveryDays(d, tier)
	return Quote{
		Distance:          d,
		Tier:              tier,
		Days:              days,
		EstimatedDelivery: at.AddDate(0, 0, days),
		Cost:              EstimateCost(items, d, r.rate),
		Currency:          SelectCurrency(origin.Zone, destination.Zone),
	}
}
