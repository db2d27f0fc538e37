package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusDelayed   OrderStatus = "delayed"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusDelayed:
		return true
	}
	return false
}

// validTransitions defines which status transitions are allowed.
// Delayed is an excursion that always returns to in_transit.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusInTransit, StatusDelayed},
	StatusInTransit: {StatusDelivered, StatusDelayed},
	StatusDelayed:   {StatusInTransit},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func IsTerminal(status OrderStatus) bool {
	return status == StatusDelivered
}

// ShippingTier is a distance-banded transport class.
type ShippingTier string

const (
	TierLocalRocket      ShippingTier = "local-rocket"
	TierFusionDrive      ShippingTier = "fusion-drive"
	TierQuantumTransport ShippingTier = "quantum-transport"
	TierWormholeGate     ShippingTier = "wormhole-gate"
)

// Rank orders tiers from cheapest/fastest-to-build to most exotic.
func (t ShippingTier) Rank() int {
	switch t {
	case TierLocalRocket:
		return 1
	case TierFusionDrive:
		return 2
	case TierQuantumTransport:
		return 3
	case TierWormholeGate:
		return 4
	}
	return 0
}

// Distance is a non-negative separation tagged with its unit.
// Interplanetary distances are in AU, interstellar ones in light-years.
type Distance struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// LineItem is one product line of an order.
type LineItem struct {
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	LocalPrice     decimal.Decimal `json:"local_price"`
	UniversalPrice decimal.Decimal `json:"universal_price"`
	Weight         float64         `json:"weight"`
	Volume         float64         `json:"volume"`
}

// LogEntry is one line of an order's communication log.
type LogEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	SenderID  string        `json:"sender_id"`
	Message   string        `json:"message"`
	Latency   time.Duration `json:"latency"`
}

// Order is a cross-node trade instruction.
type Order struct {
	ID                string          `json:"id"`
	OriginID          string          `json:"origin_id"`
	DestinationID     string          `json:"destination_id"`
	Items             []LineItem      `json:"items"`
	Tier              ShippingTier    `json:"tier"`
	Distance          Distance        `json:"distance"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
	Status            OrderStatus     `json:"status"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	Currency          string          `json:"currency"`
	CommLog           []LogEntry      `json:"comm_log"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	o.Items = append([]LineItem(nil), o.Items...)
	o.CommLog = append([]LogEntry(nil), o.CommLog...)
	return o
}

// AppendLog adds an entry to the communication log. The log stays ordered by
// timestamp: an entry older than the last one is stamped with the last time.
func (o *Order) AppendLog(e LogEntry) {
	if n := len(o.CommLog); n > 0 && e.Timestamp.Before(o.CommLog[n-1].Timestamp) {
		e.Timestamp = o.CommLog[n-1].Timestamp
	}
	o.CommLog = append(o.CommLog, e)
}

// OrderID satisfies the repository key function.
func OrderID(o Order) string { return o.ID }
