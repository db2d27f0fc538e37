package protocol

import (
	"time"

	"tradecore/model"
)

// Payload is the closed set of messages nodes exchange. The unexported method
// keeps the set sealed to this package so type switches over it are complete.
type Payload interface {
	MsgType() string
	payload()
}

// OrderCreated notifies the destination node of a new order.
type OrderCreated struct {
	Order model.Order `json:"order"`
}

// ShippingUpdate reports a status change for an order in flight.
type ShippingUpdate struct {
	OrderID string            `json:"order_id"`
	Status  model.OrderStatus `json:"status"`
	Detail  string            `json:"detail,omitempty"`
}

// ResourceExchangeFired tells a participant that a recurring exchange ran.
type ResourceExchangeFired struct {
	AgreementID  string    `json:"agreement_id"`
	Resource     string    `json:"resource"`
	Volume       float64   `json:"volume"`
	Rate         float64   `json:"rate"`
	Counterparty string    `json:"counterparty"`
	FiredAt      time.Time `json:"fired_at"`
}

func (OrderCreated) MsgType() string          { return TypeOrderCreated }
func (ShippingUpdate) MsgType() string        { return TypeShippingUpdate }
func (ResourceExchangeFired) MsgType() string { return TypeResourceExchange }

func (OrderCreated) payload()          {}
func (ShippingUpdate) payload()        {}
func (ResourceExchangeFired) payload() {}
