// Package metrics exposes a read-only summary of the engine state and the
// Prometheus instruments that track it.
package metrics

import (
	"fmt"

	"tradecore/model"
)

// Summary is a point-in-time snapshot of the engine.
type Summary struct {
	TotalOrders     int `json:"total_orders"`
	InTransitOrders int `json:"in_transit_orders"`
	ActiveNodes     int `json:"active_nodes"`
	PendingMessages int `json:"pending_messages"`
	Agreements      int `json:"agreements"`
}

// OrderCounter reports how many orders are in each status.
type OrderCounter interface {
	CountByStatus() (map[model.OrderStatus]int, error)
}

// NodeCounter reports how many nodes are in a status.
type NodeCounter interface {
	CountByStatus(status model.NodeStatus) int
}

// QueueDepth reports the number of undelivered messages.
type QueueDepth interface {
	Pending() int
}

// AgreementCounter reports the number of agreements.
type AgreementCounter interface {
	Count() (int, error)
}

// Facade assembles summaries from the components that own each collection.
// Each source takes its own lock, so a summary is consistent per field but
// not across fields.
type Facade struct {
	orders     OrderCounter
	nodes      NodeCounter
	queue      QueueDepth
	agreements AgreementCounter
}

func NewFacade(orders OrderCounter, nodes NodeCounter, queue QueueDepth, agreements AgreementCounter) *Facade {
	return &Facade{orders: orders, nodes: nodes, queue: queue, agreements: agreements}
}

// Summary returns the current snapshot.
func (f *Facade) Summary() (Summary, error) {
	byStatus, err := f.orders.CountByStatus()
	if err != nil {
		return Summary{}, fmt.Errorf("count orders: %w", err)
	}
	agreements, err := f.agreements.Count()
	if err != nil {
		return Summary{}, fmt.Errorf("count agreements: %w", err)
	}

	s := Summary{
		InTransitOrders: byStatus[model.StatusInTransit],
		ActiveNodes:     f.nodes.CountByStatus(model.NodeActive),
		PendingMessages: f.queue.Pending(),
		Agreements:      agreements,
	}
	for _, n := range byStatus {
		s.TotalOrders += n
	}
	return s, nil
}

// OrdersByStatus returns the order count for every known status, zeros included.
func (f *Facade) OrdersByStatus() (map[model.OrderStatus]int, error) {
	byStatus, err := f.orders.CountByStatus()
	if err != nil {
		return nil, err
	}
	out := make(map[model.OrderStatus]int, 4)
	for _, s := range []model.OrderStatus{model.StatusPending, model.StatusInTransit, model.StatusDelivered, model.StatusDelayed} {
		out[s] = byStatus[s]
	}
	return out, nil
}
