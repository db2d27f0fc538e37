package engine

import (
	"time"

	"tradecore/dispatch"
	"tradecore/model"
)

const (
	EventNodeRegistered EventType = iota + 1
	EventNodeStatusChanged
	EventOrderCreated
	EventOrderStatusChanged
	EventMessageQueued
	EventMessageDelivered
	EventAgreementRegistered
	EventAgreementFired
	EventAgreementCancelled
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type NodeRegisteredEvent struct {
	Node model.Node
}

type NodeStatusChangedEvent struct {
	NodeID    string
	OldStatus model.NodeStatus
	NewStatus model.NodeStatus
}

type OrderCreatedEvent struct {
	Order model.Order
}

type OrderStatusChangedEvent struct {
	OrderID   string
	OldStatus model.OrderStatus
	NewStatus model.OrderStatus
	Detail    string
}

type MessageQueuedEvent struct {
	Message dispatch.Message
}

type MessageDeliveredEvent struct {
	Message dispatch.Message
	Err     error
}

type AgreementRegisteredEvent struct {
	Agreement model.Agreement
}

type AgreementFiredEvent struct {
	Agreement model.Agreement
	FiredAt   time.Time
}

type AgreementCancelledEvent struct {
	AgreementID string
}

type ConnectionEvent struct {
	Detail string
}
