package engine

import (
	"time"

	"tradecore/dispatch"
	"tradecore/model"
)

// registryEmitter bridges the registry's emitter interface to the EventBus.
type registryEmitter struct {
	bus *EventBus
}

func (e *registryEmitter) EmitNodeRegistered(node model.Node) {
	e.bus.Emit(Event{Type: EventNodeRegistered, Payload: NodeRegisteredEvent{Node: node}})
}

func (e *registryEmitter) EmitNodeStatusChanged(nodeID string, oldStatus, newStatus model.NodeStatus) {
	e.bus.Emit(Event{Type: EventNodeStatusChanged, Payload: NodeStatusChangedEvent{
		NodeID:    nodeID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}})
}

// orderEmitter bridges the order manager's emitter interface to the EventBus.
type orderEmitter struct {
	bus *EventBus
}

func (e *orderEmitter) EmitOrderCreated(order model.Order) {
	e.bus.Emit(Event{Type: EventOrderCreated, Payload: OrderCreatedEvent{Order: order}})
}

func (e *orderEmitter) EmitOrderStatusChanged(orderID string, oldStatus, newStatus model.OrderStatus, detail string) {
	e.bus.Emit(Event{Type: EventOrderStatusChanged, Payload: OrderStatusChangedEvent{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Detail:    detail,
	}})
}

// dispatchEmitter bridges the simulator's queue events to the EventBus.
type dispatchEmitter struct {
	bus *EventBus
}

func (e *dispatchEmitter) EmitMessageQueued(msg dispatch.Message) {
	e.bus.Emit(Event{Type: EventMessageQueued, Payload: MessageQueuedEvent{Message: msg}})
}

func (e *dispatchEmitter) EmitMessageDelivered(msg dispatch.Message, err error) {
	e.bus.Emit(Event{Type: EventMessageDelivered, Payload: MessageDeliveredEvent{Message: msg, Err: err}})
}

// exchangeEmitter bridges the scheduler's agreement events to the EventBus.
type exchangeEmitter struct {
	bus *EventBus
}

func (e *exchangeEmitter) EmitAgreementRegistered(a model.Agreement) {
	e.bus.Emit(Event{Type: EventAgreementRegistered, Payload: AgreementRegisteredEvent{Agreement: a}})
}

func (e *exchangeEmitter) EmitAgreementFired(a model.Agreement, firedAt time.Time) {
	e.bus.Emit(Event{Type: EventAgreementFired, Payload: AgreementFiredEvent{Agreement: a, FiredAt: firedAt}})
}

func (e *exchangeEmitter) EmitAgreementCancelled(agreementID string) {
	e.bus.Emit(Event{Type: EventAgreementCancelled, Payload: AgreementCancelledEvent{AgreementID: agreementID}})
}
