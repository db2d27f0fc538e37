package engine

import (
	"fmt"
	"time"

	"tradecore/protocol"
)

func (e *Engine) wireEventHandlers() {
	// Node changes: audit and refresh the redis mirror
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(NodeRegisteredEvent)
		e.audit.Infow("node registered", "node", ev.Node.ID, "zone", ev.Node.Zone, "latency", ev.Node.Latency)
		e.appendAudit("node", ev.Node.ID, "registered", "", ev.Node.Name, "system")
		e.nodeState.RefreshNode(ev.Node.ID)
	}, EventNodeRegistered)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(NodeStatusChangedEvent)
		e.audit.Infow("node status changed", "node", ev.NodeID, "old", ev.OldStatus, "new", ev.NewStatus)
		e.appendAudit("node", ev.NodeID, "status", string(ev.OldStatus), string(ev.NewStatus), "operator")
		e.nodeState.RefreshNode(ev.NodeID)
	}, EventNodeStatusChanged)

	// Orders: audit and count. The order manager emits under its own lock,
	// so these handlers must not call back into it.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderCreatedEvent)
		e.audit.Infow("order created", "order", ev.Order.ID, "origin", ev.Order.OriginID,
			"destination", ev.Order.DestinationID, "tier", ev.Order.Tier,
			"cost", ev.Order.TotalCost.String(), "currency", ev.Order.Currency)
		e.appendAudit("order", ev.Order.ID, "created", "",
			fmt.Sprintf("%s -> %s via %s", ev.Order.OriginID, ev.Order.DestinationID, ev.Order.Tier), "system")
		e.recorder.OrdersCreated.WithLabelValues(string(ev.Order.Tier)).Inc()
	}, EventOrderCreated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderStatusChangedEvent)
		e.audit.Infow("order status changed", "order", ev.OrderID, "old", ev.OldStatus, "new", ev.NewStatus, "detail", ev.Detail)
		e.appendAudit("order", ev.OrderID, "status", string(ev.OldStatus), string(ev.NewStatus), "system")
		e.recorder.StatusChanges.WithLabelValues(string(ev.NewStatus)).Inc()
	}, EventOrderStatusChanged)

	// Messages: inbox depth, delivery metrics and egress to the outbox
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MessageQueuedEvent)
		e.nodeState.MessageQueued(ev.Message.Destination)
	}, EventMessageQueued)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MessageDeliveredEvent)
		msg := ev.Message
		e.nodeState.MessageDelivered(msg.Destination)
		e.recorder.ObserveDelivery(msgType(msg.Payload), msg.Latency(), ev.Err)
		if e.egress != nil {
			if err := e.egress.Record(msg); err != nil {
				e.sugar.Errorf("outbox %s: %v", msg.ID, err)
			}
		}
	}, EventMessageDelivered)

	// Agreements
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(AgreementRegisteredEvent)
		a := ev.Agreement
		e.audit.Infow("agreement registered", "agreement", a.ID, "node_a", a.NodeA, "node_b", a.NodeB,
			"resource", a.Resource, "frequency", a.Frequency, "next_due", a.NextDue)
		e.appendAudit("agreement", a.ID, "registered", "",
			fmt.Sprintf("%s <-> %s %s %s", a.NodeA, a.NodeB, a.Resource, a.Frequency), "system")
	}, EventAgreementRegistered)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(AgreementFiredEvent)
		e.audit.Infow("agreement fired", "agreement", ev.Agreement.ID, "fired_at", ev.FiredAt, "next_due", ev.Agreement.NextDue)
		e.appendAudit("agreement", ev.Agreement.ID, "fired", "", ev.Agreement.NextDue.Format(time.RFC3339), "system")
		e.recorder.AgreementsFired.Inc()
	}, EventAgreementFired)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(AgreementCancelledEvent)
		e.audit.Infow("agreement cancelled", "agreement", ev.AgreementID)
		e.appendAudit("agreement", ev.AgreementID, "cancelled", "active", "inactive", "operator")
	}, EventAgreementCancelled)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.sugar.Infof("%s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}

// appendAudit persists an audit row when a database is attached.
func (e *Engine) appendAudit(entityType, entityID, action, oldValue, newValue, actor string) {
	if e.db == nil {
		return
	}
	if err := e.db.AppendAudit(entityType, entityID, action, oldValue, newValue, actor); err != nil {
		e.sugar.Warnf("audit %s %s %s: %v", entityType, entityID, action, err)
	}
}

func msgType(p protocol.Payload) string {
	if p == nil {
		return "unknown"
	}
	return p.MsgType()
}
