// Package orders owns the order lifecycle. Orders are created in the
// foreground, confirmed when the order-created message reaches the
// destination, and may be moved through the delayed excursion by shipping
// updates or manual overrides.
package orders

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradecore/dispatch"
	"tradecore/logging"
	"tradecore/model"
	"tradecore/protocol"
	"tradecore/routing"
)

// NodeResolver looks nodes up by id.
type NodeResolver interface {
	Get(id string) (model.Node, error)
}

// Enqueuer schedules a message for delayed delivery.
type Enqueuer interface {
	Enqueue(origin, destination string, payload protocol.Payload) (dispatch.Message, error)
}

// EventEmitter is notified of order lifecycle changes.
type EventEmitter interface {
	EmitOrderCreated(order model.Order)
	EmitOrderStatusChanged(orderID string, oldStatus, newStatus model.OrderStatus, detail string)
}

// CreateRequest is the caller-supplied part of a new order.
type CreateRequest struct {
	Origin      string           `json:"origin"`
	Destination string           `json:"destination"`
	Items       []model.LineItem `json:"items"`
}

// Manager handles the order lifecycle state machine.
type Manager struct {
	// mu serializes every read-modify-write of an order.
	mu       sync.Mutex
	repo     model.Repository[model.Order]
	nodes    NodeResolver
	router   *routing.Router
	enqueuer Enqueuer
	emitter  EventEmitter
	log      *zap.SugaredLogger
	clock    atomic.Pointer[func() time.Time]
}

// NewManager creates an order manager.
func NewManager(repo model.Repository[model.Order], nodes NodeResolver, router *routing.Router, enqueuer Enqueuer, emitter EventEmitter, log *zap.Logger) *Manager {
	m := &Manager{
		repo:     repo,
		nodes:    nodes,
		router:   router,
		enqueuer: enqueuer,
		emitter:  emitter,
		log:      logging.Named(log, "orders"),
	}
	m.SetClock(time.Now)
	return m
}

// SetClock replaces the time source. Safe to call while the component runs.
func (m *Manager) SetClock(now func() time.Time) { m.clock.Store(&now) }

func (m *Manager) now() time.Time { return (*m.clock.Load())() }

// Create prices and persists a new order, then notifies the destination node.
func (m *Manager) Create(req CreateRequest) (model.Order, error) {
	if err := validateItems(req.Items); err != nil {
		return model.Order{}, err
	}
	origin, err := m.nodes.Get(req.Origin)
	if err != nil {
		return model.Order{}, err
	}
	dest, err := m.nodes.Get(req.Destination)
	if err != nil {
		return model.Order{}, err
	}

	now := m.now().UTC()
	q := m.router.Quote(origin, dest, req.Items, now)
	order := model.Order{
		ID:                newOrderID(now),
		OriginID:          origin.ID,
		DestinationID:     dest.ID,
		Items:             append([]model.LineItem(nil), req.Items...),
		Tier:              q.Tier,
		Distance:          q.Distance,
		EstimatedDelivery: q.EstimatedDelivery,
		Status:            model.StatusPending,
		TotalCost:         q.Cost,
		Currency:          q.Currency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.repo.Save(order); err != nil {
		return model.Order{}, fmt.Errorf("save order: %w", err)
	}
	if _, err := m.enqueuer.Enqueue(origin.ID, dest.ID, protocol.OrderCreated{Order: order.Clone()}); err != nil {
		m.log.Warnf("enqueue order-created for %s: %v", order.ID, err)
	}

	m.log.Infof("order %s created: %s -> %s via %s, %s %s, eta %s",
		order.ID, order.OriginID, order.DestinationID, order.Tier, order.TotalCost.StringFixed(2), order.Currency,
		order.EstimatedDelivery.Format(time.DateOnly))
	if m.emitter != nil {
		m.emitter.EmitOrderCreated(order.Clone())
	}
	return order, nil
}

// Get returns the order with the given id.
func (m *Manager) Get(id string) (model.Order, error) {
	o, err := m.repo.FindByID(id)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	return o, nil
}

// List returns every order.
func (m *Manager) List() ([]model.Order, error) {
	return m.repo.FindAll()
}

// UpdateStatus is the manual override. It validates the transition and
// records it in the communication log but never sends messages.
func (m *Manager) UpdateStatus(id string, status model.OrderStatus, detail string) (model.Order, error) {
	if detail == "" {
		detail = "status set to " + string(status)
	}
	return m.transition(id, status, model.LogEntry{
		Timestamp: m.now().UTC(),
		SenderID:  "operator",
		Message:   detail,
	})
}

// ConfirmDispatch records that the destination received the order and moves
// it from pending to in_transit. An order already past pending only gets the
// log entry.
func (m *Manager) ConfirmDispatch(id string, entry model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, err := m.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("confirm %s: %w", id, err)
	}
	old := o.Status
	o.AppendLog(entry)
	if old == model.StatusPending {
		o.Status = model.StatusInTransit
	}
	o.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(o); err != nil {
		return fmt.Errorf("confirm %s: %w", id, err)
	}
	if old != o.Status {
		m.log.Infof("order %s confirmed by %s: %s -> %s", id, entry.SenderID, old, o.Status)
		if m.emitter != nil {
			m.emitter.EmitOrderStatusChanged(id, old, o.Status, entry.Message)
		}
	}
	return nil
}

// ApplyShippingUpdate applies a status change reported by a remote node.
func (m *Manager) ApplyShippingUpdate(id string, status model.OrderStatus, entry model.LogEntry) error {
	_, err := m.transition(id, status, entry)
	return err
}

func (m *Manager) transition(id string, status model.OrderStatus, entry model.LogEntry) (model.Order, error) {
	if !status.Valid() {
		return model.Order{}, &model.InvalidOrderDataError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, err := m.repo.FindByID(id)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	old := o.Status
	if old == status {
		return o, nil
	}
	if !model.IsValidTransition(old, status) {
		return model.Order{}, &model.InvalidTransitionError{From: old, To: status}
	}

	o.Status = status
	o.AppendLog(entry)
	o.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(o); err != nil {
		return model.Order{}, fmt.Errorf("update order %s: %w", id, err)
	}

	m.log.Infof("order %s: %s -> %s (%s)", id, old, status, entry.Message)
	if m.emitter != nil {
		m.emitter.EmitOrderStatusChanged(id, old, status, entry.Message)
	}
	return o, nil
}

// CountByStatus returns the number of orders in each status.
func (m *Manager) CountByStatus() (map[model.OrderStatus]int, error) {
	all, err := m.repo.FindAll()
	if err != nil {
		return nil, err
	}
	counts := make(map[model.OrderStatus]int)
	for _, o := range all {
		counts[o.Status]++
	}
	return counts, nil
}

func validateItems(items []model.LineItem) error {
	if len(items) == 0 {
		return &model.InvalidOrderDataError{Field: "items", Reason: "at least one line item is required"}
	}
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.ProductID == "":
			return &model.InvalidOrderDataError{Field: field + ".product_id", Reason: "required"}
		case it.Quantity <= 0:
			return &model.InvalidOrderDataError{Field: field + ".quantity", Reason: "must be positive"}
		case it.UniversalPrice.IsNegative():
			return &model.InvalidOrderDataError{Field: field + ".universal_price", Reason: "must not be negative"}
		case it.LocalPrice.IsNegative():
			return &model.InvalidOrderDataError{Field: field + ".local_price", Reason: "must not be negative"}
		case it.Weight < 0 || it.Volume < 0:
			return &model.InvalidOrderDataError{Field: field, Reason: "weight and volume must not be negative"}
		}
	}
	return nil
}

func newOrderID(now time.Time) string {
	return fmt.Sprintf("ord-%d-%s", now.UnixMilli(), uuid.New().String()[:8])
}

// IsNotFound reports whether err means the order does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
