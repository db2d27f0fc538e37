// Package dispatch simulates one-way communication delay between nodes.
// Messages wait in a queue ordered by delivery time and are handed to the
// owning component once that time has passed.
package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"tradecore/logging"
	"tradecore/model"
	"tradecore/protocol"
)

// DefaultPollInterval bounds how long the loop sleeps between checks.
const DefaultPollInterval = time.Second

// Message is a queued communication between two nodes.
type Message struct {
	ID          string
	Origin      string
	Destination string
	Payload     protocol.Payload
	EnqueuedAt  time.Time
	DeliverAt   time.Time

	seq uint64
}

// Latency is the delay the message was scheduled with.
func (m Message) Latency() time.Duration {
	return m.DeliverAt.Sub(m.EnqueuedAt)
}

// NodeResolver looks nodes up by id.
type NodeResolver interface {
	Get(id string) (model.Node, error)
}

// OrderHandler receives order messages once they are delivered.
type OrderHandler interface {
	ConfirmDispatch(orderID string, entry model.LogEntry) error
	ApplyShippingUpdate(orderID string, status model.OrderStatus, entry model.LogEntry) error
}

// ExchangeHandler receives resource exchange notices once they are delivered.
type ExchangeHandler interface {
	Acknowledge(agreementID, nodeID string, at time.Time) error
}

// Emitter is notified when a message enters the queue and after it is
// delivered. err carries the handler failure, if any.
type Emitter interface {
	EmitMessageQueued(msg Message)
	EmitMessageDelivered(msg Message, err error)
}

func lessMessage(a, b Message) bool {
	if !a.DeliverAt.Equal(b.DeliverAt) {
		return a.DeliverAt.Before(b.DeliverAt)
	}
	return a.seq < b.seq
}

// Simulator holds the pending messages and runs the delivery loop.
type Simulator struct {
	mu      sync.Mutex
	pending *btree.BTreeG[Message]
	seq     uint64

	nodes    NodeResolver
	orders   OrderHandler
	exchange ExchangeHandler
	emitter  Emitter
	log      *zap.SugaredLogger
	clock    atomic.Pointer[func() time.Time]

	interval time.Duration
	started  bool
	wake     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSimulator creates a simulator. A non-positive interval uses DefaultPollInterval.
func NewSimulator(nodes NodeResolver, emitter Emitter, interval time.Duration, log *zap.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	s := &Simulator{
		pending:  btree.NewBTreeG(lessMessage),
		nodes:    nodes,
		emitter:  emitter,
		log:      logging.Named(log, "dispatch"),
		interval: interval,
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.SetClock(time.Now)
	return s
}

// SetHandlers wires the components that consume delivered messages.
func (s *Simulator) SetHandlers(orders OrderHandler, exchange ExchangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
	s.exchange = exchange
}

// SetClock replaces the time source. Safe to call while the component runs.
func (s *Simulator) SetClock(now func() time.Time) { s.clock.Store(&now) }

func (s *Simulator) now() time.Time { return (*s.clock.Load())() }

// Enqueue schedules payload for delivery to destination after its latency.
func (s *Simulator) Enqueue(origin, destination string, payload protocol.Payload) (Message, error) {
	if payload == nil {
		return Message{}, fmt.Errorf("enqueue %s -> %s: nil payload", origin, destination)
	}
	if _, err := s.nodes.Get(origin); err != nil {
		return Message{}, err
	}
	dst, err := s.nodes.Get(destination)
	if err != nil {
		return Message{}, err
	}

	now := s.now()
	msg := Message{
		ID:          uuid.New().String(),
		Origin:      origin,
		Destination: destination,
		Payload:     payload,
		EnqueuedAt:  now,
		DeliverAt:   now.Add(dst.Latency),
	}

	s.mu.Lock()
	s.seq++
	msg.seq = s.seq
	head, hasHead := s.pending.Min()
	s.pending.Set(msg)
	s.mu.Unlock()

	// Rearm the loop when the new message is now the earliest.
	if !hasHead || lessMessage(msg, head) {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	s.log.Debugf("queued %s %s -> %s, due in %s", payload.MsgType(), origin, destination, dst.Latency)
	if s.emitter != nil {
		s.emitter.EmitMessageQueued(msg)
	}
	return msg, nil
}

// Pending returns the number of undelivered messages.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// PendingFor returns the number of undelivered messages addressed to nodeID.
func (s *Simulator) PendingFor(nodeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	s.pending.Scan(func(m Message) bool {
		if m.Destination == nodeID {
			count++
		}
		return true
	})
	return count
}

// NextDue returns the delivery time of the earliest pending message.
func (s *Simulator) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.pending.Min()
	return m.DeliverAt, ok
}

// DeliverDue removes and handles every message due at or before now, in
// delivery-time order. Returns the number delivered.
func (s *Simulator) DeliverDue(now time.Time) int {
	due := s.popDue(now)
	for _, msg := range due {
		s.deliver(msg, now)
	}
	return len(due)
}

func (s *Simulator) popDue(now time.Time) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Message
	for {
		m, ok := s.pending.Min()
		if !ok || m.DeliverAt.After(now) {
			return due
		}
		s.pending.PopMin()
		due = append(due, m)
	}
}

// deliver isolates one message: a failing or panicking handler is logged and
// the loop moves on.
func (s *Simulator) deliver(msg Message, now time.Time) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			s.log.Errorf("message %s (%s %s -> %s): %v", msg.ID, typeOf(msg.Payload), msg.Origin, msg.Destination, err)
		}
		if s.emitter != nil {
			s.emitter.EmitMessageDelivered(msg, err)
		}
	}()
	err = s.route(msg, now)
}

func (s *Simulator) route(msg Message, now time.Time) error {
	s.mu.Lock()
	orders, exchange := s.orders, s.exchange
	s.mu.Unlock()

	entry := model.LogEntry{
		Timestamp: now,
		SenderID:  msg.Destination,
		Latency:   msg.Latency(),
	}

	switch p := msg.Payload.(type) {
	case protocol.OrderCreated:
		if orders == nil {
			return fmt.Errorf("no order handler")
		}
		entry.Message = fmt.Sprintf("order received by %s", msg.Destination)
		return orders.ConfirmDispatch(p.Order.ID, entry)
	case protocol.ShippingUpdate:
		if orders == nil {
			return fmt.Errorf("no order handler")
		}
		entry.SenderID = msg.Origin
		entry.Message = p.Detail
		if entry.Message == "" {
			entry.Message = fmt.Sprintf("shipping update: %s", p.Status)
		}
		return orders.ApplyShippingUpdate(p.OrderID, p.Status, entry)
	case protocol.ResourceExchangeFired:
		if exchange == nil {
			return fmt.Errorf("no exchange handler")
		}
		return exchange.Acknowledge(p.AgreementID, msg.Destination, now)
	default:
		return fmt.Errorf("unrecognized payload %s", typeOf(msg.Payload))
	}
}

func typeOf(p protocol.Payload) string {
	if p == nil {
		return "<nil>"
	}
	return p.MsgType()
}

// Start launches the delivery loop.
func (s *Simulator) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go s.run()
}

// Stop ends the delivery loop and waits for it to exit. Safe to call more than once.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
	})
}

func (s *Simulator) run() {
	defer close(s.done)
	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-s.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
			s.DeliverDue(s.now())
		}
		timer.Reset(s.nextWait())
	}
}

// nextWait is the time until the earliest message is due, capped at the poll
// interval.
func (s *Simulator) nextWait() time.Duration {
	next, ok := s.NextDue()
	if !ok {
		return s.interval
	}
	wait := next.Sub(s.now())
	switch {
	case wait < 0:
		return 0
	case wait > s.interval:
		return s.interval
	}
	return wait
}
