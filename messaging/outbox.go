package messaging

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"tradecore/logging"
	"tradecore/store"
)

const drainBatch = 50

// Publisher is the broker side of the drainer.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// PublishObserver is told the result of every publish attempt.
type PublishObserver interface {
	ObservePublish(err error)
}

// OutboxDrainer periodically sends pending outbox messages.
type OutboxDrainer struct {
	outbox   store.Outbox
	pub      Publisher
	observer PublishObserver
	interval time.Duration
	log      *zap.SugaredLogger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOutboxDrainer creates a new outbox drainer. observer may be nil.
func NewOutboxDrainer(outbox store.Outbox, pub Publisher, observer PublishObserver, interval time.Duration, log *zap.Logger) *OutboxDrainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		outbox:   outbox,
		pub:      pub,
		observer: observer,
		interval: interval,
		log:      logging.Named(log, "outbox"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the outbox drain loop.
func (d *OutboxDrainer) Start() {
	d.wg.Add(1)
	go d.drainLoop()
}

// Stop stops the outbox drain loop.
func (d *OutboxDrainer) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
}

func (d *OutboxDrainer) drainLoop() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Drain()
		}
	}
}

// Drain publishes one batch of pending messages. Returns the number sent.
func (d *OutboxDrainer) Drain() int {
	if !d.pub.IsConnected() {
		return 0
	}

	msgs, err := d.outbox.ListPendingOutbox(drainBatch)
	if err != nil {
		d.log.Errorf("list pending: %v", err)
		return 0
	}

	sent := 0
	for _, msg := range msgs {
		err := d.pub.Publish(msg.Topic, msg.Payload)
		if d.observer != nil {
			d.observer.ObservePublish(err)
		}
		if err != nil {
			d.log.Warnf("publish msg %d to %s: %v", msg.ID, msg.Topic, err)
			d.outbox.IncrementOutboxRetries(msg.ID)
			continue
		}
		if err := d.outbox.AckOutbox(msg.ID); err != nil {
			d.log.Errorf("ack msg %d: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent
}
