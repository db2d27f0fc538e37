package store

import (
	"sync"
	"time"
)

// OutboxMessage is an encoded envelope waiting to be published to the broker.
type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	DstNode   string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

// Outbox is the durable queue between message delivery and the broker.
type Outbox interface {
	EnqueueOutbox(topic string, payload []byte, msgType, dstNode string) error
	ListPendingOutbox(limit int) ([]*OutboxMessage, error)
	AckOutbox(id int64) error
	IncrementOutboxRetries(id int64) error
}

func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType, dstNode string) error {
	return db.exec(`INSERT INTO outbox (topic, payload, msg_type, dst_node) VALUES (?, ?, ?, ?)`,
		topic, payload, msgType, dstNode)
}

func (db *DB) ListPendingOutbox(limit int) ([]*OutboxMessage, error) {
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, msg_type, dst_node, retries, created_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.DstNode, &m.Retries, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	return db.exec(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`, id)
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	return db.exec(`UPDATE outbox SET retries=retries+1 WHERE id=?`, id)
}

// MemoryOutbox is an Outbox held in process memory.
type MemoryOutbox struct {
	mu     sync.Mutex
	nextID int64
	msgs   []*OutboxMessage
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (o *MemoryOutbox) EnqueueOutbox(topic string, payload []byte, msgType, dstNode string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.msgs = append(o.msgs, &OutboxMessage{
		ID:        o.nextID,
		Topic:     topic,
		Payload:   append([]byte(nil), payload...),
		MsgType:   msgType,
		DstNode:   dstNode,
		CreatedAt: time.Now(),
	})
	return nil
}

func (o *MemoryOutbox) ListPendingOutbox(limit int) ([]*OutboxMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*OutboxMessage
	for _, m := range o.msgs {
		if m.SentAt != nil {
			continue
		}
		c := *m
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *MemoryOutbox) AckOutbox(id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	kept := o.msgs[:0]
	for _, m := range o.msgs {
		if m.ID == id {
			m.SentAt = &now
			continue
		}
		kept = append(kept, m)
	}
	o.msgs = kept
	return nil
}

func (o *MemoryOutbox) IncrementOutboxRetries(id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.msgs {
		if m.ID == id {
			m.Retries++
		}
	}
	return nil
}
