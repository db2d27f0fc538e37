// Package messaging connects the engine to an external broker. Delivered
// messages leave through an outbox drained to Kafka or MQTT, and envelopes
// arriving on the inbound topic are fed back into the delivery simulator.
package messaging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tradecore/config"
	"tradecore/logging"
)

// backend is one broker transport.
type backend interface {
	connect() error
	publish(topic string, payload []byte) error
	subscribe(topic string, handler func(payload []byte)) error
	connected() bool
	close()
}

// Client is the unified messaging client. The backend is picked from config
// ("mqtt" or "kafka") and is nil until Connect succeeds.
type Client struct {
	mu   sync.RWMutex
	cfg  *config.MessagingConfig
	conn backend
	log  *zap.SugaredLogger
}

// NewClient creates a messaging client based on config.
func NewClient(cfg *config.MessagingConfig, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: logging.Named(log, "messaging")}
}

func (c *Client) newBackend() (backend, error) {
	switch c.cfg.Backend {
	case "mqtt":
		return &mqttBackend{cfg: c.cfg.MQTT, log: c.log}, nil
	case "kafka":
		return &kafkaBackend{cfg: c.cfg.Kafka, topics: []string{c.cfg.OutboundTopic, c.cfg.InboundTopic}, log: c.log}, nil
	default:
		return nil, fmt.Errorf("unknown messaging backend: %s", c.cfg.Backend)
	}
}

// Connect establishes the broker connection, replacing any previous one.
func (c *Client) Connect() error {
	b, err := c.newBackend()
	if err != nil {
		return err
	}
	if err := b.connect(); err != nil {
		return err
	}
	c.mu.Lock()
	old := c.conn
	c.conn = b
	c.mu.Unlock()
	if old != nil {
		old.close()
	}
	return nil
}

// Publish sends a message to the given topic.
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return fmt.Errorf("%s not connected", c.cfg.Backend)
	}
	return c.conn.publish(topic, payload)
}

// Subscribe registers a handler for messages on topic.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return fmt.Errorf("%s not connected", c.cfg.Backend)
	}
	return c.conn.subscribe(topic, handler)
}

// IsConnected returns whether the messaging client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.connected()
}

// Close shuts down the messaging connection.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.close()
	}
}
