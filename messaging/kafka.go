package messaging

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tradecore/config"
)

type kafkaBackend struct {
	cfg    config.KafkaConfig
	topics []string
	log    *zap.SugaredLogger

	writer  *kafkago.Writer
	mu      sync.Mutex
	readers []*kafkago.Reader
	cancel  context.CancelFunc
	ctx     context.Context
}

func (b *kafkaBackend) connect() error {
	if len(b.cfg.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := b.dialAny()
	if err != nil {
		return fmt.Errorf("kafka connect: %w", err)
	}
	b.ensureTopics(conn)
	conn.Close()

	b.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(b.cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return nil
}

// dialAny returns a connection to the first reachable broker.
func (b *kafkaBackend) dialAny() (*kafkago.Conn, error) {
	var lastErr error
	for _, broker := range b.cfg.Brokers {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		cancel()
		if err == nil {
			b.log.Infof("kafka connected to %s", broker)
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ensureTopics creates missing topics through the controller. Failures are
// only logged; brokers with auto-create enabled do not need this.
func (b *kafkaBackend) ensureTopics(conn *kafkago.Conn) {
	var configs []kafkago.TopicConfig
	for _, t := range b.topics {
		if t != "" {
			configs = append(configs, kafkago.TopicConfig{Topic: t, NumPartitions: 1, ReplicationFactor: 1})
		}
	}
	if len(configs) == 0 {
		return
	}
	controller, err := conn.Controller()
	if err != nil {
		b.log.Warnf("cannot find controller for topic creation: %v", err)
		return
	}
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		b.log.Warnf("cannot connect to controller: %v", err)
		return
	}
	defer cc.Close()
	if err := cc.CreateTopics(configs...); err != nil {
		b.log.Warnf("topic auto-create: %v", err)
	}
}

// publish keys messages by topic so a single partition keeps them in order.
func (b *kafkaBackend) publish(topic string, payload []byte) error {
	return b.writer.WriteMessages(b.ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(topic),
		Value: payload,
	})
}

func (b *kafkaBackend) subscribe(topic string, handler func(payload []byte)) error {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: b.cfg.Brokers,
		Topic:   topic,
		GroupID: b.cfg.GroupID,
	})
	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	go func() {
		for {
			msg, err := reader.ReadMessage(b.ctx)
			if err != nil {
				b.log.Infof("kafka reader for %s stopped: %v", topic, err)
				return
			}
			handler(msg.Value)
		}
	}()
	return nil
}

func (b *kafkaBackend) connected() bool { return b.writer != nil }

func (b *kafkaBackend) close() {
	b.cancel()
	b.writer.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.readers {
		r.Close()
	}
	b.readers = nil
}
