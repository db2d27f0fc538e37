package messaging

import (
	"go.uber.org/zap"

	"tradecore/dispatch"
	"tradecore/logging"
	"tradecore/protocol"
)

// Enqueuer schedules a message for delayed delivery.
type Enqueuer interface {
	Enqueue(origin, destination string, payload protocol.Payload) (dispatch.Message, error)
}

// Subscriber is the broker side of the consumer.
type Subscriber interface {
	Subscribe(topic string, handler func(payload []byte)) error
}

// InboundHandler feeds envelopes from remote nodes into the simulator, so a
// remote message is subject to the same latency as a local one.
type InboundHandler struct {
	enqueuer Enqueuer
	log      *zap.SugaredLogger
}

func NewInboundHandler(enqueuer Enqueuer, log *zap.Logger) *InboundHandler {
	return &InboundHandler{enqueuer: enqueuer, log: logging.Named(log, "inbound")}
}

func (h *InboundHandler) HandleOrderCreated(env *protocol.Envelope, p protocol.OrderCreated) {
	h.enqueue(env, p)
}

func (h *InboundHandler) HandleShippingUpdate(env *protocol.Envelope, p protocol.ShippingUpdate) {
	h.enqueue(env, p)
}

func (h *InboundHandler) HandleResourceExchange(env *protocol.Envelope, p protocol.ResourceExchangeFired) {
	h.enqueue(env, p)
}

func (h *InboundHandler) enqueue(env *protocol.Envelope, p protocol.Payload) {
	msg, err := h.enqueuer.Enqueue(env.Src, env.Dst, p)
	if err != nil {
		h.log.Warnf("drop %s %s (%s -> %s): %v", env.Type, env.ID, env.Src, env.Dst, err)
		return
	}
	h.log.Debugf("accepted %s %s as %s", env.Type, env.ID, msg.ID)
}

// Consumer subscribes to the inbound topic and decodes envelopes.
type Consumer struct {
	sub      Subscriber
	topic    string
	ingestor *protocol.Ingestor
}

// NewConsumer creates a consumer that only accepts envelopes of the current
// protocol version.
func NewConsumer(sub Subscriber, topic string, handler protocol.MessageHandler, log *zap.Logger) *Consumer {
	filter := func(hdr *protocol.RawHeader) bool { return hdr.Version == protocol.Version }
	return &Consumer{
		sub:      sub,
		topic:    topic,
		ingestor: protocol.NewIngestor(handler, filter, log),
	}
}

func (c *Consumer) Start() error {
	return c.sub.Subscribe(c.topic, c.ingestor.HandleRaw)
}
