package messaging

import (
	"fmt"

	"tradecore/dispatch"
	"tradecore/protocol"
	"tradecore/store"
)

// Egress writes every delivered message to the outbox as a wire envelope.
type Egress struct {
	outbox store.Outbox
	topic  string
}

func NewEgress(outbox store.Outbox, topic string) *Egress {
	return &Egress{outbox: outbox, topic: topic}
}

// Record enqueues msg for publication.
func (e *Egress) Record(msg dispatch.Message) error {
	env, err := protocol.NewEnvelope(msg.ID, msg.Origin, msg.Destination, msg.Payload, msg.EnqueuedAt, msg.DeliverAt)
	if err != nil {
		return fmt.Errorf("envelope %s: %w", msg.ID, err)
	}
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.ID, err)
	}
	return e.outbox.EnqueueOutbox(e.topic, data, env.Type, msg.Destination)
}
