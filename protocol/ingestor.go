package protocol

import (
	"encoding/json"

	"go.uber.org/zap"

	"tradecore/logging"
)

// FilterFunc returns true if the message should be processed.
type FilterFunc func(hdr *RawHeader) bool

// MessageHandler defines callbacks for every payload type.
type MessageHandler interface {
	HandleOrderCreated(env *Envelope, p OrderCreated)
	HandleShippingUpdate(env *Envelope, p ShippingUpdate)
	HandleResourceExchange(env *Envelope, p ResourceExchangeFired)
}

// Ingestor performs two-phase decode and dispatches to a MessageHandler.
type Ingestor struct {
	handler MessageHandler
	filter  FilterFunc
	log     *zap.SugaredLogger
}

// NewIngestor creates an ingestor with the given handler and filter.
func NewIngestor(handler MessageHandler, filter FilterFunc, log *zap.Logger) *Ingestor {
	return &Ingestor{
		handler: handler,
		filter:  filter,
		log:     logging.Named(log, "protocol"),
	}
}

// HandleRaw is the entry point for raw message bytes from the messaging layer.
func (ing *Ingestor) HandleRaw(data []byte) {
	// Phase 1: decode routing header only
	var hdr RawHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		ing.log.Warnf("header decode error: %v", err)
		return
	}

	if ing.filter != nil && !ing.filter(&hdr) {
		return
	}

	// Phase 2: full envelope decode
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ing.log.Warnf("envelope decode error: %v", err)
		return
	}
	p, err := env.DecodePayload()
	if err != nil {
		ing.log.Warnf("dropping message %s: %v", env.ID, err)
		return
	}

	switch p := p.(type) {
	case OrderCreated:
		ing.handler.HandleOrderCreated(&env, p)
	case ShippingUpdate:
		ing.handler.HandleShippingUpdate(&env, p)
	case ResourceExchangeFired:
		ing.handler.HandleResourceExchange(&env, p)
	}
}
