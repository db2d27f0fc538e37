package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire form of a message between nodes.
type Envelope struct {
	Version   int             `json:"v"`
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Src       string          `json:"src"`
	Dst       string          `json:"dst"`
	Timestamp time.Time       `json:"ts"`
	DeliverAt time.Time       `json:"deliver_at,omitempty"`
	Payload   json.RawMessage `json:"p"`
}

// RawHeader is the minimal decode for routing decisions before full payload decode.
type RawHeader struct {
	Version int    `json:"v"`
	Type    string `json:"type"`
	ID      string `json:"id"`
	Dst     string `json:"dst"`
}

// NewEnvelope wraps payload for transmission from src to dst.
func NewEnvelope(id, src, dst string, payload Payload, ts, deliverAt time.Time) (*Envelope, error) {
	if payload == nil {
		return nil, fmt.Errorf("protocol: nil payload")
	}
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Version:   Version,
		Type:      payload.MsgType(),
		ID:        id,
		Src:       src,
		Dst:       dst,
		Timestamp: ts.UTC(),
		DeliverAt: deliverAt.UTC(),
		Payload:   p,
	}, nil
}

// Encode marshals the envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePayload unmarshals the raw payload into its typed variant.
func (e *Envelope) DecodePayload() (Payload, error) {
	switch e.Type {
	case TypeOrderCreated:
		return decodeAs[OrderCreated](e.Payload)
	case TypeShippingUpdate:
		return decodeAs[ShippingUpdate](e.Payload)
	case TypeResourceExchange:
		return decodeAs[ResourceExchangeFired](e.Payload)
	default:
		return nil, fmt.Errorf("protocol: unknown message type %q", e.Type)
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
