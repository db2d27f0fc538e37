package protocol

// Message type constants.
const (
	TypeOrderCreated     = "order.created"
	TypeShippingUpdate   = "shipping.update"
	TypeResourceExchange = "exchange.fired"
)

// Protocol version.
const Version = 1
