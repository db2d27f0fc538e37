package model

import "time"

// Frequency is how often an agreement fires.
type Frequency string

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Monthly  Frequency = "monthly"
	Seasonal Frequency = "seasonal"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Seasonal:
		return true
	}
	return false
}

// Advance returns t moved forward by one calendar period.
func (f Frequency) Advance(t time.Time) time.Time {
	switch f {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	case Seasonal:
		return t.AddDate(0, 3, 0)
	}
	return t
}

// Agreement is a recurring bilateral resource flow between two nodes.
type Agreement struct {
	ID        string    `json:"id"`
	NodeA     string    `json:"node_a"`
	NodeB     string    `json:"node_b"`
	Resource  string    `json:"resource"`
	Rate      float64   `json:"rate"`
	Volume    float64   `json:"volume"`
	Frequency Frequency `json:"frequency"`
	NextDue   time.Time `json:"next_due"`
	Active    bool      `json:"active"`

	FireCount int        `json:"fire_count"`
	LastFired *time.Time `json:"last_fired,omitempty"`
	AckCount  int        `json:"ack_count"`
	LastAckAt *time.Time `json:"last_ack_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Counterparty returns the other participant, or "" if nodeID is not a party.
func (a Agreement) Counterparty(nodeID string) string {
	switch nodeID {
	case a.NodeA:
		return a.NodeB
	case a.NodeB:
		return a.NodeA
	}
	return ""
}

// Clone returns a copy of a that shares no pointers with it.
func (a Agreement) Clone() Agreement {
	if a.LastFired != nil {
		t := *a.LastFired
		a.LastFired = &t
	}
	if a.LastAckAt != nil {
		t := *a.LastAckAt
		a.LastAckAt = &t
	}
	return a
}

// AgreementID satisfies the repository key function.
func AgreementID(a Agreement) string { return a.ID }
