package model

import "time"

// NodeStatus is the lifecycle state of a trading node.
type NodeStatus string

const (
	NodeActive       NodeStatus = "active"
	NodeEstablishing NodeStatus = "establishing"
	NodeOffline      NodeStatus = "offline"
)

// Valid reports whether s is one of the known node statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeActive, NodeEstablishing, NodeOffline:
		return true
	}
	return false
}

// Zone is an economic zone. Nodes in the same zone settle in the zone currency.
type Zone string

const (
	ZoneSolInner Zone = "sol-inner"
	ZoneSolOuter Zone = "sol-outer"
	ZoneCentauri Zone = "centauri"
	ZoneBarnard  Zone = "barnard"
	ZoneFrontier Zone = "frontier"
)

// Zones lists every economic zone in a stable order.
var Zones = []Zone{ZoneSolInner, ZoneSolOuter, ZoneCentauri, ZoneBarnard, ZoneFrontier}

// Valid reports whether z is a known economic zone.
func (z Zone) Valid() bool {
	for _, k := range Zones {
		if z == k {
			return true
		}
	}
	return false
}

// Unit tells how a Position's coordinates are measured.
type Unit string

const (
	// Interplanetary coordinates are in astronomical units.
	Interplanetary Unit = "interplanetary"
	// Interstellar coordinates are in light-years.
	Interstellar Unit = "interstellar"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == Interplanetary || u == Interstellar
}

// AUPerLightYear converts between the two coordinate units.
const AUPerLightYear = 63241.077

// Position is a fixed point in space. Nodes never move.
type Position struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Z    float64 `json:"z" yaml:"z"`
	Unit Unit    `json:"unit" yaml:"unit"`
}

// InLightYears returns the coordinates converted to light-years.
func (p Position) InLightYears() (x, y, z float64) {
	if p.Unit == Interstellar {
		return p.X, p.Y, p.Z
	}
	return p.X / AUPerLightYear, p.Y / AUPerLightYear, p.Z / AUPerLightYear
}

// Node is a registered trading endpoint.
type Node struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Position   Position      `json:"position" yaml:"position"`
	Status     NodeStatus    `json:"status" yaml:"status"`
	Population uint64        `json:"population" yaml:"population"`
	Resources  []string      `json:"resources" yaml:"resources"`
	Partners   []string      `json:"partners" yaml:"partners"`
	Latency    time.Duration `json:"latency" yaml:"latency"`
	Zone       Zone          `json:"zone" yaml:"zone"`
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	n.Resources = append([]string(nil), n.Resources...)
	n.Partners = append([]string(nil), n.Partners...)
	return n
}

// NodeID satisfies the repository key function.
func NodeID(n Node) string { return n.ID }
