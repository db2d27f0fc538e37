package nodestate

import (
	"time"

	"tradecore/model"
)

// NodeMeta is the cached part of a node record.
type NodeMeta struct {
	NodeID     string           `json:"node_id"`
	Name       string           `json:"name"`
	Status     model.NodeStatus `json:"status"`
	Zone       model.Zone       `json:"zone"`
	Latency    time.Duration    `json:"latency"`
	Population uint64           `json:"population"`
}

// NodeState is a node's metadata plus the number of messages in flight to it.
type NodeState struct {
	NodeMeta
	Inbox int `json:"inbox"`
}

func metaFromNode(n model.Node) *NodeMeta {
	return &NodeMeta{
		NodeID:     n.ID,
		Name:       n.Name,
		Status:     n.Status,
		Zone:       n.Zone,
		Latency:    n.Latency,
		Population: n.Population,
	}
}
