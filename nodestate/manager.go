// Package nodestate mirrors node metadata and per-node inbound queue depth
// into Redis so dashboards and other processes can read them without going
// through the engine. The registry and simulator stay authoritative; every
// read falls back to them when Redis is absent or empty.
package nodestate

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"tradecore/logging"
	"tradecore/model"
)

// NodeSource is the authoritative node store.
type NodeSource interface {
	Get(id string) (model.Node, error)
	List() []model.Node
}

// InboxSource reports undelivered messages per destination.
type InboxSource interface {
	PendingFor(nodeID string) int
}

// Manager keeps the Redis mirror in step with the registry and simulator.
// A nil RedisStore turns every write into a no-op.
type Manager struct {
	nodes NodeSource
	inbox InboxSource
	redis *RedisStore
	log   *zap.SugaredLogger
}

func NewManager(nodes NodeSource, inbox InboxSource, redis *RedisStore, log *zap.Logger) *Manager {
	return &Manager{nodes: nodes, inbox: inbox, redis: redis, log: logging.Named(log, "nodestate")}
}

// Enabled reports whether a Redis mirror is attached.
func (m *Manager) Enabled() bool { return m.redis != nil }

// SyncRedis rebuilds the mirror from the registry. Called on startup.
func (m *Manager) SyncRedis() error {
	if m.redis == nil {
		return nil
	}
	ctx := context.Background()
	if err := m.redis.FlushAll(ctx); err != nil {
		return err
	}
	nodes := m.nodes.List()
	for _, n := range nodes {
		if err := m.redis.UpdateNodeMeta(ctx, metaFromNode(n)); err != nil {
			m.log.Warnf("sync meta for node %s: %v", n.ID, err)
			continue
		}
		m.redis.SetInbox(ctx, n.ID, m.inbox.PendingFor(n.ID))
	}
	m.log.Infof("synced %d nodes to redis", len(nodes))
	return nil
}

// RefreshNode rewrites the cached metadata for one node.
func (m *Manager) RefreshNode(nodeID string) {
	if m.redis == nil {
		return
	}
	n, err := m.nodes.Get(nodeID)
	if err != nil {
		return
	}
	if err := m.redis.UpdateNodeMeta(context.Background(), metaFromNode(n)); err != nil {
		m.log.Warnf("refresh node %s: %v", nodeID, err)
	}
}

// MessageQueued bumps the inbox counter of the destination.
func (m *Manager) MessageQueued(nodeID string) {
	if m.redis == nil {
		return
	}
	if err := m.redis.IncrementInbox(context.Background(), nodeID); err != nil {
		m.log.Warnf("inbox incr %s: %v", nodeID, err)
	}
}

// MessageDelivered lowers the inbox counter of the destination.
func (m *Manager) MessageDelivered(nodeID string) {
	if m.redis == nil {
		return
	}
	if err := m.redis.DecrementInbox(context.Background(), nodeID); err != nil {
		m.log.Warnf("inbox decr %s: %v", nodeID, err)
	}
}

// GetNodeState reads node state from Redis, falls back to the registry.
func (m *Manager) GetNodeState(nodeID string) (*NodeState, error) {
	if m.redis != nil {
		ctx := context.Background()
		meta, err := m.redis.GetNodeMeta(ctx, nodeID)
		if err == nil && meta != nil {
			inbox, _ := m.redis.GetInbox(ctx, nodeID)
			return &NodeState{NodeMeta: *meta, Inbox: inbox}, nil
		}
	}
	return m.stateFromRegistry(nodeID)
}

// GetAllNodeStates reads every node state, preferring Redis. Sorted by id.
func (m *Manager) GetAllNodeStates() ([]*NodeState, error) {
	var states []*NodeState
	if m.redis != nil {
		ids, err := m.redis.GetAllNodeIDs(context.Background())
		if err == nil && len(ids) > 0 {
			for _, id := range ids {
				if st, err := m.GetNodeState(id); err == nil {
					states = append(states, st)
				}
			}
			sortStates(states)
			return states, nil
		}
	}
	for _, n := range m.nodes.List() {
		states = append(states, &NodeState{NodeMeta: *metaFromNode(n), Inbox: m.inbox.PendingFor(n.ID)})
	}
	sortStates(states)
	return states, nil
}

func (m *Manager) stateFromRegistry(nodeID string) (*NodeState, error) {
	n, err := m.nodes.Get(nodeID)
	if err != nil {
		return nil, err
	}
	return &NodeState{NodeMeta: *metaFromNode(n), Inbox: m.inbox.PendingFor(nodeID)}, nil
}

func sortStates(states []*NodeState) {
	sort.Slice(states, func(i, j int) bool { return states[i].NodeID < states[j].NodeID })
}
