// Package registry holds the set of trading nodes. Node attributes are fixed
// at registration; only the lifecycle status may change afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"tradecore/logging"
	"tradecore/model"
)

// EventEmitter is notified of registry changes.
type EventEmitter interface {
	EmitNodeRegistered(node model.Node)
	EmitNodeStatusChanged(nodeID string, oldStatus, newStatus model.NodeStatus)
}

// Registry is the in-memory index of nodes, written through to a repository.
type Registry struct {
	mu      sync.RWMutex
	nodes   map[string]model.Node
	repo    model.Repository[model.Node]
	emitter EventEmitter
	log     *zap.SugaredLogger
}

// New creates an empty registry persisting through repo.
func New(repo model.Repository[model.Node], emitter EventEmitter, log *zap.Logger) *Registry {
	return &Registry{
		nodes:   make(map[string]model.Node),
		repo:    repo,
		emitter: emitter,
		log:     logging.Named(log, "registry"),
	}
}

// Load hydrates the index from the repository. Returns the number loaded.
func (r *Registry) Load() (int, error) {
	nodes, err := r.repo.FindAll()
	if err != nil {
		return 0, fmt.Errorf("load nodes: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range nodes {
		r.nodes[n.ID] = n
	}
	return len(nodes), nil
}

// Register adds a node. The id must be new.
func (r *Registry) Register(n model.Node) error {
	if err := validate(n); err != nil {
		return err
	}
	r.mu.Lock()
	if _, ok := r.nodes[n.ID]; ok {
		r.mu.Unlock()
		return &model.DuplicateNodeError{ID: n.ID}
	}
	if err := r.repo.Save(n); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("register %s: %w", n.ID, err)
	}
	r.nodes[n.ID] = n.Clone()
	r.mu.Unlock()

	r.log.Infof("registered node %s (%s, zone %s, latency %s)", n.ID, n.Name, n.Zone, n.Latency)
	if r.emitter != nil {
		r.emitter.EmitNodeRegistered(n.Clone())
	}
	return nil
}

// Get returns a copy of the node with the given id.
func (r *Registry) Get(id string) (model.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return model.Node{}, &model.UnknownNodeError{ID: id}
	}
	return n.Clone(), nil
}

// List returns every node sorted by id.
func (r *Registry) List() []model.Node {
	r.mu.RLock()
	out := make([]model.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// CountByStatus returns how many nodes are in the given status.
func (r *Registry) CountByStatus(status model.NodeStatus) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.nodes {
		if n.Status == status {
			count++
		}
	}
	return count
}

// SetStatus changes a node's lifecycle status.
func (r *Registry) SetStatus(id string, status model.NodeStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid node status %q", status)
	}
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok {
		r.mu.Unlock()
		return &model.UnknownNodeError{ID: id}
	}
	old := n.Status
	if old == status {
		r.mu.Unlock()
		return nil
	}
	n.Status = status
	if err := r.repo.Save(n); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("set status %s: %w", id, err)
	}
	r.nodes[id] = n
	r.mu.Unlock()

	r.log.Infof("node %s status %s -> %s", id, old, status)
	if r.emitter != nil {
		r.emitter.EmitNodeStatusChanged(id, old, status)
	}
	return nil
}

// Seed registers each node that is not already present. Returns how many
// were added.
func (r *Registry) Seed(nodes []model.Node) (int, error) {
	added := 0
	for _, n := range nodes {
		err := r.Register(n)
		var dup *model.DuplicateNodeError
		switch {
		case errors.As(err, &dup):
			continue
		case err != nil:
			return added, err
		}
		added++
	}
	return added, nil
}

func validate(n model.Node) error {
	switch {
	case n.ID == "":
		return errors.New("node id is required")
	case n.Latency < 0:
		return fmt.Errorf("node %s: latency must be non-negative", n.ID)
	case !n.Status.Valid():
		return fmt.Errorf("node %s: invalid status %q", n.ID, n.Status)
	case !n.Zone.Valid():
		return fmt.Errorf("node %s: invalid zone %q", n.ID, n.Zone)
	case !n.Position.Unit.Valid():
		return fmt.Errorf("node %s: invalid position unit %q", n.ID, n.Position.Unit)
	}
	return nil
}
