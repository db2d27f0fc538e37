package store

import (
	"sync"

	"tradecore/model"
)

// Memory is a model.Repository kept in a map. Values are cloned on the way in
// and out so callers never share slices with the stored copy.
type Memory[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	key   func(T) string
	clone func(T) T
}

// NewMemory creates an empty repository keyed by key.
func NewMemory[T any](key func(T) string, clone func(T) T) *Memory[T] {
	return &Memory[T]{
		items: make(map[string]T),
		key:   key,
		clone: clone,
	}
}

func NewMemoryNodes() *Memory[model.Node] {
	return NewMemory(model.NodeID, model.Node.Clone)
}

func NewMemoryOrders() *Memory[model.Order] {
	return NewMemory(model.OrderID, model.Order.Clone)
}

func NewMemoryAgreements() *Memory[model.Agreement] {
	return NewMemory(model.AgreementID, model.Agreement.Clone)
}

func (m *Memory[T]) Save(entity T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.key(entity)
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = m.clone(entity)
	return nil
}

func (m *Memory[T]) FindByID(id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[id]
	if !ok {
		var zero T
		return zero, model.ErrNotFound
	}
	return m.clone(v), nil
}

// FindAll returns entities in insertion order.
func (m *Memory[T]) FindAll() ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.clone(m.items[id]))
	}
	return out, nil
}

// Len returns the number of stored entities.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
