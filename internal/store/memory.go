package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Repository. Records are kept most-recent first.
type Memory[T Entity] struct {
	name string

	mu        sync.RWMutex
	items     []T
	observers []Observer
}

var _ Repository[Entity] = (*Memory[Entity])(nil)

// NewMemory creates an empty collection named name.
func NewMemory[T Entity](name string) *Memory[T] {
	return &Memory[T]{name: name}
}

// Name returns the collection name used in change events.
func (m *Memory[T]) Name() string { return m.name }

// Observe registers fn to be called after every committed mutation.
func (m *Memory[T]) Observe(fn Observer) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

func (m *Memory[T]) notify(ctx context.Context, c Change) {
	m.mu.RLock()
	obs := append([]Observer(nil), m.observers...)
	m.mu.RUnlock()
	for _, fn := range obs {
		fn(ctx, c)
	}
}

func (m *Memory[T]) indexOf(id string) int {
	for i, it := range m.items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

func (m *Memory[T]) List(_ context.Context, filter string) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.items))
	for _, it := range m.items {
		if !Matches(it.SearchFields(), filter) {
			continue
		}
		c, err := Clone(it)
		if err != nil {
			return nil, fmt.Errorf("copy %s %s: %w", m.name, it.Key(), err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	i := m.indexOf(id)
	if i < 0 {
		return zero, fmt.Errorf("%s %s: %w", m.name, id, ErrNotFound)
	}
	return Clone(m.items[i])
}

func (m *Memory[T]) Insert(ctx context.Context, rec T) error {
	id := rec.Key()
	if id == "" {
		return fmt.Errorf("insert %s: %w", m.name, ErrEmptyID)
	}
	c, err := Clone(rec)
	if err != nil {
		return fmt.Errorf("insert %s %s: %w", m.name, id, err)
	}
	m.mu.Lock()
	if m.indexOf(id) >= 0 {
		m.mu.Unlock()
		return fmt.Errorf("insert %s %s: %w", m.name, id, ErrDuplicateID)
	}
	m.items = append([]T{c}, m.items...)
	m.mu.Unlock()
	m.notify(ctx, Change{Collection: m.name, Action: ActionCreate, ID: id})
	return nil
}

func (m *Memory[T]) Update(ctx context.Context, id string, rec T) error {
	newID := rec.Key()
	if newID == "" {
		return fmt.Errorf("update %s %s: %w", m.name, id, ErrEmptyID)
	}
	c, err := Clone(rec)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", m.name, id, err)
	}
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("update %s %s: %w", m.name, id, ErrNotFound)
	}
	if newID != id && m.indexOf(newID) >= 0 {
		m.mu.Unlock()
		return fmt.Errorf("update %s %s -> %s: %w", m.name, id, newID, ErrDuplicateID)
	}
	m.items[i] = c
	m.mu.Unlock()
	ch := Change{Collection: m.name, Action: ActionUpdate, ID: newID}
	if newID != id {
		ch.PrevID = id
	}
	m.notify(ctx, ch)
	return nil
}

func (m *Memory[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("delete %s %s: %w", m.name, id, ErrNotFound)
	}
	m.items = append(m.items[:i:i], m.items[i+1:]...)
	m.mu.Unlock()
	m.notify(ctx, Change{Collection: m.name, Action: ActionDelete, ID: id})
	return nil
}

func (m *Memory[T]) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
	m.notify(ctx, Change{Collection: m.name, Action: ActionClear})
	return nil
}

func (m *Memory[T]) Len(_ context.Context) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Snapshot returns the records in stored order. The records share their
// slices with the store and must not be modified.
func (m *Memory[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]T(nil), m.items...)
}

// Restore replaces the collection with items without notifying observers.
// Items are kept in the given order.
func (m *Memory[T]) Restore(items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.Key()]; dup {
			return fmt.Errorf("restore %s %s: %w", m.name, it.Key(), ErrDuplicateID)
		}
		seen[it.Key()] = struct{}{}
	}
	m.mu.Lock()
	m.items = append([]T(nil), items...)
	m.mu.Unlock()
	return nil
}
