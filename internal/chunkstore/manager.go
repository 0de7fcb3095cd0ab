package chunkstore

import "github.com/itohio/flowsched/internal/chunk"

// Manager owns one Store per datatype in the topology.
type Manager struct {
	stores map[chunk.Datatype]*Store
}

// NewManager creates a Store for every datatype in producers (the key set),
// with consumers as given by consumersOf.
func NewManager(producers []chunk.Datatype, consumersOf func(chunk.Datatype) []GeneratorID) *Manager {
	stores := make(map[chunk.Datatype]*Store, len(producers))
	for _, dt := range producers {
		stores[dt] = New(dt, consumersOf(dt))
	}
	return &Manager{stores: stores}
}

// Store returns the Store for dt, or nil if dt is not in the topology.
func (m *Manager) Store(dt chunk.Datatype) *Store {
	return m.stores[dt]
}

// GC runs garbage collection over every datatype store. The first
// ErrDeadOutput encountered is a fatal TopologyError per spec.md §7; GC
// still proceeds through every store of that call, so the stores after a
// failing one are collected too, and only the first error is returned.
func (m *Manager) GC() error {
	var first error
	for _, s := range m.stores {
		if err := s.gc(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// AllEmpty reports whether every store has been fully drained — part of
// the scheduler's terminal condition.
func (m *Manager) AllEmpty() bool {
	for _, s := range m.stores {
		if !s.Empty() {
			return false
		}
	}
	return true
}
