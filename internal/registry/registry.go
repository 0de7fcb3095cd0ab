// Package registry provides a name -> builder map, generalized from the
// teacher's plugin.Registry (one registry served pipeline Steps; this one
// serves scheduler Generators, keyed by kind name instead of step name).
package registry

import (
	"errors"
	"sync"

	"github.com/itohio/flowsched/internal/options"
)

var (
	ErrExists   = errors.New("registry: already exists")
	ErrNotFound = errors.New("registry: not found")
)

// Builder constructs an instance from options. Generator kinds register one of
// these under a name; callers then build instances by name.
type Builder func(opts ...options.Option) (interface{}, error)

type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

func New() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

func (r *Registry) Register(name string, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return ErrExists
	}
	r.builders[name] = b
	return nil
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.builders, name)
}

func (r *Registry) New(name string, opts ...options.Option) (interface{}, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return b(opts...)
}
