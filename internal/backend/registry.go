package backend

import (
	"fmt"
	"sort"
)

// ModelMock is the identifier the mock! tag forces. It is always
// resolvable.
const ModelMock = "mock"

// Registry routes model identifiers to backends.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry returns a registry with the mock backend preregistered
// under ModelMock.
func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	r.Register(ModelMock, NewMock())
	return r
}

// Register maps a model identifier to a backend, replacing any previous
// mapping.
func (r *Registry) Register(id string, b Backend) {
	r.backends[id] = b
}

// Resolve returns the backend for a model identifier.
func (r *Registry) Resolve(id string) (Backend, error) {
	b, ok := r.backends[id]
	if !ok {
		return nil, fmt.Errorf("no backend registered for model %q (have %v)", id, r.Models())
	}
	return b, nil
}

// Models returns the registered identifiers, sorted.
func (r *Registry) Models() []string {
	ids := make([]string, 0, len(r.backends))
	for id := range r.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
