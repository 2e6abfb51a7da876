package mutation

import (
	"context"
	"sync"

	"github.com/Rrens/chatdesk/internal/domain"
)

// Holder is any local copy of entity state: a view's in-memory rows or a
// cache entry. Holders that do not hold the id report false from Snapshot.
type Holder interface {
	Name() string
	Snapshot(ctx context.Context, id string, fields []string) (domain.Fields, bool)
	Apply(ctx context.Context, id string, fields domain.Fields) error
}

// Resolver returns holders that exist only for a particular entity id,
// such as the detail cache entry of that entity
type Resolver func(id string) []Holder

// Registry tracks the holders of one entity kind
type Registry struct {
	mu        sync.RWMutex
	nextID    int
	holders   map[int]Holder
	resolvers []Resolver
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{holders: make(map[int]Holder)}
}

// Add registers h and returns a function that removes it
func (r *Registry) Add(h Holder) (remove func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.holders[id] = h
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.holders, id)
		r.mu.Unlock()
	}
}

// AddResolver registers a per-id holder source
func (r *Registry) AddResolver(fn Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers = append(r.resolvers, fn)
}

// For returns every candidate holder for id in registration order
func (r *Registry) For(id string) []Holder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Holder, 0, len(r.holders)+len(r.resolvers))
	for i := 1; i <= r.nextID; i++ {
		if h, ok := r.holders[i]; ok {
			out = append(out, h)
		}
	}
	for _, fn := range r.resolvers {
		out = append(out, fn(id)...)
	}
	return out
}
