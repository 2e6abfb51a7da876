package pagination

import (
	"context"
	"sync"
)

// State is the accumulated pagination state of one parent entity
type State[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
	Loading bool `json:"loading"`
}

// FetchFunc loads one page. It returns the page items and whether more pages follow.
type FetchFunc[T any] func(ctx context.Context, page int) ([]T, bool, error)

// Cursor tracks incremental "load more" pagination per parent entity.
// Pages accumulate without de-duplication; the backend must return disjoint pages.
type Cursor[T any] struct {
	mu     sync.Mutex
	states map[string]*parentState[T]
}

type parentState[T any] struct {
	items   []T
	page    int
	hasMore bool
	loading bool
	// generation changes on Reset so a load started before it is dropped
	generation uint64
}

// NewCursor creates an empty cursor
func NewCursor[T any]() *Cursor[T] {
	return &Cursor[T]{states: make(map[string]*parentState[T])}
}

// Reset discards all pages held for parentID
func (c *Cursor[T]) Reset(parentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := uint64(0)
	if s, ok := c.states[parentID]; ok {
		gen = s.generation + 1
	}
	c.states[parentID] = &parentState[T]{hasMore: true, generation: gen}
}

// Restore replaces the state of parentID with a previously saved one.
// A load in flight for parentID is dropped.
func (c *Cursor[T]) Restore(parentID string, st State[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := uint64(0)
	if s, ok := c.states[parentID]; ok {
		gen = s.generation + 1
	}
	c.states[parentID] = &parentState[T]{
		items:      append([]T(nil), st.Items...),
		page:       st.Page,
		hasMore:    st.HasMore,
		generation: gen,
	}
}

// AppendPage adds the next page of items for parentID
func (c *Cursor[T]) AppendPage(parentID string, items []T, hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(c.stateLocked(parentID), items, hasMore)
}

// State returns a copy of the state held for parentID
func (c *Cursor[T]) State(parentID string) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stateLocked(parentID)
	return State[T]{
		Items:   append([]T(nil), s.items...),
		Page:    s.page,
		HasMore: s.hasMore,
		Loading: s.loading,
	}
}

// Update calls fn on every item held for parentID and reports whether fn
// changed any of them
func (c *Cursor[T]) Update(parentID string, fn func(item *T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.states[parentID]
	if !ok {
		return false
	}
	changed := false
	for i := range s.items {
		if fn(&s.items[i]) {
			changed = true
		}
	}
	return changed
}

// Parents returns the ids of every parent with state
func (c *Cursor[T]) Parents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.states))
	for id := range c.states {
		out = append(out, id)
	}
	return out
}

// LoadMore fetches the next page for parentID. It does nothing and reports
// false when no more pages exist or a load for that parent is already in flight.
func (c *Cursor[T]) LoadMore(ctx context.Context, parentID string, fetch FetchFunc[T]) (bool, error) {
	c.mu.Lock()
	s := c.stateLocked(parentID)
	if !s.hasMore || s.loading {
		c.mu.Unlock()
		return false, nil
	}
	s.loading = true
	page := s.page + 1
	gen := s.generation
	c.mu.Unlock()

	items, hasMore, err := fetch(ctx, page)

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.stateLocked(parentID)
	if current.generation != gen {
		// Reset while loading; the page belongs to a discarded sequence
		return true, err
	}
	current.loading = false
	if err != nil {
		return true, err
	}
	c.appendLocked(current, items, hasMore)
	return true, nil
}

func (c *Cursor[T]) stateLocked(parentID string) *parentState[T] {
	s, ok := c.states[parentID]
	if !ok {
		s = &parentState[T]{hasMore: true}
		c.states[parentID] = s
	}
	return s
}

func (c *Cursor[T]) appendLocked(s *parentState[T], items []T, hasMore bool) {
	s.items = append(s.items, items...)
	s.page++
	s.hasMore = hasMore
}
