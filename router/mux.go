package router

import (
	"sort"
	"sync"
)

type Subscription interface {
	Unsubscribe()
}

// Mux maps message types to handlers. Lookups for a type nobody registered
// return nothing, so callers can ignore unknown messages without special
// casing them.
type Mux[H any] struct {
	mu         sync.RWMutex
	sorted     []string
	handlers   map[string][]*Entry[H]
	routeMatch func(pattern, msgType string) bool
	nextID     uint64
}

type Entry[H any] struct {
	mux     *Mux[H]
	id      uint64
	pattern string
	Handler H
}

// Unsubscribe removes this entry from its mux. Calling it twice is a no-op.
func (e *Entry[H]) Unsubscribe() {
	m := e.mux
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.handlers[e.pattern]
	kept := make([]*Entry[H], 0, len(old))
	for _, x := range old {
		if x.id != e.id {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		delete(m.handlers, e.pattern)
		m.resort()
		return
	}
	m.handlers[e.pattern] = kept
}

func NewMux[H any](opts ...Option) *Mux[H] {
	cfg := options{routeMatch: exactMatch}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Mux[H]{
		handlers:   make(map[string][]*Entry[H]),
		routeMatch: cfg.routeMatch,
	}
}

// Add registers handler for pattern. Handlers registered for the same
// pattern are returned in registration order.
func (m *Mux[H]) Add(pattern string, handler H) *Entry[H] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers == nil {
		m.handlers = make(map[string][]*Entry[H])
	}

	m.nextID++
	e := &Entry[H]{
		mux:     m,
		id:      m.nextID,
		pattern: pattern,
		Handler: handler,
	}

	if _, exists := m.handlers[pattern]; !exists {
		m.handlers[pattern] = nil
		m.resort()
	}
	m.handlers[pattern] = append(m.handlers[pattern], e)

	return e
}

// Get returns the handlers registered for msgType.
func (m *Mux[H]) Get(msgType string) []H {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.match(msgType)
	out := make([]H, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Handler)
	}
	return out
}

// Patterns lists registered patterns in sorted order.
func (m *Mux[H]) Patterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.sorted))
	copy(out, m.sorted)
	return out
}

func (m *Mux[H]) match(msgType string) []*Entry[H] {
	if o, ok := m.handlers[msgType]; ok {
		return o
	}

	for _, p := range m.sorted {
		if m.routeMatch(p, msgType) {
			return m.handlers[p]
		}
	}

	return nil
}

func (m *Mux[H]) resort() {
	keys := make([]string, 0, len(m.handlers))
	for k := range m.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.sorted = keys
}

func exactMatch(pattern, msgType string) bool {
	return pattern == msgType
}
