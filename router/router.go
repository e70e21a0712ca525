package router

import (
	"sync"
)

// Router tracks the current screen. Replace swaps the current route without
// growing a back stack, history only records what was shown.
type Router struct {
	mu        sync.Mutex
	current   string
	history   []string
	listeners map[uint64]func(route string)
	nextID    uint64
}

func New() *Router {
	return &Router{
		current:   RouteIndex,
		history:   []string{RouteIndex},
		listeners: make(map[uint64]func(string)),
	}
}

func (r *Router) Replace(route string) {
	r.mu.Lock()
	r.current = route
	r.history = append(r.history, route)
	listeners := make([]func(string), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(route)
	}
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every route shown, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// OnChange registers fn for route changes. The returned function removes it.
func (r *Router) OnChange(fn func(route string)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}
