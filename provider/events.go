package provider

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// Subscription is the handle returned by OnAuthStateChange.
type Subscription struct {
	ID string

	once        sync.Once
	unsubscribe func()
}

// Unsubscribe stops delivery to the listener. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.unsubscribe)
}

// Emitter fans auth state changes out to registered listeners.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string]AuthStateListener
	order     []string
}

func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string]AuthStateListener)}
}

func (e *Emitter) Subscribe(listener AuthStateListener) *Subscription {
	id := uuid.NewString()

	e.mu.Lock()
	e.listeners[id] = listener
	e.order = append(e.order, id)
	e.mu.Unlock()

	return &Subscription{
		ID: id,
		unsubscribe: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.listeners, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		},
	}
}

// Emit calls every listener in registration order. Listeners run on the caller's
// goroutine without any emitter lock held.
func (e *Emitter) Emit(event AuthChangeEvent, session *Session) {
	e.mu.RLock()
	listeners := make([]AuthStateListener, 0, len(e.order))
	for _, id := range e.order {
		listeners = append(listeners, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, l := range listeners {
		l(event, utils.Clone(session))
	}
}

func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
