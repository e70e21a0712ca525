package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/rs/zerolog/log"
)

// Phase is the lifecycle position of a State.
type Phase int

const (
	Loading Phase = iota
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "loading"
}

// Snapshot is an immutable view of a State. Value is nil when the key is absent.
type Snapshot struct {
	Phase Phase
	Value *string
}

func (s Snapshot) IsLoading() bool {
	return s.Phase == Loading
}

// State holds the value of a single storage key as a small state machine
// {Loading, Ready(value)}. Writes update the in-memory value immediately and are
// persisted in the background; write failures are logged, never returned.
type State struct {
	backend      Backend
	key          string
	writeTimeout time.Duration

	mu        sync.Mutex
	phase     Phase
	value     *string
	seq       uint64 // incremented on every Set
	pending   int    // background writes not yet finished
	drained   chan struct{}
	listeners map[uint64]func(Snapshot)
	nextID    uint64
	ready     chan struct{}
	readyOnce sync.Once

	loadOnce sync.Once
	writeMu  sync.Mutex
}

// StateOption configures a State.
type StateOption func(*State)

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.writeTimeout = d
	}
}

// NewState returns a State for key in the Loading phase. Call Load to read the
// persisted value.
func NewState(backend Backend, key string, options ...StateOption) *State {
	s := &State{
		backend:      backend,
		key:          key,
		writeTimeout: 10 * time.Second,
		listeners:    make(map[uint64]func(Snapshot)),
		ready:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *State) Key() string {
	return s.key
}

// Load reads the persisted value in the background. Only the first call has any
// effect. A read failure is logged and treated as an absent value.
func (s *State) Load(ctx context.Context) {
	s.loadOnce.Do(func() {
		go s.load(ctx)
	})
}

func (s *State) load(ctx context.Context) {
	var loaded *string
	value, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: reading %q: %w", autherrors.ErrStorage, s.key, err)).Str("key", s.key).Msg("Failed to read from storage")
	} else if found {
		loaded = &value
	}

	s.mu.Lock()
	if s.phase != Loading {
		// A Set won the race, the optimistic value stands
		s.mu.Unlock()
		return
	}
	s.phase = Ready
	s.value = loaded
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	s.readyOnce.Do(func() { close(s.ready) })
}

// Snapshot returns the loading flag and current value.
func (s *State) Snapshot() (loading bool, value *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == Loading, utils.Clone(s.value)
}

// Wait blocks until the State is Ready or ctx is done.
func (s *State) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		return Snapshot{Phase: s.phase, Value: utils.Clone(s.value)}, nil
	case <-ctx.Done():
		return Snapshot{Phase: Loading}, ctx.Err()
	}
}

// Set replaces the value (nil deletes it). The new value is visible and
// subscribers are notified before the write reaches the backend.
func (s *State) Set(value *string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.pending == 0 {
		s.drained = make(chan struct{})
	}
	s.pending++
	s.value = utils.Clone(value)
	s.phase = Ready
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	s.readyOnce.Do(func() { close(s.ready) })

	go s.persist(seq, utils.Clone(value))
}

func (s *State) persist(seq uint64, value *string) {
	defer s.writeDone()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	var err error
	if value == nil {
		err = s.backend.Delete(ctx, s.key)
	} else {
		err = s.backend.Set(ctx, s.key, *value)
	}
	if err != nil {
		metrics.StorageWriteFailures.Inc()
		err = fmt.Errorf("%w: writing %q: %w", autherrors.ErrStorage, s.key, err)
		log.Error().Err(err).Str("key", s.key).Bool("delete", value == nil).Msg("Failed to write to storage")
	}
}

func (s *State) writeDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.drained)
	}
}

// Flush waits until no background write is pending. Sets made while it waits
// are waited for too.
func (s *State) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return nil
	}
	drained := s.drained
	s.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for every change. The returned function removes it and
// is safe to call more than once.
func (s *State) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *State) snapshotLocked() (Snapshot, []func(Snapshot)) {
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return Snapshot{Phase: s.phase, Value: utils.Clone(s.value)}, listeners
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
