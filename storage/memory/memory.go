// Package memory is the non-persistent fallback backend, used where no secure
// storage is available.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// New returns a Store whose entries never expire.
func New() *Store {
	return NewWithTTL(cache.NoExpiration)
}

// NewWithTTL returns a Store whose entries expire ttl after they are written.
func NewWithTTL(ttl time.Duration) *Store {
	cleanup := 10 * time.Minute
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &Store{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	return str, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}
