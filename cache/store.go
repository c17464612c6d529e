// cache/store.go
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dev-mohitbeniwal/warden/model"
)

// Loader produces the value for a cache key on a miss. It is invoked at most
// once per in-flight miss, however many callers are waiting.
type Loader func(ctx context.Context) ([]model.ACL, error)

// Store is an in-process key-value store for ACL collections. Concurrent
// misses for the same key are coalesced: exactly one caller runs the loader
// and every waiter receives the same result, value or error alike. A failed
// load stores nothing, so the next caller retries.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]model.ACL
	group   singleflight.Group
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string][]model.ACL),
	}
}

// Get returns the cached value for key, if present.
func (s *Store) Get(key string) ([]model.ACL, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acls, ok := s.entries[key]
	return acls, ok
}

// GetOrLoad returns the cached value for key, running loader through a
// single-flight group when the key is absent.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader Loader) ([]model.ACL, error) {
	if acls, ok := s.Get(key); ok {
		return acls, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have stored the value while this caller
		// was waiting to enter the flight.
		if acls, ok := s.Get(key); ok {
			return acls, nil
		}

		acls, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		s.store(key, acls)
		return acls, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]model.ACL), nil
}

// Put stores the value unconditionally, overwriting any previous entry.
func (s *Store) Put(ctx context.Context, key string, acls []model.ACL) error {
	s.store(key, acls)
	return nil
}

// Invalidate removes the entry for key, forcing the next access through the
// loader again.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// ForceExpire makes the plain store forget the entry. The consistency-checked
// variant overrides this with a shared-store re-validation instead.
func (s *Store) ForceExpire(key string) {
	s.Invalidate(key)
}

func (s *Store) store(key string, acls []model.ACL) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = acls
}
