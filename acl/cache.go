// acl/cache.go
package acl

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/warden/cache"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
)

// CacheKey is the single well-known slot holding the full ACL collection for
// every tracked object identity type. Partial population is disallowed: a
// fetch always covers the whole tracked set, so a miss for one type can never
// leave a later, differently-scoped request looking at an incomplete entry.
const CacheKey = "acl:tracked"

// Store is the cache a Cache reads through. Both the plain single-flight
// store and the consistency-checked variant satisfy it.
type Store interface {
	GetOrLoad(ctx context.Context, key string, loader cache.Loader) ([]model.ACL, error)
	Put(ctx context.Context, key string, acls []model.ACL) error
	ForceExpire(key string)
}

// Cache binds a fixed set of tracked object identity types to a cache store
// and routes ACL requests: served from cache when the requested types are
// covered, bypassed to the source when they are not.
type Cache struct {
	source  Source
	store   Store
	tracked []model.ObjectIdentityType
	covered map[model.ObjectIdentityType]struct{}
}

// New builds a cache permanently associated with the given tracked types. The
// tracked set is copied and never mutated afterwards.
func New(source Source, store Store, tracked ...model.ObjectIdentityType) *Cache {
	covered := make(map[model.ObjectIdentityType]struct{}, len(tracked))
	types := make([]model.ObjectIdentityType, 0, len(tracked))
	for _, t := range tracked {
		if _, ok := covered[t]; ok {
			continue
		}
		covered[t] = struct{}{}
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return &Cache{
		source:  source,
		store:   store,
		tracked: types,
		covered: covered,
	}
}

// NewDirect builds the cache-disabled variant: every request goes straight to
// the source.
func NewDirect(source Source) *Cache {
	return &Cache{source: source}
}

// Enabled reports whether requests can be served from cache at all.
func (c *Cache) Enabled() bool {
	return c.store != nil
}

// Tracked returns a copy of the tracked object identity types.
func (c *Cache) Tracked() []model.ObjectIdentityType {
	types := make([]model.ObjectIdentityType, len(c.tracked))
	copy(types, c.tracked)
	return types
}

// Uncovered returns the requested types the tracked set cannot serve.
func (c *Cache) Uncovered(requested []model.ObjectIdentityType) []model.ObjectIdentityType {
	var uncovered []model.ObjectIdentityType
	seen := make(map[model.ObjectIdentityType]struct{}, len(requested))
	for _, t := range requested {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := c.covered[t]; !ok {
			uncovered = append(uncovered, t)
		}
	}
	return uncovered
}

// GetACLs returns the ACLs applying to the requested object identity types.
//
// When the cache is disabled the source is called directly with the requested
// types and its result returned unfiltered. When any requested type falls
// outside the tracked set the cache is bypassed for this request: serving it
// from cache would silently omit the unconfigured types forever. Otherwise
// the full tracked collection is read through the cache and filtered down to
// the ACLs matching at least one requested type.
func (c *Cache) GetACLs(ctx context.Context, requested []model.ObjectIdentityType) ([]model.ACL, error) {
	if !c.Enabled() {
		return c.source.FetchACLs(ctx, requested)
	}

	if uncovered := c.Uncovered(requested); len(uncovered) > 0 {
		logger.Info("ACL cache bypassed, requested types not covered by tracked set",
			zap.Any("uncovered", uncovered),
			zap.Any("tracked", c.tracked))
		return c.source.FetchACLs(ctx, requested)
	}

	acls, err := c.store.GetOrLoad(ctx, CacheKey, func(ctx context.Context) ([]model.ACL, error) {
		return c.source.FetchACLs(ctx, c.tracked)
	})
	if err != nil {
		return nil, err
	}

	return c.filter(acls, requested), nil
}

// Refresh fetches the full tracked collection and stores it unconditionally,
// replacing any prior entry regardless of age or validity. A fetch failure
// propagates and leaves the existing entry untouched.
func (c *Cache) Refresh(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	acls, err := c.source.FetchACLs(ctx, c.tracked)
	if err != nil {
		return err
	}

	if err := c.store.Put(ctx, CacheKey, acls); err != nil {
		return err
	}

	logger.Info("ACL cache refreshed",
		zap.Int("aclCount", len(acls)),
		zap.Any("tracked", c.tracked))
	return nil
}

// ForceExpire marks the cache entry for an immediate consistency check on the
// next read. Used when the caller knows the underlying data changed, e.g. an
// administrative cache-clear signal.
func (c *Cache) ForceExpire() {
	if !c.Enabled() {
		return
	}
	c.store.ForceExpire(CacheKey)
}

func (c *Cache) filter(acls []model.ACL, requested []model.ObjectIdentityType) []model.ACL {
	lookupKeys := make([]string, 0, len(requested))
	for _, t := range requested {
		lookupKeys = append(lookupKeys, c.source.LookupKey(t))
	}

	matched := make([]model.ACL, 0, len(acls))
	for _, a := range acls {
		if a.HasAnyScope(lookupKeys) {
			matched = append(matched, a)
		}
	}
	return matched
}
