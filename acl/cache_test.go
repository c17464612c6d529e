// acl/cache_test.go
package acl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/warden/cache"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "warden-test-logs")
	if err != nil {
		panic(err)
	}
	logger.InitLogger(logDir)
	code := m.Run()
	os.RemoveAll(logDir)
	os.Exit(code)
}

type fakeSource struct {
	acls    []model.ACL
	err     error
	fetches [][]model.ObjectIdentityType
}

func (f *fakeSource) FetchACLs(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error) {
	recorded := make([]model.ObjectIdentityType, len(types))
	copy(recorded, types)
	f.fetches = append(f.fetches, recorded)
	if f.err != nil {
		return nil, f.err
	}
	return f.acls, nil
}

func (f *fakeSource) LookupKey(t model.ObjectIdentityType) string {
	return fmt.Sprintf("%s_id", t)
}

func providerACL() model.ACL {
	return model.ACL{ID: "acl-p", Name: "providers", Effect: "allow", Scopes: map[string]string{"provider_id": "p-1"}}
}

func systemACL() model.ACL {
	return model.ACL{ID: "acl-s", Name: "systems", Effect: "allow", Scopes: map[string]string{"system_id": "s-1"}}
}

func bothACL() model.ACL {
	return model.ACL{ID: "acl-b", Name: "both", Effect: "allow", Scopes: map[string]string{"provider_id": "p-2", "system_id": "s-2"}}
}

// Scenario: tracked {provider, system}, empty cache, request for provider only.
// Exactly one fetch covering the full tracked set; only provider-scoped ACLs
// come back.
func TestGetACLs_MissFetchesFullTrackedSet(t *testing.T) {
	source := &fakeSource{acls: []model.ACL{providerACL(), systemACL(), bothACL()}}
	aclCache := New(source, cache.NewStore(), "provider", "system")

	acls, err := aclCache.GetACLs(context.Background(), []model.ObjectIdentityType{"provider"})
	assert.NoError(t, err)

	assert.Len(t, source.fetches, 1)
	assert.ElementsMatch(t, []model.ObjectIdentityType{"provider", "system"}, source.fetches[0])

	assert.Len(t, acls, 2)
	for _, a := range acls {
		assert.True(t, a.HasScope("provider_id"))
	}
}

// Scenario: tracked {A}, request {A, B}. The cache is untouched; one direct
// fetch for exactly {A, B} goes out.
func TestGetACLs_UncoveredTypesBypassCache(t *testing.T) {
	source := &fakeSource{acls: []model.ACL{{ID: "acl-ab", Scopes: map[string]string{"A_id": "1", "B_id": "2"}}}}
	store := cache.NewStore()
	aclCache := New(source, store, "A")

	acls, err := aclCache.GetACLs(context.Background(), []model.ObjectIdentityType{"A", "B"})
	assert.NoError(t, err)

	assert.Len(t, source.fetches, 1)
	assert.Equal(t, []model.ObjectIdentityType{"A", "B"}, source.fetches[0])
	// Bypass returns the source result unfiltered.
	assert.Len(t, acls, 1)

	_, ok := store.Get(CacheKey)
	assert.False(t, ok, "a bypassed request must not populate the cache")
}

func TestGetACLs_SubsetServedFromCache(t *testing.T) {
	source := &fakeSource{acls: []model.ACL{providerACL(), systemACL(), bothACL()}}
	aclCache := New(source, cache.NewStore(), "provider", "system")
	ctx := context.Background()

	_, err := aclCache.GetACLs(ctx, []model.ObjectIdentityType{"provider"})
	assert.NoError(t, err)

	// A differently-scoped subset request hits the same cached entry.
	acls, err := aclCache.GetACLs(ctx, []model.ObjectIdentityType{"system"})
	assert.NoError(t, err)
	assert.Len(t, source.fetches, 1, "second request must be a cache hit")

	assert.Len(t, acls, 2)
	for _, a := range acls {
		assert.True(t, a.HasScope("system_id"))
	}
}

func TestGetACLs_FetchErrorPropagates(t *testing.T) {
	sourceErr := errors.New("source down")
	source := &fakeSource{err: sourceErr}
	aclCache := New(source, cache.NewStore(), "provider")

	_, err := aclCache.GetACLs(context.Background(), []model.ObjectIdentityType{"provider"})
	assert.ErrorIs(t, err, sourceErr)

	// The failure stored nothing; the next call fetches again.
	source.err = nil
	source.acls = []model.ACL{providerACL()}
	acls, err := aclCache.GetACLs(context.Background(), []model.ObjectIdentityType{"provider"})
	assert.NoError(t, err)
	assert.Len(t, acls, 1)
	assert.Len(t, source.fetches, 2)
}

func TestRefresh_FullyReplacesEntry(t *testing.T) {
	source := &fakeSource{acls: []model.ACL{providerACL()}}
	aclCache := New(source, cache.NewStore(), "provider", "system")
	ctx := context.Background()

	warm, err := aclCache.GetACLs(ctx, []model.ObjectIdentityType{"provider"})
	assert.NoError(t, err)
	assert.Len(t, warm, 1)

	// The source now yields a disjoint set.
	replacement := model.ACL{ID: "acl-new", Scopes: map[string]string{"system_id": "s-3"}}
	source.acls = []model.ACL{replacement}

	assert.NoError(t, aclCache.Refresh(ctx))

	acls, err := aclCache.GetACLs(ctx, []model.ObjectIdentityType{"provider", "system"})
	assert.NoError(t, err)
	assert.Equal(t, []model.ACL{replacement}, acls)
}

func TestRefresh_FailureLeavesEntryUntouched(t *testing.T) {
	source := &fakeSource{acls: []model.ACL{providerACL()}}
	aclCache := New(source, cache.NewStore(), "provider")
	ctx := context.Background()

	_, err := aclCache.GetACLs(ctx, []model.ObjectIdentityType{"provider"})
	assert.NoError(t, err)

	source.err = errors.New("source down")
	assert.Error(t, aclCache.Refresh(ctx))

	// The previous entry still serves.
	source.err = nil
	acls, err := aclCache.GetACLs(ctx, []model.ObjectIdentityType{"provider"})
	assert.NoError(t, err)
	assert.Len(t, acls, 1)
	assert.Len(t, source.fetches, 2, "read after failed refresh must not refetch")
}

func TestNewDirect_AlwaysFetches(t *testing.T) {
	source := &fakeSource{acls: []model.ACL{providerACL(), systemACL()}}
	aclCache := NewDirect(source)
	ctx := context.Background()

	requested := []model.ObjectIdentityType{"provider"}
	acls, err := aclCache.GetACLs(ctx, requested)
	assert.NoError(t, err)
	// Direct mode returns the source result unfiltered.
	assert.Len(t, acls, 2)

	_, err = aclCache.GetACLs(ctx, requested)
	assert.NoError(t, err)
	assert.Len(t, source.fetches, 2)

	assert.False(t, aclCache.Enabled())
	assert.NoError(t, aclCache.Refresh(ctx))
	assert.Len(t, source.fetches, 2, "refresh in direct mode is a no-op")
}

func TestUncovered(t *testing.T) {
	aclCache := New(&fakeSource{}, cache.NewStore(), "provider", "system")

	assert.Empty(t, aclCache.Uncovered([]model.ObjectIdentityType{"provider", "system"}))
	assert.Equal(t,
		[]model.ObjectIdentityType{"catalog-item"},
		aclCache.Uncovered([]model.ObjectIdentityType{"provider", "catalog-item"}))
}

func TestTracked_ReturnsCopy(t *testing.T) {
	aclCache := New(&fakeSource{}, cache.NewStore(), "system", "provider", "provider")

	tracked := aclCache.Tracked()
	assert.Equal(t, []model.ObjectIdentityType{"provider", "system"}, tracked)

	tracked[0] = "mutated"
	assert.Equal(t, []model.ObjectIdentityType{"provider", "system"}, aclCache.Tracked())
}
