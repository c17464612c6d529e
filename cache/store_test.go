// cache/store_test.go
package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

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

func someACLs() []model.ACL {
	return []model.ACL{
		{ID: "acl-1", Name: "providers-read", Effect: "allow", Scopes: map[string]string{"provider_id": "p-1"}},
		{ID: "acl-2", Name: "systems-read", Effect: "allow", Scopes: map[string]string{"system_id": "s-1"}},
	}
}

func TestGetOrLoad_HitSkipsLoader(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, "k", someACLs()))

	acls, err := store.GetOrLoad(ctx, "k", func(ctx context.Context) ([]model.ACL, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	assert.NoError(t, err)
	assert.Len(t, acls, 2)
}

func TestGetOrLoad_CoalescesConcurrentMisses(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var loads int32
	loader := func(ctx context.Context) ([]model.ACL, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(100 * time.Millisecond)
		return someACLs(), nil
	}

	const callers = 50
	results := make([][]model.ACL, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = store.GetOrLoad(ctx, "k", loader)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads), "all concurrent misses must share one load")
	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestGetOrLoad_ErrorPropagatesToAllWaiters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	loadErr := errors.New("source down")

	var loads int32
	release := make(chan struct{})
	loader := func(ctx context.Context) ([]model.ACL, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return nil, loadErr
	}

	const callers = 10
	errs := make([]error, callers)

	var wg sync.WaitGroup
	var ready sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		ready.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			_, errs[i] = store.GetOrLoad(ctx, "k", loader)
		}(i)
	}
	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, errs[i], loadErr)
	}

	// Nothing was stored; the next caller retries the loader.
	_, ok := store.Get("k")
	assert.False(t, ok)

	acls, err := store.GetOrLoad(ctx, "k", func(ctx context.Context) ([]model.ACL, error) {
		return someACLs(), nil
	})
	assert.NoError(t, err)
	assert.Len(t, acls, 2)
}

func TestPut_Overwrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, "k", someACLs()))
	replacement := []model.ACL{{ID: "acl-9", Scopes: map[string]string{"catalog-item_id": "c-1"}}}
	assert.NoError(t, store.Put(ctx, "k", replacement))

	acls, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, replacement, acls)
}

func TestInvalidate_RemovesEntry(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.NoError(t, store.Put(ctx, "k", someACLs()))
	store.Invalidate("k")

	_, ok := store.Get("k")
	assert.False(t, ok)

	var loads int32
	_, err := store.GetOrLoad(ctx, "k", func(ctx context.Context) ([]model.ACL, error) {
		atomic.AddInt32(&loads, 1)
		return someACLs(), nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), loads)
}
