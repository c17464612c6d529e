// cache/consistent.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	warden_errors "github.com/dev-mohitbeniwal/warden/errors"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
)

// HashStore is the shared, cross-process store for content hashes. The Redis
// implementation lives in the db package.
type HashStore interface {
	PublishHash(ctx context.Context, trackedKey, hash string) error
	FetchHash(ctx context.Context, trackedKey string) (string, error)
}

// ConsistencyConfig configures the staleness check of a ConsistentStore.
type ConsistencyConfig struct {
	// CheckInterval is how long a local entry is served without consulting
	// the shared hash store. Defaults to 30 seconds.
	CheckInterval time.Duration

	// TrackedKeys are the shared-store identifiers this store publishes to
	// and validates against.
	TrackedKeys []string

	// AssumeFreshOnError makes an unreachable shared store non-fatal on the
	// read path: the local entry is served as-is and the check is retried
	// after the next interval. When false the read fails with
	// ErrConsistencyStoreUnreachable.
	AssumeFreshOnError bool
}

type consistencyRecord struct {
	hash        string
	lastChecked time.Time
}

// ConsistentStore wraps a Store and cross-checks a locally held content hash
// against the shared hash store at most once per CheckInterval. A mismatch
// means another replica wrote a different ACL set since this replica's last
// write; the local entry is evicted so the next access reloads.
type ConsistentStore struct {
	delegate *Store
	hashes   HashStore
	config   ConsistencyConfig

	mu      sync.Mutex
	records map[string]*consistencyRecord

	now func() time.Time
}

func NewConsistentStore(delegate *Store, hashes HashStore, config ConsistencyConfig) *ConsistentStore {
	if config.CheckInterval <= 0 {
		config.CheckInterval = 30 * time.Second
	}
	return &ConsistentStore{
		delegate: delegate,
		hashes:   hashes,
		config:   config,
		records:  make(map[string]*consistencyRecord),
		now:      time.Now,
	}
}

// GetOrLoad validates the local entry against the shared hash store when the
// check interval has elapsed, then defers to the single-flight store. A load
// triggered by a miss counts as a write: its hash is published.
func (c *ConsistentStore) GetOrLoad(ctx context.Context, key string, loader Loader) ([]model.ACL, error) {
	if err := c.checkFreshness(ctx, key); err != nil {
		return nil, err
	}

	return c.delegate.GetOrLoad(ctx, key, func(ctx context.Context) ([]model.ACL, error) {
		acls, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.recordWrite(ctx, key, acls); err != nil {
			return nil, err
		}
		return acls, nil
	})
}

// Put stores unconditionally and publishes the new content hash.
func (c *ConsistentStore) Put(ctx context.Context, key string, acls []model.ACL) error {
	if err := c.delegate.Put(ctx, key, acls); err != nil {
		return err
	}
	return c.recordWrite(ctx, key, acls)
}

// ForceExpire resets the last-checked timestamp so the very next read performs
// a shared-store check regardless of the interval. The local entry is kept; it
// is only evicted if the check finds a mismatch.
func (c *ConsistentStore) ForceExpire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if record, ok := c.records[key]; ok {
		record.lastChecked = time.Time{}
		logger.Debug("Cache entry marked for immediate consistency check", zap.String("key", key))
	}
}

// Invalidate drops both the local entry and its consistency record.
func (c *ConsistentStore) Invalidate(key string) {
	c.delegate.Invalidate(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, key)
}

func (c *ConsistentStore) checkFreshness(ctx context.Context, key string) error {
	c.mu.Lock()
	record, ok := c.records[key]
	if !ok || c.now().Sub(record.lastChecked) < c.config.CheckInterval {
		c.mu.Unlock()
		return nil
	}
	localHash := record.hash
	c.mu.Unlock()

	for _, trackedKey := range c.config.TrackedKeys {
		sharedHash, err := c.hashes.FetchHash(ctx, trackedKey)
		if err != nil {
			if c.config.AssumeFreshOnError {
				logger.Warn("Consistency store unreachable, serving local entry as-is",
					zap.String("trackedKey", trackedKey),
					zap.Error(err))
				c.touch(key)
				return nil
			}
			logger.Error("Consistency store unreachable",
				zap.String("trackedKey", trackedKey),
				zap.Error(err))
			return warden_errors.ErrConsistencyStoreUnreachable
		}

		if sharedHash != localHash {
			logger.Info("Stale cache entry detected, evicting",
				zap.String("key", key),
				zap.String("trackedKey", trackedKey),
				zap.String("localHash", localHash),
				zap.String("sharedHash", sharedHash))
			c.Invalidate(key)
			return nil
		}
	}

	c.touch(key)
	return nil
}

func (c *ConsistentStore) recordWrite(ctx context.Context, key string, acls []model.ACL) error {
	hash, err := hashACLs(acls)
	if err != nil {
		return fmt.Errorf("failed to hash cache entry: %w", err)
	}

	for _, trackedKey := range c.config.TrackedKeys {
		if err := c.hashes.PublishHash(ctx, trackedKey, hash); err != nil {
			logger.Error("Failed to publish consistency hash",
				zap.String("trackedKey", trackedKey),
				zap.Error(err))
			return warden_errors.ErrConsistencyHashPublishFailure
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[key] = &consistencyRecord{hash: hash, lastChecked: c.now()}
	return nil
}

func (c *ConsistentStore) touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if record, ok := c.records[key]; ok {
		record.lastChecked = c.now()
	}
}

// hashACLs computes a deterministic content hash for an ACL collection. The
// collection is sorted by ID before marshalling so that two replicas holding
// the same set publish the same hash.
func hashACLs(acls []model.ACL) (string, error) {
	sorted := make([]model.ACL, len(acls))
	copy(sorted, acls)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	data, err := json.Marshal(sorted)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
