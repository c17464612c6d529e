// dao/acl_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	warden_errors "github.com/dev-mohitbeniwal/warden/errors"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
)

// ACLDAO reads ACL records from Neo4j. It is the authoritative source the ACL
// cache loads from; it never touches the cache itself.
type ACLDAO struct {
	Driver neo4j.Driver
}

func NewACLDAO(driver neo4j.Driver) *ACLDAO {
	dao := &ACLDAO{Driver: driver}
	// Ensure unique constraint on ACL ID
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the ACL ID
func (dao *ACLDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on ACL ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_acl_id IF NOT EXISTS
        FOR (a:ACL) REQUIRE a.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			logger.Error("Failed to create unique constraint", zap.Error(err))
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to ensure unique constraint on ACL ID", zap.Error(err))
		return err
	}

	return nil
}

// LookupKey maps an object identity type to the scope key ACL records carry
// for it, e.g. "provider" -> "provider_id".
func (dao *ACLDAO) LookupKey(t model.ObjectIdentityType) string {
	return fmt.Sprintf("%s_id", t)
}

// FetchACLs returns every ACL relevant to the given object identity types.
// Types are queried concurrently and the results merged, deduplicated by ID.
func (dao *ACLDAO) FetchACLs(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error) {
	start := time.Now()

	var mu sync.Mutex
	byID := make(map[string]model.ACL)

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range types {
		t := t
		g.Go(func() error {
			acls, err := dao.fetchACLsForType(ctx, t)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, a := range acls {
				byID[a.ID] = a
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]model.ACL, 0, len(byID))
	for _, a := range byID {
		merged = append(merged, a)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })

	logger.Debug("Fetched ACLs from Neo4j",
		zap.Int("typeCount", len(types)),
		zap.Int("aclCount", len(merged)),
		zap.Duration("elapsed", time.Since(start)))
	return merged, nil
}

func (dao *ACLDAO) fetchACLsForType(ctx context.Context, t model.ObjectIdentityType) ([]model.ACL, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	lookupKey := dao.LookupKey(t)

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:ACL)
        WHERE $lookupKey IN a.scope_keys
        RETURN a
        ORDER BY a.id
        `
		records, err := transaction.Run(query, map[string]interface{}{"lookupKey": lookupKey})
		if err != nil {
			return nil, warden_errors.ErrRemoteSourceFailure
		}

		var acls []model.ACL
		for records.Next() {
			node, ok := records.Record().Get("a")
			if !ok {
				continue
			}
			acl, err := parseACLNode(node.(neo4j.Node))
			if err != nil {
				logger.Error("Failed to parse ACL node", zap.Error(err))
				return nil, warden_errors.ErrRemoteSourceFailure
			}
			acls = append(acls, acl)
		}
		return acls, nil
	})
	if err != nil {
		logger.Error("Failed to fetch ACLs for object identity type",
			zap.String("type", string(t)),
			zap.Error(err))
		return nil, err
	}

	return result.([]model.ACL), nil
}

func parseACLNode(node neo4j.Node) (model.ACL, error) {
	props := node.Props

	acl := model.ACL{
		ID:     getStringProp(props, "id"),
		Name:   getStringProp(props, "name"),
		Effect: getStringProp(props, "effect"),
	}

	if raw := getStringProp(props, "principals"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &acl.Principals); err != nil {
			return model.ACL{}, fmt.Errorf("failed to parse principals: %w", err)
		}
	}
	if raw := getStringProp(props, "actions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &acl.Actions); err != nil {
			return model.ACL{}, fmt.Errorf("failed to parse actions: %w", err)
		}
	}
	if raw := getStringProp(props, "scopes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &acl.Scopes); err != nil {
			return model.ACL{}, fmt.Errorf("failed to parse scopes: %w", err)
		}
	}

	if raw := getStringProp(props, "createdAt"); raw != "" {
		if created, err := time.Parse(time.RFC3339, raw); err == nil {
			acl.CreatedAt = created
		}
	}
	if raw := getStringProp(props, "updatedAt"); raw != "" {
		if updated, err := time.Parse(time.RFC3339, raw); err == nil {
			acl.UpdatedAt = updated
		}
	}

	return acl, nil
}

func getStringProp(props map[string]interface{}, key string) string {
	if value, ok := props[key].(string); ok {
		return value
	}
	return ""
}
