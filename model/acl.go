// model/acl.go
package model

import (
	"time"
)

// ObjectIdentityType names a category of protected resource, e.g. "provider",
// "system" or "catalog-item". The set of types a cache instance tracks is fixed
// when the instance is created.
type ObjectIdentityType string

// ACL is an authorization record as returned by the authoritative store. Scopes
// maps a per-type lookup key (see Source.LookupKey) to the identifier of the
// object the record protects. An ACL applies to an object identity type when
// that type's lookup key is present in Scopes.
type ACL struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Effect     string            `json:"effect"` // "allow" or "deny"
	Principals []string          `json:"principals"`
	Actions    []string          `json:"actions"`
	Scopes     map[string]string `json:"scopes"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// HasScope reports whether the record carries the given lookup key.
func (a ACL) HasScope(lookupKey string) bool {
	_, ok := a.Scopes[lookupKey]
	return ok
}

// HasAnyScope reports whether the record carries at least one of the given
// lookup keys.
func (a ACL) HasAnyScope(lookupKeys []string) bool {
	for _, key := range lookupKeys {
		if a.HasScope(key) {
			return true
		}
	}
	return false
}
