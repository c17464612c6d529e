// acl/source.go
package acl

import (
	"context"

	"github.com/dev-mohitbeniwal/warden/model"
)

// Source is the authoritative supplier of ACL data. FetchACLs returns the
// full set of ACLs relevant to the given object identity types. LookupKey is
// the deterministic mapping from a type to the key an ACL record carries for
// it; it is used only for the match predicate when filtering.
type Source interface {
	FetchACLs(ctx context.Context, types []model.ObjectIdentityType) ([]model.ACL, error)
	LookupKey(t model.ObjectIdentityType) string
}
