// test/mock/access_service.go
package mock

import (
	"context"

	"github.com/dev-mohitbeniwal/warden/model"
)

// AccessService is a hand-rolled mock of service.IAccessService for
// controller tests. Unset functions fall back to zero values.
type AccessService struct {
	GetACLsFunc      func(ctx context.Context, requested []model.ObjectIdentityType) ([]model.ACL, error)
	RefreshFunc      func(ctx context.Context) error
	ForceExpireFunc  func(ctx context.Context, reason string) error
	TrackedTypesFunc func() []model.ObjectIdentityType
}

func (m *AccessService) GetACLs(ctx context.Context, requested []model.ObjectIdentityType) ([]model.ACL, error) {
	if m.GetACLsFunc == nil {
		return nil, nil
	}
	return m.GetACLsFunc(ctx, requested)
}

func (m *AccessService) Refresh(ctx context.Context) error {
	if m.RefreshFunc == nil {
		return nil
	}
	return m.RefreshFunc(ctx)
}

func (m *AccessService) ForceExpire(ctx context.Context, reason string) error {
	if m.ForceExpireFunc == nil {
		return nil
	}
	return m.ForceExpireFunc(ctx, reason)
}

func (m *AccessService) TrackedTypes() []model.ObjectIdentityType {
	if m.TrackedTypesFunc == nil {
		return nil
	}
	return m.TrackedTypesFunc()
}
