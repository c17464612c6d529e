// service/access_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/warden/acl"
	"github.com/dev-mohitbeniwal/warden/audit"
	"github.com/dev-mohitbeniwal/warden/db"
	warden_errors "github.com/dev-mohitbeniwal/warden/errors"
	logger "github.com/dev-mohitbeniwal/warden/logging"
	"github.com/dev-mohitbeniwal/warden/model"
	"github.com/dev-mohitbeniwal/warden/scheduler"
	"github.com/dev-mohitbeniwal/warden/util"
)

type IAccessService interface {
	GetACLs(ctx context.Context, requested []model.ObjectIdentityType) ([]model.ACL, error)
	Refresh(ctx context.Context) error
	ForceExpire(ctx context.Context, reason string) error
	TrackedTypes() []model.ObjectIdentityType
}

// AccessService fronts the ACL cache for HTTP callers and the scheduler,
// recording cache events to the audit index on the way through.
type AccessService struct {
	aclCache        *acl.Cache
	validationUtil  *util.ValidationUtil
	auditService    audit.Service
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	refreshInterval time.Duration
}

// NewAccessService creates a new instance of AccessService
func NewAccessService(
	aclCache *acl.Cache,
	validationUtil *util.ValidationUtil,
	auditService audit.Service,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	refreshInterval time.Duration,
) *AccessService {
	service := &AccessService{
		aclCache:        aclCache,
		validationUtil:  validationUtil,
		auditService:    auditService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		refreshInterval: refreshInterval,
	}

	// An acl.changed event is the administrative signal that the underlying
	// data was modified out of band.
	eventBus.Subscribe(util.EventACLChanged, service.handleACLChanged)

	return service
}

func (s *AccessService) handleACLChanged(ctx context.Context, event util.Event) error {
	logger.Info("ACL change event received, forcing cache expiration", zap.Any("payload", event.Payload))
	return s.ForceExpire(ctx, "acl.changed event")
}

// GetACLs returns the ACLs applying to the requested object identity types,
// served through the cache when the tracked set covers them.
func (s *AccessService) GetACLs(ctx context.Context, requested []model.ObjectIdentityType) ([]model.ACL, error) {
	if err := s.validationUtil.ValidateObjectIdentityTypes(requested); err != nil {
		logger.Warn("Rejected ACL request", zap.Error(err))
		return nil, warden_errors.ErrInvalidObjectIdentityType
	}

	if uncovered := s.aclCache.Uncovered(requested); len(uncovered) > 0 && s.aclCache.Enabled() {
		s.recordEvent(ctx, audit.CacheEvent{
			Event: audit.EventBypass,
			Types: typeNames(uncovered),
		})
	}

	return s.aclCache.GetACLs(ctx, requested)
}

// Refresh repopulates the cache with a fresh fetch of the full tracked set.
// A distributed lock keeps concurrent replicas from refreshing at once; the
// losing replica gets ErrRefreshAlreadyRunning.
func (s *AccessService) Refresh(ctx context.Context) error {
	if !s.aclCache.Enabled() {
		return nil
	}

	locked, err := db.AcquireRefreshLock(ctx, s.refreshInterval/2)
	if err != nil {
		logger.Warn("Could not acquire refresh lock, refreshing anyway", zap.Error(err))
	} else if !locked {
		logger.Info("Refresh already running on another replica, skipping")
		s.recordEvent(ctx, audit.CacheEvent{Event: audit.EventRefreshSkipped})
		return warden_errors.ErrRefreshAlreadyRunning
	}
	if locked {
		defer func() {
			if err := db.ReleaseRefreshLock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to release refresh lock", zap.Error(err))
			}
		}()
	}

	if err := s.aclCache.Refresh(ctx); err != nil {
		s.recordEvent(ctx, audit.CacheEvent{
			Event: audit.EventRefreshFailed,
			Types: typeNames(s.aclCache.Tracked()),
			Error: err.Error(),
		})
		if notifyErr := s.notificationSvc.NotifyRefreshFailure(ctx, err); notifyErr != nil {
			logger.Warn("Failed to deliver refresh failure notification", zap.Error(notifyErr))
		}
		return err
	}

	s.recordEvent(ctx, audit.CacheEvent{
		Event: audit.EventRefreshSucceeded,
		Types: typeNames(s.aclCache.Tracked()),
	})
	return nil
}

// ForceExpire marks the cache entry so the next read re-validates against the
// shared consistency store immediately.
func (s *AccessService) ForceExpire(ctx context.Context, reason string) error {
	s.aclCache.ForceExpire()

	s.recordEvent(ctx, audit.CacheEvent{
		Event: audit.EventForcedExpiration,
		Types: typeNames(s.aclCache.Tracked()),
	})
	if err := s.notificationSvc.NotifyForcedExpiration(ctx, reason); err != nil {
		logger.Warn("Failed to deliver forced expiration notification", zap.Error(err))
	}

	s.eventBus.Publish(ctx, util.EventCacheExpired, reason)
	return nil
}

// TrackedTypes returns the object identity types this replica's cache serves.
func (s *AccessService) TrackedTypes() []model.ObjectIdentityType {
	return s.aclCache.Tracked()
}

// RefreshJob returns the descriptor the scheduler registers for the periodic
// refresh. A refresh skipped because another replica holds the lock is not a
// job failure.
func (s *AccessService) RefreshJob() scheduler.JobDescriptor {
	return scheduler.JobDescriptor{
		Name:     "acl-cache-refresh",
		Interval: s.refreshInterval,
		Run: func(ctx context.Context) error {
			err := s.Refresh(ctx)
			if err == warden_errors.ErrRefreshAlreadyRunning {
				return nil
			}
			return err
		},
	}
}

func (s *AccessService) recordEvent(ctx context.Context, event audit.CacheEvent) {
	event.ID = uuid.New().String()
	event.Timestamp = time.Now()
	if err := s.auditService.RecordEvent(ctx, event); err != nil {
		logger.Warn("Failed to record cache audit event",
			zap.String("event", event.Event),
			zap.Error(err))
	}
}

func typeNames(types []model.ObjectIdentityType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
