// audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	RecordEvent(ctx context.Context, event CacheEvent) error
	QueryEvents(ctx context.Context, from, to time.Time, event string) ([]CacheEvent, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RecordEvent(ctx context.Context, event CacheEvent) error {
	return s.repo.RecordEvent(ctx, event)
}

func (s *service) QueryEvents(ctx context.Context, from, to time.Time, event string) ([]CacheEvent, error) {
	return s.repo.QueryEvents(ctx, from, to, event)
}
