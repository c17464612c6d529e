// audit/model.go
package audit

import (
	"time"
)

// Cache event names recorded to the audit index.
const (
	EventRefreshSucceeded = "cache.refresh.succeeded"
	EventRefreshFailed    = "cache.refresh.failed"
	EventRefreshSkipped   = "cache.refresh.skipped"
	EventBypass           = "cache.bypass"
	EventForcedExpiration = "cache.forced_expiration"
)

type CacheEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Types     []string  `json:"types,omitempty"`
	Error     string    `json:"error,omitempty"`
}
