// util/notification_service.go

package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/warden/logging"
)

// NotificationService delivers operational notices about the ACL cache to an
// optional webhook. With no webhook configured it degrades to logging.
type NotificationService struct {
	webhookURL string
	client     *http.Client
}

func NewNotificationService(webhookURL string) *NotificationService {
	return &NotificationService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NotificationService) NotifyRefreshFailure(ctx context.Context, err error) error {
	return n.send(ctx, map[string]interface{}{
		"event":     "acl-cache-refresh-failed",
		"error":     err.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (n *NotificationService) NotifyForcedExpiration(ctx context.Context, reason string) error {
	return n.send(ctx, map[string]interface{}{
		"event":     "acl-cache-force-expired",
		"reason":    reason,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (n *NotificationService) send(ctx context.Context, payload map[string]interface{}) error {
	if n.webhookURL == "" {
		logger.Info("NOTIFICATION", zap.Any("payload", payload))
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
