// api/util/notification_service.go

package util

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/hoteltrack/api/logging"
)

// Alert is an escalation raised to operators. Integrity findings are never
// auto-corrected, so a human has to see them.
type Alert struct {
	Severity  string            `json:"severity"`
	Subject   string            `json:"subject"`
	Details   map[string]string `json:"details,omitempty"`
	RaisedAt  time.Time         `json:"raisedAt"`
	Component string            `json:"component"`
}

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// AlertSink delivers alerts somewhere outside the process.
type AlertSink interface {
	Deliver(ctx context.Context, alert Alert) error
}

type NotificationService struct {
	mu    sync.Mutex
	sinks []AlertSink
	now   func() time.Time
}

func NewNotificationService(sinks ...AlertSink) *NotificationService {
	return &NotificationService{sinks: sinks, now: time.Now}
}

func (n *NotificationService) AddSink(sink AlertSink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// NotifyIntegrityViolation escalates one chain finding. TAMPERED_DATA is
// critical, everything else a warning.
func (n *NotificationService) NotifyIntegrityViolation(ctx context.Context, mode, kind, entryID, expected, actual string) error {
	severity := SeverityWarning
	if kind == "TAMPERED_DATA" {
		severity = SeverityCritical
	}
	logger.Error("NOTIFICATION: Audit chain integrity violation",
		zap.String("severity", severity),
		zap.String("mode", mode),
		zap.String("kind", kind),
		zap.String("entryID", entryID),
		zap.String("expected", expected),
		zap.String("actual", actual))

	return n.dispatch(ctx, Alert{
		Severity:  severity,
		Subject:   fmt.Sprintf("audit chain %s at %s", kind, entryID),
		Component: "audit",
		Details: map[string]string{
			"mode":     mode,
			"kind":     kind,
			"entryID":  entryID,
			"expected": expected,
			"actual":   actual,
		},
	})
}

// NotifyAppendFailure escalates a mutation that was refused because its
// audit record could not be written.
func (n *NotificationService) NotifyAppendFailure(ctx context.Context, entityType, entityID string, cause error) error {
	logger.Error("NOTIFICATION: Audit append failed",
		zap.String("entityType", entityType),
		zap.String("entityID", entityID),
		zap.Error(cause))
	return n.dispatch(ctx, Alert{
		Severity:  SeverityCritical,
		Subject:   fmt.Sprintf("audit append failed for %s %s", entityType, entityID),
		Component: "audit",
		Details: map[string]string{
			"entityType": entityType,
			"entityID":   entityID,
			"error":      cause.Error(),
		},
	})
}

func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Info("Notifying admins", zap.String("message", message))
	return n.dispatch(ctx, Alert{
		Severity:  SeverityWarning,
		Subject:   message,
		Component: "admin",
	})
}

func (n *NotificationService) dispatch(ctx context.Context, alert Alert) error {
	alert.RaisedAt = n.now().UTC()

	n.mu.Lock()
	sinks := append([]AlertSink(nil), n.sinks...)
	n.mu.Unlock()

	var firstErr error
	for _, sink := range sinks {
		if err := sink.Deliver(ctx, alert); err != nil {
			logger.Error("Failed to deliver alert", zap.String("subject", alert.Subject), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

const DefaultAlertChannel = "hoteltrack:alerts"

// RedisAlertSink publishes alerts as JSON on a Redis channel for the
// operator tooling subscribed to it.
type RedisAlertSink struct {
	client  *redis.Client
	channel string
}

func NewRedisAlertSink(client *redis.Client, channel string) *RedisAlertSink {
	if channel == "" {
		channel = DefaultAlertChannel
	}
	return &RedisAlertSink{client: client, channel: channel}
}

func (s *RedisAlertSink) Deliver(ctx context.Context, alert Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}
