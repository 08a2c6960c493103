package workflow

import (
	"context"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/sirupsen/logrus"
)

type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityCritical AuditSeverity = "critical"
)

type AuditEvent struct {
	ActorId       int           `json:"actor_id"`
	ActorRole     string        `json:"actor_role"`
	Action        string        `json:"action"`
	EntityType    string        `json:"entity_type"`
	EntityId      int           `json:"entity_id,omitempty"`
	StationId     int           `json:"station_id,omitempty"`
	OldValues     any           `json:"old_values,omitempty"`
	NewValues     any           `json:"new_values,omitempty"`
	Category      string        `json:"category"`
	Severity      AuditSeverity `json:"severity"`
	Success       bool          `json:"success"`
	Description   string        `json:"description"`
	CorrelationId string        `json:"correlation_id,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// Auditor receives ledger events after the fact. Implementations must not block
// the caller for long; their errors are logged and never returned to it.
type Auditor interface {
	LogAudit(ctx context.Context, event AuditEvent) error
}

// LogAuditor writes events through logrus.
type LogAuditor struct {
	Logger *logrus.Logger
}

func (a LogAuditor) LogAudit(_ context.Context, event AuditEvent) error {
	entry := a.Logger.WithFields(logrus.Fields{
		"audit":          true,
		"actor_id":       event.ActorId,
		"action":         event.Action,
		"entity_type":    event.EntityType,
		"entity_id":      event.EntityId,
		"station_id":     event.StationId,
		"category":       event.Category,
		"severity":       event.Severity,
		"success":        event.Success,
		"correlation_id": event.CorrelationId,
	})
	if !event.Success || event.Severity != AuditSeverityInfo {
		entry.Warn(event.Description)
		return nil
	}
	entry.Info(event.Description)
	return nil
}

// PubSubAuditor publishes each event as JSON to a Pub/Sub topic.
// Publishing runs in the background; the result is only logged.
type PubSubAuditor struct {
	Topic   string
	Logger  *logrus.Logger
	Timeout time.Duration
	publish func(ctx context.Context, topic string, attrs map[string]string, obj interface{}) (string, error)
}

func NewPubSubAuditor(topic string, logger *logrus.Logger) *PubSubAuditor {
	return &PubSubAuditor{
		Topic:   topic,
		Logger:  logger,
		Timeout: 30 * time.Second,
		publish: config.PublishJSON,
	}
}

func (a *PubSubAuditor) LogAudit(_ context.Context, event AuditEvent) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
		defer cancel()
		attrs := map[string]string{
			"action":      event.Action,
			"entity_type": event.EntityType,
		}
		id, err := a.publish(ctx, a.Topic, attrs, event)
		if err != nil {
			config.LogError(a.Logger, "workflow", "PubSubAuditor.LogAudit", "publish audit event", event.Action, err)
			return
		}
		a.Logger.WithFields(logrus.Fields{"message_id": id, "action": event.Action}).Debug("audit event published")
	}()
	return nil
}

// MultiAuditor fans out to every sink and keeps going past failures.
type MultiAuditor []Auditor

func (m MultiAuditor) LogAudit(ctx context.Context, event AuditEvent) error {
	var firstErr error
	for _, a := range m {
		if err := a.LogAudit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
