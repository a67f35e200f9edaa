package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/task-portal/internal/events"
	"github.com/spec-kit/task-portal/internal/observability"
)

// StartAuditWorker subscribes to session events, logging each one and
// counting it in metrics.
func StartAuditWorker(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	handler := func(_ context.Context, event events.Event) error {
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("client_id", event.ClientID),
			zap.Time("at", event.Timestamp),
		}
		if p, ok := event.Payload.(events.SessionPayload); ok {
			fields = append(fields,
				zap.String("user_id", p.UserID),
				zap.String("role", string(p.Role)),
				zap.String("status", string(p.Status)),
			)
			if p.Reason != "" {
				fields = append(fields, zap.String("reason", p.Reason))
			}
		}
		logger.Info(string(event.Type), fields...)
		metrics.Inc(string(event.Type))
		return nil
	}
	dispatcher.Subscribe(events.EventSessionRestored, handler)
	dispatcher.Subscribe(events.EventSessionStarted, handler)
	dispatcher.Subscribe(events.EventSessionEnded, handler)
}
