package notification

import (
	"context"

	"go.uber.org/zap"
)

// Notification is an outbound message about something that happened
// in the system. Delivery is best-effort and never gates a workflow.
type Notification struct {
	Subject  string
	Body     string
	Metadata map[string]string
}

// Notifier delivers notifications to an external channel
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the application log.
// It stands in for a real channel (SMS, push, webhook) in deployments
// that have none configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	fields := make([]zap.Field, 0, len(notification.Metadata)+1)
	fields = append(fields, zap.String("subject", notification.Subject))
	for k, v := range notification.Metadata {
		fields = append(fields, zap.String(k, v))
	}
	n.logger.Info(notification.Body, fields...)
	return nil
}

// Ensure LogNotifier implements Notifier
var _ Notifier = (*LogNotifier)(nil)
