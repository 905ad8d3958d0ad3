package notifier

import (
	"context"
	"log/slog"

	"lease-notify/internal/models"
)

// LogSender writes notifications to the structured log instead of an external
// channel. Default for development and for deployments that only want the
// audit trail.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "log-sender")}
}

func (s *LogSender) Send(ctx context.Context, n *models.Notification) error {
	s.logger.InfoContext(ctx, "notification delivered to log",
		"notification_id", n.ID,
		"lease_id", n.LeaseID,
		"type", n.Type,
		"subject", Subject(n),
	)
	return nil
}
